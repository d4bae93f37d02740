package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "full file",
			yaml: `
cluster:
  name: game
  forgiving: true
log:
  level: debug
  format: text
store:
  path: /tmp/game.db
api:
  listen: 0.0.0.0:9090
  api_key: secret
  cors_origins: [http://localhost:3000]
`,
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "game", cfg.Cluster.Name)
				assert.True(t, cfg.Cluster.Forgiving)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "text", cfg.Log.Format)
				assert.Equal(t, "/tmp/game.db", cfg.Store.Path)
				assert.Equal(t, "0.0.0.0:9090", cfg.API.Listen)
				assert.Equal(t, "secret", cfg.API.APIKey)
				assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.CORSOrigins)
			},
		},
		{
			name: "partial file keeps defaults",
			yaml: "cluster:\n  name: partial\n",
			checkFn: func(t *testing.T, cfg *Config) {
				d := Defaults()
				assert.Equal(t, "partial", cfg.Cluster.Name)
				assert.Equal(t, d.Log, cfg.Log)
				assert.Equal(t, d.Store, cfg.Store)
				assert.Equal(t, d.API, cfg.API)
			},
		},
		{
			name: "blanked fields fall back to defaults",
			yaml: "log:\n  level: \"\"\nstore:\n  path: \"\"\n",
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Log.Level)
				assert.Equal(t, Defaults().Store.Path, cfg.Store.Path)
			},
		},
		{
			name: "environment overrides file",
			yaml: "cluster:\n  name: file\nlog:\n  level: info\n",
			env: map[string]string{
				"MSGCLUSTER_CLUSTER_NAME":      "env",
				"MSGCLUSTER_CLUSTER_FORGIVING": "true",
				"MSGCLUSTER_LOG_LEVEL":         "warn",
				"MSGCLUSTER_API_CORS_ORIGINS":  "https://a.example,https://b.example",
			},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "env", cfg.Cluster.Name)
				assert.True(t, cfg.Cluster.Forgiving)
				assert.Equal(t, "warn", cfg.Log.Level)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.CORSOrigins)
			},
		},
		{
			name: "interpolates variables",
			yaml: "api:\n  api_key: ${MSGCLUSTER_TEST_KEY}\n",
			env:  map[string]string{"MSGCLUSTER_TEST_KEY": "from-env"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env", cfg.API.APIKey)
			},
		},
		{
			name:    "unset variable in api key",
			yaml:    "api:\n  api_key: ${MSGCLUSTER_TEST_UNSET_KEY}\n",
			wantErr: "MSGCLUSTER_TEST_UNSET_KEY",
		},
		{
			name:    "bad log level",
			yaml:    "log:\n  level: loud\n",
			wantErr: "log.level",
		},
		{
			name:    "bad listen address",
			yaml:    "api:\n  listen: nope\n",
			wantErr: "api.listen",
		},
		{
			name:    "malformed yaml",
			yaml:    "cluster: [",
			wantErr: "parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(writeConfig(t, tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkFn(t, cfg)
		})
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("MSGCLUSTER_STORE_PATH", "/var/lib/msgcluster.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/msgcluster.db", cfg.Store.Path)
	assert.Equal(t, Defaults().Cluster, cfg.Cluster)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiscover(t *testing.T) {
	path := writeConfig(t, "cluster:\n  name: found\n")
	t.Setenv(EnvConfigPath, path)

	got, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, path, got)

	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "gone.yaml"))
	_, err = Discover()
	assert.Error(t, err)
}

func TestDefaultsValidate(t *testing.T) {
	assert.NoError(t, Defaults().Validate())
}
