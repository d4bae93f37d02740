package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable consulted by Discover.
const EnvConfigPath = "MSGCLUSTER_CONFIG"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

var ErrNoConfig = errors.New("no config found")

// Load reads the YAML file at path on top of Defaults, expands ${VAR}
// references, applies MSGCLUSTER_* environment overrides and validates the
// result. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Discover finds a config file by checking, in order, $MSGCLUSTER_CONFIG,
// ~/.config/msgcluster/config.yaml and ./msgcluster.yaml.
func Discover() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("$%s: %w", EnvConfigPath, err)
		}
		return p, nil
	}

	candidates := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "msgcluster", "config.yaml"))
	}
	candidates = append(candidates, "msgcluster.yaml")

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w (checked: $%s, ~/.config/msgcluster/config.yaml, ./msgcluster.yaml)", ErrNoConfig, EnvConfigPath)
}

// applyDefaults fills fields a config file explicitly blanked.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Cluster.Name == "" {
		cfg.Cluster.Name = d.Cluster.Name
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = d.Store.Path
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = d.API.Listen
	}
}

// interpolateEnv replaces ${VAR} with its environment value. Undefined
// variables are left in place and rejected by Validate where it matters.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}
