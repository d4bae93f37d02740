package config

// Config represents the complete msgcluster configuration.
type Config struct {
	Cluster ClusterConfig `yaml:"cluster"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	API     APIConfig     `yaml:"api"`
}

// ClusterConfig names the served cluster and picks the registry mode.
type ClusterConfig struct {
	Name string `yaml:"name" env:"MSGCLUSTER_CLUSTER_NAME"`
	// Forgiving registries build plain objects for unknown type tags
	// instead of failing.
	Forgiving bool `yaml:"forgiving" env:"MSGCLUSTER_CLUSTER_FORGIVING"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"MSGCLUSTER_LOG_LEVEL"`
	Format string `yaml:"format" env:"MSGCLUSTER_LOG_FORMAT"`
}

// StoreConfig locates the SQLite snapshot database.
type StoreConfig struct {
	Path string `yaml:"path" env:"MSGCLUSTER_STORE_PATH"`
}

// APIConfig defines HTTP API server settings. An empty APIKey disables
// bearer authentication.
type APIConfig struct {
	Listen string `yaml:"listen" env:"MSGCLUSTER_API_LISTEN"`
	APIKey string `yaml:"api_key" env:"MSGCLUSTER_API_KEY"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins" env:"MSGCLUSTER_API_CORS_ORIGINS" envSeparator:","`
}

// Defaults returns a Config with every field set to its default value.
func Defaults() *Config {
	return &Config{
		Cluster: ClusterConfig{Name: "default"},
		Log:     LogConfig{Level: "info", Format: "json"},
		Store:   StoreConfig{Path: "./data/snapshots.db"},
		API:     APIConfig{Listen: "127.0.0.1:8080"},
	}
}
