package config

import (
	"fmt"
	"net"
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}
)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Cluster.Name == "" {
		return fmt.Errorf("cluster.name is required")
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", c.Log.Level)
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
		return fmt.Errorf("api.listen: %w", err)
	}
	if m := envVarPattern.FindStringSubmatch(c.API.APIKey); m != nil {
		return fmt.Errorf("api.api_key: environment variable ${%s} is not set", m[1])
	}
	return nil
}
