package extension

import "github.com/xraph/sentinel"

// Config holds the Sentinel extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.sentinel" or "sentinel" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for sentinel routes (default: "/sentinel").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Engine is the decision configuration passed to the engine.
	Engine sentinel.Config `json:"engine" mapstructure:"engine" yaml:"engine"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath: "/sentinel",
		Engine:   sentinel.DefaultConfig(),
	}
}
