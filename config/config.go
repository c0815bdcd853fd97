package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the node configuration loaded from TOML.
type Config struct {
	// ListenAddr is the HTTP API bind address.
	ListenAddr string `toml:"listen_addr"`
	// IPFSNode is the IPFS API endpoint for proposal metadata.
	// gov.NewMetadataClient treats an empty endpoint as localhost:5001.
	IPFSNode string `toml:"ipfs_node"`
	// EnableMetrics exposes prometheus metrics on /metrics.
	EnableMetrics bool `toml:"enable_metrics"`
	// LogLevel is the api log level (debug, info, warn, error).
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr:    ":9000",
		EnableMetrics: true,
		LogLevel:      "info",
	}
}

// Load reads a TOML config file, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.ListenAddr == "" {
		return cfg, fmt.Errorf("listen_addr cannot be empty")
	}

	return cfg, nil
}
