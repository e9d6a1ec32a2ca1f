// Package config holds the node's on-disk configuration structures, their
// defaults and validation, following the same yaml-tagged, Validate()-method
// shape used throughout the codebase.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var errInvalidPeerWindow = errors.New("MinPeers must not exceed MaxPeers")

// Config is the top-level node configuration.
type Config struct {
	Logger Logger `yaml:"Logger"`
	P2P    P2P    `yaml:"P2P"`
}

// Validate checks every sub-section of the configuration.
func (c Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config: %w", err)
	}
	if err := c.P2P.Validate(); err != nil {
		return fmt.Errorf("p2p config: %w", err)
	}
	return nil
}

// Default returns a Config with the node's baked-in defaults.
func Default() Config {
	return Config{
		Logger: Logger{
			LogEncoding: "console",
			LogLevel:    "info",
		},
		P2P: P2P{
			LocalBindAddress:        "0.0.0.0:3000",
			MinPeers:                4,
			MaxPeers:                100,
			PeerSyncInterval:        10 * time.Second,
			TransactionSyncInterval: 10 * time.Second,
			DialTimeout:             5 * time.Second,
			HandshakeTimeout:        5 * time.Second,
			BootHandshakeTimeout:    10 * time.Second,
			OutboundQueueSize:       256,
		},
	}
}

// Load reads and validates a Config from a yaml file, starting from Default()
// so that unset fields keep their baked-in values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
