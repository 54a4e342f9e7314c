package main

import (
	"fmt"
	"os"

	"github.com/cuemby/akdstore/pkg/cache"
	"github.com/cuemby/akdstore/pkg/manager"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of a --config file: a manager.Config
// plus the storage settings manager.Config itself has no opinion about
// (BoltDB vs in-memory, data directory).
type fileConfig struct {
	DataDir  string         `yaml:"data_dir"`
	InMemory bool           `yaml:"in_memory"`
	Manager  manager.Config `yaml:"manager"`
}

// loadConfigFile reads a YAML config file and unmarshals it into a
// fileConfig. A missing cache section leaves Manager.Cache nil, which
// manager.New treats as no-cache mode.
func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &fileConfig{
		Manager: manager.Config{MetricsEnabled: true},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// defaultCacheConfig is what a bare "cache: {}" section in a config file
// resolves to, mirroring cache.DefaultConfig.
func defaultCacheConfig() cache.Config {
	return cache.DefaultConfig()
}
