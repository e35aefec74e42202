// Package config assembles coordinator and planner tunables from
// defaults, an optional .env file, environment variables, and an
// optional YAML file, in that increasing order of precedence; CLI
// flags applied by the caller after Load win over all of them.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the coordinator and planner read. Every
// field has a hardcoded default applied before any layer is read.
type Config struct {
	SuboptimalityBound float64 `yaml:"suboptimality_bound"`
	TickIntervalMs     int     `yaml:"tick_interval_ms"`
	MaxLengthFactor    int     `yaml:"max_length_factor"`
	LogLevel           string  `yaml:"log_level"`
	MQTTBroker         string  `yaml:"mqtt_broker"`
	Seed               int64   `yaml:"seed"`
}

// Default returns the hardcoded baseline every other layer overrides.
func Default() *Config {
	return &Config{
		SuboptimalityBound: 1.2,
		TickIntervalMs:     500,
		MaxLengthFactor:    4,
		LogLevel:           "info",
		MQTTBroker:         "",
		Seed:               1,
	}
}

// Load builds a Config by applying, in order: hardcoded defaults, an
// optional .env file at envPath (ignored if empty or missing),
// environment variables, then an optional YAML file at yamlPath
// (ignored if empty). Each layer only overrides fields it sets.
func Load(envPath, yamlPath string) (*Config, error) {
	cfg := Default()

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: loading env file %s: %w", envPath, err)
		}
	}

	cfg.applyEnv()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("config: reading yaml file %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing yaml file %s: %w", yamlPath, err)
		}
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MAPF_SUBOPTIMALITY_BOUND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SuboptimalityBound = f
		}
	}
	if v := os.Getenv("MAPF_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TickIntervalMs = n
		}
	}
	if v := os.Getenv("MAPF_MAX_LENGTH_FACTOR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxLengthFactor = n
		}
	}
	if v := os.Getenv("MAPF_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MAPF_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("MAPF_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = n
		}
	}
}
