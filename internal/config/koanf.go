// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/attentive/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvFile is read into the environment before loading.
const DotEnvFile = ".env"

// envMappings maps environment variables to koanf paths.
var envMappings = map[string]string{
	"relay_host":           "relay.host",
	"relay_port":           "relay.port",
	"relay_channel_name":   "relay.channel_name",
	"relay_retry_interval": "relay.retry_interval",
	"relay_embedded":       "relay.embedded",

	"mongo_host":     "mongo.host",
	"mongo_port":     "mongo.port",
	"mongo_user":     "mongo.user",
	"mongo_password": "mongo.password",
	"mongo_db_name":  "mongo.db_name",

	"ingest_addr":            "ingest.addr",
	"ingest_forward":         "ingest.forward",
	"ingest_allowed_origins": "ingest.allowed_origins",

	"http_addr":           "server.addr",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",
	"shutdown_timeout":    "server.shutdown_timeout",

	"report_data_dir":   "report.data_dir",
	"report_cache_size": "report.cache_size",
	"report_cache_ttl":  "report.cache_ttl",
	"feedback_url":      "report.feedback_url",
	"feedback_model":    "report.feedback_model",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// sliceConfigPaths are comma-separated when they come from the environment.
var sliceConfigPaths = []string{
	"ingest.allowed_origins",
	"server.cors_origins",
}

// Load reads .env, then layers defaults, the config file and the
// environment, and validates the result. An empty path searches CONFIG_PATH
// and DefaultConfigPaths.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	if path == "" {
		path = findConfigFile()
	}
	return LoadFile(path)
}

// LoadFile is Load without .env handling and with an explicit config file.
// An empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotEnv sets variables from path that are not already set. A missing
// file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// processSliceFields splits comma-separated strings for slice fields. Values
// from YAML are already slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps a known variable to its koanf path and drops
// everything else, so unrelated environment never reaches the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
