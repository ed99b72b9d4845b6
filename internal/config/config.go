// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package config

import (
	"time"

	"github.com/tomtom215/attentive/internal/api"
	"github.com/tomtom215/attentive/internal/eventprocessor"
	"github.com/tomtom215/attentive/internal/ingest"
	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/report"
	"github.com/tomtom215/attentive/internal/store"
)

// Config is the full process configuration.
type Config struct {
	Relay   RelayConfig   `koanf:"relay"`
	Mongo   MongoConfig   `koanf:"mongo"`
	Ingest  IngestConfig  `koanf:"ingest"`
	Server  ServerConfig  `koanf:"server"`
	Report  ReportConfig  `koanf:"report"`
	Logging LoggingConfig `koanf:"logging"`
}

// RelayConfig addresses the NATS relay.
type RelayConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// Channel is the subject events are published to and consumed from.
	Channel string `koanf:"channel_name" validate:"required,channel"`

	// RetryInterval is the fixed delay between consumer relay reconnects.
	RetryInterval time.Duration `koanf:"retry_interval" validate:"gt=0"`

	// Embedded starts nats-server inside the serve process on Host:Port.
	Embedded bool `koanf:"embedded"`
}

// MongoConfig addresses the durable store. Credentials are not validated
// here; see RequireStore.
type MongoConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"min=1,max=65535"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"db_name" validate:"required"`
}

// IngestConfig configures the websocket endpoint.
type IngestConfig struct {
	Addr string `koanf:"addr" validate:"required"`

	// Forward publishes enriched frames to the relay.
	Forward        bool     `koanf:"forward"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gt=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// ReportConfig configures report generation.
type ReportConfig struct {
	DataDir string `koanf:"data_dir" validate:"required"`

	// CacheSize and CacheTTL bound the in-memory cache of finished reports.
	CacheSize int           `koanf:"cache_size" validate:"gt=0"`
	CacheTTL  time.Duration `koanf:"cache_ttl" validate:"gt=0"`

	// FeedbackURL selects HTTP feedback when set.
	FeedbackURL   string `koanf:"feedback_url" validate:"omitempty,url"`
	FeedbackModel string `koanf:"feedback_model"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	relay := eventprocessor.DefaultRelayConfig()
	consumer := eventprocessor.DefaultConsumerConfig()
	mongo := store.DefaultMongoConfig()
	apiCfg := api.DefaultConfig()
	feedback := report.DefaultHTTPFeedbackConfig()

	return &Config{
		Relay: RelayConfig{
			Host:          "127.0.0.1",
			Port:          4222,
			Channel:       relay.Channel,
			RetryInterval: consumer.RetryInterval,
		},
		Mongo: MongoConfig{
			Host:   mongo.Host,
			Port:   mongo.Port,
			DBName: mongo.Database,
		},
		Ingest: IngestConfig{
			Addr: ingest.DefaultConfig().Addr,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RateLimitRequests: apiCfg.RateLimitRequests,
			RateLimitWindow:   apiCfg.RateLimitWindow,
			ShutdownTimeout:   10 * time.Second,
		},
		Report: ReportConfig{
			DataDir:       "./data/reports",
			CacheSize:     apiCfg.CacheSize,
			CacheTTL:      apiCfg.CacheTTL,
			FeedbackModel: feedback.Model,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// RelayURL is the nats:// URL for Relay.Host and Relay.Port.
func (c *Config) RelayURL() string {
	return eventprocessor.RelayURL(c.Relay.Host, c.Relay.Port)
}

// RelayClientConfig returns publisher and dialer settings.
func (c *Config) RelayClientConfig() eventprocessor.RelayConfig {
	cfg := eventprocessor.DefaultRelayConfig()
	cfg.URL = c.RelayURL()
	cfg.Channel = c.Relay.Channel
	return cfg
}

// EmbeddedServerConfig returns settings for the in-process relay.
func (c *Config) EmbeddedServerConfig() eventprocessor.ServerConfig {
	cfg := eventprocessor.DefaultServerConfig()
	cfg.Host = c.Relay.Host
	cfg.Port = c.Relay.Port
	return cfg
}

// ConsumerConfig returns persistence consumer settings.
func (c *Config) ConsumerConfig() eventprocessor.ConsumerConfig {
	cfg := eventprocessor.DefaultConsumerConfig()
	cfg.Channel = c.Relay.Channel
	cfg.RetryInterval = c.Relay.RetryInterval
	return cfg
}

// MongoStoreConfig returns durable store settings.
func (c *Config) MongoStoreConfig() store.MongoConfig {
	cfg := store.DefaultMongoConfig()
	cfg.Host = c.Mongo.Host
	cfg.Port = c.Mongo.Port
	cfg.User = c.Mongo.User
	cfg.Password = c.Mongo.Password
	cfg.Database = c.Mongo.DBName
	return cfg
}

// IngestServerConfig returns websocket endpoint settings.
func (c *Config) IngestServerConfig() ingest.Config {
	cfg := ingest.DefaultConfig()
	cfg.Addr = c.Ingest.Addr
	cfg.Channel = c.Relay.Channel
	cfg.AllowedOrigins = c.Ingest.AllowedOrigins
	return cfg
}

// APIConfig returns HTTP API settings.
func (c *Config) APIConfig() api.Config {
	cfg := api.DefaultConfig()
	cfg.CORSAllowedOrigins = c.Server.CORSOrigins
	cfg.RateLimitRequests = c.Server.RateLimitRequests
	cfg.RateLimitWindow = c.Server.RateLimitWindow
	cfg.RateLimitDisabled = c.Server.RateLimitDisabled
	cfg.CacheSize = c.Report.CacheSize
	cfg.CacheTTL = c.Report.CacheTTL
	return cfg
}

// FeedbackConfig returns HTTP feedback settings. It is only used when
// Report.FeedbackURL is set.
func (c *Config) FeedbackConfig() report.HTTPFeedbackConfig {
	cfg := report.DefaultHTTPFeedbackConfig()
	cfg.URL = c.Report.FeedbackURL
	if c.Report.FeedbackModel != "" {
		cfg.Model = c.Report.FeedbackModel
	}
	return cfg
}

// LoggingOptions returns logger settings.
func (c *Config) LoggingOptions() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}
