// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package config loads Attentive configuration with koanf.

# Sources

Layers are applied in order, later layers winning:

 1. Struct defaults (defaultConfig)
 2. YAML file: CONFIG_PATH, else the first of config.yaml, config.yml,
    /etc/attentive/config.yaml that exists
 3. Environment variables

A .env file in the working directory is read into the process environment
before any layer is loaded. Variables already set are not overridden.

# Environment Variables

Relay:
  - RELAY_HOST: relay host (default: 127.0.0.1)
  - RELAY_PORT: relay port (default: 4222)
  - RELAY_CHANNEL_NAME: relay channel (default: attention-meaningful-events)
  - RELAY_RETRY_INTERVAL: consumer reconnect delay (default: 5s)
  - RELAY_EMBEDDED: run nats-server in process for serve (default: false)

Durable store:
  - MONGO_HOST, MONGO_PORT (default: localhost, 27017)
  - MONGO_USER, MONGO_PASSWORD: required by saver and serve
  - MONGO_DB_NAME (default: attention_db)

Ingestion:
  - INGEST_ADDR: websocket listen address (default: :9002)
  - INGEST_FORWARD: publish enriched frames to the relay (default: false)
  - INGEST_ALLOWED_ORIGINS: comma-separated browser origins

HTTP API:
  - HTTP_ADDR: listen address (default: :8080)
  - CORS_ORIGINS: comma-separated allowed origins
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - SHUTDOWN_TIMEOUT (default: 10s)

Reports:
  - REPORT_DATA_DIR: badger directory for report artifacts (default: ./data/reports)
  - REPORT_CACHE_SIZE: finished reports kept in memory (default: 256)
  - REPORT_CACHE_TTL (default: 10m)
  - FEEDBACK_URL: text-generation server; empty uses rule-based feedback
  - FEEDBACK_MODEL (default: exaone3.5:2.4b)

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json, console (default: json)
  - LOG_CALLER: include file:line (default: false)

Unknown variables are ignored.

# Validation

Validate runs on every load and checks shape: ports, channel name, log
level. Store credentials are checked separately by RequireStore, because
only the roles that write to the store need them.
*/
package config
