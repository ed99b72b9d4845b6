// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tomtom215/attentive/internal/store"
)

const (
	// DefaultMongoImage matches the version used in deployment.
	DefaultMongoImage = "mongo:7"

	// DefaultMongoPort is the MongoDB wire protocol port.
	DefaultMongoPort = "27017"

	DefaultMongoUser     = "root"
	DefaultMongoPassword = "example"
)

// MongoContainer is a running MongoDB with root credentials.
type MongoContainer struct {
	testcontainers.Container
	Host     string
	Port     int
	User     string
	Password string
}

// MongoOption configures the MongoDB container.
type MongoOption func(*mongoConfig)

type mongoConfig struct {
	image        string
	user         string
	password     string
	startTimeout time.Duration
}

// WithMongoImage sets a custom MongoDB image.
func WithMongoImage(image string) MongoOption {
	return func(c *mongoConfig) {
		c.image = image
	}
}

// WithMongoCredentials sets the root user created at startup.
func WithMongoCredentials(user, password string) MongoOption {
	return func(c *mongoConfig) {
		c.user = user
		c.password = password
	}
}

// WithMongoStartTimeout bounds the wait for the server to accept connections.
func WithMongoStartTimeout(timeout time.Duration) MongoOption {
	return func(c *mongoConfig) {
		c.startTimeout = timeout
	}
}

// NewMongoContainer starts MongoDB and waits until it accepts connections.
func NewMongoContainer(ctx context.Context, opts ...MongoOption) (*MongoContainer, error) {
	cfg := &mongoConfig{
		image:        DefaultMongoImage,
		user:         DefaultMongoUser,
		password:     DefaultMongoPassword,
		startTimeout: 90 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultMongoPort + "/tcp"},
		Env: map[string]string{
			"MONGO_INITDB_ROOT_USERNAME": cfg.user,
			"MONGO_INITDB_ROOT_PASSWORD": cfg.password,
		},
		WaitingFor: wait.ForAll(
			// The init script starts mongod twice; wait for the second.
			wait.ForLog("Waiting for connections").WithOccurrence(2),
			wait.ForListeningPort(DefaultMongoPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create mongo container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, DefaultMongoPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("parse mapped port %q: %w", mapped.Port(), err)
	}

	return &MongoContainer{
		Container: container,
		Host:      host,
		Port:      port,
		User:      cfg.user,
		Password:  cfg.password,
	}, nil
}

// Config returns store settings pointing at the container.
func (c *MongoContainer) Config(database string) store.MongoConfig {
	cfg := store.DefaultMongoConfig()
	cfg.Host = c.Host
	cfg.Port = c.Port
	cfg.User = c.User
	cfg.Password = c.Password
	cfg.Database = database
	return cfg
}
