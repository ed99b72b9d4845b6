// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package config

import (
	"errors"
	"fmt"

	"github.com/tomtom215/attentive/internal/store"
	"github.com/tomtom215/attentive/internal/validation"
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks field shapes. It does not require store credentials.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, verr)
	}
	if c.Ingest.Addr == c.Server.Addr {
		return fmt.Errorf("%w: ingest and http addresses are both %s", ErrInvalidConfig, c.Server.Addr)
	}
	return nil
}

// RequireStore fails with store.ErrMissingCredentials when the Mongo user or
// password is absent. Roles that write to the store call it before opening
// any connection.
func (c *Config) RequireStore() error {
	var missing []string
	if c.Mongo.User == "" {
		missing = append(missing, "MONGO_USER")
	}
	if c.Mongo.Password == "" {
		missing = append(missing, "MONGO_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v not set", store.ErrMissingCredentials, missing)
	}
	return nil
}
