// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/models"
)

const artifactKeyPrefix = "artifact:"

// Artifacts is the write side of artifact storage used by Generator.
type Artifacts interface {
	Save(ctx context.Context, path string, r *models.Report) error
	Delete(ctx context.Context, path string) error
}

// ArtifactStore keeps report artifacts in BadgerDB keyed by storage path.
type ArtifactStore struct {
	db *badger.DB
}

// OpenArtifactStore opens (or creates) a BadgerDB directory at dir.
func OpenArtifactStore(dir string) (*ArtifactStore, error) {
	if dir == "" {
		return nil, errors.New("artifact directory is required")
	}
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open artifact store %s: %w", dir, err)
	}
	return &ArtifactStore{db: db}, nil
}

// OpenInMemoryArtifactStore opens a store that keeps nothing on disk.
func OpenInMemoryArtifactStore() (*ArtifactStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory artifact store: %w", err)
	}
	return &ArtifactStore{db: db}, nil
}

// Save writes r as indented JSON at path, replacing any previous artifact.
func (s *ArtifactStore) Save(_ context.Context, path string, r *models.Report) error {
	if err := validPath(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(artifactKeyPrefix+path), data); err != nil {
			return fmt.Errorf("set artifact: %w", err)
		}
		return nil
	})
}

// Load returns the JSON artifact stored at path.
func (s *ArtifactStore) Load(_ context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(artifactKeyPrefix + path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrArtifactNotFound
		}
		if err != nil {
			return fmt.Errorf("get artifact: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes the artifact at path. Deleting a missing path is not an error.
func (s *ArtifactStore) Delete(_ context.Context, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(artifactKeyPrefix + path)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete artifact: %w", err)
		}
		return nil
	})
}

// List returns the artifact paths stored for userID.
func (s *ArtifactStore) List(_ context.Context, userID string) ([]string, error) {
	var paths []string
	prefix := []byte(artifactKeyPrefix + userID + "/")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			paths = append(paths, strings.TrimPrefix(string(it.Item().Key()), artifactKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return paths, nil
}

// Close closes the database.
func (s *ArtifactStore) Close() error {
	return s.db.Close()
}

func validPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return fmt.Errorf("invalid artifact path %q", path)
	}
	return nil
}

// badgerLogger routes BadgerDB logs to zerolog, one level down for info and debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logging.Error().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Warningf(format string, args ...any) {
	logging.Warn().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Infof(format string, args ...any) {
	logging.Debug().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Debugf(format string, args ...any) {
	logging.Trace().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}
