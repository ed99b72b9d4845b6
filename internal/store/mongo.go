// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/models"
)

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// AuthSource is the authentication database. Defaults to "admin".
	AuthSource string

	// ServerSelectionTimeout bounds Connect when the server is unreachable.
	ServerSelectionTimeout time.Duration

	// OperationTimeout bounds report queries and metadata updates. Event
	// inserts are bounded only by the caller's context.
	OperationTimeout time.Duration
}

// DefaultMongoConfig returns settings for a local MongoDB.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		Host:                   "localhost",
		Port:                   27017,
		Database:               "attention_db",
		AuthSource:             "admin",
		ServerSelectionTimeout: 5 * time.Second,
		OperationTimeout:       10 * time.Second,
	}
}

// Validate checks that credentials and addressing are present.
func (c MongoConfig) Validate() error {
	if c.User == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if c.Host == "" || c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid mongo address %q:%d", c.Host, c.Port)
	}
	if c.Database == "" {
		return errors.New("mongo database name is required")
	}
	return nil
}

// URI returns the connection string without credentials.
func (c MongoConfig) URI() string {
	u := url.URL{Scheme: "mongodb", Host: net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), Path: "/"}
	return u.String()
}

// MongoStore persists events and report metadata in MongoDB.
type MongoStore struct {
	config MongoConfig

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ EventStore          = (*MongoStore)(nil)
	_ SessionQuerier      = (*MongoStore)(nil)
	_ ReportMetadataStore = (*MongoStore)(nil)
	_ Pinger              = (*MongoStore)(nil)
)

// NewMongoStore validates cfg. It does not connect.
func NewMongoStore(cfg MongoConfig) (*MongoStore, error) {
	if cfg.AuthSource == "" {
		cfg.AuthSource = "admin"
	}
	if cfg.ServerSelectionTimeout <= 0 {
		cfg.ServerSelectionTimeout = 5 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 10 * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MongoStore{config: cfg}, nil
}

// Connect implements EventStore. The connection is verified with a ping
// against the primary; on failure no client is kept.
func (s *MongoStore) Connect(ctx context.Context) error {
	opts := options.Client().
		ApplyURI(s.config.URI()).
		SetAuth(options.Credential{
			Username:   s.config.User,
			Password:   s.config.Password,
			AuthSource: s.config.AuthSource,
		}).
		SetServerSelectionTimeout(s.config.ServerSelectionTimeout).
		SetAppName("attentive")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("connect mongo %s: %w", s.config.URI(), err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongo %s: %w", s.config.URI(), err)
	}

	db := client.Database(s.config.Database)
	s.mu.Lock()
	s.client, s.db = client, db
	s.mu.Unlock()

	if err := s.ensureIndexes(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to create session_events indexes")
	}

	logging.Info().
		Str("host", s.config.Host).
		Int("port", s.config.Port).
		Str("database", s.config.Database).
		Msg("Connected to MongoDB")
	return nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	db, err := s.database()
	if err != nil {
		return err
	}
	_, err = db.Collection(EventsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: 1}}},
	})
	return err
}

func (s *MongoStore) database() (*mongo.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

func (s *MongoStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.OperationTimeout)
}

// Ping implements Pinger.
func (s *MongoStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return ErrNotConnected
	}
	return client.Ping(ctx, readpref.Primary())
}

// InsertEvent implements EventStore.
func (s *MongoStore) InsertEvent(ctx context.Context, doc map[string]any) (string, error) {
	db, err := s.database()
	if err != nil {
		return "", err
	}

	res, err := db.Collection(EventsCollection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", EventsCollection, err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

// Close implements EventStore.
func (s *MongoStore) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client, s.db = nil, nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

// sessionsPipeline groups a user's data events into sessions and pages them
// with a $facet so the total and the page come back in one round trip.
func sessionsPipeline(userID string, from, to float64, page, pageSize int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "userId", Value: userID},
			{Key: "eventType", Value: string(models.EventTypeData)},
			{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lt", Value: to}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$sessionId"},
			{Key: "userId", Value: bson.D{{Key: "$first", Value: "$userId"}}},
			{Key: "firstEvent", Value: bson.D{{Key: "$min", Value: "$timestamp"}}},
			{Key: "lastEvent", Value: bson.D{{Key: "$max", Value: "$timestamp"}}},
			{Key: "eventCount", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "firstEvent", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$facet", Value: bson.D{
			{Key: "metadata", Value: bson.A{bson.D{{Key: "$count", Value: "total"}}}},
			{Key: "data", Value: bson.A{
				bson.D{{Key: "$skip", Value: int64(page) * int64(pageSize)}},
				bson.D{{Key: "$limit", Value: int64(pageSize)}},
			}},
		}}},
	}
}

// SessionsByUser implements SessionQuerier.
func (s *MongoStore) SessionsByUser(ctx context.Context, userID string, from, to float64, page, pageSize int) (models.SessionPage, error) {
	db, err := s.database()
	if err != nil {
		return models.SessionPage{}, err
	}
	if page < 0 || pageSize <= 0 {
		return models.SessionPage{}, fmt.Errorf("invalid page %d size %d", page, pageSize)
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cur, err := db.Collection(EventsCollection).Aggregate(ctx, sessionsPipeline(userID, from, to, page, pageSize))
	if err != nil {
		return models.SessionPage{}, fmt.Errorf("aggregate sessions for %s: %w", userID, err)
	}
	var facets []struct {
		Metadata []struct {
			Total int64 `bson:"total"`
		} `bson:"metadata"`
		Data []models.SessionRef `bson:"data"`
	}
	if err := cur.All(ctx, &facets); err != nil {
		return models.SessionPage{}, fmt.Errorf("decode sessions for %s: %w", userID, err)
	}

	result := models.SessionPage{Sessions: []models.SessionRef{}}
	if len(facets) == 0 {
		return result, nil
	}
	if len(facets[0].Metadata) > 0 {
		result.Total = facets[0].Metadata[0].Total
	}
	if facets[0].Data != nil {
		result.Sessions = facets[0].Data
	}
	return result, nil
}

func analysisPipeline(sessionID string) mongo.Pipeline {
	earIsNumber := bson.D{{Key: "$isNumber", Value: "$payload.ear"}}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "sessionId", Value: sessionID},
			{Key: "eventType", Value: string(models.EventTypeData)},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$sessionId"},
			{Key: "userId", Value: bson.D{{Key: "$first", Value: "$userId"}}},
			{Key: "startTime", Value: bson.D{{Key: "$min", Value: "$timestamp"}}},
			{Key: "endTime", Value: bson.D{{Key: "$max", Value: "$timestamp"}}},
			{Key: "eventCount", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgEar", Value: bson.D{{Key: "$avg", Value: "$payload.ear"}}},
			{Key: "avgMar", Value: bson.D{{Key: "$avg", Value: "$payload.mar"}}},
			{Key: "avgYaw", Value: bson.D{{Key: "$avg", Value: "$payload.yaw"}}},
			{Key: "drowsy", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$and", Value: bson.A{earIsNumber, bson.D{{Key: "$lt", Value: bson.A{"$payload.ear", DrowsyEARThreshold}}}}}},
				1, 0,
			}}}}}},
			{Key: "distracted", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{bson.D{{Key: "$abs", Value: "$payload.yaw"}}, DistractedYawThreshold}}},
				1, 0,
			}}}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "userId", Value: 1},
			{Key: "startTime", Value: 1},
			{Key: "endTime", Value: 1},
			{Key: "eventCount", Value: 1},
			{Key: "avgEar", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$avgEar", 0}}}},
			{Key: "avgMar", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$avgMar", 0}}}},
			{Key: "avgYaw", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$avgYaw", 0}}}},
			{Key: "durationSeconds", Value: bson.D{{Key: "$subtract", Value: bson.A{"$endTime", "$startTime"}}}},
			{Key: "drowsyRatio", Value: bson.D{{Key: "$divide", Value: bson.A{"$drowsy", "$eventCount"}}}},
			{Key: "distractedRatio", Value: bson.D{{Key: "$divide", Value: bson.A{"$distracted", "$eventCount"}}}},
		}}},
	}
}

// AnalyzeSession implements SessionQuerier.
func (s *MongoStore) AnalyzeSession(ctx context.Context, sessionID string) (models.SessionAnalysis, error) {
	db, err := s.database()
	if err != nil {
		return models.SessionAnalysis{}, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cur, err := db.Collection(EventsCollection).Aggregate(ctx, analysisPipeline(sessionID))
	if err != nil {
		return models.SessionAnalysis{}, fmt.Errorf("aggregate session %s: %w", sessionID, err)
	}
	var rows []models.SessionAnalysis
	if err := cur.All(ctx, &rows); err != nil {
		return models.SessionAnalysis{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if len(rows) == 0 {
		return models.SessionAnalysis{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return rows[0], nil
}

// SessionEvents implements SessionQuerier.
func (s *MongoStore) SessionEvents(ctx context.Context, sessionID string) ([]map[string]any, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}})
	cur, err := db.Collection(EventsCollection).Find(ctx, bson.D{{Key: "sessionId", Value: sessionID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find events for %s: %w", sessionID, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode events for %s: %w", sessionID, err)
	}
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = plainMap(d)
	}
	return out, nil
}

// plainMap converts decoded BSON containers to plain Go maps and slices so
// callers can type-assert nested documents as map[string]any.
func plainMap(m bson.M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return plainMap(t)
	case bson.D:
		return plainMap(t.Map())
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

// CreateReport implements ReportMetadataStore.
func (s *MongoStore) CreateReport(ctx context.Context, req models.ReportRequest) (models.ReportMetadata, error) {
	db, err := s.database()
	if err != nil {
		return models.ReportMetadata{}, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	// BSON dates carry millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	meta := models.ReportMetadata{
		ID:          NewReportID(),
		ReportTitle: req.ReportTitle,
		UserID:      req.UserID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := db.Collection(ReportsCollection).InsertOne(ctx, meta); err != nil {
		return models.ReportMetadata{}, fmt.Errorf("insert report metadata: %w", err)
	}
	return meta, nil
}

// UpdateReportStatus implements ReportMetadataStore.
func (s *MongoStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, storagePath string) error {
	db, err := s.database()
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	set := bson.D{
		{Key: "status", Value: status},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	if storagePath != "" {
		set = append(set, bson.E{Key: "storagePath", Value: storagePath})
	}
	res, err := db.Collection(ReportsCollection).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("update report %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetReport implements ReportMetadataStore.
func (s *MongoStore) GetReport(ctx context.Context, id string) (models.ReportMetadata, error) {
	db, err := s.database()
	if err != nil {
		return models.ReportMetadata{}, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var meta models.ReportMetadata
	err = db.Collection(ReportsCollection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&meta)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ReportMetadata{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.ReportMetadata{}, fmt.Errorf("find report %s: %w", id, err)
	}
	return meta, nil
}
