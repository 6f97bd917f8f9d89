// Package catalog supplies the user's known assets to the recognizer. Every
// Snapshot call returns a fresh copy; nothing is cached between calls.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUserRequired is returned when a store needs a user ID and none was given.
var ErrUserRequired = errors.New("user id is required")

// AssetID identifies a catalog entry. Numeric and string IDs are both
// accepted on input and kept as text.
type AssetID string

// UnmarshalJSON accepts a JSON string or number.
func (id *AssetID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid asset id: %w", err)
		}
		*id = AssetID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid asset id %s: %w", data, err)
	}
	*id = AssetID(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar.
func (id *AssetID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid asset id at line %d", node.Line)
	}
	*id = AssetID(node.Value)
	return nil
}

// Asset is one named entry of a user's catalog.
type Asset struct {
	ID   AssetID `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`
}

// Store supplies catalog snapshots for one user at a time.
type Store interface {
	Snapshot(ctx context.Context, userID string) ([]Asset, error)
	Close(ctx context.Context) error
}

// Config selects and configures a Store.
type Config struct {
	Driver          string `mapstructure:"driver" yaml:"driver" json:"driver"` // file, mongo, postgres, redis or memory
	File            string `mapstructure:"file" yaml:"file" json:"file"`
	MongoURI        string `mapstructure:"mongo_uri" yaml:"mongo_uri" json:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database" yaml:"mongo_database" json:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection" json:"mongo_collection"`
	PostgresDSN     string `mapstructure:"postgres_dsn" yaml:"postgres_dsn" json:"postgres_dsn"`
	PostgresTable   string `mapstructure:"postgres_table" yaml:"postgres_table" json:"postgres_table"`
	RedisURL        string `mapstructure:"redis_url" yaml:"redis_url" json:"redis_url"`
	RedisKeyPrefix  string `mapstructure:"redis_key_prefix" yaml:"redis_key_prefix" json:"redis_key_prefix"`
}

// Drivers lists the accepted Config.Driver values.
var Drivers = []string{"memory", "file", "mongo", "postgres", "redis"}

// DefaultConfig returns a config backed by an empty in-memory store.
func DefaultConfig() Config {
	return Config{
		Driver:          "memory",
		MongoDatabase:   "holdscan",
		MongoCollection: "assets",
		PostgresTable:   "assets",
		RedisKeyPrefix:  "holdscan:catalog:",
	}
}

// Open constructs the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.File)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case "postgres", "postgresql":
		return NewPostgresStore(cfg.PostgresDSN, cfg.PostgresTable)
	case "redis":
		return NewRedisStore(cfg.RedisURL, cfg.RedisKeyPrefix)
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

// clone returns a copy so callers can never alias store state.
func clone(assets []Asset) []Asset {
	if assets == nil {
		return []Asset{}
	}
	return append([]Asset(nil), assets...)
}
