package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoAsset is the stored document shape. asset_id may be a number or a
// string.
type mongoAsset struct {
	UserID  string      `bson:"user_id"`
	AssetID interface{} `bson:"asset_id"`
	Name    string      `bson:"name"`
}

// MongoStore reads catalogs from a MongoDB collection with one document per
// asset.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects and pings the server.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo URI is required")
	}
	if database == "" || collection == "" {
		return nil, errors.New("mongo database and collection are required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &MongoStore{client: client, collection: client.Database(database).Collection(collection)}, nil
}

// Snapshot returns the user's assets in insertion order.
func (s *MongoStore) Snapshot(ctx context.Context, userID string) ([]Asset, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.collection.Find(ctx, mongoFilter(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []mongoAsset
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return assetsFromMongo(docs), nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mongoFilter(userID string) bson.M {
	return bson.M{"user_id": userID, "deleted": bson.M{"$ne": true}}
}

func assetsFromMongo(docs []mongoAsset) []Asset {
	out := make([]Asset, 0, len(docs))
	for _, d := range docs {
		if d.Name == "" || d.AssetID == nil {
			continue
		}
		out = append(out, Asset{ID: AssetID(fmt.Sprint(d.AssetID)), Name: d.Name})
	}
	return out
}
