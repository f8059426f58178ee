package cache

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCache stores one document per entry in a MongoDB collection,
// keyed by _id. Like the other backends it applies no server-side
// expiry; the scraper decides freshness from the entry timestamp.
type MongoCache struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	ID    string `bson:"_id"`
	Entry Entry  `bson:"entry"`
}

// NewMongoCache connects to the MongoDB deployment at uri and uses the
// given database and collection for cache documents.
func NewMongoCache(ctx context.Context, uri, database, collection string) (*MongoCache, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoCache{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Get reads the entry for key.
func (c *MongoCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	var doc mongoDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return doc.Entry, true, nil
}

// Set upserts the entry for key.
func (c *MongoCache) Set(ctx context.Context, key string, entry Entry) error {
	_, err := c.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoDoc{ID: key, Entry: entry},
		options.Replace().SetUpsert(true),
	)
	return err
}

// Delete removes the entry for key.
func (c *MongoCache) Delete(ctx context.Context, key string) error {
	_, err := c.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Close disconnects from the deployment.
func (c *MongoCache) Close() error {
	return c.client.Disconnect(context.Background())
}

var _ Cache = (*MongoCache)(nil)
