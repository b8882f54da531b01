package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo is a Database backed by a MongoDB deployment.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to uri and pings the primary before returning.
func NewMongo(ctx context.Context, uri, database string, timeout time.Duration) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) Collection(name string) Collection {
	return &mongoCollection{coll: m.db.Collection(name)}
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

var noInternalID = bson.M{"_id": 0}

func (c *mongoCollection) FindOne(ctx context.Context, f Filter) (Document, error) {
	raw, err := c.coll.FindOne(ctx, mongoFilter(f), options.FindOne().SetProjection(noInternalID)).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return rawToDoc(raw)
}

func (c *mongoCollection) Find(ctx context.Context, f Filter, opts FindOptions) ([]Document, error) {
	fo := options.Find().SetProjection(noInternalID)
	if opts.SortDesc != "" {
		fo.SetSort(bson.D{{Key: opts.SortDesc, Value: -1}})
	}
	if opts.Skip > 0 {
		fo.SetSkip(int64(opts.Skip))
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	cur, err := c.coll.Find(ctx, mongoFilter(f), fo)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := make([]Document, 0)
	for cur.Next(ctx) {
		d, err := rawToDoc(cur.Current)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, cur.Err()
}

func (c *mongoCollection) Count(ctx context.Context, f Filter) (int64, error) {
	return c.coll.CountDocuments(ctx, mongoFilter(f))
}

func (c *mongoCollection) Insert(ctx context.Context, doc Document) error {
	_, err := c.coll.InsertOne(ctx, map[string]any(doc))
	return mongoWriteErr(err)
}

func (c *mongoCollection) Replace(ctx context.Context, f Filter, doc Document, upsert bool) (int64, error) {
	res, err := c.coll.ReplaceOne(ctx, mongoFilter(f), map[string]any(doc), options.Replace().SetUpsert(upsert))
	if err != nil {
		return 0, mongoWriteErr(err)
	}
	return res.MatchedCount, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, f Filter) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, mongoFilter(f))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, mongoFilter(f))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) EnsureIndex(ctx context.Context, field string, unique bool) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(unique),
	})
	return err
}

func mongoFilter(f Filter) bson.M {
	switch {
	case f.IsAll():
		return bson.M{}
	case f.Equals != nil:
		return bson.M{f.Field: f.Equals}
	default:
		return bson.M{f.Field: bson.M{"$regex": regexp.QuoteMeta(f.Contains), "$options": "i"}}
	}
}

func mongoWriteErr(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// rawToDoc goes through relaxed extended JSON so nested values come back
// as plain maps, slices and float64 numbers.
func rawToDoc(raw bson.Raw) (Document, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("mongo: encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mongo: decode document: %w", err)
	}
	delete(doc, "_id")
	return doc, nil
}
