package save

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/techtree/pkg/research"
)

// DefaultMongoCollection is the collection MongoStore uses unless told
// otherwise.
const DefaultMongoCollection = "saves"

// MongoStore is a Store backed by a MongoDB collection, one document per
// save keyed by its ID.
//
// The save limit is enforced by counting before insert under a process
// local lock; concurrent writers in other processes can exceed it.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	opts   Options
	mu     sync.Mutex
}

// OpenMongo connects to uri and uses the given database and collection.
// An empty collection selects DefaultMongoCollection.
func OpenMongo(ctx context.Context, uri, database, collection string, opts Options) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		opts:   opts,
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) Create(ctx context.Context, name string) (*Save, error) {
	sv, err := newSave(name, s.opts.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("count saves: %w", err)
	}
	if n >= MaxSaves {
		return nil, errLimit()
	}
	if _, err := s.coll.InsertOne(ctx, sv); err != nil {
		return nil, fmt.Errorf("insert save: %w", err)
	}
	return sv, nil
}

func (s *MongoStore) Load(ctx context.Context, id string) (*Save, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	sv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	set := bson.D{{Key: "meta.last_played_at", Value: now}}
	if s.opts.seed(sv) {
		sv.Meta.UpdatedAt = now
		set = append(set,
			bson.E{Key: "research", Value: sv.Research},
			bson.E{Key: "meta.updated_at", Value: now},
		)
	}
	sv.Meta.LastPlayedAt = now
	if _, err := s.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: set}}); err != nil {
		return nil, fmt.Errorf("update save: %w", err)
	}
	return sv, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Save, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "meta.last_played_at", Value: -1},
		{Key: "meta.created_at", Value: -1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find saves: %w", err)
	}
	var saves []Save
	if err := cur.All(ctx, &saves); err != nil {
		return nil, fmt.Errorf("decode saves: %w", err)
	}
	return saves, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	if res.DeletedCount == 0 {
		return errNotFound(id)
	}
	return nil
}

func (s *MongoStore) UpdateResearch(ctx context.Context, id string, state research.State) (*Save, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	now := s.opts.now()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "research", Value: state.Clone()},
		{Key: "meta.updated_at", Value: now},
	}}}
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sv Save
	err := s.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, after).Decode(&sv)
	if err == mongo.ErrNoDocuments {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("update save: %w", err)
	}
	return &sv, nil
}

func (s *MongoStore) get(ctx context.Context, id string) (*Save, error) {
	var sv Save
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&sv)
	if err == mongo.ErrNoDocuments {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find save: %w", err)
	}
	return &sv, nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MongoStore)(nil)
)
