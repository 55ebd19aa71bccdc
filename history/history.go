// Package history keeps a record of finished renders in MongoDB.
package history

import (
	"context"
	"fmt"
	"time"

	newton "github.com/marben/newton_attractors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Conf struct {
	URI        string        `json:",optional"`
	Database   string        `json:",default=newton"`
	Collection string        `json:",default=runs"`
	Timeout    time.Duration `json:",default=5s"`
}

// Enabled reports whether a store is configured.
func (c Conf) Enabled() bool {
	return c.URI != ""
}

// Record describes one render.
type Record struct {
	ID             primitive.ObjectID `bson:"_id"`
	Degree         int                `bson:"degree"`
	Resolution     int                `bson:"resolution"`
	Threads        int                `bson:"threads"`
	RootCounts     []int              `bson:"root_counts"`
	Unclassified   int                `bson:"unclassified"`
	Diverged       int                `bson:"diverged"`
	MeanIterations float64            `bson:"mean_iterations"`
	ElapsedMs      int64              `bson:"elapsed_ms"`
	Attractors     string             `bson:"attractors"`
	Convergence    string             `bson:"convergence"`
	Error          string             `bson:"error,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
}

// NewRecord starts a record for a run identified by id.
func NewRecord(id primitive.ObjectID, p newton.Params) Record {
	return Record{
		ID:         id,
		Degree:     p.Degree,
		Resolution: p.Resolution,
		Threads:    p.Threads,
		CreatedAt:  time.Now().UTC(),
	}
}

type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// Open connects to the configured deployment and checks it is reachable.
func Open(ctx context.Context, c Conf) (*MongoStore, error) {
	opts := options.Client().ApplyURI(c.URI).SetConnectTimeout(c.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := newStore(client.Database(c.Database).Collection(c.Collection), c.Timeout)
	s.client = client
	return s, nil
}

func newStore(coll *mongo.Collection, timeout time.Duration) *MongoStore {
	return &MongoStore{coll: coll, timeout: timeout}
}

func (s *MongoStore) Save(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("save run %s: %w", rec.ID.Hex(), err)
	}
	return nil
}

// Recent returns up to limit records for degree, newest first.
func (s *MongoStore) Recent(ctx context.Context, degree int, limit int64) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.D{{Key: "degree", Value: degree}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
