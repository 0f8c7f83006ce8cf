package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/tower-stacker/internal/logging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB score collection.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. stacker
	Collection string // e.g. game_scores
}

// MongoRepo implements Repository on MongoDB backend.
type MongoRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

type scoreDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	PlayerName     string             `bson:"playerName"`
	Score          int                `bson:"score"`
	DiscountEarned int                `bson:"discountEarned"`
	PartsStacked   int                `bson:"partsStacked"`
	CreatedAt      time.Time          `bson:"createdAt"`
}

func (d scoreDoc) record() Record {
	return Record{
		ID:             d.ID.Hex(),
		PlayerName:     d.PlayerName,
		Score:          d.Score,
		DiscountEarned: d.DiscountEarned,
		PartsStacked:   d.PartsStacked,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

// NewMongoRepo establishes connection and returns repository.
func NewMongoRepo(ctx context.Context, cfg MongoConfig) (*MongoRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "stacker"
	}
	if cfg.Collection == "" {
		cfg.Collection = "game_scores"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := &MongoRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logging.Info("🍃 MongoDB leaderboard: %s/%s", cfg.Database, cfg.Collection)
	return repo, nil
}

func (m *MongoRepo) ensureIndexes(ctx context.Context) error {
	rankIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "score", Value: -1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("score_rank"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, rankIdx)
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	return nil
}

func (m *MongoRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.ctxTimeout)
}

// Submit implements Repository.
func (m *MongoRepo) Submit(ctx context.Context, s Submission) (*Record, error) {
	s, err := Prepare(s)
	if err != nil {
		return nil, err
	}

	doc := scoreDoc{
		PlayerName:     s.PlayerName,
		Score:          s.Score,
		DiscountEarned: s.DiscountEarned,
		PartsStacked:   s.PartsStacked,
		// Mongo хранит время с точностью до миллисекунд
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	res, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert score: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	rec := doc.record()
	return &rec, nil
}

// ListTop implements Repository.
func (m *MongoRepo) ListTop(ctx context.Context, limit int) ([]Record, error) {
	limit = NormalizeLimit(limit)

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find scores: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]Record, 0, limit)
	for cur.Next(ctx) {
		var doc scoreDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode score: %w", err)
		}
		out = append(out, doc.record())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return out, nil
}

// Get implements Repository.
func (m *MongoRepo) Get(ctx context.Context, id string) (*Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrRecordNotFound
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	var doc scoreDoc
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find score %s: %w", id, err)
	}
	rec := doc.record()
	return &rec, nil
}

// Delete implements Repository.
func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrRecordNotFound
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete score %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Close terminates connection.
func (m *MongoRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
