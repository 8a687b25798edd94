package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pdfviewer/internal/domain"
)

const mongoTimeout = 10 * time.Second

// mongoRectangle is the document layout in the rectangles collection.
type mongoRectangle struct {
	ID        string    `bson:"_id"`
	Seq       int64     `bson:"seq"`
	Page      int       `bson:"page"`
	X         float64   `bson:"x"`
	Y         float64   `bson:"y"`
	Width     float64   `bson:"width"`
	Height    float64   `bson:"height"`
	Color     string    `bson:"color"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoRectangleStore implements domain.RectangleRepository on MongoDB.
// Insertion order comes from a counter document, not from _id.
type MongoRectangleStore struct {
	client   *mongo.Client
	rects    *mongo.Collection
	counters *mongo.Collection
}

// OpenMongo connects to uri and uses database dbName (default "pdfviewer").
func OpenMongo(uri, dbName string) (*MongoRectangleStore, error) {
	if dbName == "" {
		dbName = "pdfviewer"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoRectangleStore{
		client:   client,
		rects:    db.Collection("rectangles"),
		counters: db.Collection("counters"),
	}

	_, err = s.rects.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "page", Value: 1}, {Key: "seq", Value: 1}}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mongo indexes: %w", err)
	}
	return s, nil
}

func (s *MongoRectangleStore) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "rectangles"},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return counter.Value, nil
}

// Create inserts r, assigning ID, Seq and CreatedAt.
func (s *MongoRectangleStore) Create(r *domain.StoredRectangle) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.Seq = seq
	r.CreatedAt = time.Now().UTC()

	_, err = s.rects.InsertOne(ctx, mongoRectangle{
		ID:        r.ID,
		Seq:       r.Seq,
		Page:      r.Page,
		X:         r.X,
		Y:         r.Y,
		Width:     r.Width,
		Height:    r.Height,
		Color:     r.Color,
		CreatedAt: r.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert rectangle: %w", err)
	}
	return nil
}

// List returns every rectangle in insertion order.
func (s *MongoRectangleStore) List() ([]domain.StoredRectangle, error) {
	return s.find(bson.M{})
}

// ListByPage returns the rectangles on page in insertion order.
func (s *MongoRectangleStore) ListByPage(page int) ([]domain.StoredRectangle, error) {
	return s.find(bson.M{"page": page})
}

func (s *MongoRectangleStore) find(filter bson.M) ([]domain.StoredRectangle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	cursor, err := s.rects.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find rectangles: %w", err)
	}
	var docs []mongoRectangle
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode rectangles: %w", err)
	}

	result := make([]domain.StoredRectangle, 0, len(docs))
	for _, d := range docs {
		result = append(result, domain.StoredRectangle{
			ID:        d.ID,
			Seq:       d.Seq,
			CreatedAt: d.CreatedAt,
			Rectangle: domain.Rectangle{
				Page:   d.Page,
				X:      d.X,
				Y:      d.Y,
				Width:  d.Width,
				Height: d.Height,
				Color:  d.Color,
			},
		})
	}
	return result, nil
}

// Close disconnects the client.
func (s *MongoRectangleStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ domain.RectangleRepository = (*MongoRectangleStore)(nil)
