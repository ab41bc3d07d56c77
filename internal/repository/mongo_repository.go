package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/video-service/internal/models"
)

type MongoRepository struct {
	client *mongo.Client
	col    *mongo.Collection
}

var _ VideoRepository = (*MongoRepository)(nil)

func NewMongoRepository(ctx context.Context, uri, database, collection string, connectTimeout time.Duration) (*MongoRepository, error) {
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := pingWithRetry(ctx, connectTimeout, func(ctx context.Context) error {
		return mc.Ping(ctx, nil)
	}); err != nil {
		_ = mc.Disconnect(context.Background())
		return nil, err
	}
	return &MongoRepository{client: mc, col: mc.Database(database).Collection(collection)}, nil
}

func (r *MongoRepository) Insert(ctx context.Context, v *models.Video) error {
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, v)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	var v models.Video
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *MongoRepository) Update(ctx context.Context, v *models.Video) error {
	v.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": v.ID}, v)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
