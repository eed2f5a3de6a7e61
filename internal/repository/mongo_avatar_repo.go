package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/pkg/log"
)

// AvatarCollection is the collection avatars are stored in.
const AvatarCollection = "avatars"

// MongoAvatarRepository implements AvatarRepository on a MongoDB collection.
type MongoAvatarRepository struct {
	coll *mongo.Collection
}

// NewMongoAvatarRepository creates a repository on db's avatars collection.
func NewMongoAvatarRepository(db *mongo.Database) *MongoAvatarRepository {
	return &MongoAvatarRepository{coll: db.Collection(AvatarCollection)}
}

// mongoNow matches the millisecond precision BSON dates are stored with.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// EnsureSchema creates the index List filters on.
func (r *MongoAvatarRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "isAvailable", Value: 1}},
		Options: options.Index().SetName("isAvailable_1"),
	})
	if err != nil {
		return fmt.Errorf("create avatar index: %w", err)
	}
	return nil
}

// Create inserts a new avatar document.
func (r *MongoAvatarRepository) Create(ctx context.Context, avatar *domain.Avatar) error {
	l := log.Ctx(ctx)

	now := mongoNow()
	avatar.ID = NewID()
	avatar.CreatedAt = now
	avatar.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, domain.AvatarToDocument(avatar)); err != nil {
		l.Error().Err(err).Msg("failed to insert avatar document")
		return fmt.Errorf("create avatar: %w", err)
	}

	l.Debug().Str(log.FieldAvatarID, avatar.ID).Msg("avatar document inserted")
	return nil
}

// List retrieves available avatars with pagination, ordered by id.
func (r *MongoAvatarRepository) List(ctx context.Context, page, limit int) ([]domain.Avatar, int, error) {
	l := log.Ctx(ctx)
	filter := bson.D{{Key: "isAvailable", Value: true}}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		l.Error().Err(err).Msg("failed to count avatar documents")
		return nil, 0, fmt.Errorf("count avatars: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(Offset(page, limit))).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		l.Error().Err(err).Msg("failed to find avatar documents")
		return nil, 0, fmt.Errorf("list avatars: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []domain.AvatarDocument
	if err := cursor.All(ctx, &docs); err != nil {
		l.Error().Err(err).Msg("failed to decode avatar documents")
		return nil, 0, fmt.Errorf("decode avatars: %w", err)
	}

	avatars := make([]domain.Avatar, len(docs))
	for i := range docs {
		avatars[i] = *docs[i].ToDomain()
	}

	return avatars, int(total), nil
}

// GetByID retrieves an avatar document by id.
func (r *MongoAvatarRepository) GetByID(ctx context.Context, id string) (*domain.Avatar, error) {
	var doc domain.AvatarDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAvatarNotFound
		}
		log.Ctx(ctx).Error().Err(err).Str(log.FieldAvatarID, id).Msg("failed to find avatar document")
		return nil, fmt.Errorf("get avatar: %w", err)
	}
	return doc.ToDomain(), nil
}

// Update sets the descriptive fields of an avatar document.
func (r *MongoAvatarRepository) Update(ctx context.Context, avatar *domain.Avatar) error {
	now := mongoNow()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: avatar.Name},
		{Key: "gender", Value: avatar.Gender},
		{Key: "description", Value: avatar.Description},
		{Key: "heightInCM", Value: avatar.HeightInCM},
		{Key: "updatedAt", Value: now},
	}}}

	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: avatar.ID}}, update)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldAvatarID, avatar.ID).Msg("failed to update avatar document")
		return fmt.Errorf("update avatar: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAvatarNotFound
	}

	avatar.UpdatedAt = now
	return nil
}

// UpdateImage sets the image sub-document and returns the updated avatar.
func (r *MongoAvatarRepository) UpdateImage(ctx context.Context, id string, image domain.Image) (*domain.Avatar, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "image", Value: domain.ImageDocument{ImageRef: image.ImageRef, URL: image.URL}},
		{Key: "updatedAt", Value: mongoNow()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc domain.AvatarDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAvatarNotFound
		}
		log.Ctx(ctx).Error().Err(err).Str(log.FieldAvatarID, id).Msg("failed to update avatar image")
		return nil, fmt.Errorf("update avatar image: %w", err)
	}
	return doc.ToDomain(), nil
}

// Delete removes an avatar document and returns its last state.
func (r *MongoAvatarRepository) Delete(ctx context.Context, id string) (*domain.Avatar, error) {
	var doc domain.AvatarDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAvatarNotFound
		}
		log.Ctx(ctx).Error().Err(err).Str(log.FieldAvatarID, id).Msg("failed to delete avatar document")
		return nil, fmt.Errorf("delete avatar: %w", err)
	}
	return doc.ToDomain(), nil
}
