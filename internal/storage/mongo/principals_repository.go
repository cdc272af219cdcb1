package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherguru/server/internal/domain/principals"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PrincipalsRepository implements principals.Repository on MongoDB.
type PrincipalsRepository struct {
	collection *mongo.Collection
}

func NewPrincipalsRepository(db *mongo.Database) *PrincipalsRepository {
	return &PrincipalsRepository{collection: db.Collection(principalsCollection)}
}

func (r *PrincipalsRepository) Create(ctx context.Context, p *principals.Principal) error {
	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return principals.ErrEmailTaken
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (r *PrincipalsRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*principals.Principal, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PrincipalsRepository) GetByEmail(ctx context.Context, email string) (*principals.Principal, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *PrincipalsRepository) Update(ctx context.Context, p *principals.Principal) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("update principal: %w", err)
	}
	if result.MatchedCount == 0 {
		return principals.ErrNotFound
	}
	return nil
}

func (r *PrincipalsRepository) findOne(ctx context.Context, filter bson.M) (*principals.Principal, error) {
	var principal principals.Principal
	if err := r.collection.FindOne(ctx, filter).Decode(&principal); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, principals.ErrNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return &principal, nil
}
