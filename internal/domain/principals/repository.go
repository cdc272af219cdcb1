package principals

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the persistence contract for principals. The Mongo
// implementation lives in internal/storage/mongo.
type Repository interface {
	Create(ctx context.Context, p *Principal) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	Update(ctx context.Context, p *Principal) error
}
