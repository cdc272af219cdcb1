package events

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Filters narrows published-event listings. Zero values mean "no filter".
type Filters struct {
	Category     string
	Query        string
	UpcomingOnly bool
	Limit        int64
	Skip         int64
}

// Repository is the persistence contract for events. The Mongo
// implementation lives in internal/storage/mongo.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Event, error)
	Update(ctx context.Context, event *Event) error
	// ListPublished returns only published events, soonest first.
	ListPublished(ctx context.Context, filters Filters) ([]*Event, error)
	// ListByOrganizer returns all of the organizer's events regardless of
	// lifecycle state, newest first.
	ListByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]*Event, error)
}
