package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/gatherguru/server/internal/domain/events"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventsRepository implements events.Repository on MongoDB.
type EventsRepository struct {
	collection *mongo.Collection
}

func NewEventsRepository(db *mongo.Database) *EventsRepository {
	return &EventsRepository{collection: db.Collection(eventsCollection)}
}

func (r *EventsRepository) Create(ctx context.Context, event *events.Event) error {
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventsRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*events.Event, error) {
	var event events.Event
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

func (r *EventsRepository) Update(ctx context.Context, event *events.Event) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": event.ID}, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if result.MatchedCount == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventsRepository) ListPublished(ctx context.Context, filters events.Filters) ([]*events.Event, error) {
	filter := bson.M{"published": true}
	if filters.Category != "" {
		filter["category"] = filters.Category
	}
	if filters.UpcomingOnly {
		filter["start_time"] = bson.M{"$gte": time.Now().UTC()}
	}
	if filters.Query != "" {
		// QuoteMeta so user search input is always a literal substring match.
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filters.Query), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"location": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	if filters.Limit > 0 {
		opts.SetLimit(filters.Limit)
	}
	if filters.Skip > 0 {
		opts.SetSkip(filters.Skip)
	}
	return r.find(ctx, filter, opts)
}

func (r *EventsRepository) ListByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]*events.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"organizer_id": organizerID}, opts)
}

func (r *EventsRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*events.Event, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*events.Event
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return results, nil
}
