package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	popularLimit     = 8
)

// Service implements the event lifecycle. Every mutation requires the
// caller to be the owning organizer; read paths are public and see only
// published events.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		logger:   logger.With().Str("component", "events").Logger(),
	}
}

type BasicInput struct {
	Title       string    `json:"title" validate:"required,min=3,max=200"`
	Description string    `json:"description" validate:"omitempty,max=5000"`
	Category    string    `json:"category" validate:"required"`
	Location    string    `json:"location" validate:"omitempty,max=300"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
}

type TicketingInput struct {
	Type     string  `json:"type" validate:"required,oneof=free paid"`
	Price    float64 `json:"price" validate:"gte=0"`
	Capacity int     `json:"capacity" validate:"required,gt=0"`
}

// CreateBasic starts a new event in the draft:basic stage.
func (s *Service) CreateBasic(ctx context.Context, organizerID primitive.ObjectID, input BasicInput) (*Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, ValidationError{err}
	}
	category := strings.ToLower(strings.TrimSpace(input.Category))
	if !isAllowedCategory(category) {
		return nil, ValidationError{fmt.Errorf("unknown category %q", input.Category)}
	}

	now := time.Now().UTC()
	event := &Event{
		ID:          primitive.NewObjectID(),
		OrganizerID: organizerID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    category,
		Location:    strings.TrimSpace(input.Location),
		StartTime:   input.StartTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info().Str("event_id", event.ID.Hex()).Str("organizer_id", organizerID.Hex()).Msg("event created")
	return event, nil
}

// UpdateBanner attaches a banner asset. Valid at any stage; replacing an
// existing banner returns the previous asset so the caller can delete it.
func (s *Service) UpdateBanner(ctx context.Context, organizerID, eventID primitive.ObjectID, banner Banner) (*Event, *Banner, error) {
	event, err := s.ownedEvent(ctx, organizerID, eventID)
	if err != nil {
		return nil, nil, err
	}

	previous := event.Banner
	event.Banner = &banner
	event.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, nil, fmt.Errorf("update event: %w", err)
	}
	return event, previous, nil
}

// UpdateTicketing sets pricing and capacity. Only valid before publish.
func (s *Service) UpdateTicketing(ctx context.Context, organizerID, eventID primitive.ObjectID, input TicketingInput) (*Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, ValidationError{err}
	}
	if input.Type == "free" && input.Price != 0 {
		return nil, ValidationError{fmt.Errorf("free events cannot have a price")}
	}

	event, err := s.ownedEvent(ctx, organizerID, eventID)
	if err != nil {
		return nil, err
	}
	if event.Published {
		return nil, ErrAlreadyPublished
	}

	event.Ticketing = &Ticketing{
		Type:     input.Type,
		Price:    input.Price,
		Capacity: input.Capacity,
	}
	event.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// Publish makes the event publicly visible. Policy: a partial event cannot
// publish — banner and ticketing must both be present. Publishing an
// already-published event is a no-op.
func (s *Service) Publish(ctx context.Context, organizerID, eventID primitive.ObjectID) (*Event, error) {
	event, err := s.ownedEvent(ctx, organizerID, eventID)
	if err != nil {
		return nil, err
	}
	if event.Published {
		return event, nil
	}
	if event.Banner == nil || event.Ticketing == nil {
		return nil, ErrIncomplete
	}

	now := time.Now().UTC()
	event.Published = true
	event.PublishedAt = &now
	event.UpdatedAt = now

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}

	s.logger.Info().Str("event_id", event.ID.Hex()).Msg("event published")
	return event, nil
}

// GetPublished returns a single event for public consumption. Draft events
// report not-found so their existence is not leaked.
func (s *Service) GetPublished(ctx context.Context, id primitive.ObjectID) (*Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.Published {
		return nil, ErrNotFound
	}
	return event, nil
}

func (s *Service) Search(ctx context.Context, query string, limit, skip int64) ([]*Event, error) {
	return s.repo.ListPublished(ctx, Filters{
		Query: strings.TrimSpace(query),
		Limit: clampLimit(limit),
		Skip:  maxInt64(skip, 0),
	})
}

// Popular returns the soonest upcoming published events.
func (s *Service) Popular(ctx context.Context) ([]*Event, error) {
	return s.repo.ListPublished(ctx, Filters{UpcomingOnly: true, Limit: popularLimit})
}

func (s *Service) ByCategory(ctx context.Context, category string, limit, skip int64) ([]*Event, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if !isAllowedCategory(category) {
		return nil, ValidationError{fmt.Errorf("unknown category %q", category)}
	}
	return s.repo.ListPublished(ctx, Filters{
		Category: category,
		Limit:    clampLimit(limit),
		Skip:     maxInt64(skip, 0),
	})
}

func (s *Service) All(ctx context.Context, limit, skip int64) ([]*Event, error) {
	return s.repo.ListPublished(ctx, Filters{Limit: clampLimit(limit), Skip: maxInt64(skip, 0)})
}

// OrganizerEvents returns every event owned by the organizer, drafts
// included.
func (s *Service) OrganizerEvents(ctx context.Context, organizerID primitive.ObjectID) ([]*Event, error) {
	return s.repo.ListByOrganizer(ctx, organizerID)
}

func (s *Service) ownedEvent(ctx context.Context, organizerID, eventID primitive.ObjectID) (*Event, error) {
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, ErrForbidden
	}
	return event, nil
}

func clampLimit(limit int64) int64 {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
