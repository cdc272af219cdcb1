package events

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is owned by exactly one organizer and built up in stages: basic
// details, then banner, then ticketing, then publish. Only published events
// are visible to public read paths.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizerID primitive.ObjectID `bson:"organizer_id" json:"organizerId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category" json:"category"`
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
	StartTime   time.Time          `bson:"start_time" json:"startTime"`
	EndTime     time.Time          `bson:"end_time" json:"endTime"`
	Banner      *Banner            `bson:"banner,omitempty" json:"banner,omitempty"`
	Ticketing   *Ticketing         `bson:"ticketing,omitempty" json:"ticketing,omitempty"`
	Published   bool               `bson:"published" json:"published"`
	PublishedAt *time.Time         `bson:"published_at,omitempty" json:"publishedAt,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Banner references the uploaded banner asset.
type Banner struct {
	URL          string `bson:"url" json:"url"`
	Key          string `bson:"key" json:"key"`
	OriginalName string `bson:"original_name,omitempty" json:"originalName,omitempty"`
}

// Ticketing holds pricing and capacity for an event.
type Ticketing struct {
	Type     string  `bson:"type" json:"type"`
	Price    float64 `bson:"price" json:"price"`
	Capacity int     `bson:"capacity" json:"capacity"`
}

// Stage reports how far through the creation flow an event has progressed.
func (e *Event) Stage() string {
	switch {
	case e.Published:
		return "published"
	case e.Ticketing != nil:
		return "draft:ticketing"
	case e.Banner != nil:
		return "draft:banner"
	default:
		return "draft:basic"
	}
}

// Categories is the fixed set of event categories exposed by the API.
var Categories = []string{
	"music",
	"nightlife",
	"performing-arts",
	"holidays",
	"dating",
	"hobbies",
	"business",
	"food-drink",
}

func isAllowedCategory(value string) bool {
	for _, category := range Categories {
		if category == value {
			return true
		}
	}
	return false
}
