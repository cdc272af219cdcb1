package principals

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role tags an authenticated principal. It is fixed at registration and
// never changes afterwards.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleUser      Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleUser:
		return true
	default:
		return false
	}
}

// Principal is any authenticated actor: admin, organizer, or end-user.
// One document per account; the role field replaces the original split
// across per-role collections.
type Principal struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	ProfileImage *ProfileImage      `bson:"profile_image,omitempty" json:"profileImage,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ProfileImage references a stored upload: the public URL plus the backend
// key needed to delete the object when it is replaced.
type ProfileImage struct {
	URL          string `bson:"url" json:"url"`
	Key          string `bson:"key" json:"key"`
	OriginalName string `bson:"original_name,omitempty" json:"originalName,omitempty"`
}
