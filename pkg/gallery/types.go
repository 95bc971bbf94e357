package gallery

import (
	"time"

	"github.com/google/uuid"
)

// Role is the domain type for author roles.
type Role string

// Author role constants (typed).
const (
	RoleAdmin  Role = "admin"
	RoleArtist Role = "artist"
)

// Validation bounds for item and rating fields.
const (
	MaxTitleLen       = 50
	MaxDescriptionLen = 5000
	MaxCommentLen     = 600

	MinRatingValue = 0.5
	MaxRatingValue = 5.0
)

// MediaRef is an opaque reference to a binary object in external
// storage. It is owned by exactly one item media slot or one author
// profile slot, and is only ever persisted after the upload that
// produced it fully succeeded.
type MediaRef struct {
	ID  string `json:"id" bson:"id"`
	URL string `json:"url" bson:"url"`
}

// Rating is a single author's rating of an item, embedded in the item
// document. At most one rating per distinct author per item; an item's
// owner can never rate their own item.
type Rating struct {
	AuthorID  uuid.UUID `json:"author_id" bson:"author_id"`
	Value     float64   `json:"value" bson:"value"`
	Comment   string    `json:"comment" bson:"comment"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Item is a catalog content item. Media is non-empty once persisted.
// Featured is subject to a catalog-wide at-most-one-true invariant.
type Item struct {
	ID          uuid.UUID  `json:"id" bson:"_id"`
	OwnerID     uuid.UUID  `json:"owner_id" bson:"owner_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Tags        []string   `json:"tags" bson:"tags"`
	Media       []MediaRef `json:"media" bson:"media"`
	Ratings     []Rating   `json:"ratings" bson:"ratings"`
	Featured    bool       `json:"featured" bson:"featured"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// AverageRating returns the mean of all embedded rating values, 0 when
// the item has no ratings. The average is always derived, never stored.
func (i *Item) AverageRating() float64 {
	if len(i.Ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range i.Ratings {
		sum += r.Value
	}
	return sum / float64(len(i.Ratings))
}

// RatedBy reports whether the item already carries a rating by the
// given author.
func (i *Item) RatedBy(authorID uuid.UUID) bool {
	for _, r := range i.Ratings {
		if r.AuthorID == authorID {
			return true
		}
	}
	return false
}

// RoundHalfStep rounds v to the nearest half step for star display.
// 3.74 -> 3.5, 3.75 -> 4.
func RoundHalfStep(v float64) float64 {
	steps := v * 2
	whole := float64(int64(steps))
	if steps-whole >= 0.5 {
		whole++
	}
	return whole / 2
}

// Contact holds an author's public contact channels.
type Contact struct {
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
	Instagram string `json:"instagram,omitempty" bson:"instagram,omitempty"`
	Tiktok    string `json:"tiktok,omitempty" bson:"tiktok,omitempty"`
	Facebook  string `json:"facebook,omitempty" bson:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty" bson:"twitter,omitempty"`
	Email     string `json:"email,omitempty" bson:"email,omitempty"`
}

// Author is a registered account, either an artist or an admin.
type Author struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Names     string    `json:"names" bson:"names"`
	Lastnames string    `json:"lastnames" bson:"lastnames"`
	Username  string    `json:"username" bson:"username"`
	Headline  string    `json:"headline,omitempty" bson:"headline"`
	Summary   string    `json:"summary,omitempty" bson:"summary"`
	Contact   Contact   `json:"contact" bson:"contact"`
	Photo     *MediaRef `json:"photo,omitempty" bson:"photo,omitempty"`
	Email     string    `json:"email" bson:"email"`
	Role      Role      `json:"role" bson:"role"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// AuthorRef is the public identity of an author, used when joining
// ratings and item owners into read views.
type AuthorRef struct {
	ID        uuid.UUID `json:"id"`
	Names     string    `json:"names"`
	Lastnames string    `json:"lastnames"`
	Username  string    `json:"username"`
	Headline  string    `json:"headline,omitempty"`
	Photo     *MediaRef `json:"photo,omitempty"`
}

// PublicRef returns the author's public identity.
func (a *Author) PublicRef() AuthorRef {
	return AuthorRef{
		ID:        a.ID,
		Names:     a.Names,
		Lastnames: a.Lastnames,
		Username:  a.Username,
		Headline:  a.Headline,
		Photo:     a.Photo,
	}
}

// AuthorProfile is the public read view of an artist page: the
// author's identity and bio joined with everything they have
// published, newest first.
type AuthorProfile struct {
	Author  AuthorRef `json:"author"`
	Summary string    `json:"summary,omitempty"`
	Contact Contact   `json:"contact"`
	Items   []*Item   `json:"items"`
}

// AuthoredRating is a rating joined with its author's public identity.
type AuthoredRating struct {
	Author    AuthorRef `json:"author"`
	Value     float64   `json:"value"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// RatedItem is the full read view of an item: owner identity, ratings
// joined with their authors most-recent-first, and the derived average
// both raw (for counts and precision) and rounded to the half step
// (for star display).
type RatedItem struct {
	Item    Item             `json:"item"`
	Owner   AuthorRef        `json:"owner"`
	Ratings []AuthoredRating `json:"ratings"`
	Average float64          `json:"average"`
	Stars   float64          `json:"stars"`
}

// CatalogStats are the aggregate counts consumed by the reporting
// subsystem.
type CatalogStats struct {
	Items   int `json:"items"`
	Authors int `json:"authors"`
	Ratings int `json:"ratings"`
}
