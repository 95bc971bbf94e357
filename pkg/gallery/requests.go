package gallery

import "github.com/google/uuid"

// CreateItemRequest contains parameters for creating an item. Buffers
// holds the raw media to provision; the item is only persisted after
// every upload succeeded.
type CreateItemRequest struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	Tags        []string
	Buffers     [][]byte
}

// UpdateItemRequest contains a field-wise item edit. Nil/empty fields
// are left untouched. Non-empty Buffers replaces the item's media
// wholesale: new refs are provisioned first, the old ones released
// best-effort after the document is updated.
type UpdateItemRequest struct {
	ItemID      uuid.UUID
	OwnerID     uuid.UUID
	Title       *string
	Description *string
	Tags        []string
	Buffers     [][]byte
}

// AddRatingRequest contains parameters for rating an item.
type AddRatingRequest struct {
	ItemID   uuid.UUID
	AuthorID uuid.UUID
	Value    float64
	Comment  string
}

// RegisterAuthorRequest contains parameters for registering an author.
type RegisterAuthorRequest struct {
	Names     string
	Lastnames string
	Username  string
	Email     string
	Role      Role
}

// UpdateProfileRequest contains a field-wise profile edit. A non-nil
// Photo buffer replaces the profile photo via the provisioning path;
// the old photo is released best-effort.
type UpdateProfileRequest struct {
	AuthorID  uuid.UUID
	Names     *string
	Lastnames *string
	Headline  *string
	Summary   *string
	Contact   *Contact
	Photo     []byte
}
