package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artgrove/gallery/pkg/gallery"
)

// Document mapping types. Identifiers are stored as canonical uuid
// strings so the conditional filters ($ne on owner and embedded rating
// authors) compare plain values.

type mediaDoc struct {
	ID  string `bson:"id"`
	URL string `bson:"url"`
}

type ratingDoc struct {
	AuthorID  string    `bson:"author_id"`
	Value     float64   `bson:"value"`
	Comment   string    `bson:"comment"`
	Timestamp time.Time `bson:"timestamp"`
}

type itemDoc struct {
	ID          string      `bson:"_id"`
	OwnerID     string      `bson:"owner_id"`
	Title       string      `bson:"title"`
	Description string      `bson:"description"`
	Tags        []string    `bson:"tags"`
	Media       []mediaDoc  `bson:"media"`
	Ratings     []ratingDoc `bson:"ratings"`
	Featured    bool        `bson:"featured"`
	CreatedAt   time.Time   `bson:"created_at"`
	UpdatedAt   time.Time   `bson:"updated_at"`
}

type contactDoc struct {
	Phone     string `bson:"phone,omitempty"`
	Instagram string `bson:"instagram,omitempty"`
	Tiktok    string `bson:"tiktok,omitempty"`
	Facebook  string `bson:"facebook,omitempty"`
	Twitter   string `bson:"twitter,omitempty"`
	Email     string `bson:"email,omitempty"`
}

type authorDoc struct {
	ID        string     `bson:"_id"`
	Names     string     `bson:"names"`
	Lastnames string     `bson:"lastnames"`
	Username  string     `bson:"username"`
	Headline  string     `bson:"headline"`
	Summary   string     `bson:"summary"`
	Contact   contactDoc `bson:"contact"`
	Photo     *mediaDoc  `bson:"photo,omitempty"`
	Email     string     `bson:"email"`
	Role      string     `bson:"role"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

func toMediaDocs(refs []gallery.MediaRef) []mediaDoc {
	docs := make([]mediaDoc, len(refs))
	for i, ref := range refs {
		docs[i] = mediaDoc{ID: ref.ID, URL: ref.URL}
	}
	return docs
}

func fromMediaDocs(docs []mediaDoc) []gallery.MediaRef {
	refs := make([]gallery.MediaRef, len(docs))
	for i, doc := range docs {
		refs[i] = gallery.MediaRef{ID: doc.ID, URL: doc.URL}
	}
	return refs
}

func toRatingDoc(r gallery.Rating) ratingDoc {
	return ratingDoc{
		AuthorID:  r.AuthorID.String(),
		Value:     r.Value,
		Comment:   r.Comment,
		Timestamp: r.Timestamp,
	}
}

func toItemDoc(item *gallery.Item) itemDoc {
	doc := itemDoc{
		ID:          item.ID.String(),
		OwnerID:     item.OwnerID.String(),
		Title:       item.Title,
		Description: item.Description,
		Tags:        item.Tags,
		Media:       toMediaDocs(item.Media),
		Ratings:     make([]ratingDoc, 0, len(item.Ratings)),
		Featured:    item.Featured,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	for _, r := range item.Ratings {
		doc.Ratings = append(doc.Ratings, toRatingDoc(r))
	}
	return doc
}

func (d *itemDoc) toDomain() (*gallery.Item, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("malformed item id %q: %w", d.ID, err)
	}
	ownerID, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("malformed owner id %q: %w", d.OwnerID, err)
	}

	item := &gallery.Item{
		ID:          id,
		OwnerID:     ownerID,
		Title:       d.Title,
		Description: d.Description,
		Tags:        d.Tags,
		Media:       fromMediaDocs(d.Media),
		Ratings:     make([]gallery.Rating, 0, len(d.Ratings)),
		Featured:    d.Featured,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, r := range d.Ratings {
		authorID, err := uuid.Parse(r.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("malformed rating author id %q: %w", r.AuthorID, err)
		}
		item.Ratings = append(item.Ratings, gallery.Rating{
			AuthorID:  authorID,
			Value:     r.Value,
			Comment:   r.Comment,
			Timestamp: r.Timestamp,
		})
	}
	return item, nil
}

func toAuthorDoc(author *gallery.Author) authorDoc {
	doc := authorDoc{
		ID:        author.ID.String(),
		Names:     author.Names,
		Lastnames: author.Lastnames,
		Username:  author.Username,
		Headline:  author.Headline,
		Summary:   author.Summary,
		Contact:   contactDoc(author.Contact),
		Email:     author.Email,
		Role:      string(author.Role),
		CreatedAt: author.CreatedAt,
		UpdatedAt: author.UpdatedAt,
	}
	if author.Photo != nil {
		doc.Photo = &mediaDoc{ID: author.Photo.ID, URL: author.Photo.URL}
	}
	return doc
}

func (d *authorDoc) toDomain() (*gallery.Author, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("malformed author id %q: %w", d.ID, err)
	}

	author := &gallery.Author{
		ID:        id,
		Names:     d.Names,
		Lastnames: d.Lastnames,
		Username:  d.Username,
		Headline:  d.Headline,
		Summary:   d.Summary,
		Contact:   gallery.Contact(d.Contact),
		Email:     d.Email,
		Role:      gallery.Role(d.Role),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Photo != nil {
		author.Photo = &gallery.MediaRef{ID: d.Photo.ID, URL: d.Photo.URL}
	}
	return author, nil
}
