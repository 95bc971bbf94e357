// Package mongo implements gallery.Repository on MongoDB.
//
// The store's guarantees map one-to-one onto the repository contract:
// rating uniqueness is a single conditional update on the item
// document, the featured flag moves through findOneAndUpdate, and the
// cascade batch is one ordered bulkWrite. No multi-document
// transaction is used.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/artgrove/gallery/pkg/gallery"
)

const (
	itemsCollection   = "items"
	authorsCollection = "authors"
)

// Repository implements gallery.Repository using MongoDB
type Repository struct {
	items   *mongo.Collection
	authors *mongo.Collection
}

// New creates a new MongoDB repository over the given database
func New(db *mongo.Database) *Repository {
	return &Repository{
		items:   db.Collection(itemsCollection),
		authors: db.Collection(authorsCollection),
	}
}

// EnsureIndexes creates the indexes the repository relies on: unique
// username and email on authors, and the search/sort indexes on items.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	// Strength 2 collation makes the uniqueness checks and the username
	// lookup case-insensitive.
	ci := &options.Collation{Locale: "en", Strength: 2}
	_, err := r.authors.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username").SetCollation(ci),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email").SetCollation(ci),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create author indexes: %w", err)
	}

	_, err = r.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "ratings.author_id", Value: 1}}},
		{Keys: bson.D{{Key: "featured", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create item indexes: %w", err)
	}
	return nil
}

// Item operations

func (r *Repository) CreateItem(ctx context.Context, item *gallery.Item) error {
	_, err := r.items.InsertOne(ctx, toItemDoc(item))
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*gallery.Item, error) {
	var doc itemDoc
	err := r.items.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, gallery.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return doc.toDomain()
}

func (r *Repository) UpdateOwnedItem(ctx context.Context, id, ownerID uuid.UUID, upd gallery.ItemUpdate) (*gallery.Item, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}
	if upd.Media != nil {
		set["media"] = toMediaDocs(upd.Media)
	}

	var doc itemDoc
	err := r.items.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "owner_id": ownerID.String()},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, gallery.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return doc.toDomain()
}

func (r *Repository) DeleteOwnedItem(ctx context.Context, id, ownerID uuid.UUID) (*gallery.Item, error) {
	var doc itemDoc
	err := r.items.FindOneAndDelete(ctx,
		bson.M{"_id": id.String(), "owner_id": ownerID.String()},
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, gallery.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}
	return doc.toDomain()
}

func (r *Repository) SearchItems(ctx context.Context, q gallery.ItemQuery) (gallery.ItemPage, error) {
	filter := itemSearchFilter(q.Matcher)

	total, err := r.items.CountDocuments(ctx, filter)
	if err != nil {
		return gallery.ItemPage{}, fmt.Errorf("failed to count items: %w", err)
	}

	opts := options.Find().
		SetSort(creationSort(q.Page.Sort)).
		SetSkip(int64(q.Page.Offset())).
		SetLimit(int64(q.Page.PageSize))
	cursor, err := r.items.Find(ctx, filter, opts)
	if err != nil {
		return gallery.ItemPage{}, fmt.Errorf("failed to search items: %w", err)
	}
	defer cursor.Close(ctx)

	page := gallery.ItemPage{Total: int(total)}
	for cursor.Next(ctx) {
		var doc itemDoc
		if err := cursor.Decode(&doc); err != nil {
			return gallery.ItemPage{}, fmt.Errorf("failed to decode item: %w", err)
		}
		item, err := doc.toDomain()
		if err != nil {
			return gallery.ItemPage{}, err
		}
		page.Docs = append(page.Docs, item)
	}
	if err := cursor.Err(); err != nil {
		return gallery.ItemPage{}, fmt.Errorf("item search cursor: %w", err)
	}
	return page, nil
}

func (r *Repository) ItemsOwnedBy(ctx context.Context, authorID uuid.UUID) ([]*gallery.Item, error) {
	return r.findItems(ctx, bson.M{"owner_id": authorID.String()})
}

func (r *Repository) ItemsRatedBy(ctx context.Context, authorID uuid.UUID) ([]*gallery.Item, error) {
	return r.findItems(ctx, bson.M{"ratings.author_id": authorID.String()})
}

// AppendRating pushes the rating in one conditional update: the filter
// rejects the item's owner and any author already present in the
// embedded ratings, so concurrent duplicates cannot both match.
func (r *Repository) AppendRating(ctx context.Context, itemID uuid.UUID, rating gallery.Rating) (*gallery.Item, error) {
	filter := bson.M{
		"_id":               itemID.String(),
		"owner_id":          bson.M{"$ne": rating.AuthorID.String()},
		"ratings.author_id": bson.M{"$ne": rating.AuthorID.String()},
	}
	update := bson.M{
		"$push": bson.M{"ratings": toRatingDoc(rating)},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	var doc itemDoc
	err := r.items.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toDomain()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to append rating: %w", err)
	}

	// The conditional write matched nothing; classify why.
	item, getErr := r.GetItem(ctx, itemID)
	if getErr != nil {
		return nil, getErr
	}
	if item.OwnerID == rating.AuthorID {
		return nil, gallery.ErrSelfRating
	}
	return nil, gallery.ErrDuplicateRating
}

// Featured flag operations

func (r *Repository) ClearFeatured(ctx context.Context) (*gallery.Item, error) {
	var doc itemDoc
	err := r.items.FindOneAndUpdate(ctx,
		bson.M{"featured": true},
		bson.M{"$set": bson.M{"featured": false}},
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to clear featured flag: %w", err)
	}
	return doc.toDomain()
}

func (r *Repository) ToggleFeatured(ctx context.Context, id uuid.UUID) error {
	res, err := r.items.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.D{
				{Key: "featured", Value: bson.D{{Key: "$ne", Value: bson.A{true, "$featured"}}}},
			}}},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to toggle featured flag: %w", err)
	}
	if res.MatchedCount == 0 {
		return gallery.ErrItemNotFound
	}
	return nil
}

func (r *Repository) FeaturedItem(ctx context.Context) (*gallery.Item, error) {
	var doc itemDoc
	err := r.items.FindOne(ctx, bson.M{"featured": true}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, gallery.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get featured item: %w", err)
	}
	return doc.toDomain()
}

// ApplyCascade runs the delete and strip as one ordered bulk write.
func (r *Repository) ApplyCascade(ctx context.Context, batch gallery.CascadeBatch) error {
	var ops []mongo.WriteModel
	if len(batch.DeleteItemIDs) > 0 {
		ops = append(ops, mongo.NewDeleteManyModel().SetFilter(
			bson.M{"_id": bson.M{"$in": idStrings(batch.DeleteItemIDs)}},
		))
	}
	if len(batch.StripItemIDs) > 0 {
		ops = append(ops, mongo.NewUpdateManyModel().
			SetFilter(bson.M{"_id": bson.M{"$in": idStrings(batch.StripItemIDs)}}).
			SetUpdate(bson.M{"$pull": bson.M{"ratings": bson.M{"author_id": batch.AuthorID.String()}}}))
	}
	if len(ops) == 0 {
		return nil
	}

	_, err := r.items.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to apply cascade batch: %w", err)
	}
	return nil
}

// Author operations

func (r *Repository) CreateAuthor(ctx context.Context, author *gallery.Author) error {
	_, err := r.authors.InsertOne(ctx, toAuthorDoc(author))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "uniq_email") {
				return gallery.ErrDuplicateEmail
			}
			return gallery.ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert author: %w", err)
	}
	return nil
}

func (r *Repository) GetAuthor(ctx context.Context, id uuid.UUID) (*gallery.Author, error) {
	var doc authorDoc
	err := r.authors.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, gallery.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	return doc.toDomain()
}

func (r *Repository) GetAuthorByUsername(ctx context.Context, username string) (*gallery.Author, error) {
	// Same collation as the unique index, so the lookup is
	// case-insensitive like the uniqueness check at registration time.
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	var doc authorDoc
	err := r.authors.FindOne(ctx, bson.M{"username": username}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, gallery.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	return doc.toDomain()
}

func (r *Repository) AuthorsByIDs(ctx context.Context, ids []uuid.UUID) ([]*gallery.Author, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.authors.Find(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
	if err != nil {
		return nil, fmt.Errorf("failed to find authors: %w", err)
	}
	defer cursor.Close(ctx)

	var authors []*gallery.Author
	for cursor.Next(ctx) {
		var doc authorDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode author: %w", err)
		}
		author, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}
	return authors, cursor.Err()
}

func (r *Repository) UpdateAuthor(ctx context.Context, author *gallery.Author) error {
	res, err := r.authors.ReplaceOne(ctx, bson.M{"_id": author.ID.String()}, toAuthorDoc(author))
	if err != nil {
		return fmt.Errorf("failed to update author: %w", err)
	}
	if res.MatchedCount == 0 {
		return gallery.ErrAuthorNotFound
	}
	return nil
}

func (r *Repository) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	// Not-found is not an error: cascade re-runs must stay idempotent.
	_, err := r.authors.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	return nil
}

func (r *Repository) SearchAuthors(ctx context.Context, q gallery.AuthorQuery) (gallery.AuthorPage, error) {
	filter := authorSearchFilter(q.Matcher)

	total, err := r.authors.CountDocuments(ctx, filter)
	if err != nil {
		return gallery.AuthorPage{}, fmt.Errorf("failed to count authors: %w", err)
	}

	opts := options.Find().
		SetSort(creationSort(q.Page.Sort)).
		SetSkip(int64(q.Page.Offset())).
		SetLimit(int64(q.Page.PageSize))
	cursor, err := r.authors.Find(ctx, filter, opts)
	if err != nil {
		return gallery.AuthorPage{}, fmt.Errorf("failed to search authors: %w", err)
	}
	defer cursor.Close(ctx)

	page := gallery.AuthorPage{Total: int(total)}
	for cursor.Next(ctx) {
		var doc authorDoc
		if err := cursor.Decode(&doc); err != nil {
			return gallery.AuthorPage{}, fmt.Errorf("failed to decode author: %w", err)
		}
		author, err := doc.toDomain()
		if err != nil {
			return gallery.AuthorPage{}, err
		}
		page.Docs = append(page.Docs, author)
	}
	if err := cursor.Err(); err != nil {
		return gallery.AuthorPage{}, fmt.Errorf("author search cursor: %w", err)
	}
	return page, nil
}

// Reporting reads

func (r *Repository) TagFrequencies(ctx context.Context) (map[string]int, error) {
	cursor, err := r.items.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tags: %w", err)
	}
	defer cursor.Close(ctx)

	freq := make(map[string]int)
	for cursor.Next(ctx) {
		var row struct {
			Tag   string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode tag row: %w", err)
		}
		freq[row.Tag] = row.Count
	}
	return freq, cursor.Err()
}

func (r *Repository) Counts(ctx context.Context) (gallery.CatalogStats, error) {
	items, err := r.items.CountDocuments(ctx, bson.M{})
	if err != nil {
		return gallery.CatalogStats{}, fmt.Errorf("failed to count items: %w", err)
	}
	authors, err := r.authors.CountDocuments(ctx, bson.M{})
	if err != nil {
		return gallery.CatalogStats{}, fmt.Errorf("failed to count authors: %w", err)
	}

	cursor, err := r.items.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$size", Value: "$ratings"}}}}},
		}}},
	})
	if err != nil {
		return gallery.CatalogStats{}, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	stats := gallery.CatalogStats{Items: int(items), Authors: int(authors)}
	if cursor.Next(ctx) {
		var row struct {
			Total int `bson:"total"`
		}
		if err := cursor.Decode(&row); err != nil {
			return gallery.CatalogStats{}, fmt.Errorf("failed to decode rating count: %w", err)
		}
		stats.Ratings = row.Total
	}
	return stats, cursor.Err()
}

// helpers

func (r *Repository) findItems(ctx context.Context, filter bson.M) ([]*gallery.Item, error) {
	cursor, err := r.items.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*gallery.Item
	for cursor.Next(ctx) {
		var doc itemDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		item, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, cursor.Err()
}

// itemSearchFilter compiles the matcher into an AND of per-term
// case-insensitive literal regexes over title and tags. Terms are
// quoted, so malformed input degrades to substring matching instead of
// failing.
func itemSearchFilter(m gallery.Matcher) bson.M {
	if m.MatchAll() {
		return bson.M{}
	}
	var clauses bson.A
	for _, term := range m.Terms() {
		pattern := regexp.QuoteMeta(term)
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"tags": bson.M{"$regex": pattern, "$options": "i"}},
		}})
	}
	return bson.M{"$and": clauses}
}

func authorSearchFilter(m gallery.Matcher) bson.M {
	if m.MatchAll() {
		return bson.M{}
	}
	var clauses bson.A
	for _, term := range m.Terms() {
		pattern := regexp.QuoteMeta(term)
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"names": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"lastnames": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"username": bson.M{"$regex": pattern, "$options": "i"}},
		}})
	}
	return bson.M{"$and": clauses}
}

// creationSort orders by creation time with a fixed id tiebreak so
// repeated paged reads are deterministic.
func creationSort(dir gallery.SortDir) bson.D {
	order := -1
	if dir == gallery.SortAsc {
		order = 1
	}
	return bson.D{{Key: "created_at", Value: order}, {Key: "_id", Value: 1}}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
