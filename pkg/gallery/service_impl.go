package gallery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository Repository
	media      *Provisioner
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithMediaStore wires the media store through a provisioner with the
// given options.
func WithMediaStore(store MediaStore, opts ...ProvisionerOption) Option {
	return func(s *service) {
		s.media = NewProvisioner(store, opts...)
	}
}

// WithProvisioner sets a pre-built provisioner, for callers that share
// one pool across services.
func WithProvisioner(p *Provisioner) Option {
	return func(s *service) {
		s.media = p
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		logger: slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.media == nil {
		return nil, fmt.Errorf("media store is required")
	}

	return s, nil
}

// Item operations

func (s *service) CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	if err := validateItemFields(req.Title, req.Description, req.Tags); err != nil {
		return nil, err
	}
	if len(req.Buffers) == 0 {
		return nil, NewValidationError("media", "at least one image is required")
	}
	if _, err := s.repository.GetAuthor(ctx, req.OwnerID); err != nil {
		return nil, &AuthorError{AuthorID: req.OwnerID, Op: "create_item", Err: err}
	}

	// Media first: refs are only persisted once every upload succeeded.
	refs, err := s.media.Provision(ctx, req.Buffers)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &Item{
		ID:          uuid.New(),
		OwnerID:     req.OwnerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Tags:        req.Tags,
		Media:       refs,
		Ratings:     []Rating{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repository.CreateItem(ctx, item); err != nil {
		// The document never existed, so the fresh uploads are
		// unreferenced; compensate before surfacing the failure.
		s.media.Release(ctx, refs)
		return nil, &ItemError{ItemID: item.ID, Op: "create", Err: err}
	}

	s.logger.Info("item created", "item_id", item.ID, "owner_id", item.OwnerID, "media", len(refs))
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.repository.GetItem(ctx, id)
	if err != nil {
		return nil, &ItemError{ItemID: id, Op: "get", Err: err}
	}
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, req UpdateItemRequest) (*Item, error) {
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	if req.Tags != nil {
		if err := validateTags(req.Tags); err != nil {
			return nil, err
		}
	}

	upd := ItemUpdate{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}

	// Replacement media is provisioned before the document changes; the
	// old refs stay referenced until the update is durable.
	var oldMedia []MediaRef
	if len(req.Buffers) > 0 {
		current, err := s.repository.GetItem(ctx, req.ItemID)
		if err != nil {
			return nil, &ItemError{ItemID: req.ItemID, Op: "update", Err: err}
		}
		if current.OwnerID != req.OwnerID {
			return nil, &ItemError{ItemID: req.ItemID, Op: "update", Err: ErrItemNotFound}
		}
		refs, err := s.media.Provision(ctx, req.Buffers)
		if err != nil {
			return nil, err
		}
		upd.Media = refs
		oldMedia = current.Media
	}

	item, err := s.repository.UpdateOwnedItem(ctx, req.ItemID, req.OwnerID, upd)
	if err != nil {
		if len(upd.Media) > 0 {
			s.media.Release(ctx, upd.Media)
		}
		return nil, &ItemError{ItemID: req.ItemID, Op: "update", Err: err}
	}

	// Replaced media is released only after the update is durable.
	if len(oldMedia) > 0 {
		s.media.Release(ctx, oldMedia)
	}

	s.logger.Info("item updated", "item_id", item.ID)
	return item, nil
}

func (s *service) DeleteItem(ctx context.Context, itemID, ownerID uuid.UUID) error {
	item, err := s.repository.DeleteOwnedItem(ctx, itemID, ownerID)
	if err != nil {
		return &ItemError{ItemID: itemID, Op: "delete", Err: err}
	}

	// Metadata is gone; storage cleanup is best-effort.
	s.media.Release(ctx, item.Media)

	s.logger.Info("item deleted", "item_id", itemID, "owner_id", ownerID)
	return nil
}

func (s *service) SearchItems(ctx context.Context, query string, page PageParams) (ItemPage, error) {
	q := ItemQuery{
		Matcher: CompileMatcher(query),
		Page:    page.Normalize(),
	}
	result, err := s.repository.SearchItems(ctx, q)
	if err != nil {
		return ItemPage{}, fmt.Errorf("search items: %w", err)
	}
	return result, nil
}

// Author operations

func (s *service) RegisterAuthor(ctx context.Context, req RegisterAuthorRequest) (*Author, error) {
	if strings.TrimSpace(req.Names) == "" {
		return nil, NewValidationError("names", "names are required")
	}
	if strings.TrimSpace(req.Username) == "" {
		return nil, NewValidationError("username", "username is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, NewValidationError("email", "email is required")
	}
	role := req.Role
	if role == "" {
		role = RoleArtist
	}

	now := time.Now().UTC()
	author := &Author{
		ID:        uuid.New(),
		Names:     strings.TrimSpace(req.Names),
		Lastnames: strings.TrimSpace(req.Lastnames),
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repository.CreateAuthor(ctx, author); err != nil {
		return nil, &AuthorError{AuthorID: author.ID, Op: "register", Err: err}
	}

	s.logger.Info("author registered", "author_id", author.ID, "username", author.Username)
	return author, nil
}

func (s *service) GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error) {
	author, err := s.repository.GetAuthor(ctx, id)
	if err != nil {
		return nil, &AuthorError{AuthorID: id, Op: "get", Err: err}
	}
	return author, nil
}

func (s *service) GetAuthorByUsername(ctx context.Context, username string) (*Author, error) {
	author, err := s.repository.GetAuthorByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get author %q: %w", username, err)
	}
	return author, nil
}

// GetAuthorProfile joins the author's public identity and bio with
// their items, sorted by creation time newest first.
func (s *service) GetAuthorProfile(ctx context.Context, username string) (*AuthorProfile, error) {
	author, err := s.repository.GetAuthorByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get author %q: %w", username, err)
	}

	items, err := s.repository.ItemsOwnedBy(ctx, author.ID)
	if err != nil {
		return nil, &AuthorError{AuthorID: author.ID, Op: "profile", Err: err}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	return &AuthorProfile{
		Author:  author.PublicRef(),
		Summary: author.Summary,
		Contact: author.Contact,
		Items:   items,
	}, nil
}

func (s *service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Author, error) {
	author, err := s.repository.GetAuthor(ctx, req.AuthorID)
	if err != nil {
		return nil, &AuthorError{AuthorID: req.AuthorID, Op: "update_profile", Err: err}
	}

	if req.Names != nil {
		if strings.TrimSpace(*req.Names) == "" {
			return nil, NewValidationError("names", "names are required")
		}
		author.Names = strings.TrimSpace(*req.Names)
	}
	if req.Lastnames != nil {
		author.Lastnames = strings.TrimSpace(*req.Lastnames)
	}
	if req.Headline != nil {
		author.Headline = strings.TrimSpace(*req.Headline)
	}
	if req.Summary != nil {
		author.Summary = strings.TrimSpace(*req.Summary)
	}
	if req.Contact != nil {
		author.Contact = *req.Contact
	}

	// Photo replacement follows the same order as item media: provision
	// the new ref, persist, then release the old one best-effort.
	var oldPhoto *MediaRef
	if len(req.Photo) > 0 {
		refs, err := s.media.Provision(ctx, [][]byte{req.Photo})
		if err != nil {
			return nil, err
		}
		oldPhoto = author.Photo
		author.Photo = &refs[0]
	}

	author.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateAuthor(ctx, author); err != nil {
		if len(req.Photo) > 0 && author.Photo != nil {
			s.media.Release(ctx, []MediaRef{*author.Photo})
		}
		return nil, &AuthorError{AuthorID: req.AuthorID, Op: "update_profile", Err: err}
	}

	if oldPhoto != nil {
		s.media.Release(ctx, []MediaRef{*oldPhoto})
	}

	s.logger.Info("profile updated", "author_id", author.ID)
	return author, nil
}

func (s *service) SearchAuthors(ctx context.Context, query string, page PageParams) (AuthorPage, error) {
	q := AuthorQuery{
		Matcher: CompileMatcher(query),
		Page:    page.Normalize(),
	}
	result, err := s.repository.SearchAuthors(ctx, q)
	if err != nil {
		return AuthorPage{}, fmt.Errorf("search authors: %w", err)
	}
	return result, nil
}

// Reporting reads

func (s *service) TagFrequencies(ctx context.Context) (map[string]int, error) {
	return s.repository.TagFrequencies(ctx)
}

func (s *service) CatalogStats(ctx context.Context) (CatalogStats, error) {
	return s.repository.Counts(ctx)
}

// Field validation

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return NewValidationError("title", "title is required")
	}
	if len([]rune(title)) > MaxTitleLen {
		return NewValidationError("title", fmt.Sprintf("title exceeds %d characters", MaxTitleLen))
	}
	return nil
}

func validateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return NewValidationError("description", "description is required")
	}
	if len([]rune(description)) > MaxDescriptionLen {
		return NewValidationError("description", fmt.Sprintf("description exceeds %d characters", MaxDescriptionLen))
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) == 0 {
		return NewValidationError("tags", "at least one tag is required")
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return NewValidationError("tags", "tags must be non-empty")
		}
	}
	return nil
}

func validateItemFields(title, description string, tags []string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	if err := validateDescription(description); err != nil {
		return err
	}
	return validateTags(tags)
}
