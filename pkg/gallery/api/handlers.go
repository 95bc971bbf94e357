// Package api is the thin HTTP boundary over the gallery core.
// Handlers parse and pre-validate payloads, attach the verified caller
// identity, and delegate; the core re-validates domain invariants
// regardless.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/artgrove/gallery/pkg/gallery"
)

// Uploaded files are read fully into memory before provisioning.
const maxUploadMemory = 32 << 20 // 32 MiB

// Handler handles HTTP requests for the gallery catalog
type Handler struct {
	service gallery.Service
	logger  *slog.Logger
}

// NewHandler creates a new gallery handler
func NewHandler(service gallery.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the routes for the gallery catalog
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/items", h.SearchItems)
	r.Get("/items/{id}", h.GetItem)
	r.Get("/featured", h.GetFeatured)
	r.Get("/artists", h.SearchAuthors)
	r.Get("/artists/{username}", h.GetAuthor)
	r.Post("/artists", h.RegisterAuthor)

	r.Group(func(r chi.Router) {
		r.Use(Authenticator)

		r.Post("/items", h.CreateItem)
		r.Patch("/items/{id}", h.UpdateItem)
		r.Delete("/items/{id}", h.DeleteItem)
		r.Post("/items/{id}/ratings", h.AddRating)
		r.Patch("/profile", h.UpdateProfile)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Put("/admin/featured/{id}", h.SetFeatured)
			r.Delete("/admin/authors/{id}", h.DeleteAuthor)
			r.Get("/admin/report", h.Report)
		})
	})

	return r
}

// ErrResponse is the error response body
type ErrResponse struct {
	Error string `json:"error"`
}

// Item endpoints

func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.SearchItems(r.Context(), r.URL.Query().Get("search"), pageParams(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	item, err := h.service.GetItemWithRatings(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	tags, err := parseTags(r.FormValue("tags"))
	if err != nil {
		http.Error(w, "invalid tags", http.StatusBadRequest)
		return
	}
	buffers, err := readFiles(r.MultipartForm.File["images"])
	if err != nil {
		http.Error(w, "failed to read uploaded images", http.StatusBadRequest)
		return
	}

	item, err := h.service.CreateItem(r.Context(), gallery.CreateItemRequest{
		OwnerID:     caller.ID,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        tags,
		Buffers:     buffers,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	req := gallery.UpdateItemRequest{ItemID: id, OwnerID: caller.ID}
	if v := r.FormValue("title"); v != "" {
		req.Title = &v
	}
	if v := r.FormValue("description"); v != "" {
		req.Description = &v
	}
	if v := r.FormValue("tags"); v != "" {
		tags, err := parseTags(v)
		if err != nil {
			http.Error(w, "invalid tags", http.StatusBadRequest)
			return
		}
		req.Tags = tags
	}
	if r.MultipartForm != nil {
		buffers, err := readFiles(r.MultipartForm.File["images"])
		if err != nil {
			http.Error(w, "failed to read uploaded images", http.StatusBadRequest)
			return
		}
		req.Buffers = buffers
	}

	item, err := h.service.UpdateItem(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteItem(r.Context(), id, caller.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Rating endpoints

// AddRatingRequest is the request body for rating an item
type AddRatingRequest struct {
	Value   float64 `json:"value"`
	Comment string  `json:"comment"`
}

func (h *Handler) AddRating(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	var req AddRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.service.AddRating(r.Context(), gallery.AddRatingRequest{
		ItemID:   id,
		AuthorID: caller.ID,
		Value:    req.Value,
		Comment:  req.Comment,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

// Featured endpoints

func (h *Handler) GetFeatured(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.FeaturedItem(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *Handler) SetFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	if err := h.service.SetFeatured(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Author endpoints

func (h *Handler) SearchAuthors(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.SearchAuthors(r.Context(), r.URL.Query().Get("search"), pageParams(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// RegisterAuthorRequest is the request body for registering an author
type RegisterAuthorRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Names     string `json:"names"`
	Lastnames string `json:"lastnames"`
}

func (h *Handler) RegisterAuthor(w http.ResponseWriter, r *http.Request) {
	var req RegisterAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	author, err := h.service.RegisterAuthor(r.Context(), gallery.RegisterAuthorRequest{
		Username:  req.Username,
		Email:     req.Email,
		Names:     req.Names,
		Lastnames: req.Lastnames,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, author)
}

func (h *Handler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetAuthorProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	req := gallery.UpdateProfileRequest{AuthorID: caller.ID}
	if v := r.FormValue("names"); v != "" {
		req.Names = &v
	}
	if v := r.FormValue("lastnames"); v != "" {
		req.Lastnames = &v
	}
	if v := r.FormValue("headline"); v != "" {
		req.Headline = &v
	}
	if v := r.FormValue("summary"); v != "" {
		req.Summary = &v
	}
	if v := r.FormValue("contact"); v != "" {
		var contact gallery.Contact
		if err := json.Unmarshal([]byte(v), &contact); err != nil {
			http.Error(w, "invalid contact", http.StatusBadRequest)
			return
		}
		req.Contact = &contact
	}
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["photo"]; len(files) > 0 {
			buffers, err := readFiles(files[:1])
			if err != nil {
				http.Error(w, "failed to read uploaded photo", http.StatusBadRequest)
				return
			}
			req.Photo = buffers[0]
		}
	}

	author, err := h.service.UpdateProfile(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, author)
}

func (h *Handler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid author id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteAuthor(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Reporting endpoints

// ReportResponse is the response body for the admin report data
type ReportResponse struct {
	Stats gallery.CatalogStats `json:"stats"`
	Tags  map[string]int       `json:"tags"`
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CatalogStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tags, err := h.service.TagFrequencies(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, ReportResponse{Stats: stats, Tags: tags})
}

// helpers

// writeError maps the core error taxonomy onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gallery.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, gallery.ErrItemNotFound), errors.Is(err, gallery.ErrAuthorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, gallery.ErrSelfRating),
		errors.Is(err, gallery.ErrDuplicateRating),
		errors.Is(err, gallery.ErrDuplicateUsername),
		errors.Is(err, gallery.ErrDuplicateEmail):
		status = http.StatusConflict
	case errors.Is(err, gallery.ErrPartialProvision):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrResponse{Error: err.Error()})
}

func pageParams(r *http.Request) gallery.PageParams {
	q := r.URL.Query()
	// Malformed numbers parse to zero and clamp to the defaults.
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("limit"))
	return gallery.PageParams{
		Page:     page,
		PageSize: size,
		Sort:     gallery.SortDir(q.Get("sort")),
	}
}

func parseTags(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func readFiles(headers []*multipart.FileHeader) ([][]byte, error) {
	var buffers [][]byte
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		buffers = append(buffers, data)
	}
	return buffers, nil
}
