package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hongminglow/community-site/internal/auth"
	"github.com/hongminglow/community-site/internal/events"
	"github.com/hongminglow/community-site/internal/http/respond"
	"github.com/hongminglow/community-site/internal/logging"
	"github.com/hongminglow/community-site/internal/models"
	"github.com/hongminglow/community-site/internal/storage"
	"github.com/hongminglow/community-site/internal/upload"
)

// PhotoField is the multipart field carrying the uploaded file.
const PhotoField = "photo"

var timeAndDateLayouts = []string{"2006-01-02", "2006-01-02T15:04", time.RFC3339}

var errInvalidTimeAndDate = errors.New("unrecognized time/date")

const invalidTimeAndDateMessage = "Invalid time/date."

// contentInput holds the text fields submitted for any kind.
type contentInput struct {
	Title       string `json:"title"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TimeAndDate string `json:"timeAndDate"`
}

// Descriptor configures the generic content handler for one kind.
type Descriptor struct {
	Kind         models.Kind
	Singular     string
	RequiresFile bool
	Folder       string
	Order        storage.Order

	MissingMessage string
	CreatedMessage string
	DeletedMessage string
	ListFailed     string

	// complete reports whether the required text fields are present.
	complete func(in contentInput) bool
	// build maps validated input onto a record.
	build func(in contentInput) (models.Record, error)
}

// Descriptors returns the table for every served kind.
func Descriptors() []Descriptor {
	return []Descriptor{
		{
			Kind:           models.KindAnnouncement,
			Singular:       "Announcement",
			Order:          storage.OrderByEventDate,
			MissingMessage: "Title and time/date are required.",
			CreatedMessage: "Announcement created successfully.",
			DeletedMessage: "Announcement deleted",
			ListFailed:     "Failed to retrieve announcements.",
			complete: func(in contentInput) bool {
				return in.Title != "" && in.TimeAndDate != ""
			},
			build: func(in contentInput) (models.Record, error) {
				when, err := parseTimeAndDate(in.TimeAndDate)
				if err != nil {
					return models.Record{}, err
				}
				return models.Record{Title: in.Title, Description: in.Description, TimeAndDate: &when}, nil
			},
		},
		{
			Kind:           models.KindEvent,
			Singular:       "Event",
			RequiresFile:   true,
			Folder:         "events",
			Order:          storage.OrderByCreated,
			MissingMessage: "Description and photo are required.",
			CreatedMessage: "Event created successfully.",
			DeletedMessage: "Event deleted",
			ListFailed:     "Failed to retrieve events.",
			complete:       func(in contentInput) bool { return in.Title != "" && in.Description != "" },
			build: func(in contentInput) (models.Record, error) {
				return models.Record{Title: in.Title, Description: in.Description}, nil
			},
		},
		{
			Kind:           models.KindMedia,
			Singular:       "Media",
			RequiresFile:   true,
			Folder:         "media",
			Order:          storage.OrderByCreated,
			MissingMessage: "Description and photo are required.",
			CreatedMessage: "Media item created successfully.",
			DeletedMessage: "Media deleted",
			ListFailed:     "Failed to retrieve media.",
			complete:       func(in contentInput) bool { return in.Title != "" && in.Description != "" },
			build: func(in contentInput) (models.Record, error) {
				return models.Record{Title: in.Title, Description: in.Description}, nil
			},
		},
		{
			Kind:           models.KindCoordinator,
			Singular:       "Coordinator",
			RequiresFile:   true,
			Folder:         "coordinators",
			Order:          storage.OrderByCreated,
			MissingMessage: "Name and photo are required.",
			CreatedMessage: "Coordinator added successfully.",
			DeletedMessage: "Coordinator deleted successfully",
			ListFailed:     "Failed to retrieve coordinators.",
			complete:       func(in contentInput) bool { return in.Name != "" },
			build: func(in contentInput) (models.Record, error) {
				return models.Record{Name: in.Name}, nil
			},
		},
	}
}

// ContentOptions tunes request limits for content creation.
type ContentOptions struct {
	MaxUploadBytes int64
	UploadTimeout  time.Duration
}

// ContentHandler serves list/create/delete for one kind.
type ContentHandler struct {
	desc    Descriptor
	store   storage.ContentStore
	uploads upload.Delegate
	events  events.Publisher
	logger  logging.Logger
	opts    ContentOptions
}

// NewContentHandler constructs a handler for the given descriptor.
func NewContentHandler(desc Descriptor, store storage.ContentStore, uploads upload.Delegate, publisher events.Publisher, logger logging.Logger, opts ContentOptions) *ContentHandler {
	return &ContentHandler{
		desc:    desc,
		store:   store,
		uploads: uploads,
		events:  publisher,
		logger:  logger.With("kind", string(desc.Kind)),
		opts:    opts,
	}
}

// Register attaches the kind's routes. Mutations require an admin session.
func (h *ContentHandler) Register(mux *http.ServeMux, guard Guard) {
	base := "/api/" + string(h.desc.Kind)
	mux.HandleFunc("GET "+base, h.handleList)
	mux.Handle("POST "+base, guard.RequireAdmin(http.HandlerFunc(h.handleCreate)))
	mux.Handle("DELETE "+base+"/{id}", guard.RequireAdmin(http.HandlerFunc(h.handleDelete)))
}

func (h *ContentHandler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListRecords(r.Context(), h.desc.Kind, h.desc.Order)
	if err != nil {
		h.logger.Error(r.Context(), "list records", "error", err)
		respond.Error(w, http.StatusInternalServerError, h.desc.ListFailed)
		return
	}
	respond.List(w, "ok", records)
}

func (h *ContentHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	in, file, err := h.readInput(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "File is too large.")
			return
		}
		respond.Error(w, http.StatusBadRequest, h.desc.MissingMessage)
		return
	}

	if !h.desc.complete(in) || (h.desc.RequiresFile && len(file) == 0) {
		respond.Error(w, http.StatusBadRequest, h.desc.MissingMessage)
		return
	}
	rec, err := h.desc.build(in)
	if err != nil {
		msg := h.desc.MissingMessage
		if errors.Is(err, errInvalidTimeAndDate) {
			msg = invalidTimeAndDateMessage
		}
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	rec.Kind = h.desc.Kind

	if h.desc.RequiresFile {
		asset, err := h.upload(r.Context(), file)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, "File could not be uploaded.")
			return
		}
		rec.Photo = &models.Photo{PublicID: asset.PublicID, URL: asset.URL}
		if h.desc.Kind == models.KindCoordinator {
			rec.Photo.Alt = "Photo of " + rec.Name
		}
	}

	created, err := h.store.CreateRecord(r.Context(), rec)
	if err != nil {
		h.logger.Error(r.Context(), "create record", "error", err)
		if rec.Photo != nil {
			h.removeRemote(r.Context(), rec, actorID(r.Context()))
		}
		respond.Error(w, http.StatusInternalServerError, "Server error.")
		return
	}

	h.publish(r.Context(), events.ContentCreated, created)
	respond.JSON(w, http.StatusCreated, h.desc.CreatedMessage, created)
}

func (h *ContentHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	notFound := h.desc.Singular + " not found"

	rec, err := h.store.GetRecord(r.Context(), h.desc.Kind, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, notFound)
			return
		}
		h.logger.Error(r.Context(), "get record", "id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Server Error")
		return
	}

	if err := h.store.DeleteRecord(r.Context(), h.desc.Kind, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, notFound)
			return
		}
		h.logger.Error(r.Context(), "delete record", "id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Server Error")
		return
	}

	if rec.Photo != nil {
		h.removeRemote(r.Context(), rec, actorID(r.Context()))
	}
	h.publish(r.Context(), events.ContentDeleted, rec)
	respond.JSON(w, http.StatusOK, h.desc.DeletedMessage, nil)
}

// readInput decodes text fields from JSON or a form body and reads the
// optional photo file.
func (h *ContentHandler) readInput(r *http.Request) (contentInput, []byte, error) {
	var in contentInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return contentInput{}, nil, err
		}
		return in.trimmed(), nil, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return contentInput{}, nil, err
		}
	default:
		if err := r.ParseForm(); err != nil {
			return contentInput{}, nil, err
		}
	}

	in = contentInput{
		Title:       r.FormValue("title"),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		TimeAndDate: r.FormValue("timeAndDate"),
	}.trimmed()

	if r.MultipartForm == nil {
		return in, nil, nil
	}
	file, _, err := r.FormFile(PhotoField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, nil, nil
		}
		return contentInput{}, nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return contentInput{}, nil, err
	}
	return in, data, nil
}

func (in contentInput) trimmed() contentInput {
	return contentInput{
		Title:       strings.TrimSpace(in.Title),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		TimeAndDate: strings.TrimSpace(in.TimeAndDate),
	}
}

func (h *ContentHandler) upload(ctx context.Context, data []byte) (upload.Asset, error) {
	if h.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.UploadTimeout)
		defer cancel()
	}
	asset, err := h.uploads.Upload(ctx, data, h.desc.Folder)
	if err != nil {
		h.logger.Error(ctx, "upload photo", "folder", h.desc.Folder, "error", err)
		return upload.Asset{}, err
	}
	return asset, nil
}

// removeRemote deletes the record's remote asset. Failure never affects the
// response; the asset is announced as orphaned for out-of-band cleanup.
func (h *ContentHandler) removeRemote(ctx context.Context, rec models.Record, actor string) {
	if h.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.UploadTimeout)
		defer cancel()
	}
	if err := h.uploads.Delete(ctx, rec.Photo.PublicID); err != nil {
		h.logger.Warn(ctx, "remote asset left behind", "id", rec.ID, "public_id", rec.Photo.PublicID, "error", err)
		h.publishAs(ctx, events.AssetOrphaned, rec, actor)
	}
}

func (h *ContentHandler) publish(ctx context.Context, key string, rec models.Record) {
	h.publishAs(ctx, key, rec, actorID(ctx))
}

func (h *ContentHandler) publishAs(ctx context.Context, key string, rec models.Record, actor string) {
	if err := h.events.PublishJSON(ctx, key, events.NewContentEvent(key, rec, actor)); err != nil {
		h.logger.Warn(ctx, "publish event", "event", key, "id", rec.ID, "error", err)
	}
}

func actorID(ctx context.Context) string {
	identity, _ := auth.IdentityFrom(ctx)
	return identity.ID
}

func parseTimeAndDate(raw string) (time.Time, error) {
	for _, layout := range timeAndDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errInvalidTimeAndDate, raw)
}
