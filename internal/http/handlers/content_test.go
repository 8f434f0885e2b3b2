package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/community-site/internal/auth"
	"github.com/hongminglow/community-site/internal/events"
	"github.com/hongminglow/community-site/internal/models"
	"github.com/hongminglow/community-site/internal/upload"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

func listRecords(t *testing.T, env *testEnv, kind models.Kind) []models.Record {
	t.Helper()
	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/"+string(kind), nil), "")
	return decodeData[[]models.Record](t, body)
}

func TestAnnouncementLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	rec, body := env.do(t, jsonRequest(t, http.MethodPost, "/api/announcements", map[string]string{
		"title":       "Fest Update",
		"timeAndDate": "2025-09-10",
		"description": "Stalls open at noon",
	}), admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Announcement created successfully.", body.Message)

	created := decodeData[models.Record](t, body)
	require.NotEmpty(t, created.ID)
	require.NotNil(t, created.TimeAndDate)
	assert.Equal(t, "2025-09-10", created.TimeAndDate.Format("2006-01-02"))
	assert.Nil(t, created.Photo)

	list := listRecords(t, env, models.KindAnnouncement)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec, body = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/announcements/"+created.ID, nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Announcement deleted", body.Message)

	assert.Empty(t, listRecords(t, env, models.KindAnnouncement))
	assert.Equal(t, []string{events.ContentCreated, events.ContentDeleted}, env.events.published())
	assert.Empty(t, env.uploads.uploaded)
}

func TestCreateMedia_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)
	before := len(listRecords(t, env, models.KindMedia))

	rec, body := env.do(t, multipartRequest(t, "/api/media", map[string]string{
		"title":       "Gallery",
		"description": "Opening night",
	}, nil), admin)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Description and photo are required.", body.Message)
	assert.Len(t, listRecords(t, env, models.KindMedia), before)
	assert.Empty(t, env.uploads.uploaded)
}

func TestCreateEventAndMedia_MissingTitle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	for _, kind := range []models.Kind{models.KindEvent, models.KindMedia} {
		rec, body := env.do(t, multipartRequest(t, "/api/"+string(kind), map[string]string{
			"description": "Untitled",
		}, pngBytes), admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code, kind)
		assert.Equal(t, "Description and photo are required.", body.Message, kind)
		assert.Empty(t, listRecords(t, env, kind), kind)
	}
	assert.Empty(t, env.uploads.uploaded)
	assert.Empty(t, env.events.published())
}

func TestCreateEvent_WithPhoto(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	rec, body := env.do(t, multipartRequest(t, "/api/events", map[string]string{
		"title":       "Cleanup Drive",
		"description": "Meet at the park gate",
	}, pngBytes), admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Event created successfully.", body.Message)

	created := decodeData[models.Record](t, body)
	require.NotNil(t, created.Photo)
	assert.Equal(t, "events/asset-1", created.Photo.PublicID)
	assert.Equal(t, "https://cdn.example.com/events/asset-1", created.Photo.URL)
	assert.Equal(t, []string{"events/asset-1"}, env.uploads.uploaded)
}

func TestCreateCoordinator_AltText(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	rec, body := env.do(t, multipartRequest(t, "/api/coordinators", map[string]string{"name": "Asha Rao"}, pngBytes), admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Coordinator added successfully.", body.Message)

	created := decodeData[models.Record](t, body)
	assert.Equal(t, "Asha Rao", created.Name)
	require.NotNil(t, created.Photo)
	assert.Equal(t, "Photo of Asha Rao", created.Photo.Alt)
}

func TestCreateCoordinator_MissingName(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	rec, body := env.do(t, multipartRequest(t, "/api/coordinators", map[string]string{"name": "  "}, pngBytes), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name and photo are required.", body.Message)
	assert.Empty(t, env.uploads.uploaded)
}

func TestCreateAnnouncement_Validation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	rec, body := env.do(t, jsonRequest(t, http.MethodPost, "/api/announcements", map[string]string{"title": "No date"}), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title and time/date are required.", body.Message)

	rec, body = env.do(t, jsonRequest(t, http.MethodPost, "/api/announcements", map[string]string{
		"title": "Bad date", "timeAndDate": "next tuesday",
	}), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid time/date.", body.Message)
	assert.Empty(t, listRecords(t, env, models.KindAnnouncement))
}

func TestAnnouncements_OrderedByTimeAndDate(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	for _, when := range []string{"2025-01-05", "2025-03-01T18:30", "2024-12-31T09:00:00Z"} {
		rec, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/announcements", map[string]string{
			"title": "at " + when, "timeAndDate": when,
		}), admin)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	list := listRecords(t, env, models.KindAnnouncement)
	require.Len(t, list, 3)
	assert.Equal(t, "at 2025-03-01T18:30", list[0].Title)
	assert.Equal(t, "at 2025-01-05", list[1].Title)
	assert.Equal(t, "at 2024-12-31T09:00:00Z", list[2].Title)
}

func TestContentMutations_Guarded(t *testing.T) {
	env := newTestEnv(t)
	user := env.tokenFor(t, models.RoleUser)
	admin := env.tokenFor(t, models.RoleAdmin)
	payload := map[string]string{"title": "x", "timeAndDate": "2025-09-10"}

	rec, body := env.do(t, jsonRequest(t, http.MethodPost, "/api/announcements", payload), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, no token", body.Message)

	expired, err := auth.NewTokenManager(env.cfg.JWTSecret, env.cfg.JWTIssuer, -time.Minute).Generate(adminUserFrom(t, env, admin))
	require.NoError(t, err)
	rec, body = env.do(t, jsonRequest(t, http.MethodPost, "/api/announcements", payload), expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, token failed", body.Message)

	rec, body = env.do(t, jsonRequest(t, http.MethodPost, "/api/announcements", payload), user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized as an admin", body.Message)

	tampered := admin + "x"
	rec, body = env.do(t, jsonRequest(t, http.MethodPost, "/api/announcements", payload), tampered)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, token failed", body.Message)

	rec, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/announcements/anything", nil), user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Empty(t, listRecords(t, env, models.KindAnnouncement))
	assert.Empty(t, env.events.published())
}

// adminUserFrom resolves the stored user behind a session token.
func adminUserFrom(t *testing.T, env *testEnv, token string) models.User {
	t.Helper()
	claims, err := env.tokens.Parse(token)
	require.NoError(t, err)
	user, err := env.store.FindByID(context.Background(), claims.UserID)
	require.NoError(t, err)
	return user
}

func TestDeleteEvent_TwiceAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	_, body := env.do(t, multipartRequest(t, "/api/events", map[string]string{"title": "t", "description": "d"}, pngBytes), admin)
	created := decodeData[models.Record](t, body)

	rec, body := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/events/"+created.ID, nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Event deleted", body.Message)
	assert.Equal(t, []string{created.Photo.PublicID}, env.uploads.deleted)

	rec, body = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/events/"+created.ID, nil), admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found", body.Message)

	rec, body = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/media/not-an-id", nil), admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Media not found", body.Message)
}

func TestDelete_WrongKindIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	_, body := env.do(t, multipartRequest(t, "/api/media", map[string]string{"title": "t", "description": "d"}, pngBytes), admin)
	created := decodeData[models.Record](t, body)

	rec, _ := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/events/"+created.ID, nil), admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, listRecords(t, env, models.KindMedia), 1)
}

func TestDelete_RemoteFailureStillRemovesRecord(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	_, body := env.do(t, multipartRequest(t, "/api/media", map[string]string{"title": "t", "description": "d"}, pngBytes), admin)
	created := decodeData[models.Record](t, body)

	env.uploads.deleteErr = upload.ErrDelete
	rec, _ := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/media/"+created.ID, nil), admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listRecords(t, env, models.KindMedia))
	assert.Equal(t, []string{events.ContentCreated, events.AssetOrphaned, events.ContentDeleted}, env.events.published())
}

func TestCreate_UploadFailure(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)
	env.uploads.uploadErr = errors.Join(upload.ErrUpload, errors.New("host down"))

	rec, body := env.do(t, multipartRequest(t, "/api/events", map[string]string{"title": "t", "description": "d"}, pngBytes), admin)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "File could not be uploaded.", body.Message)
	assert.Empty(t, listRecords(t, env, models.KindEvent))
}

func TestCreate_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, models.RoleAdmin)

	big := make([]byte, env.cfg.MaxUploadBytes+1)
	rec, body := env.do(t, multipartRequest(t, "/api/events", map[string]string{"title": "t", "description": "d"}, big), admin)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File is too large.", body.Message)
	assert.Empty(t, env.uploads.uploaded)
	assert.Empty(t, listRecords(t, env, models.KindEvent))
}

func TestList_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/coordinators", nil), "")
	assert.JSONEq(t, `[]`, string(body.Data))
}
