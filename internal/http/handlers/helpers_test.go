package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hongminglow/community-site/internal/auth"
	"github.com/hongminglow/community-site/internal/config"
	"github.com/hongminglow/community-site/internal/events"
	"github.com/hongminglow/community-site/internal/logging"
	"github.com/hongminglow/community-site/internal/middleware"
	"github.com/hongminglow/community-site/internal/models"
	"github.com/hongminglow/community-site/internal/storage/memory"
	"github.com/hongminglow/community-site/internal/upload"
)

type fakeDelegate struct {
	mu        sync.Mutex
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeDelegate) Upload(_ context.Context, data []byte, folder string) (upload.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return upload.Asset{}, f.uploadErr
	}
	id := fmt.Sprintf("%s/asset-%d", folder, len(f.uploaded)+1)
	f.uploaded = append(f.uploaded, id)
	return upload.Asset{PublicID: id, URL: "https://cdn.example.com/" + id}, nil
}

func (f *fakeDelegate) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, publicID)
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakePublisher) PublishJSON(_ context.Context, key string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := v.(events.ContentEvent); !ok {
		return errors.New("unexpected payload")
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	uploads *fakeDelegate
	events  *fakePublisher
	tokens  *auth.TokenManager
	cfg     *config.Config
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "community-site",
		JWTTTL:         time.Hour,
		CookieName:     "jwt",
		MaxUploadBytes: 1 << 20,
		UploadTimeout:  time.Second,
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	env := &testEnv{
		store:   memory.New(),
		uploads: &fakeDelegate{},
		events:  &fakePublisher{},
		tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		cfg:     cfg,
	}
	logger := logging.Discard()
	guard := middleware.NewSessionGuard(env.tokens, env.store, cfg.CookieName, logger)

	mux := http.NewServeMux()
	NewHealthHandler(time.Now(), env.store).Register(mux)
	NewAuthHandler(env.store, env.tokens, cfg, logger).Register(mux, guard)
	opts := ContentOptions{MaxUploadBytes: cfg.MaxUploadBytes, UploadTimeout: cfg.UploadTimeout}
	for _, desc := range Descriptors() {
		NewContentHandler(desc, env.store, env.uploads, env.events, logger, opts).Register(mux, guard)
	}
	env.handler = mux
	return env
}

// tokenFor seeds a user with the given role and returns a session token.
func (e *testEnv) tokenFor(t *testing.T, role models.Role) string {
	t.Helper()
	user, err := e.store.CreateUser(context.Background(), models.User{
		Email: fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		Role:  role,
	})
	require.NoError(t, err)
	token, err := e.tokens.Generate(user)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.Equal(t, rec.Code, env.Code)
	return rec, env
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile(PhotoField, "photo.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
