package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hongminglow/community-site/internal/models"
	"github.com/hongminglow/community-site/internal/models/dto"
)

// GenericErrorMessage is shown when the API could not be reached or replied
// with something other than an envelope.
const GenericErrorMessage = "Something went wrong. Please try again."

// APIError carries the server's user-facing message verbatim.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// envelope mirrors the server's response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the site API on behalf of the stored session.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions SessionStore
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, sessions SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 60 * time.Second},
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the stored session without contacting the server.
func (c *Client) Current() (Session, error) {
	return c.sessions.Load()
}

func (c *Client) Register(ctx context.Context, email, password string, role models.Role) (Session, string, error) {
	req := dto.RegisterRequest{Email: email, Password: password, Role: string(role)}
	return c.authenticate(ctx, "/api/auth/register", req)
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, string, error) {
	return c.authenticate(ctx, "/api/auth/login", dto.LoginRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (Session, string, error) {
	var out dto.AuthResponse
	msg, err := c.doJSON(ctx, http.MethodPost, path, payload, &out)
	if err != nil {
		return Session{}, "", err
	}
	s := Session{User: out.User, Token: out.Token}
	if err := c.sessions.Save(s); err != nil {
		return Session{}, "", fmt.Errorf("persist session: %w", err)
	}
	return s, msg, nil
}

// Logout tells the server to expire the cookie and always drops the local session.
func (c *Client) Logout(ctx context.Context) (string, error) {
	msg, callErr := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if err := c.sessions.Clear(); err != nil {
		return "", err
	}
	if callErr != nil {
		return "Logged out successfully", nil
	}
	return msg, nil
}

// Me verifies the stored session with the server. A rejected token clears it.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	if _, err := c.sessions.Load(); err != nil {
		return models.User{}, err
	}
	var user models.User
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			_ = c.sessions.Clear()
		}
		return models.User{}, err
	}
	return user, nil
}

func (c *Client) List(ctx context.Context, kind models.Kind) ([]models.Record, error) {
	var records []models.Record
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/"+string(kind), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Photo is a file attached to a create request.
type Photo struct {
	Filename string
	Data     []byte
}

// Create submits a record as multipart form data; photo may be nil.
func (c *Client) Create(ctx context.Context, kind models.Kind, fields map[string]string, photo *Photo) (models.Record, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return models.Record{}, "", fmt.Errorf("encode field %s: %w", k, err)
		}
	}
	if photo != nil {
		part, err := mw.CreateFormFile("photo", photo.Filename)
		if err != nil {
			return models.Record{}, "", fmt.Errorf("encode photo: %w", err)
		}
		if _, err := part.Write(photo.Data); err != nil {
			return models.Record{}, "", fmt.Errorf("encode photo: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return models.Record{}, "", fmt.Errorf("encode form: %w", err)
	}

	var rec models.Record
	msg, err := c.do(ctx, http.MethodPost, "/api/"+string(kind), mw.FormDataContentType(), &buf, &rec)
	return rec, msg, err
}

func (c *Client) Delete(ctx context.Context, kind models.Kind, id string) (string, error) {
	return c.doJSON(ctx, http.MethodDelete, "/api/"+string(kind)+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) (string, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return "", &APIError{Message: GenericErrorMessage, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s, err := c.sessions.Load(); err == nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &APIError{Message: GenericErrorMessage, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", &APIError{Status: resp.StatusCode, Message: GenericErrorMessage, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := env.Message
		if msg == "" {
			msg = GenericErrorMessage
		}
		return "", &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &APIError{Status: resp.StatusCode, Message: GenericErrorMessage, Err: err}
		}
	}
	return env.Message, nil
}
