package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/community-site/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// Order selects how a content list is sorted. Both orders are newest first.
type Order int

const (
	OrderByCreated Order = iota
	OrderByEventDate
)

// UserStore captures credential persistence needed by handlers and the session guard.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// ContentStore persists content records of every kind.
type ContentStore interface {
	CreateRecord(ctx context.Context, rec models.Record) (models.Record, error)
	ListRecords(ctx context.Context, kind models.Kind, order Order) ([]models.Record, error)
	GetRecord(ctx context.Context, kind models.Kind, id string) (models.Record, error)
	// DeleteRecord returns ErrNotFound when nothing was removed.
	DeleteRecord(ctx context.Context, kind models.Kind, id string) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	UserStore
	ContentStore
	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
	Close()
}
