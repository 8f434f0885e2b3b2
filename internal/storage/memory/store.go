// Package memory keeps users and content records in process memory. It backs
// DATABASE_URL=memory:// and the handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/community-site/internal/models"
	"github.com/hongminglow/community-site/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	users   map[string]models.User
	records map[string]models.Record
	now     func() time.Time
}

func New() *Store {
	return &Store{
		users:   make(map[string]models.User),
		records: make(map[string]models.Record),
		now:     time.Now,
	}
}

func (s *Store) Close() {}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.now().UTC()
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateRecord(_ context.Context, rec models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *Store) ListRecords(_ context.Context, kind models.Kind, order storage.Order) ([]models.Record, error) {
	s.mu.RLock()
	out := make([]models.Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if order == storage.OrderByEventDate {
			a, b := eventDate(out[i]), eventDate(out[j])
			if !a.Equal(b) {
				return a.After(b)
			}
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetRecord(_ context.Context, kind models.Kind, id string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok || r.Kind != kind {
		return models.Record{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) DeleteRecord(_ context.Context, kind models.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.Kind != kind {
		return storage.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func eventDate(r models.Record) time.Time {
	if r.TimeAndDate == nil {
		return time.Time{}
	}
	return *r.TimeAndDate
}
