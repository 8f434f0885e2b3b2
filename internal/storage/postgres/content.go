package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hongminglow/community-site/internal/models"
	"github.com/hongminglow/community-site/internal/storage"
)

const recordColumns = `id, kind, title, name, description, time_and_date, photo_public_id, photo_url, photo_alt, created_at`

var orderClauses = map[storage.Order]string{
	storage.OrderByCreated:   `created_at DESC`,
	storage.OrderByEventDate: `time_and_date DESC NULLS LAST, created_at DESC`,
}

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateRecord inserts a content record and returns it with its id and timestamp.
func (s *Store) CreateRecord(ctx context.Context, rec models.Record) (models.Record, error) {
	const query = `
		INSERT INTO content_records (id, kind, title, name, description, time_and_date, photo_public_id, photo_url, photo_alt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	var publicID, url, alt sql.NullString
	if rec.Photo != nil {
		if !rec.Photo.Complete() {
			return models.Record{}, errors.New("photo reference needs both public id and url")
		}
		publicID = sql.NullString{String: rec.Photo.PublicID, Valid: true}
		url = sql.NullString{String: rec.Photo.URL, Valid: true}
		alt = sql.NullString{String: rec.Photo.Alt, Valid: rec.Photo.Alt != ""}
	}
	var eventDate sql.NullTime
	if rec.TimeAndDate != nil {
		eventDate = sql.NullTime{Time: *rec.TimeAndDate, Valid: true}
	}

	rec.ID = uuid.NewString()
	err := s.q.QueryRowContext(ctx, query,
		rec.ID, string(rec.Kind), rec.Title, rec.Name, rec.Description, eventDate, publicID, url, alt,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return models.Record{}, fmt.Errorf("insert %s record: %w", rec.Kind, err)
	}
	return rec, nil
}

// ListRecords returns every record of kind, newest first by the given order.
func (s *Store) ListRecords(ctx context.Context, kind models.Kind, order storage.Order) ([]models.Record, error) {
	clause, ok := orderClauses[order]
	if !ok {
		clause = orderClauses[storage.OrderByCreated]
	}
	query := `SELECT ` + recordColumns + ` FROM content_records WHERE kind = $1 ORDER BY ` + clause

	rows, err := s.q.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", kind, err)
	}
	defer rows.Close()

	out := make([]models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s record: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", kind, err)
	}
	return out, nil
}

// GetRecord fetches one record of kind by id.
func (s *Store) GetRecord(ctx context.Context, kind models.Kind, id string) (models.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Record{}, storage.ErrNotFound
	}
	query := `SELECT ` + recordColumns + ` FROM content_records WHERE kind = $1 AND id = $2`

	rec, err := scanRecord(s.q.QueryRowContext(ctx, query, string(kind), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, storage.ErrNotFound
		}
		return models.Record{}, fmt.Errorf("get %s record: %w", kind, err)
	}
	return rec, nil
}

// DeleteRecord removes one record of kind by id.
func (s *Store) DeleteRecord(ctx context.Context, kind models.Kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrNotFound
	}
	const query = `DELETE FROM content_records WHERE kind = $1 AND id = $2`

	res, err := s.q.ExecContext(ctx, query, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s record: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s record: %w", kind, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanRecord(row rowScanner) (models.Record, error) {
	var (
		rec                models.Record
		kind               string
		eventDate          sql.NullTime
		publicID, url, alt sql.NullString
	)
	err := row.Scan(&rec.ID, &kind, &rec.Title, &rec.Name, &rec.Description, &eventDate, &publicID, &url, &alt, &rec.CreatedAt)
	if err != nil {
		return models.Record{}, err
	}
	rec.Kind = models.Kind(kind)
	if eventDate.Valid {
		t := eventDate.Time
		rec.TimeAndDate = &t
	}
	if publicID.Valid && url.Valid {
		rec.Photo = &models.Photo{PublicID: publicID.String, URL: url.String, Alt: alt.String}
	}
	return rec, nil
}
