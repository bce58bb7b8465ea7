package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"party_server/internal/domain"
)

type ContentRepository struct {
	db *pgxpool.Pool
}

func NewContentRepository(db *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: db}
}

// FetchDocument returns domain.ErrNotFound for unknown ids.
func (r *ContentRepository) FetchDocument(ctx context.Context, id string) (*domain.Document, error) {
	var (
		d    domain.Document
		body []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, kind, title, body FROM content_documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Kind, &d.Title, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Body = body
	return &d, nil
}

// Upsert вставляет или обновляет документ
func (r *ContentRepository) Upsert(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO content_documents (id, kind, title, body)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET kind = EXCLUDED.kind, title = EXCLUDED.title, body = EXCLUDED.body, updated_at = now()`,
		d.ID, d.Kind, d.Title, []byte(d.Body),
	)
	return err
}
