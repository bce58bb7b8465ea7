package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"party_server/internal/domain"
)

type OutcomeRepository struct {
	db *pgxpool.Pool
}

func NewOutcomeRepository(db *pgxpool.Pool) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Create сохраняет итог игры игрока
func (r *OutcomeRepository) Create(ctx context.Context, o *domain.Outcome) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO game_outcomes
			(user_id, game_type, room_id, rank, participants, score, result, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id::text, created_at`,
		o.UserID,
		o.GameType,
		o.RoomID,
		o.Rank,
		o.Participants,
		o.Score,
		o.Result,
		o.Reason,
	).Scan(&o.ID, &o.CreatedAt)
}

// ListByUser возвращает последние итоги пользователя
func (r *OutcomeRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.Outcome, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id::text, user_id, game_type, room_id, rank, participants, score, result, reason, created_at
		 FROM game_outcomes
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

func scanOutcomes(rows pgx.Rows) ([]*domain.Outcome, error) {
	var result []*domain.Outcome
	for rows.Next() {
		var o domain.Outcome
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.GameType, &o.RoomID, &o.Rank,
			&o.Participants, &o.Score, &o.Result, &o.Reason, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &o)
	}
	return result, rows.Err()
}
