package service

import (
	"context"
	"sync"
	"time"

	"party_server/internal/domain"
	"party_server/internal/logger"
	"party_server/internal/metrics"
)

// OutcomeStore persists outcomes. Implemented by the pgx repository and the
// bbolt store.
type OutcomeStore interface {
	Create(ctx context.Context, o *domain.Outcome) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.Outcome, error)
}

const recordTimeout = 5 * time.Second

// OutcomeService records results in the background and serves them back.
type OutcomeService struct {
	store   OutcomeStore
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewOutcomeService(store OutcomeStore) *OutcomeService {
	return &OutcomeService{store: store, timeout: recordTimeout}
}

// RecordOutcome stores o without blocking the caller. Failures are logged
// and counted.
func (s *OutcomeService) RecordOutcome(o domain.Outcome) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.store.Create(ctx, &o); err != nil {
			metrics.OutcomeFailures.Inc()
			logger.Warn("failed to record outcome", "user_id", o.UserID, "game", o.GameType, "room", o.RoomID, "error", err)
		}
	}()
}

// Wait blocks until pending writes finish or ctx is done.
func (s *OutcomeService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type OutcomeHistory struct {
	Outcomes []*domain.Outcome   `json:"outcomes"`
	Stats    domain.OutcomeStats `json:"stats"`
}

func (s *OutcomeService) History(ctx context.Context, userID int64, limit int) (*OutcomeHistory, error) {
	list, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Outcome{}
	}
	return &OutcomeHistory{Outcomes: list, Stats: domain.Summarize(list)}, nil
}
