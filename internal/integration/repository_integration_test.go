package integration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"party_server/internal/db"
	"party_server/internal/domain"
	"party_server/internal/repository"
)

// Integration-style test: runs only if DATABASE_URL env is set.
func TestPostgresRepositories(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	content := repository.NewContentRepository(pool)
	id := "it-" + time.Now().Format("150405.000000")
	doc := &domain.Document{
		ID:    id,
		Kind:  domain.DocumentKindQuiz,
		Title: "Integration",
		Body:  json.RawMessage(`{"questions":[{"prompt":"2+2?","choices":["3","4"],"answer":1}]}`),
	}
	if err := content.Upsert(ctx, doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := content.FetchDocument(ctx, id)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Title != "Integration" || got.Kind != domain.DocumentKindQuiz {
		t.Fatalf("unexpected document %+v", got)
	}
	if _, err := content.FetchDocument(ctx, id+"-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	outcomes := repository.NewOutcomeRepository(pool)
	userID := time.Now().UnixNano()
	for i, r := range []domain.OutcomeResult{domain.OutcomeWin, domain.OutcomeLose} {
		o := &domain.Outcome{
			UserID:       userID,
			GameType:     "quiz",
			RoomID:       "room-it",
			Rank:         i + 1,
			Participants: 2,
			Score:        100 - i,
			Result:       r,
			Reason:       "questions_complete",
		}
		if err := outcomes.Create(ctx, o); err != nil {
			t.Fatalf("create outcome: %v", err)
		}
		if o.ID == "" || o.CreatedAt.IsZero() {
			t.Fatalf("returning columns not scanned: %+v", o)
		}
	}
	list, err := outcomes.ListByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(list))
	}
}
