package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("join: %w", ErrRoomFull)
	if !errors.Is(err, ErrRoomFull) {
		t.Fatalf("wrapped sentinel not matched")
	}
	if errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("different codes must not match")
	}
	if Code(err) != "room_full" || KindOf(err) != KindRejected {
		t.Fatalf("code=%s kind=%s", Code(err), KindOf(err))
	}
}

func TestInvariantDetection(t *testing.T) {
	if !IsInvariant(Invariant("turn index %d out of range", 9)) {
		t.Fatalf("invariant not detected")
	}
	if IsInvariant(errors.New("plain")) {
		t.Fatalf("plain errors are not invariant violations")
	}
	if IsInvariant(ErrNotHost) {
		t.Fatalf("rejections are not invariant violations")
	}
}

func TestCollaboratorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Collaborator("content_unavailable", "could not load quiz", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if PublicMessage(err) != "could not load quiz" {
		t.Fatalf("message = %s", PublicMessage(err))
	}
	if PublicMessage(cause) != "internal error" {
		t.Fatalf("untyped errors must not leak text")
	}
}

func TestSummarize(t *testing.T) {
	stats := Summarize([]*Outcome{
		{GameType: "quiz", Rank: 2, Result: OutcomeLose},
		{GameType: "quiz", Rank: 1, Result: OutcomeWin},
		{GameType: "liar", Rank: 1, Result: OutcomeWin},
	})
	if stats.Games != 3 || stats.Wins != 2 || stats.BestRank != 1 || stats.ByType["quiz"] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
