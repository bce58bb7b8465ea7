package domain

import "time"

// GameType identifies a registered game logic.
type GameType string

// OutcomeResult - итог игры для одного игрока
type OutcomeResult string

const (
	OutcomeWin  OutcomeResult = "win"
	OutcomeLose OutcomeResult = "lose"
	OutcomeDraw OutcomeResult = "draw"
)

// Outcome is one identity-linked player's result in a finished game.
type Outcome struct {
	ID           string        `db:"id" json:"id"`
	UserID       int64         `db:"user_id" json:"user_id"`
	GameType     GameType      `db:"game_type" json:"game_type"`
	RoomID       string        `db:"room_id" json:"room_id"`
	Rank         int           `db:"rank" json:"rank"`
	Participants int           `db:"participants" json:"participants"`
	Score        int           `db:"score" json:"score"`
	Result       OutcomeResult `db:"result" json:"result"`
	Reason       string        `db:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// OutcomeStats aggregates a user's outcomes.
type OutcomeStats struct {
	Games    int            `json:"games"`
	Wins     int            `json:"wins"`
	BestRank int            `json:"best_rank"`
	ByType   map[string]int `json:"by_type"`
}

// Summarize folds outcomes into stats.
func Summarize(outcomes []*Outcome) OutcomeStats {
	stats := OutcomeStats{ByType: make(map[string]int)}
	for _, o := range outcomes {
		stats.Games++
		if o.Result == OutcomeWin {
			stats.Wins++
		}
		if stats.BestRank == 0 || (o.Rank > 0 && o.Rank < stats.BestRank) {
			stats.BestRank = o.Rank
		}
		stats.ByType[string(o.GameType)]++
	}
	return stats
}
