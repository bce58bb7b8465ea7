package game

import (
	"sort"

	"party_server/internal/domain"
)

// Score is a raw per-player score fed into Rank.
type Score struct {
	ActorID string
	Name    string
	TeamID  int
	Score   int
}

// Standing is one player's line in the results. Rank is by individual
// score; TeamRank is set in team mode and decides the order.
type Standing struct {
	ActorID  string `json:"actorId"`
	Name     string `json:"name"`
	TeamID   int    `json:"teamId,omitempty"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
	TeamRank int    `json:"teamRank,omitempty"`
	Winner   bool   `json:"winner"`
}

// Placement is the team rank in team mode and the individual rank otherwise.
func (s Standing) Placement() int {
	if s.TeamRank > 0 {
		return s.TeamRank
	}
	return s.Rank
}

type TeamStanding struct {
	TeamID int    `json:"teamId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
	Winner bool   `json:"winner"`
}

type Results struct {
	GameType domain.GameType `json:"gameType"`
	Reason   string          `json:"reason"`
	Players  []Standing      `json:"players"`
	Teams    []TeamStanding  `json:"teams,omitempty"`
	Details  any             `json:"details,omitempty"`
}

// Winners returns the actor ids flagged as winners.
func (r Results) Winners() []string {
	var out []string
	for _, s := range r.Players {
		if s.Winner {
			out = append(out, s.ActorID)
		}
	}
	return out
}

const ReasonFailure = "failure"

// Rank orders scores and marks winners. With teams, team rank decides the
// player order and the winners.
func Rank(t domain.GameType, reason string, scores []Score, teams []domain.Team) Results {
	res := Results{GameType: t, Reason: reason}

	players := make([]Standing, len(scores))
	for i, s := range scores {
		players[i] = Standing{ActorID: s.ActorID, Name: s.Name, TeamID: s.TeamID, Score: s.Score}
	}

	sort.SliceStable(players, func(i, j int) bool { return lessStanding(players[i], players[j]) })
	ranks := competitionRanks(len(players), func(i int) int { return players[i].Score })
	for i := range players {
		players[i].Rank = ranks[i]
	}

	if len(teams) == 0 {
		top := maxScore(len(players), func(i int) int { return players[i].Score })
		for i := range players {
			players[i].Winner = top > 0 && players[i].Score == top
		}
		res.Players = players
		return res
	}

	standings := make([]TeamStanding, len(teams))
	index := make(map[int]int, len(teams))
	for i, tm := range teams {
		standings[i] = TeamStanding{TeamID: tm.ID, Name: tm.Name, Color: tm.Color}
		index[tm.ID] = i
	}
	for _, p := range players {
		if i, ok := index[p.TeamID]; ok {
			standings[i].Score += p.Score
		}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].TeamID < standings[j].TeamID
	})
	teamRanks := competitionRanks(len(standings), func(i int) int { return standings[i].Score })
	top := maxScore(len(standings), func(i int) int { return standings[i].Score })

	teamRank := make(map[int]int, len(standings))
	teamWin := make(map[int]bool, len(standings))
	for i := range standings {
		standings[i].Rank = teamRanks[i]
		standings[i].Winner = top > 0 && standings[i].Score == top
		teamRank[standings[i].TeamID] = teamRanks[i]
		teamWin[standings[i].TeamID] = standings[i].Winner
	}

	// players without a team sort after every team
	unranked := len(standings) + 1
	for i := range players {
		if r, ok := teamRank[players[i].TeamID]; ok {
			players[i].TeamRank = r
			players[i].Winner = teamWin[players[i].TeamID]
		} else {
			players[i].TeamRank = unranked
		}
	}
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].TeamRank != players[j].TeamRank {
			return players[i].TeamRank < players[j].TeamRank
		}
		if players[i].TeamID != players[j].TeamID {
			return players[i].TeamID < players[j].TeamID
		}
		return lessStanding(players[i], players[j])
	})

	res.Players = players
	res.Teams = standings
	return res
}

// Failure is the outcome of a session terminated by an invariant violation.
func Failure(t domain.GameType, players []Participant) Results {
	scores := make([]Score, len(players))
	for i, p := range players {
		scores[i] = Score{ActorID: p.ActorID, Name: p.Name, TeamID: p.TeamID}
	}
	return Rank(t, ReasonFailure, scores, nil)
}

func lessStanding(a, b Standing) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ActorID < b.ActorID
}

// competitionRanks assigns "1224" ranks to an already sorted list.
func competitionRanks(n int, score func(int) int) []int {
	ranks := make([]int, n)
	for i := 0; i < n; i++ {
		if i > 0 && score(i) == score(i-1) {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}

func maxScore(n int, score func(int) int) int {
	top := 0
	for i := 0; i < n; i++ {
		if s := score(i); i == 0 || s > top {
			top = s
		}
	}
	return top
}
