package liar

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"party_server/internal/domain"
	"party_server/internal/game"
)

const (
	Type         domain.GameType = "liar"
	EventUpdate                  = "liarUpdate"
	EventPrivate                 = "liarPrivate"

	maxMessage = 200
)

type Phase string

const (
	PhaseDiscussion Phase = "discussion"
	PhaseVoting     Phase = "voting"
	PhaseGuess      Phase = "guess"
	PhaseTerminated Phase = "terminated"
)

// Outcomes.
const (
	OutcomeLiarGuessed   = "liar_guessed"
	OutcomeMajorityWrong = "majority_wrong"
	OutcomeMajorityWins  = "majority_wins"
)

func init() {
	game.Register(game.Definition{Type: Type, Title: "Liar", MinPlayers: 3, New: New})
}

type Options struct {
	LiarCount    int    `json:"liarCount" validate:"min=1"`
	TurnSeconds  int    `json:"turnSeconds" validate:"min=0,max=300"`
	VoteSeconds  int    `json:"voteSeconds" validate:"min=5,max=600"`
	GuessSeconds int    `json:"guessSeconds" validate:"min=5,max=300"`
	Category     string `json:"category"`
}

type Entry struct {
	ActorID string `json:"actorId"`
	Text    string `json:"text,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

type Reveal struct {
	Word     string   `json:"word"`
	Category string   `json:"category"`
	Liars    []string `json:"liars"`
	Outcome  string   `json:"outcome"`
	Accused  string   `json:"accused,omitempty"`
}

// Game is a hidden-role round: everyone but the liars knows the secret word.
// Players describe it in turn, vote on who the liar is, and an exposed liar
// gets one guess at the word.
type Game struct {
	game.Base
	opts Options

	phase     Phase
	turnOrder []string
	turnIndex int
	deadline  time.Time

	word       string
	category   string
	liars      map[string]bool
	candidates []string // guess list for liars
	log        []Entry

	voteRound int
	stalled   bool
	suspects  []string
	votes     map[string]string
	lastTally map[string]int
	accused   string
	attempted map[string]bool
	reveal    *Reveal
}

type messagePayload struct {
	Text string `json:"text" validate:"required"`
}

type votePayload struct {
	Target string `json:"target" validate:"required"`
}

type guessPayload struct {
	Word string `json:"word" validate:"required,max=64"`
}

func New(env game.Env) (game.Session, error) {
	opts := Options{LiarCount: 1, TurnSeconds: 30, VoteSeconds: 60, GuessSeconds: 30}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	n := len(env.Players)
	if opts.LiarCount >= (n+1)/2 {
		return nil, domain.Reject("invalid_options", "too many liars for this many players")
	}
	category := strings.ToLower(strings.TrimSpace(opts.Category))
	if category == "" {
		cats := categories()
		category = cats[env.Rand.IntN(len(cats))]
	}
	words, ok := wordBank[category]
	if !ok {
		return nil, domain.Reject("invalid_options", "unknown category")
	}

	g := &Game{
		Base:      game.NewBase(env),
		opts:      opts,
		phase:     PhaseDiscussion,
		category:  category,
		liars:     make(map[string]bool, opts.LiarCount),
		votes:     make(map[string]string),
		attempted: make(map[string]bool),
	}

	g.word = words[env.Rand.IntN(len(words))]

	decoys := make([]string, 0, len(words)-1)
	for _, w := range words {
		if w != g.word {
			decoys = append(decoys, w)
		}
	}
	env.Rand.Shuffle(len(decoys), func(i, j int) { decoys[i], decoys[j] = decoys[j], decoys[i] })
	if len(decoys) > maxDecoys {
		decoys = decoys[:maxDecoys]
	}
	g.candidates = append(decoys, g.word)
	env.Rand.Shuffle(len(g.candidates), func(i, j int) { g.candidates[i], g.candidates[j] = g.candidates[j], g.candidates[i] })

	// два круга в одном порядке
	lap := make([]string, n)
	for i, p := range env.Players {
		lap[i] = p.ActorID
	}
	env.Rand.Shuffle(n, func(i, j int) { lap[i], lap[j] = lap[j], lap[i] })
	g.turnOrder = append(slices.Clone(lap), lap...)

	for _, i := range env.Rand.Perm(n)[:opts.LiarCount] {
		g.liars[env.Players[i].ActorID] = true
	}
	return g, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Initialize(context.Context) error { return nil }
func (g *Game) Duration() time.Duration { return 0 }

func (g *Game) StartUpdateLoop(onComplete func()) {
	g.Base.StartUpdateLoop(onComplete)
	g.deadline = g.after(g.StartedAt, g.opts.TurnSeconds)
	for _, p := range g.Env.Players {
		g.Env.Out.Actor(p.ActorID, EventPrivate, g.private(p.ActorID))
	}
	g.broadcast(g.StartedAt)
}

func (g *Game) after(now time.Time, secs int) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	return now.Add(game.Seconds(secs))
}

func (g *Game) Phase() Phase { return g.phase }

// Speaker is the only actor allowed to post during discussion.
func (g *Game) Speaker() string {
	if g.phase != PhaseDiscussion || g.turnIndex >= len(g.turnOrder) {
		return ""
	}
	return g.turnOrder[g.turnIndex]
}

func (g *Game) Tick(now time.Time) {
	if g.phase == PhaseTerminated || g.deadline.IsZero() || now.Before(g.deadline) {
		return
	}
	switch g.phase {
	case PhaseDiscussion:
		if err := g.checkTurn(); err != nil {
			panic(err)
		}
		g.log = append(g.log, Entry{ActorID: g.Speaker(), Skipped: true})
		g.advanceTurn(now)
	case PhaseVoting:
		if err := g.closeVote(now); err != nil {
			panic(err)
		}
	case PhaseGuess:
		g.terminate(OutcomeMajorityWins)
	}
	if g.phase != PhaseTerminated {
		g.broadcast(now)
	}
}

func (g *Game) HandleAction(actorID, action string, payload json.RawMessage) error {
	if g.phase == PhaseTerminated {
		return domain.ErrWrongPhase
	}
	if _, ok := g.Player(actorID); !ok {
		return domain.ErrNotMember
	}
	now := g.Env.Now()
	switch action {
	case "message":
		return g.message(now, actorID, payload)
	case "vote":
		return g.vote(now, actorID, payload)
	case "guess":
		return g.guess(actorID, payload)
	default:
		return domain.ErrUnknownAction
	}
}

func (g *Game) message(now time.Time, actorID string, payload json.RawMessage) error {
	if g.phase != PhaseDiscussion {
		return domain.ErrWrongPhase
	}
	if err := g.checkTurn(); err != nil {
		return err
	}
	if actorID != g.Speaker() {
		return domain.ErrNotYourTurn
	}
	var p messagePayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	text := strings.TrimSpace(p.Text)
	if text == "" || utf8.RuneCountInString(text) > maxMessage {
		return domain.Reject("invalid_message", "message must be 1 to 200 characters")
	}
	g.log = append(g.log, Entry{ActorID: actorID, Text: text})
	g.advanceTurn(now)
	g.broadcast(now)
	return nil
}

func (g *Game) checkTurn() error {
	if g.turnIndex < 0 || g.turnIndex >= len(g.turnOrder) {
		return domain.Invariant("turn index %d out of range for %d turns", g.turnIndex, len(g.turnOrder))
	}
	return nil
}

func (g *Game) advanceTurn(now time.Time) {
	g.turnIndex++
	if g.turnIndex < len(g.turnOrder) {
		g.deadline = g.after(now, g.opts.TurnSeconds)
		return
	}
	suspects := make([]string, len(g.Env.Players))
	for i, p := range g.Env.Players {
		suspects[i] = p.ActorID
	}
	g.openVote(now, suspects)
}

func (g *Game) openVote(now time.Time, suspects []string) {
	g.phase = PhaseVoting
	g.voteRound++
	g.suspects = suspects
	g.votes = make(map[string]string)
	g.deadline = g.after(now, g.opts.VoteSeconds)
}

func (g *Game) vote(now time.Time, actorID string, payload json.RawMessage) error {
	if g.phase != PhaseVoting {
		return domain.ErrWrongPhase
	}
	if _, done := g.votes[actorID]; done {
		return domain.Reject("already_voted", "you already voted this round")
	}
	var p votePayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	if p.Target == actorID {
		return domain.Reject("self_vote", "you cannot vote for yourself")
	}
	if !slices.Contains(g.suspects, p.Target) {
		return domain.Reject("invalid_target", "that player is not a candidate")
	}
	g.votes[actorID] = p.Target
	if len(g.votes) > len(g.Env.Players) {
		return domain.Invariant("%d votes from %d players", len(g.votes), len(g.Env.Players))
	}
	if len(g.votes) == len(g.Env.Players) {
		if err := g.closeVote(now); err != nil {
			return err
		}
	}
	if g.phase != PhaseTerminated {
		g.broadcast(now)
	}
	return nil
}

// closeVote tallies the round. Tied leaders get a re-vote among themselves.
// A second tie in a row that does not shrink the suspect list ends the game
// in the liars' favour.
func (g *Game) closeVote(now time.Time) error {
	tally := make(map[string]int, len(g.suspects))
	total := 0
	for _, target := range g.votes {
		tally[target]++
		total++
	}
	if total > len(g.Env.Players) {
		return domain.Invariant("tally of %d exceeds %d players", total, len(g.Env.Players))
	}
	g.lastTally = tally

	top := 0
	var leaders []string
	for _, id := range g.suspects {
		switch n := tally[id]; {
		case n > top:
			top = n
			leaders = []string{id}
		case n == top && n > 0:
			leaders = append(leaders, id)
		}
	}

	switch {
	case len(leaders) == 1:
		g.accused = leaders[0]
		if !g.liars[g.accused] {
			g.terminate(OutcomeMajorityWrong)
			return nil
		}
		g.phase = PhaseGuess
		g.deadline = g.after(now, g.opts.GuessSeconds)
	case len(leaders) == 0:
		g.terminate(OutcomeMajorityWrong)
	case len(leaders) >= len(g.suspects):
		if g.stalled {
			g.terminate(OutcomeMajorityWrong)
			return nil
		}
		g.stalled = true
		g.openVote(now, leaders)
	default:
		g.stalled = false
		g.openVote(now, leaders)
	}
	return nil
}

func (g *Game) guess(actorID string, payload json.RawMessage) error {
	if g.phase != PhaseGuess {
		return domain.ErrWrongPhase
	}
	if !g.liars[actorID] {
		return domain.Reject("not_liar", "only the liars may guess")
	}
	if g.attempted[actorID] {
		return domain.Reject("already_guessed", "you already used your guess")
	}
	var p guessPayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	word := strings.ToLower(strings.TrimSpace(p.Word))
	if !slices.Contains(g.candidates, word) {
		return domain.Reject("not_a_candidate", "pick a word from the list")
	}
	g.attempted[actorID] = true

	switch {
	case word == g.word:
		g.terminate(OutcomeLiarGuessed)
	case len(g.attempted) == len(g.liars):
		g.terminate(OutcomeMajorityWins)
	default:
		g.broadcast(g.Env.Now())
	}
	return nil
}

func (g *Game) terminate(outcome string) {
	if g.phase == PhaseTerminated {
		return
	}
	g.phase = PhaseTerminated
	g.deadline = time.Time{}
	g.reveal = &Reveal{
		Word:     g.word,
		Category: g.category,
		Liars:    g.liarIDs(),
		Outcome:  outcome,
		Accused:  g.accused,
	}
	g.broadcast(g.Env.Now())
	g.Complete()
}

func (g *Game) liarIDs() []string {
	out := make([]string, 0, len(g.liars))
	for id := range g.liars {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (g *Game) CalculateResults() game.Results {
	scores := g.Scores()
	reason := "unfinished"
	if g.reveal != nil {
		reason = g.reveal.Outcome
		liarsWin := reason != OutcomeMajorityWins
		for i := range scores {
			if g.liars[scores[i].ActorID] == liarsWin {
				scores[i].Score = 1
			}
		}
	}
	res := game.Rank(Type, reason, scores, nil)
	res.Details = Reveal{Word: g.word, Category: g.category, Liars: g.liarIDs(), Outcome: reason, Accused: g.accused}
	return res
}

type state struct {
	Phase     Phase          `json:"phase"`
	TurnOrder []string       `json:"turnOrder"`
	TurnIndex int            `json:"turnIndex"`
	Speaker   string         `json:"speaker,omitempty"`
	Log       []Entry        `json:"log"`
	VoteRound int            `json:"voteRound,omitempty"`
	Suspects  []string       `json:"suspects,omitempty"`
	Voted     []string       `json:"voted,omitempty"`
	Tally     map[string]int `json:"tally,omitempty"`
	Accused   string         `json:"accused,omitempty"`
	Guesses   int            `json:"guesses,omitempty"`
	Remaining int            `json:"remaining"`
	Reveal    *Reveal        `json:"reveal,omitempty"`
}

func (g *Game) public(now time.Time) state {
	s := state{
		Phase:     g.phase,
		TurnOrder: g.turnOrder,
		TurnIndex: g.turnIndex,
		Speaker:   g.Speaker(),
		Log:       append([]Entry{}, g.log...),
		VoteRound: g.voteRound,
		Suspects:  g.suspects,
		Tally:     g.lastTally,
		Accused:   g.accused,
		Guesses:   len(g.attempted),
		Remaining: game.SecondsLeft(now, g.deadline),
		Reveal:    g.reveal,
	}
	for id := range g.votes {
		s.Voted = append(s.Voted, id)
	}
	slices.Sort(s.Voted)
	return s
}

type private struct {
	Role       string   `json:"role"`
	Word       string   `json:"word,omitempty"`
	Category   string   `json:"category,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

func (g *Game) private(actorID string) any {
	if _, ok := g.Player(actorID); !ok {
		return nil
	}
	if g.liars[actorID] {
		return private{Role: "liar", Candidates: g.candidates}
	}
	return private{Role: "citizen", Word: g.word, Category: g.category}
}

func (g *Game) broadcast(now time.Time) {
	g.Env.Out.Room(EventUpdate, g.public(now))
}

func (g *Game) Snapshot(actorID string) game.View {
	return game.View{Public: g.public(g.Env.Now()), Private: g.private(actorID)}
}
