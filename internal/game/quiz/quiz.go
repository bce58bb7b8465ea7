package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
	"party_server/internal/logger"
)

const (
	Type        domain.GameType = "quiz"
	EventUpdate                 = "quizUpdate"

	revealFor = 3 * time.Second
)

func init() {
	game.Register(game.Definition{Type: Type, Title: "Quiz", MinPlayers: 1, New: New})
}

type Options struct {
	QuizID  string `json:"quizId" validate:"required,max=64"`
	Seconds int    `json:"seconds" validate:"min=5,max=120"`
}

// Question is one entry of a quiz document body.
type Question struct {
	Prompt  string   `json:"prompt" validate:"required"`
	Choices []string `json:"choices" validate:"min=2,max=6,dive,required"`
	Answer  int      `json:"answer" validate:"min=0"`
}

type Body struct {
	Questions []Question `json:"questions" validate:"required,min=1,max=50,dive"`
}

type stage string

const (
	stageLoading  stage = "loading"
	stageQuestion stage = "question"
	stageReveal   stage = "reveal"
	stageDone     stage = "done"
)

// Game runs a timed multiple-choice quiz loaded from a content document.
type Game struct {
	game.Base
	opts Options

	title     string
	questions []Question
	index     int
	stage     stage
	deadline  time.Time
	answers   map[string]int
	points    map[string]int
}

type answerPayload struct {
	Choice *int `json:"choice" validate:"required,min=0"`
}

func New(env game.Env) (game.Session, error) {
	opts := Options{Seconds: 15}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	if opts.QuizID == "" {
		return nil, domain.Reject("invalid_options", "quizId is required")
	}
	return &Game{Base: game.NewBase(env), opts: opts, stage: stageLoading, points: make(map[string]int)}, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Duration() time.Duration { return 0 }

// Initialize loads the quiz document.
func (g *Game) Initialize(ctx context.Context) error {
	if g.Env.Content == nil {
		return domain.Collaborator("content_unavailable", "no content source configured", nil)
	}
	doc, err := g.Env.Content.FetchDocument(ctx, g.opts.QuizID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.Error{Kind: domain.KindNotFound, Code: "quiz_not_found", Message: "quiz not found", Err: err}
		}
		return domain.Collaborator("content_unavailable", "could not load quiz", err)
	}
	body, err := ParseBody(doc)
	if err != nil {
		return err
	}
	g.title = doc.Title
	g.questions = body.Questions
	logger.FromContext(ctx).Debug("quiz loaded", "quiz", doc.ID, "questions", len(body.Questions))
	return nil
}

// ParseBody decodes and checks a quiz document.
func ParseBody(doc *domain.Document) (Body, error) {
	var body Body
	if doc.Kind != domain.DocumentKindQuiz {
		return body, domain.Collaborator("content_invalid", "document is not a quiz", fmt.Errorf("kind %q", doc.Kind))
	}
	if err := json.Unmarshal(doc.Body, &body); err != nil {
		return body, domain.Collaborator("content_invalid", "quiz document is malformed", err)
	}
	if err := game.Validate(body); err != nil {
		return body, domain.Collaborator("content_invalid", "quiz document is malformed", err)
	}
	for i, q := range body.Questions {
		if q.Answer >= len(q.Choices) {
			return body, domain.Collaborator("content_invalid", "quiz document is malformed", fmt.Errorf("question %d: answer out of range", i))
		}
	}
	return body, nil
}

func (g *Game) StartUpdateLoop(onComplete func()) {
	g.Base.StartUpdateLoop(onComplete)
	g.ask(g.StartedAt)
}

func (g *Game) ask(now time.Time) {
	g.stage = stageQuestion
	g.answers = make(map[string]int)
	g.deadline = now.Add(game.Seconds(g.opts.Seconds))
	g.Env.Out.Room(EventUpdate, g.state(now))
}

func (g *Game) reveal(now time.Time) {
	g.stage = stageReveal
	g.deadline = now.Add(revealFor)
	g.Env.Out.Room(EventUpdate, g.state(now))
}

func (g *Game) Tick(now time.Time) {
	if g.stage == stageDone || g.stage == stageLoading || now.Before(g.deadline) {
		return
	}
	switch g.stage {
	case stageQuestion:
		g.reveal(now)
	case stageReveal:
		g.index++
		if g.index >= len(g.questions) {
			g.stage = stageDone
			g.Env.Out.Room(EventUpdate, g.state(now))
			g.Complete()
			return
		}
		g.ask(now)
	}
}

func (g *Game) HandleAction(actorID, action string, payload json.RawMessage) error {
	if action != "answer" {
		return domain.ErrUnknownAction
	}
	if _, ok := g.Player(actorID); !ok {
		return domain.ErrNotMember
	}
	if g.stage != stageQuestion {
		return domain.ErrWrongPhase
	}
	if _, dup := g.answers[actorID]; dup {
		return domain.Reject("already_answered", "one answer per question")
	}
	var p answerPayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	q := g.questions[g.index]
	if *p.Choice >= len(q.Choices) {
		return domain.Reject("invalid_payload", "no such choice")
	}

	now := g.Env.Now()
	g.answers[actorID] = *p.Choice
	if *p.Choice == q.Answer {
		g.points[actorID] += 100 + 50*game.SecondsLeft(now, g.deadline)/g.opts.Seconds
	}

	if len(g.answers) == len(g.Env.Players) {
		g.reveal(now)
		return nil
	}
	g.Env.Out.Room(EventUpdate, g.state(now))
	return nil
}

func (g *Game) CalculateResults() game.Results {
	scores := g.Scores()
	for i := range scores {
		scores[i].Score = g.points[scores[i].ActorID]
	}
	reason := "unfinished"
	if g.stage == stageDone {
		reason = "questions_complete"
	}
	return game.Rank(Type, reason, scores, nil)
}

type state struct {
	Title     string         `json:"title"`
	Stage     stage          `json:"stage"`
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Prompt    string         `json:"prompt,omitempty"`
	Choices   []string       `json:"choices,omitempty"`
	Answered  []string       `json:"answered"`
	Answer    *int           `json:"answer,omitempty"` // reveal only
	Picks     map[string]int `json:"picks,omitempty"`  // reveal only
	Scores    map[string]int `json:"scores"`
	Remaining int            `json:"remaining"`
}

func (g *Game) state(now time.Time) state {
	s := state{
		Title:     g.title,
		Stage:     g.stage,
		Index:     g.index,
		Total:     len(g.questions),
		Answered:  []string{},
		Scores:    make(map[string]int, len(g.points)),
		Remaining: game.SecondsLeft(now, g.deadline),
	}
	for id, n := range g.points {
		s.Scores[id] = n
	}
	if g.index < len(g.questions) && g.stage != stageDone {
		q := g.questions[g.index]
		s.Prompt = q.Prompt
		s.Choices = q.Choices
		if g.stage == stageReveal {
			answer := q.Answer
			s.Answer = &answer
			s.Picks = make(map[string]int, len(g.answers))
			for id, c := range g.answers {
				s.Picks[id] = c
			}
		}
	}
	for _, p := range g.Env.Players {
		if _, ok := g.answers[p.ActorID]; ok {
			s.Answered = append(s.Answered, p.ActorID)
		}
	}
	return s
}

func (g *Game) Snapshot(string) game.View {
	return game.View{Public: g.state(g.Env.Now())}
}
