package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"party_server/internal/config"
	"party_server/internal/domain"
	_ "party_server/internal/game/all"
	"party_server/internal/http/handlers"
	"party_server/internal/http/middleware"
	"party_server/internal/logger"
	"party_server/internal/room"
	"party_server/internal/service"
	"party_server/internal/session"
	"party_server/internal/ws"
)

type memoryOutcomes struct {
	byUser map[int64][]*domain.Outcome
}

func (m *memoryOutcomes) Create(_ context.Context, o *domain.Outcome) error {
	m.byUser[o.UserID] = append(m.byUser[o.UserID], o)
	return nil
}

func (m *memoryOutcomes) ListByUser(_ context.Context, userID int64, limit int) ([]*domain.Outcome, error) {
	list := m.byUser[userID]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type failingPing struct{}

func (failingPing) Ping(context.Context) error { return errors.New("down") }

type server struct {
	engine *gin.Engine
	reg    *room.Registry
	ids    *service.IdentityResolver
}

func newServer(t *testing.T, checks map[string]handlers.Pinger) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Discard()

	cfg := config.FromEnv(func(string) string { return "" })
	cfg.JWTSecret = "test-secret"

	hub := ws.NewHub()
	reg := room.NewRegistry(cfg.MaxRoomCapacity, hub)
	mgr := session.NewManager(reg, session.NewScheduler(time.Second), hub)
	t.Cleanup(mgr.Shutdown)

	store := &memoryOutcomes{byUser: map[int64][]*domain.Outcome{}}
	store.byUser[7] = []*domain.Outcome{
		{UserID: 7, GameType: "quiz", Result: domain.OutcomeWin, Score: 300},
		{UserID: 7, GameType: "liar", Result: domain.OutcomeLose},
	}
	outcomes := service.NewOutcomeService(store)
	ids := service.NewIdentityResolver(cfg.JWTSecret)

	r := NewEngine(cfg)
	RegisterRoutes(r, Deps{
		Config:   cfg,
		Handler:  handlers.NewHandler(reg, outcomes),
		Health:   handlers.NewHealthHandler("test", reg, checks),
		Limiter:  middleware.NewRateLimiter("", "", 0),
		Identity: ids,
		Hub:      hub,
		Router:   ws.NewRouter(hub, reg, mgr),
	})
	return &server{engine: r, reg: reg, ids: ids}
}

func (s *server) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	s := newServer(t, nil)
	require.Equal(t, http.StatusOK, s.get("/healthz", "").Code)
	require.Equal(t, http.StatusOK, s.get("/health", "").Code)
	require.Equal(t, http.StatusOK, s.get("/readyz", "").Code)
	require.Equal(t, http.StatusOK, s.get("/metrics", "").Code)

	down := newServer(t, map[string]handlers.Pinger{"database": failingPing{}, "redis": nil})
	require.Equal(t, http.StatusServiceUnavailable, down.get("/health", "").Code)

	w := down.get("/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body.Checks["database"], "unhealthy")
	require.NotContains(t, body.Checks, "redis")
}

func TestRoomsAndGames(t *testing.T) {
	s := newServer(t, nil)
	_, err := s.reg.Create(domain.Actor{ID: "a", Name: "Ann"}, "open", 4, room.Public)
	require.NoError(t, err)
	_, err = s.reg.Create(domain.Actor{ID: "b", Name: "Ben"}, "hidden", 4, room.Unlisted)
	require.NoError(t, err)

	var rooms struct {
		Rooms []room.Summary `json:"rooms"`
	}
	w := s.get("/api/v1/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms.Rooms, 1)
	require.Equal(t, "open", rooms.Rooms[0].Name)

	var games struct {
		Games []struct {
			Type string `json:"type"`
		} `json:"games"`
	}
	w = s.get("/api/v1/games", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &games))
	types := map[string]bool{}
	for _, g := range games.Games {
		types[g.Type] = true
	}
	for _, want := range []string{"tictactoe", "clicker", "sumgrid", "ballrace", "liar", "drawing", "memory", "quiz", "racing"} {
		require.True(t, types[want], "catalog missing %s", want)
	}
}

func TestMyOutcomesRequiresToken(t *testing.T) {
	s := newServer(t, nil)
	require.Equal(t, http.StatusUnauthorized, s.get("/api/v1/me/outcomes", "").Code)
	require.Equal(t, http.StatusUnauthorized, s.get("/api/v1/me/outcomes", "garbage").Code)

	token, err := s.ids.Issue(domain.Identity{UserID: 7, DisplayName: "Seven"}, time.Hour)
	require.NoError(t, err)

	w := s.get("/api/v1/me/outcomes?limit=1", token)
	require.Equal(t, http.StatusOK, w.Code)
	var history service.OutcomeHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Outcomes, 1)

	require.Equal(t, http.StatusBadRequest, s.get("/api/v1/me/outcomes?limit=-3", token).Code)
}
