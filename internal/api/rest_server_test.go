package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/annel0/tower-stacker/internal/auth"
	"github.com/annel0/tower-stacker/internal/eventbus"
	"github.com/annel0/tower-stacker/internal/game"
	"github.com/annel0/tower-stacker/internal/leaderboard"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *RestServer
	repo   *leaderboard.MemoryRepo
	bus    eventbus.EventBus

	mu     sync.Mutex
	events []*eventbus.Envelope
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hash, err := auth.HashPassword("letmein")
	require.NoError(t, err)

	env := &testEnv{repo: leaderboard.NewMemoryRepo(), bus: eventbus.NewMemoryBus(64)}
	_, err = env.bus.Subscribe(context.Background(), eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		env.mu.Lock()
		env.events = append(env.events, ev)
		env.mu.Unlock()
	})
	require.NoError(t, err)

	env.server = NewRestServer(Config{
		Repo:     env.repo,
		Bus:      env.bus,
		Admin:    auth.AdminAuthenticator{Username: "admin", PasswordHash: hash},
		NodeID:   "test-node",
		Mode:     gin.TestMode,
		Registry: prometheus.NewRegistry(),
	})
	t.Cleanup(func() { _ = env.bus.Close() })
	return env
}

// publishedEvents закрывает шину, дожидаясь доставки, и возвращает события.
func (e *testEnv) publishedEvents(t *testing.T) []*eventbus.Envelope {
	require.NoError(t, e.bus.Close())
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateScore(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/scores", `{"playerName":" Mehmon ","score":100,"discountEarned":50,"partsStacked":6}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rec := decode[leaderboard.Record](t, w)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Mehmon", rec.PlayerName)
	assert.Equal(t, 100, rec.Score)
	assert.Equal(t, 1, env.repo.Count())

	events := env.publishedEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, eventbus.EventScoreSubmitted, events[0].EventType)
	assert.Equal(t, "test-node", events[0].Source)
	assert.NotEmpty(t, events[0].CorrelationID, "событие связано с trace-id запроса")

	var payload eventbus.ScoreEvent
	require.NoError(t, events[0].Decode(&payload))
	assert.Equal(t, rec.ID, payload.RecordID)
	assert.Equal(t, 50, payload.DiscountEarned)
}

func TestCreateScore_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"очки выше 100", `{"playerName":"x","score":101,"discountEarned":50,"partsStacked":6}`, "score"},
		{"скидка выше 50", `{"playerName":"x","score":90,"discountEarned":70,"partsStacked":6}`, "discountEarned"},
		{"слишком длинное имя", `{"playerName":"` + strings.Repeat("a", 40) + `","score":90,"discountEarned":45,"partsStacked":6}`, "playerName"},
		{"битый JSON", `{"playerName":`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("POST", "/api/scores", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.NotEmpty(t, resp.Message)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
	assert.Zero(t, env.repo.Count())
	assert.Empty(t, env.publishedEvents(t))
}

func TestListScores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, s := range []int{40, 95, 70} {
		_, err := env.repo.Submit(ctx, leaderboard.Submission{PlayerName: "p", Score: s, DiscountEarned: 40, PartsStacked: 6})
		require.NoError(t, err)
	}

	w := env.do("GET", "/api/scores", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]leaderboard.Record](t, w)
	require.Len(t, all, 3)
	assert.Equal(t, []int{95, 70, 40}, []int{all[0].Score, all[1].Score, all[2].Score})

	w = env.do("GET", "/api/scores?limit=2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]leaderboard.Record](t, w), 2)

	w = env.do("GET", "/api/scores?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit", decode[ErrorResponse](t, w).Field)
}

func TestListScores_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("GET", "/api/scores", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetScore(t *testing.T) {
	env := newTestEnv(t)
	rec, err := env.repo.Submit(context.Background(), leaderboard.Submission{PlayerName: "p", Score: 80, DiscountEarned: 40, PartsStacked: 6})
	require.NoError(t, err)

	w := env.do("GET", "/api/scores/"+rec.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rec.ID, decode[leaderboard.Record](t, w).ID)

	w = env.do("GET", "/api/scores/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("GET", "/api/settings", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	s := decode[GameSettings](t, w)
	assert.Equal(t, 6, s.TotalParts)
	assert.Equal(t, 50, s.MaxDiscount)
	require.Len(t, s.Difficulties, 3)
	assert.Equal(t, "easy", string(s.Difficulties[0].Name))
	assert.Equal(t, 3.0, s.Difficulties[0].MoveSpeed)
	assert.Equal(t, 20.0, s.Difficulties[0].Tolerance)
	assert.Equal(t, 8.0, s.Difficulties[2].MoveSpeed)
	assert.Equal(t, 400.0, s.Layout.FieldWidth)
}

func TestSettings_ConfiguredLayout(t *testing.T) {
	server := NewRestServer(Config{
		Repo:     leaderboard.NewMemoryRepo(),
		Mode:     gin.TestMode,
		Registry: prometheus.NewRegistry(),
		Layout:   game.Layout{FieldWidth: 1000, BaseWidth: 500, MaxFloors: 8},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/settings", nil)
	server.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	s := decode[GameSettings](t, w)
	assert.Equal(t, 1000.0, s.Layout.FieldWidth)
	assert.Equal(t, 500.0, s.Layout.BaseWidth)
	assert.Equal(t, 60.0, s.Layout.BlockHeight, "незаданная высота блока - по умолчанию")
	assert.Equal(t, 8, s.TotalParts, "число этажей берётся из раскладки сервера")
}

func TestAdminDeleteScore(t *testing.T) {
	env := newTestEnv(t)
	rec, err := env.repo.Submit(context.Background(), leaderboard.Submission{PlayerName: "cheater", Score: 100, DiscountEarned: 50, PartsStacked: 6})
	require.NoError(t, err)
	path := "/api/admin/scores/" + rec.ID

	// без токена
	assert.Equal(t, http.StatusUnauthorized, env.do("DELETE", path, "", "").Code)

	// неверный пароль
	w := env.do("POST", "/api/auth/login", `{"username":"admin","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// токен без прав администратора
	userToken, err := auth.GenerateJWT("bob", false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, env.do("DELETE", path, "", userToken).Code)

	w = env.do("POST", "/api/auth/login", `{"username":"admin","password":"letmein"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[LoginResponse](t, w)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, int64(auth.TokenTTL.Seconds()), login.ExpiresIn)

	w = env.do("DELETE", path, "", login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, env.repo.Count())

	assert.Equal(t, http.StatusNotFound, env.do("DELETE", path, "", login.Token).Code)

	events := env.publishedEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, eventbus.EventScoreDeleted, events[0].EventType)
}

func TestLogin_BadRequest(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/api/auth/login", `{"username":"admin"}`, "").Code)
}

func TestHealthAndServerInfo(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = env.do("GET", "/api/server", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[GenericResponse](t, w)
	assert.True(t, resp.Success)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "test-node", data["node"])
	assert.Contains(t, data, "eventbus")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do("POST", "/api/scores", `{"playerName":"m","score":90,"discountEarned":45,"partsStacked":6}`, "").Code)
	require.Equal(t, http.StatusBadRequest, env.do("POST", "/api/scores", `{"score":900}`, "").Code)

	w := env.do("GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "stacker_scores_submitted_total 1")
	assert.Contains(t, body, "stacker_scores_rejected_total 1")
	assert.Contains(t, body, "stacker_api_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("OPTIONS", "/api/scores", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
