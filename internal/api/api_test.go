package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/auth"
	"github.com/daftuyda/Igris/internal/clock"
	"github.com/daftuyda/Igris/internal/scoring"
	"github.com/daftuyda/Igris/internal/service"
	"github.com/daftuyda/Igris/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router *gin.Engine
	svc    *service.Service
	clock  *clock.FakeClock
	alice  *internal.User
	bob    *internal.User
}

func setupRouter(t *testing.T, allowManual bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := internal.NewNopLogger()

	store, err := storage.NewSQLiteStorage(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	svc := service.New(store, clk, clock.NewResolver("UTC"), scoring.DefaultPolicy(), logger)

	alice, err := svc.CreateUser(context.Background(), &service.UserRequest{Name: "alice", Timezone: "UTC"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(context.Background(), &service.UserRequest{Name: "bob", Timezone: "Asia/Tokyo"})
	require.NoError(t, err)

	provider := auth.NewLocalAuthProvider(map[string]string{"ALICE": alice.ID, "BOB": bob.ID}, logger)
	router := NewRouter(NewApp(svc, logger, allowManual), provider)
	return &testEnv{router: router, svc: svc, clock: clk, alice: alice, bob: bob}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
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
	e.router.ServeHTTP(w, req)
	return w
}

type envelope[T any] struct {
	Data  T                  `json:"data"`
	Meta  map[string]any     `json:"meta"`
	Error *internal.AppError `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthzAndAuth(t *testing.T) {
	e := setupRouter(t, false)

	w := e.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = e.do(t, http.MethodGet, "/api/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(t, http.MethodGet, "/api/tasks", "MOCK-TOKEN", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostTask_ValidAndInvalid(t *testing.T) {
	e := setupRouter(t, false)

	w := e.do(t, http.MethodPost, "/api/tasks", "ALICE", `{"name":"pushups","type":"count","days":[0,2,2],"difficulty":3,"goal":5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[internal.Task](t, w).Data
	assert.Equal(t, "pushups", created.Name)
	assert.Equal(t, e.alice.ID, created.UserID)
	assert.Equal(t, internal.NewWeekdaySet(internal.Monday, internal.Wednesday), created.Days)

	for _, body := range []string{
		`{"type":"count","difficulty":1}`,
		`{"name":"x","type":"banana","difficulty":1}`,
		`{"name":"x","type":"count","difficulty":0}`,
		`{"name":"x","type":"count","difficulty":1,"days":[9]}`,
		`{"name":"x","type":"count","difficulty":100,"goal":184467440737095516}`,
		`not json`,
	} {
		w = e.do(t, http.MethodPost, "/api/tasks", "ALICE", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.NotNil(t, decode[any](t, w).Error, body)
	}

	w = e.do(t, http.MethodGet, "/api/tasks", "ALICE", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]internal.Task](t, w)
	assert.Len(t, list.Data, 1)
	assert.EqualValues(t, 1, list.Meta["count"])

	w = e.do(t, http.MethodGet, "/api/tasks", "BOB", "")
	assert.Empty(t, decode[[]internal.Task](t, w).Data)
}

func TestTaskProgressFlow(t *testing.T) {
	e := setupRouter(t, false)

	w := e.do(t, http.MethodPost, "/api/tasks", "ALICE", `{"name":"water","type":"count","days":[0,1,2,3,4,5,6],"difficulty":1,"goal":8}`)
	require.Equal(t, http.StatusCreated, w.Code)
	countTask := decode[internal.Task](t, w).Data

	w = e.do(t, http.MethodPost, "/api/tasks/"+countTask.ID+"/progress", "ALICE", `{"amount":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[internal.Task](t, w).Data.Count)

	w = e.do(t, http.MethodPost, "/api/tasks/"+countTask.ID+"/progress", "ALICE", `{"amount":-10}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[internal.Task](t, w).Data.Count)

	w = e.do(t, http.MethodPost, "/api/tasks/"+countTask.ID+"/progress", "ALICE", `{"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/tasks", "ALICE", `{"name":"floss","type":"boolean","days":[0],"difficulty":2,"one_time":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	boolTask := decode[internal.Task](t, w).Data

	w = e.do(t, http.MethodPost, "/api/tasks/"+boolTask.ID+"/toggle", "ALICE", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[internal.Task](t, w).Data.Done)

	w = e.do(t, http.MethodGet, "/api/tasks/today", "ALICE", "")
	require.Equal(t, http.StatusOK, w.Code)
	today := decode[service.TodayView](t, w).Data
	require.Len(t, today.Tasks, 2)
	assert.Equal(t, 8, today.Tasks[0].XPReward)
	assert.Equal(t, 20, today.Tasks[1].XPReward)
	assert.True(t, today.Tasks[1].Complete)

	w = e.do(t, http.MethodPut, "/api/tasks/"+countTask.ID, "ALICE", `{"name":"more water","type":"count","days":[1],"difficulty":2,"goal":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "more water", decode[internal.Task](t, w).Data.Name)

	w = e.do(t, http.MethodDelete, "/api/tasks/"+countTask.ID, "ALICE", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodDelete, "/api/tasks/"+countTask.ID, "ALICE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskOwnershipIsEnforced(t *testing.T) {
	e := setupRouter(t, false)
	w := e.do(t, http.MethodPost, "/api/tasks", "ALICE", `{"name":"private","type":"boolean","difficulty":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	task := decode[internal.Task](t, w).Data

	w = e.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/toggle", "BOB", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodPut, "/api/tasks/"+task.ID, "BOB", `{"name":"mine","type":"boolean","difficulty":1}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodDelete, "/api/tasks/"+task.ID, "BOB", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodPost, "/api/tasks/does-not-exist/toggle", "BOB", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostEvaluate(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		e := setupRouter(t, false)
		w := e.do(t, http.MethodPost, "/api/evaluate", "ALICE", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		e := setupRouter(t, true)
		w := e.do(t, http.MethodPost, "/api/evaluate", "ALICE", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decode[service.EvaluationResult](t, w).Data
		assert.Equal(t, 20, result.XPDelta)
		assert.Equal(t, 1, result.Streak)

		w = e.do(t, http.MethodGet, "/api/level", "ALICE", "")
		require.Equal(t, http.StatusOK, w.Code)
		progress := decode[scoring.LevelProgress](t, w).Data
		assert.Equal(t, 1, progress.Level)
		assert.Equal(t, 20, progress.XP)
		assert.Equal(t, 30, progress.XPToNext)

		w = e.do(t, http.MethodGet, "/api/xp-log", "ALICE", "")
		require.Equal(t, http.StatusOK, w.Code)
		summary := decode[service.XPSummary](t, w).Data
		assert.Equal(t, 20, summary.Gained)
		require.Len(t, summary.Entries, 1)
		assert.Equal(t, scoring.ReasonAllCompleteBonus, summary.Entries[0].Reason)

		w = e.do(t, http.MethodGet, "/api/profile", "ALICE", "")
		require.Equal(t, http.StatusOK, w.Code)
		profile := decode[service.Profile](t, w).Data
		assert.Equal(t, 20, profile.User.XP)
		assert.Equal(t, 20, profile.LatestDay.Net)
	})
}

func TestGetXPLog_Window(t *testing.T) {
	e := setupRouter(t, true)
	w := e.do(t, http.MethodPost, "/api/evaluate", "ALICE", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/xp-log?from=2026-03-02T00:00:00Z&to=2026-03-03T00:00:00Z", "ALICE", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, decode[service.XPSummary](t, w).Data.Net)

	w = e.do(t, http.MethodGet, "/api/xp-log?from=2026-03-03T00:00:00Z&to=2026-03-04T00:00:00Z", "ALICE", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[service.XPSummary](t, w).Data.Net)

	for _, q := range []string{
		"?from=2026-03-02T00:00:00Z",
		"?from=yesterday&to=2026-03-03T00:00:00Z",
		"?from=2026-03-03T00:00:00Z&to=2026-03-02T00:00:00Z",
	} {
		w = e.do(t, http.MethodGet, "/api/xp-log"+q, "ALICE", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestPutTimezone(t *testing.T) {
	e := setupRouter(t, false)

	w := e.do(t, http.MethodPut, "/api/timezone", "ALICE", `{"timezone":"Europe/Paris"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Europe/Paris", decode[internal.User](t, w).Data.Timezone)

	w = e.do(t, http.MethodPut, "/api/timezone", "ALICE", `{"timezone":"Not/AZone"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPut, "/api/timezone", "ALICE", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
