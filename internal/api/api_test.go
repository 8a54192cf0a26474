package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitbot/internal/jobs"
	"habitbot/internal/model"
	"habitbot/internal/notify"
	"habitbot/internal/service"
	"habitbot/internal/testutil/memstore"
	"habitbot/pkg/rbac"
	"habitbot/pkg/util"
)

const secret = "test-secret"

// Wednesday, 2024-01-10 12:00 UTC.
var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	store  *memstore.Store
	sent   []notify.Message
	admin  string
	viewer string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	clock := service.FixedClock(now)
	log := zap.NewNop()

	tracker := service.NewTracker(store.Habits(), clock, time.UTC, log)
	planner := service.NewPlanner(store.Schedules(), clock, time.UTC, log)
	notebook := service.NewNotebook(store.Notes(), clock, log)

	hash, err := util.HashPassword("hunter2")
	require.NoError(t, err)
	auth := service.NewAdminAuth(hash, secret, time.Hour)

	ts := &testServer{store: store}
	sink := notify.SinkFunc(func(_ context.Context, msg notify.Message) error {
		ts.sent = append(ts.sent, msg)
		return nil
	})
	j := jobs.New(tracker, planner, notebook, sink, 3, log)

	ts.engine = gin.New()
	Register(ts.engine, Handlers{
		Auth:      NewAuthHandler(auth, log),
		Habits:    NewHabitHandler(tracker, log),
		Schedules: NewScheduleHandler(planner, log),
		Notes:     NewNoteHandler(notebook, 3, log),
		Admin:     NewAdminHandler(j, nil, log),
	}, secret)

	ts.admin, err = auth.IssueToken(rbac.RoleAdmin)
	require.NoError(t, err)
	ts.viewer, err = auth.IssueToken(rbac.RoleViewer)
	require.NoError(t, err)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTokenEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/auth/token", "", gin.H{"password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]string](t, w)["token"]

	w = ts.do(t, http.MethodGet, "/api/habits", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/token", "", gin.H{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/token", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/habits", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/habits", "garbage", nil).Code)

	other, err := util.GenerateJWT(rbac.RoleAdmin, "other-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/habits", other, nil).Code)
}

func TestViewerIsReadOnly(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/notes", ts.viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/api/habits", ts.viewer, gin.H{"name": "Read"}).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/api/jobs/notes_cleanup/run", ts.viewer, nil).Code)
}

func TestHabitEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/habits", ts.admin, gin.H{"name": "Read"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["id"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/habits", ts.admin, gin.H{"name": " "}).Code)

	for _, d := range []string{"2024-01-08", "2024-01-09"} {
		w = ts.do(t, http.MethodPost, "/api/habits/1/done", ts.admin, gin.H{"date": d})
		require.Equal(t, http.StatusOK, w.Code)
	}
	w = ts.do(t, http.MethodPost, "/api/habits/1/done", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[map[string]bool](t, w)["recorded"])

	w = ts.do(t, http.MethodPost, "/api/habits/1/done", ts.admin, nil)
	assert.False(t, decode[map[string]bool](t, w)["recorded"])

	w = ts.do(t, http.MethodGet, "/api/habits/1/stats", ts.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[model.HabitStats](t, w)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 3, st.Streak)

	w = ts.do(t, http.MethodGet, "/api/habits/1/stats?on=2024-01-09", ts.viewer, nil)
	assert.Equal(t, 2, decode[model.HabitStats](t, w).Streak)

	w = ts.do(t, http.MethodGet, "/api/habits", ts.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Habits []habitView `json:"habits"`
	}](t, w)
	require.Len(t, list.Habits, 1)
	assert.Equal(t, "Read", list.Habits[0].Name)
	assert.Equal(t, 3, list.Habits[0].Stats.Total)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/habits/9/done", ts.admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/habits/1/done", ts.admin, gin.H{"date": "yesterday"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/habits/x/stats", ts.admin, nil).Code)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/habits/1", ts.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/habits/1", ts.admin, nil).Code)
	assert.Equal(t, 0, ts.store.CompletionCount(1))
}

func TestScheduleEndpoints(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPut, "/api/schedules/2", ts.admin, gin.H{"text": "Algebra"}).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPut, "/api/schedules/2", ts.admin, gin.H{"text": "Physics"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/schedules/7", ts.admin, gin.H{"text": "x"}).Code)

	w := ts.do(t, http.MethodGet, "/api/schedules/2", ts.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ScheduleEntry{DayOfWeek: 2, Text: "Physics"}, decode[model.ScheduleEntry](t, w))

	w = ts.do(t, http.MethodGet, "/api/schedules", ts.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Schedules []model.ScheduleEntry `json:"schedules"`
		Today     int                   `json:"today"`
	}](t, w)
	assert.Len(t, body.Schedules, 1)
	assert.Equal(t, 2, body.Today)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/schedules/3", ts.viewer, nil).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/schedules/2", ts.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/schedules/2", ts.admin, nil).Code)
}

func TestNoteEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/notes", ts.admin, gin.H{"content": "buy milk"})
	require.Equal(t, http.StatusCreated, w.Code)
	ts.store.PutNote("old", now.Add(-4*24*time.Hour))

	w = ts.do(t, http.MethodGet, "/api/notes", ts.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]model.Note](t, w)["notes"], 2)

	w = ts.do(t, http.MethodPost, "/api/notes/cleanup", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["removed"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/notes/cleanup", ts.admin, gin.H{"days": -1}).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/notes/1", ts.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/notes/1", ts.admin, nil).Code)
}

func TestDigestAndJobs(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/habits", ts.admin, gin.H{"name": "Read"})

	w := ts.do(t, http.MethodGet, "/api/digest", ts.viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msg := decode[notify.Message](t, w)
	assert.Contains(t, msg.Text, "Wed")
	assert.Len(t, msg.Keyboard, 1)
	assert.Empty(t, ts.sent)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/jobs/morning_digest/run", ts.admin, nil).Code)
	assert.Len(t, ts.sent, 1)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/jobs/nope/run", ts.admin, nil).Code)
}

func TestStoreFailureIs500(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Fail = true

	w := ts.do(t, http.MethodGet, "/api/habits", ts.viewer, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestReplayWithoutOutbox(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/admin/outbox/replay?id=1", ts.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
