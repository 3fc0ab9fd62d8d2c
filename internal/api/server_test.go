package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage/sqlite"
)

const testToken = "trk_test-token"

var testNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

type harness struct {
	t     *testing.T
	srv   *Server
	store *sqlite.Store
	user  models.User
	token string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := sqlite.NewStore(filepath.Join(t.TempDir(), "trackr.db"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { store.Close() })

	user, err := store.CreateUser(context.Background(), models.User{
		Email:     "ada@example.com",
		Name:      "Ada",
		TokenHash: HashToken(testToken),
	})
	require.NoError(t, err)

	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return &harness{t: t, srv: New(store, opts), store: store, user: user, token: testToken}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

// decode unwraps the envelope's data field into out.
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return *env.Error
}

func (h *harness) createHabit(title string, isGood bool, startDate string) models.Habit {
	h.t.Helper()
	w := h.do(http.MethodPost, "/v1/habits", map[string]any{
		"title": title, "isGood": isGood, "startDate": startDate,
	})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var habit models.Habit
	decode(h.t, w, &habit)
	return habit
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, Options{})
	h.token = ""
	w := h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, Options{})

	h.token = ""
	w := h.do(http.MethodGet, "/v1/habits", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	h.token = "trk_wrong"
	w = h.do(http.MethodGet, "/v1/habits", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusUnauthorized, decodeError(t, w).Status)

	h.token = testToken
	w = h.do(http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decode(t, w, &me)
	assert.Equal(t, h.user.ID, me.ID)
	assert.NotContains(t, w.Body.String(), HashToken(testToken), "token hash must never be serialized")
}

func TestRequestIDEchoed(t *testing.T) {
	h := newHarness(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = h.do(http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHabitCRUD(t *testing.T) {
	h := newHarness(t, Options{})

	habit := h.createHabit("Read", true, "2024-06-01")
	assert.NotEmpty(t, habit.ID)
	assert.Equal(t, h.user.ID, habit.UserID)
	assert.Equal(t, "2024-06-01", habit.StartDate)

	w := h.do(http.MethodGet, "/v1/habits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var habits []models.Habit
	decode(t, w, &habits)
	require.Len(t, habits, 1)

	w = h.do(http.MethodPatch, "/v1/habits/"+habit.ID, map[string]any{"title": "Read books", "startDate": "2020-01-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Habit
	decode(t, w, &updated)
	assert.Equal(t, "Read books", updated.Title)
	assert.Equal(t, "2024-06-01", updated.StartDate, "start date is immutable")

	w = h.do(http.MethodDelete, "/v1/habits/"+habit.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var del Deleted
	decode(t, w, &del)
	assert.True(t, del.Deleted)

	w = h.do(http.MethodGet, "/v1/habits/"+habit.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodDelete, "/v1/habits/"+habit.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateHabitValidation(t *testing.T) {
	h := newHarness(t, Options{})

	w := h.do(http.MethodPost, "/v1/habits", map[string]any{"title": "x", "isGood": true})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	require.NotEmpty(t, body.Fields)
	assert.Equal(t, "title", body.Fields[0].Field)

	w = h.do(http.MethodPost, "/v1/habits", map[string]any{"title": "Read", "isGood": true, "startDate": "06/01/2024"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/v1/habits", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetCompletionIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	habit := h.createHabit("Read", true, "2024-06-01")

	path := "/v1/habits/" + habit.ID + "/completions/2024-06-14"
	for i := 0; i < 2; i++ {
		w := h.do(http.MethodPut, path, map[string]any{"completed": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var c models.Completion
		decode(t, w, &c)
		assert.True(t, c.Completed)
	}

	w := h.do(http.MethodGet, "/v1/habits/"+habit.ID+"/completions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var completions []models.Completion
	decode(t, w, &completions)
	require.Len(t, completions, 1)
	assert.Equal(t, models.Completion{HabitID: habit.ID, Date: "2024-06-14", Completed: true}, completions[0])

	w = h.do(http.MethodPut, path, map[string]any{"completed": false})
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodGet, "/v1/completions", nil)
	decode(t, w, &completions)
	require.Len(t, completions, 1)
	assert.False(t, completions[0].Completed)
}

func TestSetCompletionRejects(t *testing.T) {
	h := newHarness(t, Options{})
	habit := h.createHabit("Read", true, "2024-06-10")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"malformed date", "/v1/habits/" + habit.ID + "/completions/2024-6-1", map[string]any{"completed": true}, http.StatusBadRequest},
		{"missing value", "/v1/habits/" + habit.ID + "/completions/2024-06-12", map[string]any{}, http.StatusBadRequest},
		{"before start", "/v1/habits/" + habit.ID + "/completions/2024-06-01", map[string]any{"completed": true}, http.StatusBadRequest},
		{"unknown habit", "/v1/habits/nope/completions/2024-06-12", map[string]any{"completed": true}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDeleteCompletionAndDatedView(t *testing.T) {
	h := newHarness(t, Options{})
	read := h.createHabit("Read", true, "2024-06-01")
	smoke := h.createHabit("Smoke", false, "2024-06-01")

	h.do(http.MethodPut, "/v1/habits/"+read.ID+"/completions/2024-06-14", map[string]any{"completed": true})
	h.do(http.MethodPut, "/v1/habits/"+smoke.ID+"/completions/2024-06-14", map[string]any{"completed": false})

	w := h.do(http.MethodGet, "/v1/completions/2024-06-14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dated []models.DatedCompletion
	decode(t, w, &dated)
	require.Len(t, dated, 2)
	assert.Equal(t, "Read", dated[0].HabitTitle)
	assert.Equal(t, "Smoke", dated[1].HabitTitle)

	w = h.do(http.MethodDelete, "/v1/habits/"+read.ID+"/completions/2024-06-14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodDelete, "/v1/habits/"+read.ID+"/completions/2024-06-14", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOtherUsersHabitsAreNotFound(t *testing.T) {
	h := newHarness(t, Options{})
	habit := h.createHabit("Read", true, "2024-06-01")

	_, err := h.store.CreateUser(context.Background(), models.User{
		Email: "eve@example.com", Name: "Eve", TokenHash: HashToken("trk_eve"),
	})
	require.NoError(t, err)
	h.token = "trk_eve"

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/v1/habits/"+habit.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/habits/"+habit.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		h.do(http.MethodPut, "/v1/habits/"+habit.ID+"/completions/2024-06-14", map[string]any{"completed": true}).Code)

	var habits []models.Habit
	decode(t, h.do(http.MethodGet, "/v1/habits", nil), &habits)
	assert.Empty(t, habits)
}

func TestStreaks(t *testing.T) {
	h := newHarness(t, Options{})
	read := h.createHabit("Read", true, "2024-06-01")
	smoke := h.createHabit("Smoke", false, "2024-06-01")

	for date, done := range map[string]bool{"2024-06-15": true, "2024-06-14": true, "2024-06-13": false} {
		h.do(http.MethodPut, "/v1/habits/"+read.ID+"/completions/"+date, map[string]any{"completed": done})
	}
	for date, done := range map[string]bool{"2024-06-15": false, "2024-06-14": false, "2024-06-13": true, "2024-06-12": false} {
		h.do(http.MethodPut, "/v1/habits/"+smoke.ID+"/completions/"+date, map[string]any{"completed": done})
	}

	w := h.do(http.MethodGet, "/v1/streaks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var streaks []models.HabitWithStreaks
	decode(t, w, &streaks)
	require.Len(t, streaks, 2)

	byTitle := map[string]models.HabitWithStreaks{}
	for _, s := range streaks {
		byTitle[s.Title] = s
	}
	assert.Equal(t, 2, byTitle["Read"].CurrentStreak)
	assert.Equal(t, 2, byTitle["Read"].LongestStreak)
	assert.Equal(t, 2, byTitle["Smoke"].CurrentStreak)
	assert.Equal(t, 2, byTitle["Smoke"].LongestStreak)
}

func TestStreaksAnchorOnCallerDay(t *testing.T) {
	// Server is still on the 14th in UTC; the caller is already on the 15th.
	serverNow := time.Date(2024, 6, 14, 22, 0, 0, 0, time.UTC)
	h := newHarness(t, Options{Now: func() time.Time { return serverNow }})
	read := h.createHabit("Read", true, "2024-06-01")
	h.do(http.MethodPut, "/v1/habits/"+read.ID+"/completions/2024-06-15", map[string]any{"completed": true})
	h.do(http.MethodPut, "/v1/habits/"+read.ID+"/completions/2024-06-14", map[string]any{"completed": true})

	w := h.do(http.MethodGet, "/v1/streaks?today=2024-06-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var streaks []models.HabitWithStreaks
	decode(t, w, &streaks)
	require.Len(t, streaks, 1)
	assert.Equal(t, 2, streaks[0].CurrentStreak)
	assert.Equal(t, 2, streaks[0].LongestStreak)

	w = h.do(http.MethodGet, "/v1/streaks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &streaks)
	assert.Equal(t, 0, streaks[0].CurrentStreak, "server day alone sees the 15th as the future")
}

func TestStreaksRejectBadToday(t *testing.T) {
	h := newHarness(t, Options{})

	w := h.do(http.MethodGet, "/v1/streaks?today=15-06-2024", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "today", body.Fields[0].Field)
}

func TestStreaksSkipMalformedDates(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHarness(t, Options{Registry: reg})
	habit := h.createHabit("Read", true, "2024-06-01")
	h.do(http.MethodPut, "/v1/habits/"+habit.ID+"/completions/2024-06-15", map[string]any{"completed": true})

	_, err := h.store.GetDB().Exec(
		"INSERT INTO habit_completions (id, habit_id, date, completed, created_at, updated_at) VALUES ('x', ?, 'garbage', 1, '', '')",
		habit.ID)
	require.NoError(t, err)

	w := h.do(http.MethodGet, "/v1/streaks", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var streaks []models.HabitWithStreaks
	decode(t, w, &streaks)
	require.Len(t, streaks, 1)
	assert.Equal(t, 1, streaks[0].CurrentStreak)

	metrics := h.do(http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, metrics, "trackr_streaks_malformed_dates_total 1")
}

func TestImportExport(t *testing.T) {
	h := newHarness(t, Options{})

	payload := map[string]any{"habits": []map[string]any{
		{"title": "Walk", "isGood": true, "startDate": "2024-06-01",
			"completions": map[string]bool{"2024-06-02": true, "2024-06-03": false}},
		{"title": "Snack", "isGood": false, "startDate": "2024-06-05"},
	}}
	w := h.do(http.MethodPost, "/v1/import", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var imported []models.HabitWithCompletions
	decode(t, w, &imported)
	require.Len(t, imported, 2)
	assert.Len(t, imported[0].Completions, 2)

	w = h.do(http.MethodGet, "/v1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var exported []models.PortableHabit
	decode(t, w, &exported)
	require.Len(t, exported, 2)
	assert.Equal(t, models.CompletionMap{"2024-06-02": true, "2024-06-03": false}, exported[0].Completions)

	w = h.do(http.MethodPost, "/v1/import", map[string]any{"habits": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHabitsWithCompletions(t *testing.T) {
	h := newHarness(t, Options{})
	habit := h.createHabit("Read", true, "2024-06-01")
	h.createHabit("Walk", true, "2024-06-01")
	h.do(http.MethodPut, "/v1/habits/"+habit.ID+"/completions/2024-06-10", map[string]any{"completed": true})

	var items []models.HabitWithCompletions
	decode(t, h.do(http.MethodGet, "/v1/habit-completions", nil), &items)
	require.Len(t, items, 2)
	assert.Len(t, items[0].Completions, 1)
	assert.NotNil(t, items[1].Completions)
	assert.Empty(t, items[1].Completions)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, Options{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/me", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/me", nil).Code)
	w := h.do(http.MethodGet, "/v1/me", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", decodeError(t, w).Message)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, Options{})
	h.createHabit("Read", true, "2024-06-01")

	w := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `trackr_http_requests_total{method="POST",route="/v1/habits",status="201"} 1`))
}

func TestTokenHelpers(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, tokenPrefix))
	assert.NotEqual(t, a, b)
	assert.Equal(t, HashToken(a), HashToken(a))
	assert.Len(t, HashToken(a), 64)
}
