package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"roombooking/internal/config"
	"roombooking/internal/database"
	"roombooking/internal/domain"
	"roombooking/internal/events"
	"roombooking/internal/export"
	"roombooking/internal/lock"
	"roombooking/internal/models"
	"roombooking/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2029, 6, 1, 0, 0, 0, 0, time.UTC)

type testServer struct {
	*httptest.Server
	db *database.DB
}

func newTestServer(t *testing.T, cfg config.APIConfig) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)
	path := filepath.Join(t.TempDir(), "api.db")
	require.NoError(t, database.Migrate(path, &logger))
	db, err := database.NewDB(path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := domain.ClockFunc(func() time.Time { return fixedNow })
	bus := events.NewEventBus()
	users := service.NewUserService(db, clock, &logger)
	rooms := service.NewRoomService(db, &logger)
	reservations := service.NewReservationService(db, db, db, lock.NewMemoryRoomLocker(), bus, clock, time.Second, &logger)

	svc := Services{
		Users:        users,
		Rooms:        rooms,
		Reservations: reservations,
		Admin:        service.NewAdminService(db, bus, clock, &logger),
		Exporter:     export.NewExporter(reservations, users, rooms),
		DB:           db,
	}

	ts := httptest.NewServer(NewHTTPServer(cfg, svc, &logger).Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type userResp struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type roomResp struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Capacity    int     `json:"capacity"`
	IsActive    bool    `json:"is_active"`
}

type reservationResp struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RoomID    int64     `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

func TestEndToEndOverHTTP(t *testing.T) {
	s := newTestServer(t, config.APIConfig{})

	code, body := s.do(t, http.MethodPost, "/users/", map[string]any{"full_name": "U1", "phone": "555-0100"})
	require.Equal(t, http.StatusOK, code, string(body))
	u := decode[userResp](t, body)
	assert.Equal(t, "U1", u.FullName)
	assert.True(t, u.CreatedAt.Equal(fixedNow))

	code, body = s.do(t, http.MethodPost, "/rooms/", map[string]any{"name": "R1", "capacity": 10})
	require.Equal(t, http.StatusOK, code, string(body))
	r := decode[roomResp](t, body)
	assert.True(t, r.IsActive)
	assert.Nil(t, r.Description)

	book := func(start, end string) (int, []byte) {
		return s.do(t, http.MethodPost, "/reservations/", map[string]any{
			"user_id": u.ID, "room_id": r.ID, "start_time": start, "end_time": end,
		})
	}

	code, body = book("2030-01-01T10:00:00", "2030-01-01T11:00:00")
	require.Equal(t, http.StatusOK, code, string(body))
	first := decode[reservationResp](t, body)
	assert.Equal(t, "active", first.Status)
	assert.Contains(t, string(body), `"start_time":"2030-01-01T10:00:00Z"`)

	code, body = book("2030-01-01T10:30:00", "2030-01-01T11:30:00")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, service.ErrRoomAlreadyBooked.Error(), decode[map[string]string](t, body)["error"])

	code, body = s.do(t, http.MethodPost, fmt.Sprintf("/reservations/%d/cancel", first.ID), nil)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, "cancelled", decode[reservationResp](t, body).Status)

	code, _ = book("2030-01-01T10:30:00", "2030-01-01T11:30:00")
	assert.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodGet, "/reservations", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[[]reservationResp](t, body)
	require.Len(t, list, 2)
	assert.Equal(t, "cancelled", list[0].Status)
	assert.Equal(t, "active", list[1].Status)

	code, body = s.do(t, http.MethodGet, fmt.Sprintf("/reservations/%d", first.ID), nil)
	require.Equal(t, http.StatusOK, code)
	code2, body2 := s.do(t, http.MethodGet, fmt.Sprintf("/reservations/%d/", first.ID), nil)
	assert.Equal(t, code, code2)
	assert.Equal(t, body, body2)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, config.APIConfig{})

	_, body := s.do(t, http.MethodPost, "/users", map[string]any{"full_name": "A", "phone": "1"})
	u := decode[userResp](t, body)
	_, body = s.do(t, http.MethodPost, "/rooms", map[string]any{"name": "Open", "capacity": 2})
	open := decode[roomResp](t, body)
	_, body = s.do(t, http.MethodPost, "/rooms", map[string]any{"name": "Closed", "capacity": 2, "is_active": false})
	closed := decode[roomResp](t, body)
	require.False(t, closed.IsActive)

	reservation := func(userID, roomID int64, start, end string) map[string]any {
		return map[string]any{"user_id": userID, "room_id": roomID, "start_time": start, "end_time": end}
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"invalid range", http.MethodPost, "/reservations", reservation(u.ID, open.ID, "2030-01-01T11:00:00Z", "2030-01-01T10:00:00Z"), http.StatusBadRequest},
		{"past start", http.MethodPost, "/reservations", reservation(u.ID, open.ID, "2020-01-01T10:00:00Z", "2020-01-01T11:00:00Z"), http.StatusBadRequest},
		{"unknown user", http.MethodPost, "/reservations", reservation(999, open.ID, "2030-01-01T10:00:00Z", "2030-01-01T11:00:00Z"), http.StatusNotFound},
		{"zero user id", http.MethodPost, "/reservations", reservation(0, open.ID, "2030-01-01T10:00:00Z", "2030-01-01T11:00:00Z"), http.StatusNotFound},
		{"negative user id with inverted range", http.MethodPost, "/reservations", reservation(-1, open.ID, "2030-01-01T11:00:00Z", "2030-01-01T10:00:00Z"), http.StatusBadRequest},
		{"unknown room", http.MethodPost, "/reservations", reservation(u.ID, 999, "2030-01-01T10:00:00Z", "2030-01-01T11:00:00Z"), http.StatusNotFound},
		{"inactive room", http.MethodPost, "/reservations", reservation(u.ID, closed.ID, "2030-01-01T10:00:00Z", "2030-01-01T11:00:00Z"), http.StatusBadRequest},
		{"bad timestamp", http.MethodPost, "/reservations", reservation(u.ID, open.ID, "tomorrow", "2030-01-01T11:00:00Z"), http.StatusBadRequest},
		{"missing start", http.MethodPost, "/reservations", map[string]any{"user_id": u.ID, "room_id": open.ID, "end_time": "2030-01-01T11:00:00Z"}, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/users", "{not json", http.StatusBadRequest},
		{"empty user name", http.MethodPost, "/users", map[string]any{"full_name": "", "phone": "1"}, http.StatusBadRequest},
		{"zero capacity", http.MethodPost, "/rooms", map[string]any{"name": "X", "capacity": 0}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/users/abc", nil, http.StatusBadRequest},
		{"missing user", http.MethodGet, "/users/999", nil, http.StatusNotFound},
		{"missing room", http.MethodGet, "/rooms/999", nil, http.StatusNotFound},
		{"missing reservation", http.MethodGet, "/reservations/999", nil, http.StatusNotFound},
		{"cancel missing", http.MethodPost, "/reservations/999/cancel", nil, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/nope", nil, http.StatusNotFound},
		{"wrong method", http.MethodPut, "/users", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, code, string(body))
			assert.NotEmpty(t, decode[map[string]string](t, body)["error"])
		})
	}
}

func TestReservationIdsFollowServiceCheckOrder(t *testing.T) {
	s := newTestServer(t, config.APIConfig{})
	_, body := s.do(t, http.MethodPost, "/rooms", map[string]any{"name": "Open", "capacity": 2})
	open := decode[roomResp](t, body)

	body0 := map[string]any{"user_id": 0, "room_id": open.ID, "start_time": "2030-01-01T10:00:00Z", "end_time": "2030-01-01T11:00:00Z"}
	code, body := s.do(t, http.MethodPost, "/reservations", body0)
	assert.Equal(t, http.StatusNotFound, code, string(body))
	assert.Equal(t, service.ErrUserNotFound.Error(), decode[map[string]string](t, body)["error"])

	inverted := map[string]any{"user_id": -1, "room_id": open.ID, "start_time": "2030-01-01T11:00:00Z", "end_time": "2030-01-01T10:00:00Z"}
	code, body = s.do(t, http.MethodPost, "/reservations", inverted)
	assert.Equal(t, http.StatusBadRequest, code, string(body))
	assert.Equal(t, service.ErrInvalidRange.Error(), decode[map[string]string](t, body)["error"])

	unknownRoom := map[string]any{"user_id": -1, "room_id": 0, "start_time": "2030-01-01T10:00:00Z", "end_time": "2030-01-01T11:00:00Z"}
	code, _ = s.do(t, http.MethodPost, "/reservations", unknownRoom)
	assert.Equal(t, http.StatusNotFound, code)

	missing := map[string]any{"room_id": open.ID, "start_time": "2030-01-01T10:00:00Z", "end_time": "2030-01-01T11:00:00Z"}
	code, body = s.do(t, http.MethodPost, "/reservations", missing)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "user_id is required", decode[map[string]string](t, body)["error"])
}

func TestCancelTwice(t *testing.T) {
	s := newTestServer(t, config.APIConfig{})
	_, body := s.do(t, http.MethodPost, "/users", map[string]any{"full_name": "A", "phone": "1"})
	u := decode[userResp](t, body)
	_, body = s.do(t, http.MethodPost, "/rooms", map[string]any{"name": "R", "capacity": 2})
	r := decode[roomResp](t, body)

	_, body = s.do(t, http.MethodPost, "/reservations", map[string]any{
		"user_id": u.ID, "room_id": r.ID, "start_time": "2030-01-01T12:00:00+02:00", "end_time": "2030-01-01T13:00",
	})
	res := decode[reservationResp](t, body)
	assert.True(t, res.StartTime.Equal(time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)))

	path := fmt.Sprintf("/reservations/%d/cancel", res.ID)
	code, _ := s.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, code)
	code, body = s.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, service.ErrAlreadyCancelled.Error(), decode[map[string]string](t, body)["error"])
}

func TestReset(t *testing.T) {
	s := newTestServer(t, config.APIConfig{})
	s.do(t, http.MethodPost, "/users", map[string]any{"full_name": "A", "phone": "1"})
	s.do(t, http.MethodPost, "/rooms", map[string]any{"name": "R", "capacity": 2})

	code, body := s.do(t, http.MethodDelete, "/reset", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Database reset successful", decode[map[string]string](t, body)["message"])

	_, body = s.do(t, http.MethodGet, "/users/", nil)
	assert.JSONEq(t, `[]`, string(body))
	_, body = s.do(t, http.MethodGet, "/rooms/", nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestExportEndpoint(t *testing.T) {
	s := newTestServer(t, config.APIConfig{})
	_, body := s.do(t, http.MethodPost, "/users", map[string]any{"full_name": "Ada", "phone": "1"})
	u := decode[userResp](t, body)
	_, body = s.do(t, http.MethodPost, "/rooms", map[string]any{"name": "Orion", "capacity": 4})
	r := decode[roomResp](t, body)
	code, _ := s.do(t, http.MethodPost, "/reservations", map[string]any{
		"user_id": u.ID, "room_id": r.ID, "start_time": "2030-01-01T10:00:00Z", "end_time": "2030-01-01T11:00:00Z",
	})
	require.Equal(t, http.StatusOK, code)

	resp, err := http.Get(s.URL + "/reservations/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.ReservationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "Orion", "Ada", "2030-01-01T10:00:00Z", "2030-01-01T11:00:00Z", "active"}, rows[1])
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, config.APIConfig{})

	code, _ := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, code)

	require.NoError(t, s.db.Close())
	code, _ = s.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, config.APIConfig{})

	resp, err := http.Get(s.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req, _ := http.NewRequest(http.MethodGet, s.URL+"/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 2}})

	code, _ := s.do(t, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
}

type failingUsers struct{ UserService }

func (failingUsers) List(context.Context) ([]*models.User, error) {
	return nil, errors.New("database is locked")
}

func TestInternalErrorIsOpaque(t *testing.T) {
	logger := zerolog.New(io.Discard)
	handler := NewRouter(config.APIConfig{}, Services{Users: failingUsers{}}, logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
