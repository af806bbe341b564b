package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"roombooking/internal/export"
	"roombooking/internal/models"
	"roombooking/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type UserService interface {
	Create(ctx context.Context, in service.CreateUserInput) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

type RoomService interface {
	Create(ctx context.Context, in service.CreateRoomInput) (*models.Room, error)
	Get(ctx context.Context, id int64) (*models.Room, error)
	List(ctx context.Context) ([]*models.Room, error)
}

type ReservationService interface {
	Create(ctx context.Context, in service.CreateReservationInput) (*models.Reservation, error)
	Cancel(ctx context.Context, id int64) (*models.Reservation, error)
	Get(ctx context.Context, id int64) (*models.Reservation, error)
	List(ctx context.Context) ([]*models.Reservation, error)
}

type AdminService interface {
	Reset(ctx context.Context) error
}

type Exporter interface {
	WriteXLSX(ctx context.Context, w io.Writer) error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services bundles what the HTTP handlers call into.
type Services struct {
	Users        UserService
	Rooms        RoomService
	Reservations ReservationService
	Admin        AdminService
	Exporter     Exporter
	DB           Pinger
}

type handlers struct {
	svc    Services
	logger zerolog.Logger
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.svc.Users.Create(r.Context(), service.CreateUserInput{FullName: req.FullName, Phone: req.Phone})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	user, err := h.svc.Users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	room, err := h.svc.Rooms.Create(r.Context(), service.CreateRoomInput{
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.svc.Rooms.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "room_id")
	if !ok {
		return
	}
	room, err := h.svc.Rooms.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservation, err := h.svc.Reservations.Create(r.Context(), service.CreateReservationInput{
		UserID:    *req.UserID,
		RoomID:    *req.RoomID,
		StartTime: req.StartTime.Time,
		EndTime:   req.EndTime.Time,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (h *handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.svc.Reservations.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (h *handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "reservation_id")
	if !ok {
		return
	}
	reservation, err := h.svc.Reservations.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (h *handlers) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "reservation_id")
	if !ok {
		return
	}
	reservation, err := h.svc.Reservations.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (h *handlers) exportReservations(w http.ResponseWriter, r *http.Request) {
	if h.svc.Exporter == nil {
		writeError(w, http.StatusNotFound, "export is not available")
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Exporter.WriteXLSX(r.Context(), &buf); err != nil {
		writeServiceError(w, r, h.logger, fmt.Errorf("export reservations: %w", err))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Admin.Reset(r.Context()); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Database reset successful"})
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.svc.DB != nil {
		if err := h.svc.DB.PingContext(r.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}
