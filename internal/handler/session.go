package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/model"
	"github.com/iliyamo/boat-boarding/internal/queue"
	"github.com/iliyamo/boat-boarding/internal/repository"
	queue_publisher "github.com/iliyamo/boat-boarding/internal/service"
)

// SessionHandler manages the boarding lifecycle: opening a boat for
// boarding, reporting which boat is boarding now, adjusting capacity
// mid-boarding and closing the boat out at departure.
type SessionHandler struct {
	Boats    *repository.BoatRepo
	Sessions *repository.SessionRepo
	Bookings *repository.BookingRepo
}

func NewSessionHandler(boats *repository.BoatRepo, sessions *repository.SessionRepo, bookings *repository.BookingRepo) *SessionHandler {
	if boats == nil || sessions == nil || bookings == nil {
		panic("nil repository passed to NewSessionHandler")
	}
	return &SessionHandler{Boats: boats, Sessions: sessions, Bookings: bookings}
}

type startSessionReq struct {
	BoatNumber uint32 `json:"boat_number"`
	Leg        string `json:"leg"`
	Capacity   uint32 `json:"capacity"`
}

type sessionView struct {
	ID         uint64     `json:"id"`
	BoatNumber uint32     `json:"boat_number"`
	Leg        string     `json:"leg"`
	StartedBy  uint64     `json:"started_by"`
	IsActive   bool       `json:"is_active"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

func newSessionView(s *model.BoardingSession) sessionView {
	return sessionView{
		ID:         s.ID,
		BoatNumber: s.BoatNumber,
		Leg:        s.Leg.String(),
		StartedBy:  s.StartedBy,
		IsActive:   s.IsActive,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
	}
}

// Start handles POST /v1/sessions.  It opens (or re-opens with a new
// capacity) the boat for boarding and makes it the single active
// session, ending whichever session was active before.  A departed boat
// number can never be reused.
func (h *SessionHandler) Start(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req startSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BoatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "boat_number is required"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}
	leg, err := model.ParseLeg(req.Leg)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "leg must be arrival or departure"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), lockWait)
	defer cancel()

	tx, err := h.Boats.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Boats.UpsertOpenTx(ctx, tx, req.BoatNumber, req.Capacity); err != nil {
		if errors.Is(err, repository.ErrBoatDeparted) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "boat already departed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open boat"})
	}
	session, err := h.Sessions.StartTx(ctx, tx, req.BoatNumber, leg, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start session"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{"session": newSessionView(session)})
}

// Active handles GET /v1/sessions/active.  It reports the currently
// boarding boat together with its live occupancy so gate screens can
// poll it.
func (h *SessionHandler) Active(c echo.Context) error {
	ctx := c.Request().Context()
	session, err := h.Sessions.Active(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveSession) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active boarding session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	boat, err := h.Boats.GetByNumber(ctx, session.BoatNumber)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load boat"})
	}
	occupancy, err := h.Boats.Occupancy(ctx, session.BoatNumber, session.Leg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count occupancy"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session":   newSessionView(session),
		"capacity":  boat.Capacity,
		"occupancy": occupancy,
	})
}

type capacityReq struct {
	Capacity uint32 `json:"capacity"`
}

// UpdateCapacity handles PATCH /v1/boats/:number/capacity.  Staff use it
// when a different hull shows up mid-boarding.  Lowering capacity below
// the current occupancy is allowed: passengers already boarded stay, and
// further confirmations are rejected until seats free up.
func (h *SessionHandler) UpdateCapacity(c echo.Context) error {
	boatNumber, err := parseBoatNumber(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boat number"})
	}
	var req capacityReq
	if err := c.Bind(&req); err != nil || req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), lockWait)
	defer cancel()

	tx, err := h.Boats.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Boats.UpdateCapacityTx(ctx, tx, boatNumber, req.Capacity); err != nil {
		switch {
		case errors.Is(err, repository.ErrBoatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "boat not found"})
		case errors.Is(err, repository.ErrBoatDeparted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "boat already departed"})
		case errors.Is(err, context.DeadlineExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "boat is busy, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update capacity"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{
		"boat_number": boatNumber,
		"capacity":    req.Capacity,
	})
}

// Depart handles POST /v1/boats/:number/depart.  It marks the boat as
// departed (a one-way transition), ends its boarding session if it is
// still active, and returns the final manifest.  A departure event is
// published for downstream consumers; failures there never fail the
// request.
func (h *SessionHandler) Depart(c echo.Context) error {
	boatNumber, err := parseBoatNumber(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boat number"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), lockWait)
	defer cancel()

	tx, err := h.Boats.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Boats.MarkDepartedTx(ctx, tx, boatNumber); err != nil {
		switch {
		case errors.Is(err, repository.ErrBoatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "boat not found"})
		case errors.Is(err, repository.ErrBoatDeparted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "boat already departed"})
		case errors.Is(err, context.DeadlineExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "boat is busy, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mark departed"})
	}
	if err := h.Sessions.EndForBoatTx(ctx, tx, boatNumber); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to end session"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	manifest, err := h.Bookings.ListByBoat(c.Request().Context(), boatNumber)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load manifest"})
	}

	names := make([]string, 0, len(manifest))
	for _, b := range manifest {
		names = append(names, b.Name)
	}
	go func() {
		ev := queue.BoatDepartedEvent{
			BoatNumber: boatNumber,
			Passengers: len(manifest),
			Names:      names,
			DepartedAt: time.Now().UTC().Format(time.RFC3339),
		}
		pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pcancel()
		_ = queue_publisher.PublishBoatDeparted(pctx, ev)
	}()

	return c.JSON(http.StatusOK, echo.Map{
		"boat_number": boatNumber,
		"status":      model.BoatStatusDeparted,
		"passengers":  len(manifest),
		"manifest":    newBookingViews(manifest),
	})
}
