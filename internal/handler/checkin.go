package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/model"
	"github.com/iliyamo/boat-boarding/internal/queue"
	"github.com/iliyamo/boat-boarding/internal/repository"
	queue_publisher "github.com/iliyamo/boat-boarding/internal/service"
)

// CheckinHandler implements the gate workflow: resolving a passenger,
// confirming them onto the boarding boat, skipping them, and the admin
// reset.  Every confirmation runs inside a single transaction that locks
// the boat row, counts occupancy under that lock, marks the leg boarded
// and appends the audit row, so the capacity invariant holds under
// concurrent staff devices.
type CheckinHandler struct {
	Boats    *repository.BoatRepo
	Sessions *repository.SessionRepo
	Bookings *repository.BookingRepo
	Logs     *repository.CheckinLogRepo
	Events   *repository.EventRepo
}

func NewCheckinHandler(boats *repository.BoatRepo, sessions *repository.SessionRepo, bookings *repository.BookingRepo, logs *repository.CheckinLogRepo, events *repository.EventRepo) *CheckinHandler {
	if boats == nil || sessions == nil || bookings == nil || logs == nil || events == nil {
		panic("nil repository passed to NewCheckinHandler")
	}
	return &CheckinHandler{Boats: boats, Sessions: sessions, Bookings: bookings, Logs: logs, Events: events}
}

// Resolve handles GET /v1/checkin/resolve?method=id|phone&q=...  It
// returns every match rather than the first one: a partial id number can
// hit several passengers and the staff member must pick, not the server.
func (h *CheckinHandler) Resolve(c echo.Context) error {
	method := strings.ToLower(strings.TrimSpace(c.QueryParam("method")))
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "q is required"})
	}
	if method != "id" && method != "phone" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "method must be id or phone"})
	}

	ctx := c.Request().Context()
	eventID, err := h.Events.ActiveEvent(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no active event set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}

	var matches []*model.Booking
	if method == "id" {
		matches, err = h.Bookings.ResolveByIDNumber(ctx, eventID, query)
	} else {
		matches, err = h.Bookings.ResolveByPhone(ctx, eventID, query)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id": eventID,
		"matches":  newBookingViews(matches),
	})
}

type confirmReq struct {
	BookingID uint64 `json:"booking_id"`
	Leg       string `json:"leg"`
}

// Confirm handles POST /v1/checkin/confirm.  The requested leg must
// match the active session's leg; the passenger boards the session's
// boat if a seat is free.  The lock wait is bounded, so a stuck
// transaction elsewhere surfaces as a retryable conflict instead of a
// hung request.
func (h *CheckinHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req confirmReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
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

	session, err := h.Sessions.ActiveForLegTx(ctx, tx, leg)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoActiveSession):
			return c.JSON(http.StatusConflict, echo.Map{"error": "no active boarding session"})
		case errors.Is(err, repository.ErrLegMismatch):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":       repository.ErrLegMismatch.Error(),
				"session_leg": session.Leg.String(),
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}

	boat, err := h.Boats.GetForUpdateTx(ctx, tx, session.BoatNumber)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBoatDeparted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "boat already departed"})
		case errors.Is(err, context.DeadlineExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "boat is busy, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to lock boat"})
	}
	occupancy, err := h.Boats.ClaimSeatTx(ctx, tx, boat, leg)
	if err != nil {
		if errors.Is(err, repository.ErrBoatFull) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":     repository.ErrBoatFull.Error(),
				"capacity":  boat.Capacity,
				"occupancy": occupancy,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count occupancy"})
	}

	now := time.Now().UTC()
	if err := h.Bookings.BoardLegTx(ctx, tx, req.BookingID, leg, boat.BoatNumber, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrAlreadyBoarded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "leg already boarded"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to board"})
	}

	boatNum := boat.BoatNumber
	logRow := &model.CheckinLog{
		BookingID:   req.BookingID,
		BoatNumber:  &boatNum,
		ConfirmedBy: userID,
		Method:      model.ManualMethod(leg),
		ConfirmedAt: now,
	}
	if err := h.Logs.AppendTx(ctx, tx, logRow); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record check-in"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	go publishCheckin(req.BookingID, boatNum, leg, logRow.Method, userID, now, h.Bookings)

	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":  req.BookingID,
		"boat_number": boatNum,
		"leg":         leg.String(),
		"occupancy":   occupancy + 1,
		"capacity":    boat.Capacity,
	})
}

// publishCheckin emits a checkin.confirmed event after commit.  Failures
// are logged by the publisher and never affect the caller.
func publishCheckin(bookingID uint64, boatNumber uint32, leg model.Leg, method string, userID uint64, when time.Time, bookings *repository.BookingRepo) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := queue.CheckinConfirmedEvent{
		BookingID:   bookingID,
		BoatNumber:  boatNumber,
		Leg:         leg.String(),
		Method:      method,
		ConfirmedBy: userID,
		ConfirmedAt: when.Format(time.RFC3339),
	}
	if b, err := bookings.GetByID(ctx, bookingID); err == nil {
		ev.TicketRef = b.TicketRef
		ev.Name = b.Name
	}
	_ = queue_publisher.PublishCheckinConfirmed(ctx, ev)
}

type skipReq struct {
	BookingID uint64 `json:"booking_id"`
}

// Skip handles POST /v1/checkin/skip.  Skipping changes no booking
// state; it only leaves an audit row so the manifest review can see the
// passenger was called and waved through.
func (h *CheckinHandler) Skip(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req skipReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}

	ctx := c.Request().Context()
	if _, err := h.Bookings.GetByID(ctx, req.BookingID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	// Attach the boarding boat when one is active; a skip with no
	// session open is still worth recording.
	var boatNumber *uint32
	if session, err := h.Sessions.Active(ctx); err == nil {
		n := session.BoatNumber
		boatNumber = &n
	}

	logRow := &model.CheckinLog{
		BookingID:   req.BookingID,
		BoatNumber:  boatNumber,
		ConfirmedBy: userID,
		Method:      model.MethodSkip,
	}
	if err := h.Logs.Append(ctx, logRow); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record skip"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id": req.BookingID,
		"method":     model.MethodSkip,
		"logged_at":  logRow.ConfirmedAt,
	})
}

type resetReq struct {
	Identifier string `json:"identifier"` // ticket_ref or exact id number
}

// Reset handles POST /v1/checkin/reset (admin only).  It is the single
// escape hatch from the boarded state: both legs are cleared, the
// booking returns to booked and an audit row records who did it.
func (h *CheckinHandler) Reset(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req resetReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Identifier) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier is required"})
	}

	ctx := c.Request().Context()
	eventID, err := h.Events.ActiveEvent(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no active event set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	booking, err := h.Bookings.FindByIdentifier(ctx, eventID, req.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Bookings.ResetTx(ctx, tx, booking.ID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reset"})
	}
	logRow := &model.CheckinLog{
		BookingID:   booking.ID,
		ConfirmedBy: userID,
		Method:      model.MethodAdminReset,
	}
	if err := h.Logs.AppendTx(ctx, tx, logRow); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record reset"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"booking_id": booking.ID,
		"ticket_ref": booking.TicketRef,
		"status":     model.BookingStatusBooked,
	})
}
