package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/model"
	"github.com/iliyamo/boat-boarding/internal/repository"
)

type groupReq struct {
	Phone string `json:"phone"`
	Leg   string `json:"leg"`
}

// GroupConfirm handles POST /v1/checkin/group/confirm.  Everyone sharing
// the phone number who still has the leg outstanding boards together, or
// nobody does: if the group does not fit the remaining seats the whole
// request is rejected and staff can fall back to one-by-one check-ins.
func (h *CheckinHandler) GroupConfirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req groupReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Phone) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone is required"})
	}
	leg, err := model.ParseLeg(req.Leg)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "leg must be arrival or departure"})
	}

	eventID, err := h.Events.ActiveEvent(c.Request().Context())
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no active event set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
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
	occupancy, err := h.Boats.OccupancyTx(ctx, tx, boat.BoatNumber, leg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count occupancy"})
	}

	outstanding, err := h.Bookings.OutstandingByPhoneTx(ctx, tx, eventID, req.Phone, leg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if len(outstanding) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no outstanding bookings for phone"})
	}

	available := int(boat.Capacity) - occupancy
	if len(outstanding) > available {
		gerr := &repository.GroupCapacityError{Needed: len(outstanding), Available: available}
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     gerr.Error(),
			"needed":    gerr.Needed,
			"available": gerr.Available,
		})
	}

	now := time.Now().UTC()
	boatNum := boat.BoatNumber
	boarded := make([]uint64, 0, len(outstanding))
	for _, b := range outstanding {
		if err := h.Bookings.BoardLegTx(ctx, tx, b.ID, leg, boatNum, now); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to board group"})
		}
		logRow := &model.CheckinLog{
			BookingID:   b.ID,
			BoatNumber:  &boatNum,
			ConfirmedBy: userID,
			Method:      model.GroupMethod(leg),
			ConfirmedAt: now,
		}
		if err := h.Logs.AppendTx(ctx, tx, logRow); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record check-in"})
		}
		boarded = append(boarded, b.ID)
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	method := model.GroupMethod(leg)
	for _, id := range boarded {
		go publishCheckin(id, boatNum, leg, method, userID, now, h.Bookings)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"boat_number": boatNum,
		"leg":         leg.String(),
		"boarded":     boarded,
		"occupancy":   occupancy + len(boarded),
		"capacity":    boat.Capacity,
	})
}

// GroupSkip handles POST /v1/checkin/group/skip.  Every member of the
// group with the leg outstanding gets a skip audit row; booking state is
// untouched.
func (h *CheckinHandler) GroupSkip(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req groupReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Phone) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone is required"})
	}
	leg, err := model.ParseLeg(req.Leg)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "leg must be arrival or departure"})
	}

	ctx := c.Request().Context()
	eventID, err := h.Events.ActiveEvent(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no active event set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}

	members, err := h.Bookings.ResolveByPhone(ctx, eventID, req.Phone)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	var boatNumber *uint32
	if session, err := h.Sessions.Active(ctx); err == nil {
		n := session.BoatNumber
		boatNumber = &n
	}

	skipped := make([]uint64, 0, len(members))
	for _, b := range members {
		if !b.Outstanding(leg) {
			continue
		}
		logRow := &model.CheckinLog{
			BookingID:   b.ID,
			BoatNumber:  boatNumber,
			ConfirmedBy: userID,
			Method:      model.MethodSkip,
		}
		if err := h.Logs.Append(ctx, logRow); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record skip"})
		}
		skipped = append(skipped, b.ID)
	}
	if len(skipped) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no outstanding bookings for phone"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"skipped": skipped,
		"leg":     leg.String(),
	})
}
