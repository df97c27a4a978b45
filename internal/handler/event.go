package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/repository"
)

// EventHandler manages the single active event that scopes all booking
// lookups.
type EventHandler struct {
	Events *repository.EventRepo
}

func NewEventHandler(events *repository.EventRepo) *EventHandler {
	if events == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events}
}

type setEventReq struct {
	Event string `json:"event"`
}

// SetActive handles PUT /v1/events/active (admin only).
func (h *EventHandler) SetActive(c echo.Context) error {
	var req setEventReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Event) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event is required"})
	}
	if err := h.Events.SetActiveEvent(c.Request().Context(), req.Event); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to set event"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": strings.TrimSpace(req.Event)})
}

// GetActive handles GET /v1/events/active.
func (h *EventHandler) GetActive(c echo.Context) error {
	event, err := h.Events.ActiveEvent(c.Request().Context())
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active event set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": event})
}
