package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/model"
	"github.com/iliyamo/boat-boarding/internal/repository"
)

// StatsHandler serves read-only reporting: event-wide boarding totals
// and the per-boat manifest.
type StatsHandler struct {
	Boats    *repository.BoatRepo
	Bookings *repository.BookingRepo
	Events   *repository.EventRepo
}

func NewStatsHandler(boats *repository.BoatRepo, bookings *repository.BookingRepo, events *repository.EventRepo) *StatsHandler {
	if boats == nil || bookings == nil || events == nil {
		panic("nil repository passed to NewStatsHandler")
	}
	return &StatsHandler{Boats: boats, Bookings: bookings, Events: events}
}

type legStats struct {
	Boarded     int            `json:"boarded"`
	Outstanding int            `json:"outstanding"`
	ByBoat      map[uint32]int `json:"by_boat"`
}

// Stats handles GET /v1/stats.  Aggregation happens in memory over the
// event's bookings; the dataset is one day's passengers, not big data.
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	eventID, err := h.Events.ActiveEvent(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no active event set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	bookings, err := h.Bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}

	legs := map[model.Leg]*legStats{
		model.LegArrival:   {ByBoat: map[uint32]int{}},
		model.LegDeparture: {ByBoat: map[uint32]int{}},
	}
	byTicketType := map[string]int{}
	checkedIn := 0
	for _, b := range bookings {
		if b.Status == model.BookingStatusCheckedIn {
			checkedIn++
		}
		if b.TicketType != nil {
			byTicketType[*b.TicketType]++
		}
		for leg, s := range legs {
			if boat := b.BoardedFor(leg); boat != nil {
				s.Boarded++
				s.ByBoat[*boat]++
			} else {
				s.Outstanding++
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"event_id":       eventID,
		"total":          len(bookings),
		"checked_in":     checkedIn,
		"arrival":        legs[model.LegArrival],
		"departure":      legs[model.LegDeparture],
		"by_ticket_type": byTicketType,
	})
}

// Manifest handles GET /v1/boats/:number/manifest.  Works for open and
// departed boats alike; staff pull it after departure for the passenger
// list that actually sailed.
func (h *StatsHandler) Manifest(c echo.Context) error {
	boatNumber, err := parseBoatNumber(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boat number"})
	}
	ctx := c.Request().Context()
	boat, err := h.Boats.GetByNumber(ctx, boatNumber)
	if err != nil {
		if errors.Is(err, repository.ErrBoatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "boat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load boat"})
	}
	manifest, err := h.Bookings.ListByBoat(ctx, boatNumber)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load manifest"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"boat_number": boat.BoatNumber,
		"capacity":    boat.Capacity,
		"status":      boat.Status,
		"passengers":  len(manifest),
		"manifest":    newBookingViews(manifest),
	})
}
