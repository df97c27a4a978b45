package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/model"
)

// lockWait bounds how long a check-in waits on the boat row lock before
// giving up with a conflict response.
const lockWait = 3 * time.Second

// getUserID extracts the user_id placed in the context by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseBoatNumber parses the :number path parameter.
func parseBoatNumber(c echo.Context) (uint32, error) {
	n, err := strconv.ParseUint(c.Param("number"), 10, 32)
	if err != nil || n == 0 {
		return 0, errors.New("invalid boat number")
	}
	return uint32(n), nil
}

// bookingView is the JSON shape of a booking in every response.  Nullable
// columns surface as nullable JSON fields so clients can tell "not boarded"
// from zero.
type bookingView struct {
	ID                   uint64     `json:"id"`
	EventID              string     `json:"event_id"`
	TicketRef            string     `json:"ticket_ref"`
	Name                 string     `json:"name"`
	IDNumber             string     `json:"id_number"`
	Phone                *string    `json:"phone"`
	MaleDep              *string    `json:"male_dep,omitempty"`
	ResortDep            *string    `json:"resort_dep,omitempty"`
	PaidAmount           *int64     `json:"paid_amount,omitempty"`
	TransferRef          *string    `json:"transfer_ref,omitempty"`
	TicketType           *string    `json:"ticket_type,omitempty"`
	ArrivalTime          *time.Time `json:"arrival_time,omitempty"`
	DepartureTime        *time.Time `json:"departure_time,omitempty"`
	ArrivalBoatBoarded   *uint32    `json:"arrival_boat_boarded"`
	DepartureBoatBoarded *uint32    `json:"departure_boat_boarded"`
	CheckinTime          *time.Time `json:"checkin_time"`
	Status               string     `json:"status"`
}

func newBookingView(b *model.Booking) bookingView {
	return bookingView{
		ID:                   b.ID,
		EventID:              b.EventID,
		TicketRef:            b.TicketRef,
		Name:                 b.Name,
		IDNumber:             b.IDNumber,
		Phone:                b.Phone,
		MaleDep:              b.MaleDep,
		ResortDep:            b.ResortDep,
		PaidAmount:           b.PaidAmount,
		TransferRef:          b.TransferRef,
		TicketType:           b.TicketType,
		ArrivalTime:          b.ArrivalTime,
		DepartureTime:        b.DepartureTime,
		ArrivalBoatBoarded:   b.ArrivalBoatBoarded,
		DepartureBoatBoarded: b.DepartureBoatBoarded,
		CheckinTime:          b.CheckinTime,
		Status:               b.Status,
	}
}

func newBookingViews(bs []*model.Booking) []bookingView {
	out := make([]bookingView, 0, len(bs))
	for _, b := range bs {
		out = append(out, newBookingView(b))
	}
	return out
}
