package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/model"
	"github.com/iliyamo/boat-boarding/internal/repository"
)

// BookingHandler serves the booking desk: creating bookings one at a
// time or in bulk, and looking one up by ticket reference.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Events   *repository.EventRepo
}

func NewBookingHandler(bookings *repository.BookingRepo, events *repository.EventRepo) *BookingHandler {
	if bookings == nil || events == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Events: events}
}

type bookingReq struct {
	Name          string     `json:"name"`
	IDNumber      string     `json:"id_number"`
	Phone         *string    `json:"phone"`
	MaleDep       *string    `json:"male_dep"`
	ResortDep     *string    `json:"resort_dep"`
	PaidAmount    *int64     `json:"paid_amount"`
	TransferRef   *string    `json:"transfer_ref"`
	TicketType    *string    `json:"ticket_type"`
	ArrivalTime   *time.Time `json:"arrival_time"`
	DepartureTime *time.Time `json:"departure_time"`
}

func (r *bookingReq) toModel(eventID string) (*model.Booking, error) {
	name := strings.TrimSpace(r.Name)
	idNumber := strings.TrimSpace(r.IDNumber)
	if name == "" || idNumber == "" {
		return nil, errors.New("name and id_number are required")
	}
	return &model.Booking{
		EventID:       eventID,
		Name:          name,
		IDNumber:      idNumber,
		Phone:         r.Phone,
		MaleDep:       r.MaleDep,
		ResortDep:     r.ResortDep,
		PaidAmount:    r.PaidAmount,
		TransferRef:   r.TransferRef,
		TicketType:    r.TicketType,
		ArrivalTime:   r.ArrivalTime,
		DepartureTime: r.DepartureTime,
	}, nil
}

// Create handles POST /v1/bookings.  The booking is attached to the
// active event; the ticket reference is generated server-side.
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	eventID, err := h.Events.ActiveEvent(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no active event set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	b, err := req.toModel(eventID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Bookings.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicateBooking) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already exists for this id number"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": newBookingView(b)})
}

type bulkReq struct {
	Items []bookingReq `json:"items"`
}

// CreateBulk handles POST /v1/bookings/bulk.  All rows are inserted in
// one transaction; a single bad row rejects the whole batch so a partial
// import never needs manual cleanup.
func (h *BookingHandler) CreateBulk(c echo.Context) error {
	var req bulkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items is required"})
	}
	ctx := c.Request().Context()
	eventID, err := h.Events.ActiveEvent(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no active event set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}

	bookings := make([]*model.Booking, 0, len(req.Items))
	for i, item := range req.Items {
		b, err := item.toModel(eventID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "index": i})
		}
		bookings = append(bookings, b)
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
	if err := h.Bookings.CreateBulkTx(ctx, tx, bookings); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create bookings"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	refs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		refs = append(refs, b.TicketRef)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"created":     len(bookings),
		"ticket_refs": refs,
	})
}

// GetByRef handles GET /v1/bookings/:ref.
func (h *BookingHandler) GetByRef(c echo.Context) error {
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket ref"})
	}
	b, err := h.Bookings.GetByTicketRef(c.Request().Context(), ref)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": newBookingView(b)})
}
