package handler // handler defines http handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taxa-booking/internal/model"
)

// Submitter forwards a booking for asynchronous intake.
type Submitter interface {
	Submit(ctx context.Context, b model.Booking) (model.Booking, error)
}

// BookingLister returns committed bookings in pickup order.
type BookingLister interface {
	ListByRequestedStartTime() []model.Booking
}

// BookingHandler serves the booking service's submission endpoint.
type BookingHandler struct {
	Bookings Submitter
}

// NewBookingHandler panics when s is nil.
func NewBookingHandler(s Submitter) *BookingHandler {
	if s == nil {
		panic("nil submitter passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: s}
}

// PostBooking handles POST /booking. The body is a booking without id or
// submitTime; those are assigned later by the handler service, so the
// 201 response echoes the booking still pending. 400 is returned for a
// malformed body and 503 when the broker did not take the booking.
func (h *BookingHandler) PostBooking(c echo.Context) error {
	var in model.Booking
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	out, err := h.Bookings.Submit(c.Request().Context(), in)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking submission failed"})
	}
	return c.JSON(http.StatusCreated, out)
}

// BookingListHandler serves the handler service's retrieval endpoint.
type BookingListHandler struct {
	Repo BookingLister
}

// NewBookingListHandler panics when repo is nil.
func NewBookingListHandler(repo BookingLister) *BookingListHandler {
	if repo == nil {
		panic("nil repository passed to NewBookingListHandler")
	}
	return &BookingListHandler{Repo: repo}
}

// GetBookingList handles GET /bookinglist, returning every committed
// booking ordered by requested start time.
func (h *BookingListHandler) GetBookingList(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Repo.ListByRequestedStartTime())
}
