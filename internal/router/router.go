package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/taxa-booking/internal/handler"
)

// RegisterRoutes registers the routes both services expose: the health
// check, the version report and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, v *handler.VersionHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/version", v.GetVersion)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterBooking registers the submission endpoint of the booking
// service. Middleware passed in (the rate limiter) applies to it alone.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, mw ...echo.MiddlewareFunc) {
	e.POST("/booking", h.PostBooking, mw...)
}

// RegisterBookingList registers the retrieval endpoint of the handler
// service.
func RegisterBookingList(e *echo.Echo, h *handler.BookingListHandler) {
	e.GET("/bookinglist", h.GetBookingList)
}
