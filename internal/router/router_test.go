package router

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/taxa-booking/internal/handler"
	"github.com/iliyamo/taxa-booking/internal/model"
	"github.com/iliyamo/taxa-booking/internal/queue"
	"github.com/iliyamo/taxa-booking/internal/repository"
	"github.com/iliyamo/taxa-booking/internal/service"
)

// directPublisher hands each message straight to the intake worker.
type directPublisher struct{ w *queue.Worker }

func (p directPublisher) Publish(_ context.Context, body []byte) error {
	_, err := p.w.Handle(body)
	return err
}

func newServers(t *testing.T) (booking, lister *echo.Echo) {
	t.Helper()
	log := zaptest.NewLogger(t)
	repo := repository.NewBookingRepo()
	worker := queue.NewWorker(queue.WorkerConfig{}, repo, log)
	resolve := func(context.Context) ([]net.IP, error) { return []net.IP{net.IPv4(127, 0, 0, 1)}, nil }

	booking = echo.New()
	RegisterRoutes(booking, &handler.VersionHandler{Service: "Booking", Version: "test", Resolve: resolve})
	RegisterBooking(booking, handler.NewBookingHandler(service.NewBookingService(directPublisher{worker}, log)))

	lister = echo.New()
	RegisterRoutes(lister, &handler.VersionHandler{Service: "BookingHandler", Version: "test", Resolve: resolve})
	RegisterBookingList(lister, handler.NewBookingListHandler(repo))
	return booking, lister
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSubmitThenList(t *testing.T) {
	booking, lister := newServers(t)

	rec := do(booking, http.MethodPost, "/booking", `{"customerName":"A","requestedStartTime":"2024-02-01T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(booking, http.MethodPost, "/booking", `{"customerName":"B","requestedStartTime":"2024-02-01T09:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(lister, http.MethodGet, "/bookinglist", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].CustomerName)
	assert.Equal(t, "A", list[1].CustomerName)
	assert.Equal(t, int64(2), *list[0].ID)
	require.NotNil(t, list[1].SubmitTime)
	assert.WithinDuration(t, time.Now().UTC(), *list[1].SubmitTime, time.Minute)
}

func TestCommonRoutes(t *testing.T) {
	booking, lister := newServers(t)
	for _, e := range []*echo.Echo{booking, lister} {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/version", "").Code)
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/metrics", "").Code)
	}
	assert.Equal(t, http.StatusNotFound, do(booking, http.MethodGet, "/bookinglist", "").Code)
	assert.Equal(t, http.StatusNotFound, do(lister, http.MethodPost, "/booking", `{}`).Code)
}
