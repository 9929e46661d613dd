package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/taxa-booking/internal/model"
	"github.com/iliyamo/taxa-booking/internal/repository"
)

type fakeSubmitter struct {
	got []model.Booking
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, b model.Booking) (model.Booking, error) {
	if f.err != nil {
		return model.Booking{}, f.err
	}
	f.got = append(f.got, b)
	return b.AsPending(), nil
}

func postBooking(t *testing.T, h *BookingHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/booking", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.PostBooking(e.NewContext(req, rec)))
	return rec
}

func TestPostBookingAccepted(t *testing.T) {
	sub := &fakeSubmitter{}
	rec := postBooking(t, NewBookingHandler(sub), `{
		"customerName": "Test Customer",
		"pickupAddress": "Test Address",
		"destinationAddress": "Some place, not far",
		"requestedStartTime": "2023-11-22T14:22:32Z"
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, sub.got, 1)
	assert.Equal(t, "Test Customer", sub.got[0].CustomerName)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Test Address", out["pickupAddress"])
	assert.Equal(t, "2023-11-22T14:22:32Z", out["requestedStartTime"])
	assert.NotContains(t, out, "id")
	assert.NotContains(t, out, "submitTime")
}

func TestPostBookingAcceptsZonelessStartTime(t *testing.T) {
	sub := &fakeSubmitter{}
	rec := postBooking(t, NewBookingHandler(sub), `{
		"customerName": "Test Customer",
		"pickupAddress": "Test Address",
		"destinationAddress": "Some place, not far",
		"requestedStartTime": "2023-11-22T14:22:32"
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, sub.got, 1)
	want := time.Date(2023, 11, 22, 14, 22, 32, 0, time.UTC)
	assert.True(t, sub.got[0].RequestedStartTime.Equal(want))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "2023-11-22T14:22:32Z", out["requestedStartTime"])
}

func TestPostBookingMalformedStartTime(t *testing.T) {
	sub := &fakeSubmitter{}
	rec := postBooking(t, NewBookingHandler(sub), `{"customerName": "A", "requestedStartTime": "soon"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sub.got)
}

func TestPostBookingMalformedBody(t *testing.T) {
	sub := &fakeSubmitter{}
	rec := postBooking(t, NewBookingHandler(sub), `{"customerName": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sub.got)
}

func TestPostBookingSubmissionFailure(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("broker down")}
	rec := postBooking(t, NewBookingHandler(sub), `{"customerName": "A"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"booking submission failed"}`, rec.Body.String())
}

func TestGetBookingListOrdersByRequestedStartTime(t *testing.T) {
	repo := repository.NewBookingRepo()
	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.Put(model.Booking{CustomerName: "A", RequestedStartTime: t1}.Commit(1, t1))
	repo.Put(model.Booking{CustomerName: "B", RequestedStartTime: t1.Add(-time.Hour)}.Commit(2, t1))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/bookinglist", nil), rec)
	require.NoError(t, NewBookingListHandler(repo).GetBookingList(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var list []model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].CustomerName)
	assert.Equal(t, int64(2), *list[0].ID)
	assert.Equal(t, "A", list[1].CustomerName)
}

func TestGetBookingListEmpty(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/bookinglist", nil), rec)
	require.NoError(t, NewBookingListHandler(repository.NewBookingRepo()).GetBookingList(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(context.Context) ([]net.IP, error)
		want    string
	}{
		{"ipv4 preferred", func(context.Context) ([]net.IP, error) {
			return []net.IP{net.ParseIP("::1"), net.ParseIP("10.1.2.3")}, nil
		}, "10.1.2.3"},
		{"resolver error", func(context.Context) ([]net.IP, error) {
			return nil, errors.New("no dns")
		}, unresolvedAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &VersionHandler{Service: "Booking", Version: "1.2.3", Resolve: tt.resolve}
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/version", nil), rec)
			require.NoError(t, h.GetVersion(c))

			var out map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, "Booking", out["service"])
			assert.Equal(t, "1.2.3", out["version"])
			assert.Equal(t, tt.want, out["hosted-at-address"])
		})
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)))
	assert.Equal(t, "ok", rec.Body.String())
}
