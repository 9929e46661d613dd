package repository

import (
	"slices"
	"sync"

	"github.com/iliyamo/taxa-booking/internal/metrics"
	"github.com/iliyamo/taxa-booking/internal/model"
)

// BookingRepo is the in-memory store of committed bookings. It owns its
// locking; Put may run concurrently with any number of readers. Nothing is
// persisted, so Close is a full teardown.
type BookingRepo struct {
	mu       sync.RWMutex
	bookings []model.Booking
}

// NewBookingRepo returns an empty repository.
func NewBookingRepo() *BookingRepo {
	return &BookingRepo{}
}

// Put appends b. Duplicates are kept as separate entries.
func (r *BookingRepo) Put(b model.Booking) {
	b = b.Clone()
	r.mu.Lock()
	r.bookings = append(r.bookings, b)
	metrics.StoredBookings.Set(float64(len(r.bookings)))
	r.mu.Unlock()
}

// ListByRequestedStartTime returns a snapshot of all bookings ordered by
// requested start time. Bookings with equal start times stay in insertion
// order.
func (r *BookingRepo) ListByRequestedStartTime() []model.Booking {
	r.mu.RLock()
	out := make([]model.Booking, len(r.bookings))
	for i, b := range r.bookings {
		out[i] = b.Clone()
	}
	r.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.Booking) int {
		return a.RequestedStartTime.Compare(b.RequestedStartTime)
	})
	return out
}

// Len returns the number of stored bookings.
func (r *BookingRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bookings)
}

// Close drops every booking and zeroes the store gauge.
func (r *BookingRepo) Close() error {
	r.mu.Lock()
	r.bookings = nil
	metrics.StoredBookings.Set(0)
	r.mu.Unlock()
	return nil
}
