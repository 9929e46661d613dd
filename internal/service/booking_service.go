// Package service holds the booking submission gateway. It hands bookings
// to the broker and never assigns identity itself; that happens once, in
// the intake worker of the handler service.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/taxa-booking/internal/metrics"
	"github.com/iliyamo/taxa-booking/internal/model"
)

var (
	// ErrSubmissionFailed is returned for any submission that did not reach
	// the broker. It wraps the underlying cause.
	ErrSubmissionFailed = errors.New("booking submission failed")
	// ErrSerialization marks a booking that could not be encoded.
	ErrSerialization = errors.New("booking serialization failed")
)

// Publisher delivers an encoded booking to the broker.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// BookingService forwards bookings to the broker.
type BookingService struct {
	pub Publisher
	log *zap.Logger
}

// NewBookingService returns a BookingService publishing through pub.
func NewBookingService(pub Publisher, log *zap.Logger) *BookingService {
	if pub == nil {
		panic("nil publisher passed to NewBookingService")
	}
	return &BookingService{pub: pub, log: log.Named("gateway")}
}

// Submit publishes b once and returns it as published, that is pending with
// no id or submit time. Any failure yields ErrSubmissionFailed and no
// booking.
func (s *BookingService) Submit(ctx context.Context, b model.Booking) (model.Booking, error) {
	pending := b.AsPending()

	body, err := json.Marshal(pending)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.ResultFailed).Inc()
		s.log.Error("encode booking", zap.Error(err))
		return model.Booking{}, fmt.Errorf("%w: %w: %w", ErrSubmissionFailed, ErrSerialization, err)
	}

	if err := s.pub.Publish(ctx, body); err != nil {
		metrics.Submissions.WithLabelValues(metrics.ResultFailed).Inc()
		s.log.Error("publish booking", zap.String("customer", pending.CustomerName), zap.Error(err))
		return model.Booking{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	metrics.Submissions.WithLabelValues(metrics.ResultOK).Inc()
	s.log.Info("booking submitted",
		zap.String("customer", pending.CustomerName),
		zap.Time("requestedStartTime", pending.RequestedStartTime))
	return pending, nil
}
