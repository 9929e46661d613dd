package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/taxa-booking/internal/metrics"
	"github.com/iliyamo/taxa-booking/internal/model"
)

// State is the lifecycle state of a Worker.
type State int32

const (
	StateStarting State = iota
	StateConnected
	StateConsuming
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateConnected:
		return "connected"
	case StateConsuming:
		return "consuming"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Store receives committed bookings.
type Store interface {
	Put(b model.Booking)
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	URL string
	// Concurrency is the number of goroutines handling deliveries.
	Concurrency int
	ConsumerTag string
}

// Worker consumes the booking queue and commits each booking into a Store.
// It assigns identities from a counter it owns, starting at 1; the counter
// lives and dies with the Worker.
//
// Deliveries are auto-acked on receipt and undecodable messages are
// dropped, so a message acked but not yet committed when the worker stops
// is lost.
type Worker struct {
	cfg   WorkerConfig
	store Store
	log   *zap.Logger
	now   func() time.Time

	lastID atomic.Int64
	state  atomic.Int32

	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
	closed     chan *amqp.Error
}

// NewWorker returns a Worker in StateStarting.
func NewWorker(cfg WorkerConfig, store Store, log *zap.Logger) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Worker{
		cfg:   cfg,
		store: store,
		log:   log.Named("intake"),
		now:   time.Now,
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
	w.log.Debug("state changed", zap.Stringer("state", s))
}

// Start connects to the broker, declares the booking queue and registers
// the consumer. A failure is returned as ErrBrokerUnavailable with every
// acquired resource released; Start never retries.
func (w *Worker) Start(ctx context.Context) error {
	if w.State() != StateStarting {
		return fmt.Errorf("worker already started (state %s)", w.State())
	}

	conn, err := amqp.Dial(w.cfg.URL)
	if err != nil {
		w.setState(StateStopped)
		w.log.Error("dial failed", zap.String("url", redact(w.cfg.URL)), zap.Error(err))
		return fmt.Errorf("%w: dial: %w", ErrBrokerUnavailable, err)
	}
	w.conn = conn
	w.setState(StateConnected)

	fail := func(step string, err error) error {
		w.log.Error(step+" failed", zap.Error(err))
		w.release()
		w.setState(StateStopped)
		return fmt.Errorf("%w: %s: %w", ErrBrokerUnavailable, step, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return fail("channel open", err)
	}
	w.ch = ch

	if err := DeclareQueue(ch); err != nil {
		return fail("queue declare", err)
	}

	w.closed = conn.NotifyClose(make(chan *amqp.Error, 1))

	msgs, err := ch.ConsumeWithContext(ctx, QueueName, w.cfg.ConsumerTag,
		true,  // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fail("queue consume", err)
	}
	w.deliveries = msgs
	w.setState(StateConsuming)
	w.log.Info("booking worker listening", zap.String("url", redact(w.cfg.URL)), zap.String("queue", QueueName))
	return nil
}

// Run handles deliveries until ctx is cancelled (returning nil) or the
// broker goes away (returning ErrBrokerUnavailable). The connection is
// released on every exit path.
func (w *Worker) Run(ctx context.Context) error {
	if w.State() != StateConsuming {
		return fmt.Errorf("worker not consuming (state %s)", w.State())
	}
	err := w.consume(ctx, w.deliveries, w.closed)

	w.setState(StateStopping)
	w.release()
	w.setState(StateStopped)
	if err != nil {
		w.log.Error("consume loop ended", zap.Error(err))
	} else {
		w.log.Info("booking worker stopped")
	}
	return err
}

func (w *Worker) consume(ctx context.Context, deliveries <-chan amqp.Delivery, closed <-chan *amqp.Error) error {
	jobs := make(chan []byte)
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for body := range jobs {
				_, _ = w.Handle(body)
			}
		}()
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if ctx.Err() != nil {
				return nil
			}
			if !ok || amqpErr == nil {
				return fmt.Errorf("%w: connection closed", ErrBrokerUnavailable)
			}
			return fmt.Errorf("%w: connection closed: %w", ErrBrokerUnavailable, amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: delivery channel closed", ErrBrokerUnavailable)
			}
			select {
			case jobs <- d.Body:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Handle decodes one message body and commits it. Undecodable bodies are
// logged and dropped without consuming an identity.
func (w *Worker) Handle(body []byte) (model.Booking, error) {
	var b model.Booking
	err := json.Unmarshal(body, &b)
	if err == nil && bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		err = errors.New("null payload")
	}
	if err != nil {
		metrics.Intake.WithLabelValues(metrics.ResultDiscarded).Inc()
		w.log.Warn("could not deserialize message", zap.ByteString("body", body), zap.Error(err))
		return model.Booking{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	committed := b.Commit(w.lastID.Add(1), w.now())
	w.store.Put(committed)

	metrics.Intake.WithLabelValues(metrics.ResultOK).Inc()
	w.log.Info("processing booking", zap.Int64("id", *committed.ID), zap.String("customer", committed.CustomerName))
	return committed, nil
}

func (w *Worker) release() {
	if w.ch != nil {
		_ = w.ch.Close()
		w.ch = nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}
