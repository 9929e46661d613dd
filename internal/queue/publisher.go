package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	URL string
	// Confirm enables publisher confirms; each publish then waits up to
	// ConfirmTimeout for the broker ack.
	Confirm        bool
	ConfirmTimeout time.Duration
}

// confirmation is an outstanding publisher confirm.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// publishChannel is the subset of *amqp.Channel a publish goes through.
type publishChannel interface {
	queueDeclarer
	Confirm(noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	PublishDeferred(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (confirmation, error)
	Close() error
}

// amqpChannel adapts *amqp.Channel to publishChannel.
type amqpChannel struct{ *amqp.Channel }

func (c amqpChannel) PublishDeferred(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, immediate, msg)
	if err != nil {
		return nil, err
	}
	return dc, nil
}

// Publisher publishes booking payloads to the booking queue. It keeps one
// connection, dialed on first use and redialed whenever it has been
// closed, and opens a fresh channel for every publish.
type Publisher struct {
	cfg PublisherConfig
	log *zap.Logger

	// openChannel yields the channel for one publish; replaced in tests.
	openChannel func() (publishChannel, error)

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewPublisher returns a publisher; no connection is made until the first
// Publish.
func NewPublisher(cfg PublisherConfig, log *zap.Logger) *Publisher {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 5 * time.Second
	}
	p := &Publisher{cfg: cfg, log: log.Named("publisher")}
	p.openChannel = p.channel
	return p
}

func (p *Publisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return nil, err
	}
	p.log.Info("connected to broker", zap.String("url", redact(p.cfg.URL)))
	p.conn = conn
	return conn, nil
}

func (p *Publisher) channel() (publishChannel, error) {
	conn, err := p.connection()
	if err != nil {
		p.log.Error("dial failed", zap.String("url", redact(p.cfg.URL)), zap.Error(err))
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		p.log.Error("channel open failed", zap.Error(err))
		return nil, fmt.Errorf("channel: %w", err)
	}
	return amqpChannel{ch}, nil
}

// Publish sends body to the booking queue once. Failures are never
// retried here.
func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	ch, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}
	defer func() { _ = ch.Close() }()

	if err := DeclareQueue(ch); err != nil {
		p.log.Error("queue declare failed", zap.Error(err))
		return fmt.Errorf("%w: declare: %w", ErrBrokerUnavailable, err)
	}

	msg := amqp.Publishing{Body: body}

	if !p.cfg.Confirm {
		if err := ch.PublishWithContext(ctx, "", QueueName, false, false, msg); err != nil {
			p.log.Error("publish failed", zap.Error(err))
			return fmt.Errorf("%w: publish: %w", ErrBrokerUnavailable, err)
		}
		return nil
	}

	if err := ch.Confirm(false); err != nil {
		p.log.Error("enabling confirms failed", zap.Error(err))
		return fmt.Errorf("%w: confirm mode: %w", ErrBrokerUnavailable, err)
	}
	dc, err := ch.PublishDeferred(ctx, "", QueueName, false, false, msg)
	if err != nil {
		p.log.Error("publish failed", zap.Error(err))
		return fmt.Errorf("%w: publish: %w", ErrBrokerUnavailable, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.ConfirmTimeout)
	defer cancel()
	acked, err := dc.WaitContext(waitCtx)
	if err != nil {
		p.log.Warn("publish confirmation timed out", zap.Duration("timeout", p.cfg.ConfirmTimeout), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPublishUnconfirmed, err)
	}
	if !acked {
		p.log.Warn("publish nacked by broker")
		return fmt.Errorf("%w: nacked", ErrPublishUnconfirmed)
	}
	return nil
}

// Close releases the broker connection, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
