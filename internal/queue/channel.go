// Package queue carries bookings between the booking service and the
// handler service over RabbitMQ. Bookings travel as JSON on a single
// non-durable queue through the default exchange; delivery is
// at-least-once and unordered, so consumers must not rely on arrival order.
package queue

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueName is the queue (and routing key) bookings are published to.
const QueueName = "taxabooking"

var (
	// ErrBrokerUnavailable covers dial, channel, declare and publish failures.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrPublishUnconfirmed is returned when the broker nacks a publish or
	// does not confirm it in time.
	ErrPublishUnconfirmed = errors.New("publish not confirmed")
	// ErrDecode marks a message body that is not a booking.
	ErrDecode = errors.New("undecodable booking message")
)

// queueDeclarer is the part of *amqp.Channel DeclareQueue needs.
type queueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

// DeclareQueue declares the booking queue: not durable, not exclusive and
// not auto-deleted. Declaring is idempotent, so publishers and consumers
// both do it.
func DeclareQueue(ch queueDeclarer) error {
	_, err := ch.QueueDeclare(
		QueueName, // name
		false,     // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	)
	return err
}

// BrokerURL builds the AMQP URL for host. A host that already is an
// amqp:// or amqps:// URL is returned unchanged; any other scheme is
// stripped down to its host name.
func BrokerURL(host string, port int, user, pass string) string {
	host = strings.TrimSpace(host)
	if strings.HasPrefix(host, "amqp://") || strings.HasPrefix(host, "amqps://") {
		return host
	}
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/",
	}
	return u.String()
}

// redact hides credentials so broker URLs can be logged.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
