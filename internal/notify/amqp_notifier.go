package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/models"
)

// AMQPNotifier publishes events as persistent JSON messages to a durable queue
type AMQPNotifier struct {
	mu     sync.Mutex
	url    string
	queue  string
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *logrus.Logger
}

// NewAMQPNotifier dials the broker and declares the queue
func NewAMQPNotifier(url, queue string, logger *logrus.Logger) (*AMQPNotifier, error) {
	n := &AMQPNotifier{url: url, queue: queue, logger: logger}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}

	if _, err := ch.QueueDeclare(
		n.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}

	n.conn = conn
	n.ch = ch
	return nil
}

// Notify publishes the event, reconnecting once if the channel was closed
func (n *AMQPNotifier) Notify(ctx context.Context, event Event, booking *models.Booking) error {
	body, err := json.Marshal(NewMessage(event, booking))
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch == nil || n.ch.IsClosed() {
		if err := n.connect(); err != nil {
			return err
		}
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(event),
		MessageId:    booking.ID.String() + ":" + string(event),
		Body:         body,
	}

	if err := n.ch.PublishWithContext(ctx,
		"",      // default exchange
		n.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

// Close closes the channel and connection
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
