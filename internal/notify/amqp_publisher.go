package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrNotConfirmed = errors.New("broker did not confirm event")

const publishTimeout = 5 * time.Second

// AMQPPublisher publishes events to a durable topic exchange with publisher
// confirms. The routing key is the event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
	mu       sync.Mutex
}

// NewAMQPPublisher dials url and declares exchange
func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	log.Info("Connected to message broker", zap.String("exchange", exchange))

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

// Publish sends the event and waits for the broker to confirm it
func (p *AMQPPublisher) Publish(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	confirmation, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		p.exchange,         // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.Timestamp,
			Type:         string(event.Type),
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		p.log.Error("Failed to publish event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for confirm: %w", err)
	}
	if !acked {
		return ErrNotConfirmed
	}

	p.log.Debug("Event published",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.Int("size", len(body)))
	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		p.log.Warn("Failed to close channel", zap.Error(err))
	}
	return p.conn.Close()
}
