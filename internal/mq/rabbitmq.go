package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/OkanBey11/ToDoApiWithGemini/config"
)

var (
	// ErrNotConfirmed is returned when the broker nacks a published message.
	ErrNotConfirmed = errors.New("rabbitmq: publish not confirmed")

	// ErrClientClosed is returned by Publish and Subscribe after Close.
	ErrClientClosed = errors.New("rabbitmq: client closed")
)

// RabbitMQClient publishes to and consumes from queues named after the
// channel. Publishing runs in confirm mode on a dedicated AMQP channel.
type RabbitMQClient struct {
	conn            *amqp.Connection
	queueDurable    bool
	queueAutoDelete bool
	prefetchCount   int

	mu       sync.Mutex
	pub      *amqp.Channel
	declared map[string]struct{}
}

// NewRabbitMQClient dials the broker and opens the publishing channel.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := pub.Confirm(false); err != nil {
		_ = pub.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return &RabbitMQClient{
		conn:            conn,
		pub:             pub,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		prefetchCount:   cfg.PrefetchCount,
		declared:        make(map[string]struct{}),
	}, nil
}

// Publish sends data to the queue named channel and waits for the broker to
// confirm it.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	msg := r.publishing(data, attrs)

	r.mu.Lock()
	if r.pub == nil {
		r.mu.Unlock()
		return "", ErrClientClosed
	}
	if err := r.ensureQueue(r.pub, channel); err != nil {
		r.mu.Unlock()
		return "", err
	}
	confirm, err := r.pub.PublishWithDeferredConfirmWithContext(ctx, "", channel, false, false, msg)
	r.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", err
	}
	if !acked {
		return "", ErrNotConfirmed
	}
	return msg.MessageId, nil
}

// Subscribe consumes the queue named channel on its own AMQP channel until
// ctx is done. Handler errors requeue the delivery.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrClientClosed
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	defer ch.Close()

	if r.prefetchCount > 0 {
		if err := ch.Qos(r.prefetchCount, 0, false); err != nil {
			return err
		}
	}
	if _, err := r.declareQueue(ch, channel); err != nil {
		return err
	}

	consumerTag := "consumer-" + ulid.Make().String()
	deliveries, err := ch.Consume(channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(consumerTag, false)
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, deliveryMessage(d)); err != nil {
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Close releases the publishing channel and the connection.
func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.pub != nil {
		errs = append(errs, r.pub.Close())
		r.pub = nil
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
		r.conn = nil
	}
	return errors.Join(errs...)
}

func (r *RabbitMQClient) publishing(data []byte, attrs map[string]string) amqp.Publishing {
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: r.deliveryMode(),
		MessageId:    ulid.Make().String(),
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         data,
	}
}

// deliveryMode persists messages published to durable queues.
func (r *RabbitMQClient) deliveryMode() uint8 {
	if r.queueDurable {
		return amqp.Persistent
	}
	return amqp.Transient
}

// ensureQueue declares name once per client. Callers hold r.mu.
func (r *RabbitMQClient) ensureQueue(ch *amqp.Channel, name string) error {
	if _, ok := r.declared[name]; ok {
		return nil
	}
	if _, err := r.declareQueue(ch, name); err != nil {
		return err
	}
	r.declared[name] = struct{}{}
	return nil
}

func (r *RabbitMQClient) declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(name, r.queueDurable, r.queueAutoDelete, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return q, nil
}

func deliveryMessage(d amqp.Delivery) Message {
	return Message{
		ID:         d.MessageId,
		Data:       d.Body,
		Attributes: headersToAttributes(d.Headers),
	}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch v := value.(type) {
		case string:
			attrs[key] = v
		case []byte:
			attrs[key] = string(v)
		default:
			attrs[key] = fmt.Sprint(v)
		}
	}
	return attrs
}
