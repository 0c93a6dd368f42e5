package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// RabbitSink publishes candidate events as persistent JSON messages to a
// durable queue on the default exchange.
type RabbitSink struct {
	conn  *amqp.Connection
	queue string

	mu sync.Mutex // amqp channels are not safe for concurrent publishing
	ch *amqp.Channel
}

// NewRabbitSink dials the broker and declares the queue.
func NewRabbitSink(url, queue string) (*RabbitSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &RabbitSink{conn: conn, ch: ch, queue: queue}, nil
}

func (s *RabbitSink) CandidateObserved(ctx context.Context, ev CandidateObserved) error {
	body, err := ev.encode()
	if err != nil {
		return fmt.Errorf("encode candidate event: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.ch.PublishWithContext(cctx,
		"",      // default exchange
		s.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         "candidate.observed",
			MessageId:    ev.JobID.String() + ":" + ev.PostID,
			Body:         body,
			Timestamp:    ev.ObservedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("publish candidate event: %w", err)
	}
	return nil
}

func (s *RabbitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

var _ Sink = (*RabbitSink)(nil)
