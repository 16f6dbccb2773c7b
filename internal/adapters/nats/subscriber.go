package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber connects to NATS. An empty durable name creates an ephemeral
// consumer that only sees events published after it subscribed.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeAnalysisCompleted calls handler for every completed run. Failed
// handlers are redelivered up to three times.
func (s *Subscriber) SubscribeAnalysisCompleted(ctx context.Context, handler func(ctx context.Context, event *domain.AnalysisCompleted) error) error {
	opts := []nats.SubOpt{
		nats.ManualAck(),
		nats.MaxDeliver(3),
	}
	if s.durable != "" {
		opts = append(opts, nats.Durable(s.durable))
	} else {
		opts = append(opts, nats.DeliverNew())
	}

	sub, err := s.js.Subscribe(SubjectAnalysisCompleted, func(msg *nats.Msg) {
		var event domain.AnalysisCompleted
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("discarding malformed analysis event", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, opts...)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
