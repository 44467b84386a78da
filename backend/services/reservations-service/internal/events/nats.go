package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultSubject is the NATS subject reservation events are published on.
const DefaultSubject = "reservations.events"

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher publishes events as JSON. Each message carries the event type in the
// Event-Type header and a traceparent when the context holds a sampled span.
type NATSPublisher struct {
	conn    msgPublisher
	subject string
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewNATSPublisher returns a publisher on subject, or DefaultSubject when empty.
func NewNATSPublisher(conn *nats.Conn, subject string, logger *zap.Logger) *NATSPublisher {
	return newNATSPublisher(conn, subject, logger)
}

func newNATSPublisher(conn msgPublisher, subject string, logger *zap.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
		tracer:  otel.Tracer("reservations.events"),
	}
}

func (p *NATSPublisher) Notify(ctx context.Context, event Event) {
	if err := p.publish(ctx, event); err != nil {
		p.logger.Warn("publish reservation event failed",
			zap.String("type", string(event.Type)),
			zap.String("resource_id", event.ResourceID.String()),
			zap.Error(err),
		)
	}
}

func (p *NATSPublisher) publish(ctx context.Context, event Event) error {
	_, span := p.tracer.Start(ctx, "events.publish")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set("Event-Type", string(event.Type))
	if sc := span.SpanContext(); sc.IsValid() {
		msg.Header.Set("traceparent", fmt.Sprintf("00-%s-%s-01", sc.TraceID(), sc.SpanID()))
	}
	return p.conn.PublishMsg(msg)
}
