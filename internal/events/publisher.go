package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	eventTypePrefix = "hpc.marketplace.request."
	eventSource     = "hpc-marketplace"
	subjectPrefix   = "marketplace.requests."
)

// Transition names the lifecycle step a LifecycleEvent reports.
type Transition string

const (
	TransitionCreated   Transition = "created"
	TransitionBidding   Transition = "bidding"
	TransitionScheduled Transition = "scheduled"
	TransitionDone      Transition = "done"
)

// LifecycleEvent represents a request status change
type LifecycleEvent struct {
	RequestID  uint       `json:"requestId"`
	ClientID   uint       `json:"clientId,omitempty"`
	ProviderID uint       `json:"providerId,omitempty"`
	BidID      uint       `json:"bidId,omitempty"`
	Transition Transition `json:"transition"`
	Status     string     `json:"status"`
	Timestamp  time.Time  `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}

// NopPublisher discards every event. It is used when no broker is configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, LifecycleEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// NATSPublisher handles NATS event publishing with CloudEvents formatting
type NATSPublisher struct {
	natsConn     *nats.Conn
	natsURL      string
	timeout      time.Duration
	maxReconnect int
	logger       *zap.SugaredLogger
}

var _ Publisher = (*NATSPublisher)(nil)

// PublisherConfig contains configuration for the event publisher
type PublisherConfig struct {
	NATSURL      string
	Timeout      time.Duration
	MaxReconnect int
}

// NewPublisher returns a NATS publisher, or a NopPublisher when no URL is configured.
func NewPublisher(config PublisherConfig) (Publisher, error) {
	if config.NATSURL == "" {
		zap.S().Named("events").Info("NATS URL not configured, lifecycle events disabled")
		return NopPublisher{}, nil
	}
	return NewNATSPublisher(config)
}

// NewNATSPublisher creates a new NATS publisher
func NewNATSPublisher(config PublisherConfig) (*NATSPublisher, error) {
	p := &NATSPublisher{
		natsURL:      config.NATSURL,
		timeout:      config.Timeout,
		maxReconnect: config.MaxReconnect,
		logger:       zap.S().Named("events"),
	}
	if p.timeout <= 0 {
		p.timeout = 5 * time.Second
	}

	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	return p, nil
}

func (p *NATSPublisher) connect() error {
	opts := []nats.Option{
		nats.Name(eventSource),
		nats.Timeout(p.timeout),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(p.maxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			p.logger.Warnw("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(p.natsURL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p.natsConn = nc
	return nil
}

// Publish sends the event as a CloudEvent on the request's subject.
func (p *NATSPublisher) Publish(ctx context.Context, event LifecycleEvent) error {
	if p.natsConn == nil || !p.natsConn.IsConnected() {
		return fmt.Errorf("NATS connection not available")
	}

	data, err := Encode(event)
	if err != nil {
		return err
	}

	subject := Subject(event.RequestID)
	if err := p.natsConn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := p.natsConn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("failed to flush NATS message: %w", err)
	}

	p.logger.Debugw("published lifecycle event", "subject", subject, "transition", event.Transition)
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.natsConn != nil {
		p.natsConn.Close()
	}
	return nil
}

// Subject returns the NATS subject carrying events of a request.
func Subject(requestID uint) string {
	return fmt.Sprintf("%s%d", subjectPrefix, requestID)
}

// NewCloudEvent wraps a lifecycle event in a CloudEvents envelope.
func NewCloudEvent(event LifecycleEvent) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	ce.SetID(uuid.New().String())
	ce.SetType(eventTypePrefix + string(event.Transition))
	ce.SetSource(eventSource)
	ce.SetSubject(Subject(event.RequestID))
	ce.SetTime(event.Timestamp)

	if err := ce.SetData(cloudevents.ApplicationJSON, event); err != nil {
		return ce, fmt.Errorf("failed to set CloudEvent data: %w", err)
	}
	return ce, nil
}

// Encode returns the JSON wire form of the event's CloudEvent.
func Encode(event LifecycleEvent) ([]byte, error) {
	ce, err := NewCloudEvent(event)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(ce)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CloudEvent: %w", err)
	}
	return data, nil
}
