package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/blinkpay/service/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventPublisher publishes link lifecycle events.
type EventPublisher interface {
	// PublishLinkEvent publishes to the subject returned by event.Subject().
	PublishLinkEvent(ctx context.Context, event *LinkEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes link events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	logger  *slog.Logger
	metrics *metrics.Metrics
}

const (
	// StreamName is the name of the JetStream stream for link events.
	StreamName = "LINKS"

	// SubjectPrefix is the first token of every link event subject.
	SubjectPrefix = "links"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = SubjectPrefix + ".>"

	// StreamRetention is how long messages are retained.
	StreamRetention = 7 * 24 * time.Hour
)

// NewPublisher connects to NATS and ensures the LINKS stream exists.
// If m is nil, no metrics are recorded.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("blinkpay-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		logger:  logger,
		metrics: m,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "BlinkPay payment link events",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishLinkEvent publishes a single link event.
func (p *JetStreamPublisher) PublishLinkEvent(ctx context.Context, event *LinkEvent) error {
	start := time.Now()
	subject := event.Subject()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal link event: %w", err)
	}

	// The event id doubles as the JetStream dedup id.
	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID))
	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordNATSPublish(event.Type, status, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("failed to publish link event: %w", err)
	}

	p.logger.DebugContext(ctx, "published link event",
		"subject", subject,
		"event_id", event.ID,
		"link_id", event.LinkID,
	)
	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
