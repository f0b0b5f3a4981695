package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/blinkpay/service/links"
	natspkg "github.com/brojonat/blinkpay/service/nats"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// linkEventSource delivers events for a single link until ctx is done.
type linkEventSource interface {
	Subscribe(ctx context.Context, linkID string) (<-chan *natspkg.LinkEvent, error)
}

// SSEPublisher manages Server-Sent Events connections for link event streaming.
type SSEPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewSSEPublisher creates a new SSE publisher that subscribes to NATS internally.
func NewSSEPublisher(natsURL string, logger *slog.Logger) (*SSEPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("blinkpay-sse-publisher"),
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

	logger.Info("SSE publisher initialized", "nats_url", natsURL)

	return &SSEPublisher{
		nc:     nc,
		js:     js,
		logger: logger,
	}, nil
}

// Close closes the NATS connection.
func (p *SSEPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("SSE publisher closed")
	}
	return nil
}

// Subscribe creates an ephemeral consumer for every event type of one link.
// Consumption stops when ctx is done; the channel is never closed.
func (p *SSEPublisher) Subscribe(ctx context.Context, linkID string) (<-chan *natspkg.LinkEvent, error) {
	if !links.ValidID(linkID) {
		return nil, fmt.Errorf("invalid link id %q", linkID)
	}
	subject := fmt.Sprintf("%s.*.%s", natspkg.SubjectPrefix, linkID)

	cons, err := p.js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, jetstream.ConsumerConfig{
		FilterSubject:     subject,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		InactiveThreshold: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", subject, err)
	}

	events := make(chan *natspkg.LinkEvent, 10)
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		defer msg.Ack()

		var event natspkg.LinkEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			p.logger.WarnContext(ctx, "failed to unmarshal event", "subject", msg.Subject(), "error", err)
			return
		}
		select {
		case events <- &event:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()

	return events, nil
}

// handleStreamLinkEvents streams a link's events over SSE.
// GET /api/v1/stream/links/{id}
func handleStreamLinkEvents(source linkEventSource, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		linkID := r.PathValue("id")
		// Link ids end up in a NATS subject filter; wildcards and dots must not.
		if !links.ValidID(linkID) {
			writeError(w, "Payment link not found", http.StatusNotFound)
			return
		}
		flusher, _ := w.(http.Flusher)
		flush := func() {
			if flusher != nil {
				flusher.Flush()
			}
		}

		events, err := source.Subscribe(r.Context(), linkID)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to subscribe to link events",
				"link_id", linkID,
				"error", err,
			)
			writeError(w, "failed to subscribe", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		logger.DebugContext(r.Context(), "SSE client connected",
			"link_id", linkID,
			"remote_addr", r.RemoteAddr,
		)

		fmt.Fprintf(w, "event: connected\ndata: {\"link_id\":%q}\n\n", linkID)
		flush()

		keepalive := time.NewTicker(10 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				flush()

			case event, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					logger.WarnContext(r.Context(), "failed to marshal event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: link\ndata: %s\n\n", data)
				flush()

				logger.DebugContext(r.Context(), "sent link event",
					"link_id", linkID,
					"type", event.Type,
				)

			case <-r.Context().Done():
				logger.DebugContext(r.Context(), "SSE client disconnected",
					"link_id", linkID,
					"remote_addr", r.RemoteAddr,
				)
				return
			}
		}
	})
}
