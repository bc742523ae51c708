package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Notification is one resolved alert payload, delivered once.
type Notification struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Severity Severity `json:"severity"`

	// Urgency is the risk level's notification label
	// (info/warning/urgent/emergency). Empty for zone transitions.
	Urgency string `json:"urgency,omitempty"`
}

// Notifier delivers a resolved notification payload. Fire-and-forget from
// the gate's perspective; delivery mechanics live behind this interface.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log. Used in
// development and as a fallback when no dispatch transport is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(_ context.Context, notif Notification) error {
	n.logger.Info().
		Str("severity", string(notif.Severity)).
		Str("urgency", notif.Urgency).
		Str("title", notif.Title).
		Str("body", notif.Body).
		Msg("notification")
	return nil
}

// PubSubNotifier publishes notifications to a Pub/Sub topic, where the
// push-delivery pipeline picks them up.
type PubSubNotifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logger    zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub notifier.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// NewPubSubNotifier creates a Pub/Sub-backed notifier.
func NewPubSubNotifier(ctx context.Context, cfg PubSubConfig) (*PubSubNotifier, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &PubSubNotifier{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		logger:    cfg.Logger.With().Str("component", "notifier").Logger(),
	}, nil
}

// Notify publishes the payload and waits for the server acknowledgement so
// a failed publish is reported to the caller.
func (n *PubSubNotifier) Notify(ctx context.Context, notif Notification) error {
	data, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"severity": string(notif.Severity),
			"urgency":  notif.Urgency,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	n.logger.Debug().Str("severity", string(notif.Severity)).Msg("notification published")
	return nil
}

// Close releases the Pub/Sub client.
func (n *PubSubNotifier) Close() error {
	n.publisher.Stop()
	return n.client.Close()
}
