package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ridgelineexteriors/lead-intake/internal/config"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes office notifications to the outbox topic. When
// notifications are disabled it degrades to a logged no-op so callers never
// need to branch on configuration.
type Publisher struct {
	writer     messageWriter
	alertPhone string
	alertEmail string
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewPublisher builds a Publisher from configuration. The returned Publisher
// is safe to use even when cfg.NotifyEnabled is false.
func NewPublisher(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	p := &Publisher{
		alertPhone: cfg.AlertPhone,
		alertEmail: cfg.AlertEmail,
		clock:      clock,
		logger:     logger.With(slog.String("component", "notify_publisher")),
		metrics:    metrics,
	}
	if cfg.NotifyEnabled {
		p.writer = &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.NotifyTopic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		}
	}
	return p
}

// Publish enqueues a single notification. It returns an error only for
// marshalling or broker failures; disabled publishers always succeed.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	if p.writer == nil {
		p.logger.Debug("notifications disabled, dropping message",
			slog.String("channel", string(msg.Channel)),
		)
		return nil
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = p.clock.Now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(msg.ID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	p.metrics.NotificationsPublished.WithLabelValues(string(msg.Channel)).Inc()
	return nil
}

// Alert fans a message out to the configured office phone and email. Delivery
// failures are logged, never returned, so callers can fire and move on.
func (p *Publisher) Alert(ctx context.Context, subject, body string) {
	if p.alertPhone != "" {
		if err := p.Publish(ctx, Message{Channel: ChannelSMS, To: p.alertPhone, Body: body}); err != nil {
			p.logger.Error("failed to enqueue sms alert", slog.Any("error", err))
		}
	}
	if p.alertEmail != "" {
		if err := p.Publish(ctx, Message{Channel: ChannelEmail, To: p.alertEmail, Subject: subject, Body: body}); err != nil {
			p.logger.Error("failed to enqueue email alert", slog.Any("error", err))
		}
	}
}

// MissedCallAlert notifies the office about a missed inbound call.
func (p *Publisher) MissedCallAlert(ctx context.Context, phone string, voicemailSeconds int) {
	body := fmt.Sprintf("Missed call from %s", phone)
	if voicemailSeconds > 0 {
		body = fmt.Sprintf("%s, voicemail left (%ds)", body, voicemailSeconds)
	}
	p.Alert(ctx, "Missed call", body)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
