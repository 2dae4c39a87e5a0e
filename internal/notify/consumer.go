package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ridgelineexteriors/lead-intake/internal/config"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
)

// Sender delivers a single notification over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Worker consumes the outbox topic and hands each notification to the sender
// for its channel. Messages that exhaust their attempts, or that cannot be
// decoded at all, go to the DLQ topic so a poison message never wedges the
// consumer group.
type Worker struct {
	reader      messageFetcher
	dlq         messageWriter
	senders     map[Channel]Sender
	maxAttempts int
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewWorker builds a Worker reading from cfg.NotifyTopic. The senders map
// must contain an entry for every channel the office is configured to use.
func NewWorker(cfg *config.Config, senders map[Channel]Sender, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Worker {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.NotifyTopic,
		GroupID:  cfg.NotifyGroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	var dlq messageWriter
	if cfg.NotifyDLQTopic != "" {
		dlq = &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.NotifyDLQTopic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireOne,
		}
	}
	return &Worker{
		reader:      reader,
		dlq:         dlq,
		senders:     senders,
		maxAttempts: cfg.NotifyMaxAttempts,
		clock:       clock,
		logger:      logger.With(slog.String("component", "notify_worker")),
		metrics:     metrics,
	}
}

// Run consumes until ctx is cancelled. It returns nil on clean shutdown.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notification worker started")
	for {
		raw, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				w.logger.Info("notification worker stopping")
				return nil
			}
			return fmt.Errorf("fetch notification: %w", err)
		}

		w.handle(ctx, raw)

		if err := w.reader.CommitMessages(ctx, raw); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("failed to commit offset", slog.Any("error", err))
		}
	}
}

func (w *Worker) handle(ctx context.Context, raw kafkago.Message) {
	var msg Message
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		w.logger.Error("undecodable notification, dead-lettering",
			slog.Any("error", err),
		)
		w.deadLetter(ctx, raw.Value)
		return
	}

	sender, ok := w.senders[msg.Channel]
	if !ok {
		w.logger.Error("no sender for channel, dead-lettering",
			slog.String("channel", string(msg.Channel)),
			slog.String("id", msg.ID),
		)
		w.deadLetter(ctx, raw.Value)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		msg.Attempt = attempt
		lastErr = sender.Send(ctx, msg)
		if lastErr == nil {
			w.metrics.NotificationsDelivered.WithLabelValues(string(msg.Channel)).Inc()
			w.logger.Info("notification delivered",
				slog.String("channel", string(msg.Channel)),
				slog.String("id", msg.ID),
				slog.Int("attempt", attempt),
			)
			return
		}
		w.logger.Warn("notification delivery failed",
			slog.String("channel", string(msg.Channel)),
			slog.String("id", msg.ID),
			slog.Int("attempt", attempt),
			slog.Any("error", lastErr),
		)
		if attempt < w.maxAttempts {
			if err := w.sleep(ctx, backoff(attempt)); err != nil {
				return
			}
		}
	}

	w.logger.Error("notification exhausted retries, dead-lettering",
		slog.String("channel", string(msg.Channel)),
		slog.String("id", msg.ID),
		slog.Any("error", lastErr),
	)
	w.deadLetter(ctx, raw.Value)
}

func (w *Worker) deadLetter(ctx context.Context, payload []byte) {
	if w.dlq == nil {
		return
	}
	if err := w.dlq.WriteMessages(ctx, kafkago.Message{Value: payload}); err != nil {
		w.logger.Error("failed to write to dlq", slog.Any("error", err))
		return
	}
	w.metrics.NotificationsDeadLettered.Inc()
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.clock.After(d):
		return nil
	}
}

// backoff grows exponentially per attempt: 1s, 2s, 4s, ...
func backoff(attempt int) time.Duration {
	return time.Second << (attempt - 1)
}

// Close releases the reader and DLQ writer.
func (w *Worker) Close() error {
	var errs []error
	if err := w.reader.Close(); err != nil {
		errs = append(errs, err)
	}
	if w.dlq != nil {
		if err := w.dlq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
