//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/ridgelineexteriors/lead-intake/internal/config"
	"github.com/ridgelineexteriors/lead-intake/internal/notify"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) snapshot() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.messages...)
}

func startKafka(t *testing.T, ctx context.Context) []string {
	t.Helper()
	container, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("lead-intake-test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	return brokers
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func TestNotificationOutboxRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers := startKafka(t, ctx)
	createTopic(t, brokers[0], "office-notifications")
	createTopic(t, brokers[0], "office-notifications-dlq")

	cfg := &config.Config{
		KafkaBrokers:      brokers,
		NotifyTopic:       "office-notifications",
		NotifyDLQTopic:    "office-notifications-dlq",
		NotifyGroupID:     "integration-test",
		NotifyEnabled:     true,
		NotifyMaxAttempts: 3,
		AlertPhone:        "+16165550100",
		AlertEmail:        "office@example.com",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewRealClock()

	publisher := notify.NewPublisher(cfg, clock, logger, metrics)
	defer publisher.Close()

	sender := &recordingSender{}
	worker := notify.NewWorker(cfg, map[notify.Channel]notify.Sender{
		notify.ChannelSMS:   sender,
		notify.ChannelEmail: sender,
	}, clock, logger, metrics)
	defer worker.Close()

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	done := make(chan error, 1)
	go func() { done <- worker.Run(workerCtx) }()

	publisher.MissedCallAlert(ctx, "+16165550123", 23)

	require.Eventually(t, func() bool {
		return len(sender.snapshot()) == 2
	}, time.Minute, 250*time.Millisecond, "both channels delivered")

	channels := make(map[notify.Channel]notify.Message)
	for _, msg := range sender.snapshot() {
		channels[msg.Channel] = msg
	}
	assert.Contains(t, channels[notify.ChannelSMS].Body, "Missed call from +16165550123")
	assert.Contains(t, channels[notify.ChannelSMS].Body, "voicemail left (23s)")
	assert.Equal(t, "office@example.com", channels[notify.ChannelEmail].To)

	stopWorker()
	require.NoError(t, <-done)
}
