package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"trademinutes-gateway/internal/config"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EnsureTopic creates the gateway events topic with configured partitions (idempotent).
// If it fails (no broker, or the topic exists) the gateway still runs.
func EnsureTopic(ctx context.Context) {
	cfg := config.Get()
	if len(cfg.KafkaBrokers) == 0 {
		return
	}
	conn, err := kafka.Dial("tcp", cfg.KafkaBrokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.KafkaTopic,
		NumPartitions:     cfg.KafkaPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug(ctx, "Kafka create topic failed (topic may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", cfg.KafkaTopic, "partitions", cfg.KafkaPartitions)
}

var (
	writer *kafka.Writer
	wOnce  sync.Once
)

// Producer returns the global Kafka writer for gateway events, or nil when no
// brokers are configured.
func Producer(ctx context.Context) *kafka.Writer {
	wOnce.Do(func() {
		cfg := config.Get()
		if len(cfg.KafkaBrokers) == 0 {
			logger.Info(ctx, "Kafka producer disabled (no brokers)")
			return
		}
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
			RequiredAcks: kafka.RequireOne,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Warn(context.Background(), "Kafka async write failed", "error", err, "count", len(messages))
				}
			},
		}
		logger.Info(ctx, "Kafka producer initialized", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	})
	return writer
}

// Encode stamps ev with an id and time when missing and returns the Kafka message
// for it. Events of one user share a key so they stay ordered on one partition.
func Encode(ev *models.Event) (kafka.Message, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(ev.UserEmail), Value: payload}, nil
}

// Decode parses an event payload.
func Decode(payload []byte) (models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, err
	}
	if ev.Kind == "" {
		return ev, fmt.Errorf("event %q has no kind", ev.ID)
	}
	return ev, nil
}

// PublishEvent publishes a gateway event. Non-blocking with the async writer; a
// gateway without brokers drops events.
func PublishEvent(ctx context.Context, ev *models.Event) error {
	w := Producer(ctx)
	if w == nil {
		return nil
	}
	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, msg)
}

// Publisher adapts PublishEvent to the service's event sink.
type Publisher struct{}

// Publish sends ev to the events topic.
func (Publisher) Publish(ctx context.Context, ev *models.Event) error {
	return PublishEvent(ctx, ev)
}

// Close flushes and closes the producer, if one was created.
func Close() error {
	if writer == nil {
		return nil
	}
	return writer.Close()
}

// Topic returns the gateway events topic name.
func Topic() string {
	return config.Get().KafkaTopic
}

// Brokers returns Kafka broker addresses.
func Brokers() []string {
	return config.Get().KafkaBrokers
}
