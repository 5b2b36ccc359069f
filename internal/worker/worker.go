package worker

import (
	"context"
	"errors"
	"sync/atomic"

	"trademinutes-gateway/internal/config"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/queue"
	"trademinutes-gateway/internal/repository"
	"trademinutes-gateway/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ActivityWriter persists events.
type ActivityWriter interface {
	Insert(ctx context.Context, ev models.Event) error
}

// Invalidator drops cached appointments.
type Invalidator interface {
	InvalidateAppointments(ctx context.Context, userIDs ...string)
}

// Handler applies one gateway event: the affected users' cached appointments are
// dropped and the event is recorded in the activity table.
type Handler struct {
	Activities ActivityWriter
	Cache      Invalidator

	processed atomic.Int64
}

// Processed returns the number of events handled successfully.
func (h *Handler) Processed() int64 {
	return h.processed.Load()
}

// Handle decodes and applies one event payload.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	ev, err := queue.Decode(payload)
	if err != nil {
		return err
	}
	if h.Cache != nil && len(ev.Affected) > 0 {
		h.Cache.InvalidateAppointments(ctx, ev.Affected...)
	}
	if h.Activities != nil {
		err := h.Activities.Insert(ctx, ev)
		if err != nil && !errors.Is(err, repository.ErrUnavailable) {
			return err
		}
	}
	h.processed.Add(1)
	return nil
}

// Run starts the Kafka consumer for gateway events. One consumer per process;
// scale by running more replicas (the consumer group shares partitions).
func Run(ctx context.Context, h *Handler) {
	cfg := config.Get()
	brokers := queue.Brokers()
	if len(brokers) == 0 {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}
	topic := queue.Topic()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger.Info(ctx, "Kafka consumer started", "topic", topic, "group", cfg.KafkaGroupID)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Kafka consumer stopped", "processed", h.Processed())
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := h.Handle(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// commit anyway so a poison message does not block the partition
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}
