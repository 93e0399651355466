package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/vendmach/vending-service/internal/infrastructure/redis"
	"github.com/vendmach/vending-service/internal/models"
)

// Consumer drops the cached inventory listing for a machine whenever a
// transaction against it changes state, so stale stock counts are never
// served from Redis.
type Consumer struct {
	reader      *kafka.Reader
	redisClient redis.RedisClient
}

func NewConsumer(brokers []string, topic, groupID string, redisClient redis.RedisClient) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		redisClient: redisClient,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		var event models.TransactionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal transaction event", "error", err)
			continue
		}

		switch event.EventType {
		case models.EventTransactionCreated, models.EventTransactionApproved, models.EventTransactionCancelled:
			key := redis.InventoryKey(event.VendingMachineID)
			if err := c.redisClient.Del(ctx, key); err != nil {
				slog.Error("failed to invalidate inventory cache", "key", key, "error", err)
				continue
			}
			slog.Info("inventory cache invalidated",
				"event_type", event.EventType,
				"event_id", event.EventID,
				"vending_machine_id", event.VendingMachineID)
		default:
			slog.Warn("unknown event type", "event_type", event.EventType)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
