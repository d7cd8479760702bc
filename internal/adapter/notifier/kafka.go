package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/core/domain"
)

// KafkaNotifier publishes order-paid events for downstream consumers
// (email, gamification, reporting). Delivery is fire-and-forget; failures
// are logged from the producer's event channel.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

type orderPaidMessage struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	TotalCents int64     `json:"total_cents"`
	Provider   string    `json:"provider"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewKafkaNotifier(bootstrapServers, topic string, logger *zap.Logger) (*KafkaNotifier, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": bootstrapServers})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	n := &KafkaNotifier{producer: p, topic: topic, logger: logger}
	go n.deliveryLoop()
	return n, nil
}

func (n *KafkaNotifier) deliveryLoop() {
	for e := range n.producer.Events() {
		if msg, ok := e.(*kafka.Message); ok && msg.TopicPartition.Error != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("topic", n.topic),
				zap.Error(msg.TopicPartition.Error),
			)
		}
	}
}

func (n *KafkaNotifier) NotifyOrderPaid(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(orderPaidMessage{
		Event:      "order.paid",
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalCents: order.TotalCents,
		Provider:   order.PaymentProvider,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order-paid message: %w", err)
	}

	return n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &n.topic, Partition: kafka.PartitionAny},
		Key:            []byte(order.ID),
		Value:          payload,
	}, nil)
}

func (n *KafkaNotifier) Close() {
	n.producer.Flush(5000)
	n.producer.Close()
}
