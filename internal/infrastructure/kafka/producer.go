package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/outletiq/reco-backend/internal/cfg"
	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

// Producer публикует события взаимодействий в Kafka для downstream-аналитики.
// Публикация best-effort: потеря события не влияет на запись в основной лог.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

// interactionEvent — JSON-схема события в топике.
type interactionEvent struct {
	EventID   string  `json:"event_id"`
	SessionID string  `json:"session_id"`
	UserEmail string  `json:"user_email,omitempty"`
	ProductID string  `json:"product_id"`
	Category  string  `json:"category,omitempty"`
	Brand     string  `json:"brand,omitempty"`
	Kind      string  `json:"kind"`
	Weight    float64 `json:"weight"`
	CreatedAt int64   `json:"created_at"`
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) (*Producer, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// PublishInteraction сериализует событие в JSON и пишет в топик.
// Ключ — session_id, чтобы события одной сессии попадали в одну партицию
// и сохраняли порядок.
func (p *Producer) PublishInteraction(ctx context.Context, inter *domain.Interaction) error {
	value, err := json.Marshal(interactionEvent{
		EventID:   uuid.NewString(),
		SessionID: inter.SessionID,
		UserEmail: inter.UserEmail,
		ProductID: inter.ProductID,
		Category:  inter.Category,
		Brand:     inter.Brand,
		Kind:      string(inter.Kind),
		Weight:    inter.Weight,
		CreatedAt: inter.CreatedAt.UnixNano(),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(inter.SessionID),
		Value: value,
	})
}

func (p *Producer) EnsureTopic(timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(p.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		err := conn.CreateTopics(kafka.TopicConfig{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, p.cfg.Topic))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
