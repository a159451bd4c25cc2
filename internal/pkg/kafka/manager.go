package kafka

import (
	"Stagelink/internal/config"
	"Stagelink/internal/service"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理推送通知消费者
type ConsumerManager struct {
	pushConsumer sarama.ConsumerGroup
	pushHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, syncService service.SyncService) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	pushConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaPushConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}
	pushHandler := NewPushHandler(syncService)

	return &ConsumerManager{
		pushConsumer: pushConsumer,
		pushHandler:  pushHandler,
	}, nil
}

// Start 启动消费者，阻塞直到 ctx 取消
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go func() {
		topic := cfg.KafkaPushConsumer.Topic
		log.Info("Push consumer started", "topic", topic)
		for {
			if err := m.pushConsumer.Consume(ctx, []string{topic}, m.pushHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.pushConsumer.Close(); err != nil {
		log.Error("Failed to close push consumer", "err", err)
	}

	return nil
}
