package kafka

import (
	"Stagelink/internal/model"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	batchSize    = 32
	batchTimeout = 1 * time.Second
	maxAttempts  = 3
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 拉取一批消息并执行业务逻辑
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				if len(batch) > 0 {
					processBatch(session, batch, logic)
				}
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 顺序处理一批推送，有限次重试后放弃
// 协调合并幂等，放弃的消息等下一批自然收敛，不做死循环重试
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic LogicFunc) {
	for _, msg := range messages {
		retryInterval := 100 * time.Millisecond

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := logic(session.Context(), msg)
			if err == nil {
				break
			}
			if session.Context().Err() != nil {
				return
			}
			log.Error("process push message error", "attempt", attempt, "err", err)
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	if len(messages) > 0 {
		lastMsg := messages[len(messages)-1]
		session.MarkMessage(lastMsg, "")
	}
}

// ToPushPayload 将 kafka 消息解析为推送载荷
func ToPushPayload(msg *sarama.ConsumerMessage) (*model.PushPayload, error) {
	var payload model.PushPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal push payload")
	}
	return &payload, nil
}
