package kafka

import (
	"Stagelink/internal/service"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
)

// PushHandler 推送通知消费者：把平台推送喂给同步引擎
type PushHandler struct {
	syncService service.SyncService
}

func NewPushHandler(syncService service.SyncService) *PushHandler {
	return &PushHandler{
		syncService: syncService,
	}
}

func (s *PushHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("push consumer setup")
	return nil
}

func (s *PushHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("push consumer cleanup")
	return nil
}

func (s *PushHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-push consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("process batch error", "err", err)
		return err
	}
	log.Info("topic-push consume claim end")
	return nil
}

func (s *PushHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	payload, err := ToPushPayload(msg)
	if err != nil {
		// 解析不了的载荷直接丢弃，不进重试
		log.WarnContext(ctx, "丢弃无法解析的推送载荷", "err", err)
		return nil
	}

	err = s.syncService.IngestPushPayload(ctx, payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrPayloadInvalid):
		// 形状不合法：丢弃而不是排队
		log.WarnContext(ctx, "丢弃非法推送载荷", "type", payload.Type)
		return nil
	case errors.Is(err, service.ErrEngineStopped):
		// 当前无登录身份：推送无条件丢弃
		log.InfoContext(ctx, "引擎未启动，忽略推送", "type", payload.Type)
		return nil
	default:
		return err
	}
}
