package service

import (
	"Stagelink/internal/model"
	"Stagelink/internal/pkg/consts"
	"Stagelink/internal/pkg/util"
	"Stagelink/internal/repository"
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// NotificationService 推送通知侧边通道
// 卡片列表按登录身份隔离存储，与聊天消息互不影响
type NotificationService interface {
	Ingest(ctx context.Context, identity string, payload *model.PushPayload) (*model.NotificationCard, error)
	List(ctx context.Context, identity string) ([]*model.NotificationCard, error)
	MarkRead(ctx context.Context, identity string, cardID string) error
}

type notificationServiceImpl struct {
	store    repository.NotificationStore
	validate *validator.Validate
}

func NewNotificationService(store repository.NotificationStore) NotificationService {
	return &notificationServiceImpl{
		store:    store,
		validate: validator.New(),
	}
}

// Ingest 接收平台推送载荷并落为通知卡片
// 最小形状校验不通过的载荷直接丢弃；同 ID 卡片拒绝重复入列
func (s *notificationServiceImpl) Ingest(ctx context.Context, identity string, payload *model.PushPayload) (*model.NotificationCard, error) {
	identity = util.NormalizeIdentity(identity)
	if identity == "" {
		return nil, ErrIdentityEmpty
	}
	if payload == nil {
		return nil, ErrPayloadInvalid
	}
	if err := s.validate.Struct(payload); err != nil {
		return nil, ErrPayloadInvalid
	}

	receivedAt, err := util.NormalizeTimestamp(payload.Timestamp)
	if err != nil {
		receivedAt = time.Now().UnixMilli()
	}

	// 显式 ID 优先；缺失时用 (类型, 发送方, 接收时刻) 合成启发式去重键
	cardID := payload.ID
	if cardID == "" {
		cardID = fmt.Sprintf("%s:%s:%d", payload.Type, util.NormalizeIdentity(payload.Sender), receivedAt)
	}

	cards, err := s.store.GetNotifications(ctx, identity)
	if err != nil {
		return nil, err
	}
	for _, card := range cards {
		if card.ID == cardID {
			return nil, ErrPayloadDuplicate
		}
	}

	card := &model.NotificationCard{
		ID:         cardID,
		Type:       payload.Type,
		Sender:     util.NormalizeIdentity(payload.Sender),
		Body:       payload.Body,
		ReceivedAt: receivedAt,
	}
	cards = append(cards, card)

	// 超出上限时淘汰最旧的卡片
	if len(cards) > consts.MaxNotificationCards {
		cards = cards[len(cards)-consts.MaxNotificationCards:]
	}

	if err := s.store.SaveNotifications(ctx, identity, cards); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *notificationServiceImpl) List(ctx context.Context, identity string) ([]*model.NotificationCard, error) {
	identity = util.NormalizeIdentity(identity)
	if identity == "" {
		return nil, ErrIdentityEmpty
	}
	return s.store.GetNotifications(ctx, identity)
}

// MarkRead 标记单张卡片为已读
func (s *notificationServiceImpl) MarkRead(ctx context.Context, identity string, cardID string) error {
	identity = util.NormalizeIdentity(identity)
	if identity == "" {
		return ErrIdentityEmpty
	}

	cards, err := s.store.GetNotifications(ctx, identity)
	if err != nil {
		return err
	}
	for _, card := range cards {
		if card.ID == cardID {
			card.Read = true
			return s.store.SaveNotifications(ctx, identity, cards)
		}
	}
	return ErrNotificationNotFound
}
