package repository

import (
	"Stagelink/internal/model"
	"Stagelink/internal/pkg/consts"
	"Stagelink/internal/pkg/redis"
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// NotificationStore 按身份隔离的通知卡片存储
// 不同身份的列表永不合并
type NotificationStore interface {
	GetNotifications(ctx context.Context, identity string) ([]*model.NotificationCard, error)
	SaveNotifications(ctx context.Context, identity string, cards []*model.NotificationCard) error
}

type notificationStoreImpl struct{}

func NewNotificationStore() NotificationStore {
	return &notificationStoreImpl{}
}

func (s *notificationStoreImpl) GetNotifications(ctx context.Context, identity string) ([]*model.NotificationCard, error) {
	raw, err := redis.GetValue(ctx, consts.NotificationsKey+identity)
	if err != nil {
		return nil, fmt.Errorf("load notifications for %q: %w", identity, err)
	}
	if raw == "" {
		return nil, nil
	}

	var cards []*model.NotificationCard
	if err := json.Unmarshal([]byte(raw), &cards); err != nil {
		return nil, fmt.Errorf("decode notifications for %q: %w", identity, err)
	}
	return cards, nil
}

func (s *notificationStoreImpl) SaveNotifications(ctx context.Context, identity string, cards []*model.NotificationCard) error {
	data, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("encode notifications for %q: %w", identity, err)
	}
	if err := redis.SetValue(ctx, consts.NotificationsKey+identity, string(data)); err != nil {
		return fmt.Errorf("save notifications for %q: %w", identity, err)
	}
	return nil
}
