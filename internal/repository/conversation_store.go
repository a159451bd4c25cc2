package repository

import (
	"Stagelink/internal/model"
	"Stagelink/internal/pkg/consts"
	"Stagelink/internal/pkg/redis"
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// ConversationStore 按身份隔离的会话缓存
// 键为 im:conversations:<identity>，值为整份会话列表的 JSON
type ConversationStore interface {
	GetConversations(ctx context.Context, identity string) ([]*model.Conversation, error)
	SaveConversations(ctx context.Context, identity string, convs []*model.Conversation) error
}

type conversationStoreImpl struct{}

func NewConversationStore() ConversationStore {
	return &conversationStoreImpl{}
}

// GetConversations 读取整份缓存，键不存在视为空列表
func (s *conversationStoreImpl) GetConversations(ctx context.Context, identity string) ([]*model.Conversation, error) {
	raw, err := redis.GetValue(ctx, consts.ConversationsKey+identity)
	if err != nil {
		return nil, fmt.Errorf("load conversations for %q: %w", identity, err)
	}
	if raw == "" {
		return nil, nil
	}

	var convs []*model.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		return nil, fmt.Errorf("decode conversations for %q: %w", identity, err)
	}
	return convs, nil
}

// SaveConversations 整份覆盖写入
func (s *conversationStoreImpl) SaveConversations(ctx context.Context, identity string, convs []*model.Conversation) error {
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("encode conversations for %q: %w", identity, err)
	}
	if err := redis.SetValue(ctx, consts.ConversationsKey+identity, string(data)); err != nil {
		return fmt.Errorf("save conversations for %q: %w", identity, err)
	}
	return nil
}
