package model

// NotificationCard 推送通知卡片，独立于聊天消息的侧边存储
type NotificationCard struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Sender     string `json:"sender,omitempty"`
	Body       string `json:"body"`
	ReceivedAt int64  `json:"received_at"`
	Read       bool   `json:"read"`
}

// PushPayload 平台推送边界的原始载荷
type PushPayload struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type" validate:"required"`
	Sender    string `json:"sender,omitempty"`
	Body      string `json:"body" validate:"required"`
	Timestamp any    `json:"timestamp,omitempty"`
}
