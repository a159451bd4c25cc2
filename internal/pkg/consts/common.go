package consts

const (
	// MaxConversationMessages 单个会话保留的消息窗口上限
	MaxConversationMessages = 50

	// MaxNotificationCards 单身份通知卡片保留上限
	MaxNotificationCards = 200
)

const (
	MsgStatusPending = "pending"
	MsgStatusSent    = "sent"
	MsgStatusFailed  = "failed"
)

const (
	PushTypeChatMessage = "chat_message"
)
