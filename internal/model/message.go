package model

// Message 单条聊天消息
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // 毫秒时间戳，入口处已归一化
	Read      bool   `json:"read"`      // sender == 当前登录身份 即视为已读
	Status    string `json:"status,omitempty"`

	// Profile 对方资料快照，仅在会话创建时随首条消息携带
	Profile *ProfileSnapshot `json:"profile,omitempty"`
}

// ProfileSnapshot 会话创建时固化的对方资料快照
// 固化后不随后续消息刷新
type ProfileSnapshot struct {
	Name       string `json:"name"`
	PhotoURL   string `json:"photo_url"`
	Category   string `json:"category"`
	Membership string `json:"membership"`
}
