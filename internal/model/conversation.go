package model

// Conversation 本地缓存的会话
// 合并身份以 (From, To) 无序对为准，ID 仅作展示用途
type Conversation struct {
	ID       string     `json:"id"`
	From     string     `json:"from"`
	To       string     `json:"to"`
	Messages []*Message `json:"messages"`
	Archived bool       `json:"archived"`

	// Profile 对方资料快照，会话创建时写入后不再覆盖
	Profile *ProfileSnapshot `json:"profile,omitempty"`
}
