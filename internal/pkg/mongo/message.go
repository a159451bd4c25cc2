package mongo

import (
	"Stagelink/internal/model"
	"Stagelink/internal/pkg/consts"
	"Stagelink/internal/pkg/util"
	"time"
)

// Message MongoDB 消息明细模型
type Message struct {
	ID        string                 `bson:"_id" json:"id"`                        // 远端分配或乐观发送时本地生成
	Sender    string                 `bson:"sender" json:"sender"`                 // 发送方身份键
	Recipient string                 `bson:"recipient" json:"recipient"`           // 接收方身份键
	Text      string                 `bson:"text" json:"text"`                     // 消息正文
	SentAt    time.Time              `bson:"sent_at" json:"sentAt"`                // 远端服务器时间
	Profile   *model.ProfileSnapshot `bson:"profile,omitempty" json:"profile,omitempty"` // 首条消息携带的资料快照
}

// ToModel 文档转缓存模型，时间在此处一次性归一化
func (s *Message) ToModel() *model.Message {
	ts, err := util.NormalizeTimestamp(s.SentAt)
	if err != nil {
		ts = 0 // 协调器负责丢弃非法时间的消息
	}
	return &model.Message{
		ID:        s.ID,
		Sender:    s.Sender,
		Recipient: s.Recipient,
		Text:      s.Text,
		Timestamp: ts,
		Status:    consts.MsgStatusSent,
		Profile:   s.Profile,
	}
}
