package service

import (
	"Stagelink/internal/model"
	"Stagelink/internal/pkg/consts"
	"Stagelink/internal/pkg/util"
	"crypto/sha1"
	"fmt"
	log "log/slog"
	"sort"

	"github.com/jinzhu/copier"
)

// Reconcile 会话协调：将一批入站消息合并进现有缓存，产出下一份缓存状态
// 纯函数：不修改入参，相同输入产出逐字节相同的输出
// 所有注入点（订阅批次、乐观发送、推送折叠）都必须走这里，不允许旁路
func Reconcile(existing []*model.Conversation, incoming []*model.Message, selfIdentity string) []*model.Conversation {
	self := util.NormalizeIdentity(selfIdentity)

	next := cloneConversations(existing)

	index := make(map[string]*model.Conversation, len(next))
	for _, conv := range next {
		index[util.PairKey(conv.From, conv.To)] = conv
	}

	for _, raw := range incoming {
		msg, err := sanitizeIncoming(raw)
		if err != nil {
			// 非法消息丢弃，批次剩余部分继续
			log.Warn("丢弃非法入站消息", "err", err)
			continue
		}

		key := util.PairKey(msg.Sender, msg.Recipient)
		conv, ok := index[key]
		if !ok {
			conv = &model.Conversation{
				ID:   key,
				From: msg.Sender,
				To:   msg.Recipient,
			}
			// 资料快照只在会话创建时固化，之后不再覆盖
			if msg.Profile != nil {
				conv.Profile = msg.Profile
			}
			next = append(next, conv)
			index[key] = conv
		}
		conv.Messages = append(conv.Messages, msg)
	}

	for _, conv := range next {
		conv.Messages = compactMessages(conv.Messages, self)
	}
	return next
}

// sanitizeIncoming 入站消息整形：身份归一化、必填校验、缺失 ID 合成
func sanitizeIncoming(raw *model.Message) (*model.Message, error) {
	if raw == nil {
		return nil, ErrMessageInvalid
	}
	msg := *raw
	msg.Sender = util.NormalizeIdentity(msg.Sender)
	msg.Recipient = util.NormalizeIdentity(msg.Recipient)
	if msg.Sender == "" || msg.Recipient == "" {
		return nil, ErrMessageInvalid
	}
	if msg.Timestamp <= 0 {
		return nil, ErrMessageInvalid
	}
	if msg.Status == "" {
		msg.Status = consts.MsgStatusSent
	}
	if msg.ID == "" {
		// ID 缺失时用 (会话, 文本, 秒) 合成启发式去重键
		sum := sha1.Sum([]byte(msg.Text))
		msg.ID = fmt.Sprintf("%s:%d:%x", util.PairKey(msg.Sender, msg.Recipient), msg.Timestamp/1000, sum[:6])
	}
	return &msg, nil
}

// compactMessages 对整个消息列表做 ID 去重（后到覆盖先到）、排序、截窗与已读重算
// 截窗规则：按时间降序取前 50 条再反转，保证留下的永远是最新的 50 条
func compactMessages(msgs []*model.Message, self string) []*model.Message {
	byID := make(map[string]*model.Message, len(msgs))
	order := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if _, seen := byID[m.ID]; !seen {
			order = append(order, m.ID)
		}
		byID[m.ID] = m
	}

	list := make([]*model.Message, 0, len(order))
	for _, id := range order {
		list = append(list, byID[id])
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timestamp != list[j].Timestamp {
			return list[i].Timestamp > list[j].Timestamp
		}
		return list[i].ID > list[j].ID
	})
	if len(list) > consts.MaxConversationMessages {
		list = list[:consts.MaxConversationMessages]
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}

	// 已读语义：自己发出的消息视为已读，对方的消息一律未读
	for _, m := range list {
		m.Read = m.Sender == self
	}
	return list
}

func cloneConversations(convs []*model.Conversation) []*model.Conversation {
	if len(convs) == 0 {
		return nil
	}
	next := make([]*model.Conversation, 0, len(convs))
	if err := copier.CopyWithOption(&next, convs, copier.Option{DeepCopy: true}); err != nil {
		log.Error("clone conversations error", "err", err)
		return nil
	}
	return next
}
