package service

import (
	"Stagelink/internal/model"
	"Stagelink/internal/pkg/util"
)

// ComputeUnread 未读数全量重算
// 统计所有非归档会话中 sender != self 且未读的消息
// 必须每次从当前状态重算，禁止增量计数（增量计数是漂移缺陷的来源）
func ComputeUnread(convs []*model.Conversation, selfIdentity string) int {
	self := util.NormalizeIdentity(selfIdentity)

	count := 0
	for _, conv := range convs {
		if conv == nil || conv.Archived {
			continue
		}
		for _, msg := range conv.Messages {
			if msg.Sender != self && !msg.Read {
				count++
			}
		}
	}
	return count
}
