package service

import (
	"errors"
)

var (
	ErrIdentityEmpty        = errors.New("登录身份为空")
	ErrEngineStopped        = errors.New("同步引擎未启动")
	ErrTargetInvalid        = errors.New("目标身份无效")
	ErrMessageInvalid       = errors.New("消息字段不完整")
	ErrSendFailed           = errors.New("消息发送失败")
	ErrPayloadInvalid       = errors.New("推送载荷格式错误")
	ErrPayloadDuplicate     = errors.New("推送通知重复")
	ErrNotificationNotFound = errors.New("通知不存在")
	ErrConversationNotFound = errors.New("会话不存在")
)
