package consts

const (
	ConversationsKey = "im:conversations:"
	NotificationsKey = "im:notifications:"
	IMUserKey        = "im:user:"
	IMUnreadKey      = "im:unread:"
	IMIdentityKey    = "im:identity"
)
