package consts

const (
	// SnapshotViewLimit 阅后即焚消息的接收方最大打开次数
	SnapshotViewLimit = 2
	// MessagePreviewLimit 推送预览的最大字符数
	MessagePreviewLimit = 50
)

const (
	// 自动销毁模式 (来自客户端的原始取值)
	AutoDeleteNone = "none"
	AutoDeleteView = "view"
	AutoDelete3H   = "3h"
)

const (
	EventMessageNew    = "MESSAGE_NEW"
	EventMessageUpdate = "MESSAGE_UPDATE"
	EventMessageDelete = "MESSAGE_DELETE"
	EventPresenceJoin  = "PRESENCE_JOIN"
	EventPresenceLeave = "PRESENCE_LEAVE"
	EventPresenceSync  = "PRESENCE_SYNC"
)
