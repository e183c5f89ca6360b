package consts

const (
	// ChatPairKey 会话消息事件频道前缀，后接 "loUID_hiUID"
	ChatPairKey = "chat:pair:"
	// ChatPresenceKey 会话在线状态事件频道前缀，后接 "loUID_hiUID"
	ChatPresenceKey = "chat:presence:"
)

const (
	VaultTransferLock = "vault:transfer:lock:"
)
