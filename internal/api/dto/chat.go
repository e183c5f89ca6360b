package dto

import "time"

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	ReceiverID     uint64 `json:"receiver_id" binding:"required"`
	Content        string `json:"content"`
	MediaType      string `json:"media_type" binding:"required"` // text/image/video/audio/location/snapshot
	MediaRef       string `json:"media_ref"`
	AutoDeleteMode string `json:"auto_delete_mode"` // none/view/3h，缺省 none
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID          string            `json:"id"`
	SenderID    uint64            `json:"sender_id"`
	ReceiverID  uint64            `json:"receiver_id"`
	Content     string            `json:"content"`
	MediaType   string            `json:"media_type"`
	MediaRef    string            `json:"media_ref,omitempty"`
	IsDelivered bool              `json:"is_delivered"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
	IsViewed    bool              `json:"is_viewed"`
	ViewedAt    *time.Time        `json:"viewed_at,omitempty"`
	ViewCount   int               `json:"view_count"`
	IsSaved     bool              `json:"is_saved"`
	IsViewOnce  bool              `json:"is_view_once"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	Reactions   map[string]string `json:"reactions,omitempty"`
	Revision    uint64            `json:"revision"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// MarkDeliveredReq 批量送达回执请求
type MarkDeliveredReq struct {
	MessageIDs []string `json:"message_ids" binding:"required,min=1"`
}

// MarkViewedReq 批量已读回执请求 (普通消息)
type MarkViewedReq struct {
	MessageIDs []string `json:"message_ids" binding:"required,min=1"`
}

// ReactReq 表情回应请求
type ReactReq struct {
	Emoji string `json:"emoji" binding:"required"`
}

// ToggleSavedRes 保存开关结果。Purged 为真表示取消保存后消息被立即清除
type ToggleSavedRes struct {
	Saved  bool `json:"saved"`
	Purged bool `json:"purged"`
}

// PresenceDTO 对端视角的在线状态
type PresenceDTO struct {
	UserID   uint64     `json:"user_id"`
	Online   bool       `json:"online"`
	InChat   bool       `json:"in_chat"`
	Typing   bool       `json:"typing"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// HeartbeatMsg WebSocket 客户端心跳帧
type HeartbeatMsg struct {
	Type         string `json:"type"` // "heartbeat"
	InChatTarget uint64 `json:"in_chat_target"`
	Typing       bool   `json:"typing"`
}

// ChatEvent 会话变更事件信封，Revision 供消费端按 id+revision 去重
type ChatEvent struct {
	Type     string      `json:"type"`
	ID       string      `json:"id,omitempty"`
	Revision uint64      `json:"revision,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
}
