package mongo

import (
	"fmt"
	"time"
)

// MediaType 消息媒体类型，闭合枚举
type MediaType string

const (
	MediaText     MediaType = "text"
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaLocation MediaType = "location"
	MediaSnapshot MediaType = "snapshot" // 阅后即焚快照，强制 view-once
)

// Valid 校验媒体类型取值
func (t MediaType) Valid() bool {
	switch t {
	case MediaText, MediaImage, MediaVideo, MediaAudio, MediaLocation, MediaSnapshot:
		return true
	}
	return false
}

// RequiresRef 除纯文本外都必须携带媒体引用
func (t MediaType) RequiresRef() bool {
	return t != MediaText
}

// Message MongoDB 消息明细模型
type Message struct {
	ID          string            `bson:"_id" json:"id"`                            // 消息 UUID
	SenderID    uint64            `bson:"sender_id" json:"senderId"`                // 发送者 UID
	ReceiverID  uint64            `bson:"receiver_id" json:"receiverId"`            // 接收者 UID
	Content     string            `bson:"content" json:"content"`                   // 文本内容 (空发送补位为单个空格)
	MediaType   MediaType         `bson:"media_type" json:"mediaType"`              // text/image/video/audio/location/snapshot
	MediaRef    string            `bson:"media_ref,omitempty" json:"mediaRef"`      // 外部媒体引用 (URL 或对象键)
	IsDelivered bool              `bson:"is_delivered" json:"isDelivered"`
	DeliveredAt *time.Time        `bson:"delivered_at,omitempty" json:"deliveredAt"`
	IsViewed    bool              `bson:"is_viewed" json:"isViewed"`
	ViewedAt    *time.Time        `bson:"viewed_at,omitempty" json:"viewedAt"`
	ViewCount   int               `bson:"view_count" json:"viewCount"` // 只增不减
	IsSaved     bool              `bson:"is_saved" json:"isSaved"`     // 保存后豁免一切过期清理
	IsViewOnce  bool              `bson:"is_view_once" json:"isViewOnce"`
	ExpiresAt   *time.Time        `bson:"expires_at,omitempty" json:"expiresAt"`
	Reactions   map[string]string `bson:"reactions,omitempty" json:"reactions"` // UID(十进制字符串) -> emoji
	Revision    uint64            `bson:"revision" json:"revision"`             // 每次变更自增，供消费端去重
	CreatedAt   time.Time         `bson:"created_at" json:"createdAt"`
}

// Participant 判断用户是否为消息所在会话的成员
func (m *Message) Participant(userID uint64) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// PairKey 会话对标识
func (m *Message) PairKey() string {
	return PairKey(m.SenderID, m.ReceiverID)
}

// ExpiryEligible 过期清理判定：未保存 且 (已到期 或 阅后即焚且已查看)
func (m *Message) ExpiryEligible(now time.Time) bool {
	if m.IsSaved {
		return false
	}
	if m.ExpiresAt != nil && !m.ExpiresAt.After(now) {
		return true
	}
	return m.IsViewOnce && m.IsViewed
}

// PairKey 生成单聊唯一标识，小 UID 在前
func PairKey(userID, targetUserID uint64) string {
	if userID < targetUserID {
		return fmt.Sprintf("%d_%d", userID, targetUserID)
	}
	return fmt.Sprintf("%d_%d", targetUserID, userID)
}
