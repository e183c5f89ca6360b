package dto

import "time"

// VaultStoreReq 转存保险库请求
type VaultStoreReq struct {
	MessageID string `json:"message_id" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// VaultPasswordReq 设置保险库密码请求
type VaultPasswordReq struct {
	Password string `json:"password" binding:"required"`
}

// VaultItemDTO 保险库条目响应
type VaultItemDTO struct {
	ID             uint64    `json:"id"`
	FileName       string    `json:"file_name"`
	SourceRef      string    `json:"source_ref"`
	SourceSenderID uint64    `json:"source_sender_id"`
	CreatedAt      time.Time `json:"createdAt"`
}
