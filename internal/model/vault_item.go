package model

import (
	"time"
)

type VaultItem struct {
	ID             uint64 `gorm:"primaryKey"`
	OwnerID        uint64 `gorm:"index:idx_owner;not null"`
	FileName       string `gorm:"type:varchar(255);not null"`
	SourceRef      string `gorm:"type:varchar(512);not null"` // 转存时刻的媒体引用快照
	SourceSenderID uint64 `gorm:"not null"`
	CreatedAt      time.Time
}

func (VaultItem) TableName() string {
	return "vault_items"
}
