package model

import (
	"time"
)

type User struct {
	ID            uint64     `gorm:"primaryKey"`
	Username      *string    `gorm:"type:varchar(50);uniqueIndex:idx_username"`
	VaultPassword *string    `gorm:"type:varchar(255)"` // bcrypt 哈希，空表示未开通保险库
	LastSeen      *time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (User) TableName() string {
	return "users"
}
