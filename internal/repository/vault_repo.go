package repository

import (
	"Chatify/internal/model"
	"context"

	"gorm.io/gorm"
)

type VaultRepo interface {
	CreateItem(ctx context.Context, item *model.VaultItem) error
	ListByOwner(ctx context.Context, ownerID uint64) ([]*model.VaultItem, error)
}

type VaultRepoImpl struct {
	db *gorm.DB
}

func NewVaultRepo(db *gorm.DB) VaultRepo {
	return &VaultRepoImpl{db: db}
}

func (s *VaultRepoImpl) CreateItem(ctx context.Context, item *model.VaultItem) error {
	result := s.db.WithContext(ctx).Create(item)
	return result.Error
}

func (s *VaultRepoImpl) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.VaultItem, error) {
	items := make([]*model.VaultItem, 0)
	result := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	return items, nil
}
