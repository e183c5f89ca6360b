package service

import (
	"Chatify/internal/api/dto"
	"Chatify/internal/model"
	"Chatify/internal/pkg/consts"
	"Chatify/internal/pkg/minio"
	"Chatify/internal/pkg/mongo"
	"Chatify/internal/pkg/redis"
	"Chatify/internal/pkg/security"
	"Chatify/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

// VaultService 保险库服务接口定义。转存是拷贝语义，源消息不受影响
type VaultService interface {
	SetVaultPassword(ctx context.Context, ownerID uint64, password string) error
	StoreToVault(ctx context.Context, ownerID uint64, req *dto.VaultStoreReq) (*dto.VaultItemDTO, error)
	ListVault(ctx context.Context, ownerID uint64) ([]*dto.VaultItemDTO, error)
}

type vaultServiceImpl struct {
	userRepo    repository.UserRepo
	vaultRepo   repository.VaultRepo
	messageRepo mongo.MessageRepo

	copyMedia func(ctx context.Context, srcRef, destName string) (string, error)
	tryLock   func(ctx context.Context, key string, value interface{}, expiration time.Duration, retryTimes int) (bool, error)
	unlock    func(ctx context.Context, key string, value interface{})
}

func NewVaultService(userRepo repository.UserRepo, vaultRepo repository.VaultRepo, messageRepo mongo.MessageRepo) VaultService {
	return &vaultServiceImpl{
		userRepo:    userRepo,
		vaultRepo:   vaultRepo,
		messageRepo: messageRepo,
		copyMedia:   minio.CopyToVault,
		tryLock:     redis.TryLock,
		unlock:      redis.UnLock,
	}
}

// SetVaultPassword 设置或更换保险库密码，只存 bcrypt 散列
func (s *vaultServiceImpl) SetVaultPassword(ctx context.Context, ownerID uint64, password string) error {
	if password == "" {
		return ErrParamInvalid
	}

	user, err := s.userRepo.GetUserById(ctx, ownerID)
	if err != nil {
		return err
	}
	if user == nil {
		return UnauthorizedError
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateVaultPassword(ctx, ownerID, hash)
}

// StoreToVault 核验保险库密码后将消息媒体转存为保险库条目
func (s *vaultServiceImpl) StoreToVault(ctx context.Context, ownerID uint64, req *dto.VaultStoreReq) (*dto.VaultItemDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, UnauthorizedError
	}
	if user.VaultPassword == nil || *user.VaultPassword == "" {
		return nil, ErrVaultNotEnabled
	}
	if err := security.CheckPasswordHash(req.Password, *user.VaultPassword); err != nil {
		return nil, ErrVaultPassword
	}

	msg, err := s.messageRepo.GetByID(ctx, req.MessageID)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if !msg.Participant(ownerID) {
		return nil, ErrNotParticipant
	}
	if msg.MediaRef == "" {
		return nil, ErrMessageNoMedia
	}

	// 同一条消息的并发转存只放行一个
	lockKey := consts.VaultTransferLock + fmt.Sprintf("%d:%s", ownerID, msg.ID)
	lockValue := uuid.NewString()
	locked, err := s.tryLock(ctx, lockKey, lockValue, 30*time.Second, 1)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrActionDuplicate
	}
	defer s.unlock(ctx, lockKey, lockValue)

	fileName := path.Base(minio.ObjectKeyFromRef(msg.MediaRef))
	if fileName == "" || fileName == "." || fileName == "/" {
		fileName = msg.ID
	}

	// 对象拷贝尽力而为，失败时条目仍指向原始媒体引用
	sourceRef := msg.MediaRef
	destName := fmt.Sprintf("vault/%d/%s_%s", ownerID, msg.ID, fileName)
	if ref, err := s.copyMedia(ctx, msg.MediaRef, destName); err != nil {
		log.WarnContext(ctx, "保险库对象拷贝失败", "message_id", msg.ID, "error", err)
	} else {
		sourceRef = ref
	}

	item := &model.VaultItem{
		OwnerID:        ownerID,
		FileName:       fileName,
		SourceRef:      sourceRef,
		SourceSenderID: msg.SenderID,
	}
	if err := s.vaultRepo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	out := &dto.VaultItemDTO{}
	_ = copier.Copy(out, item)
	return out, nil
}

// ListVault 拉取保险库条目，按转存时间倒序
func (s *vaultServiceImpl) ListVault(ctx context.Context, ownerID uint64) ([]*dto.VaultItemDTO, error) {
	items, err := s.vaultRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.VaultItemDTO, 0, len(items))
	for _, item := range items {
		out := &dto.VaultItemDTO{}
		_ = copier.Copy(out, item)
		result = append(result, out)
	}
	return result, nil
}
