package service

import (
	"Chatify/internal/api/dto"
	"Chatify/internal/model"
	"Chatify/internal/pkg/mongo"
	"Chatify/internal/pkg/security"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVaultRepo struct {
	mu    sync.Mutex
	items []*model.VaultItem
}

func (f *fakeVaultRepo) CreateItem(ctx context.Context, item *model.VaultItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = uint64(len(f.items) + 1)
	f.items = append(f.items, item)
	return nil
}

func (f *fakeVaultRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.VaultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.VaultItem
	for _, item := range f.items {
		if item.OwnerID == ownerID {
			out = append(out, item)
		}
	}
	return out, nil
}

func newTestVaultService(t *testing.T) (*vaultServiceImpl, *fakeUserRepo, *fakeVaultRepo, *fakeMessageRepo) {
	t.Helper()
	users := newFakeUserRepo()
	vault := &fakeVaultRepo{}
	messages := newFakeMessageRepo()

	hash, err := security.HashPassword("open-sesame")
	require.NoError(t, err)
	users.users[1] = &model.User{ID: 1, VaultPassword: &hash}

	svc := NewVaultService(users, vault, messages).(*vaultServiceImpl)
	svc.copyMedia = func(ctx context.Context, srcRef, destName string) (string, error) {
		return destName, nil
	}
	svc.tryLock = func(ctx context.Context, key string, value interface{}, expiration time.Duration, retryTimes int) (bool, error) {
		return true, nil
	}
	svc.unlock = func(ctx context.Context, key string, value interface{}) {}
	return svc, users, vault, messages
}

func seedMediaMessage(t *testing.T, messages *fakeMessageRepo, id string, sender, receiver uint64, ref string) {
	t.Helper()
	err := messages.Insert(context.Background(), &mongo.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    " ",
		MediaType:  mongo.MediaImage,
		MediaRef:   ref,
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)
}

func TestSetVaultPassword(t *testing.T) {
	svc, users, _, _ := newTestVaultService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetVaultPassword(ctx, 1, ""), ErrParamInvalid)
	assert.ErrorIs(t, svc.SetVaultPassword(ctx, 9, "secret"), UnauthorizedError)

	require.NoError(t, svc.SetVaultPassword(ctx, 1, "new-secret"))

	// 落库的是 bcrypt 散列而不是明文
	users.mu.Lock()
	hash := users.vaultHash[1]
	users.mu.Unlock()
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "new-secret", hash)
	assert.NoError(t, security.CheckPasswordHash("new-secret", hash))
}

func TestStoreToVault(t *testing.T) {
	svc, _, vault, messages := newTestVaultService(t)
	ctx := context.Background()
	seedMediaMessage(t, messages, "m1", 2, 1, "http://minio/chat-media/chat/2/photo.jpg")

	res, err := svc.StoreToVault(ctx, 1, &dto.VaultStoreReq{MessageID: "m1", Password: "open-sesame"})
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", res.FileName)
	assert.Equal(t, "vault/1/m1_photo.jpg", res.SourceRef)
	assert.Equal(t, uint64(2), res.SourceSenderID)

	// 转存是拷贝语义，源消息不受影响
	stored, err := messages.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "http://minio/chat-media/chat/2/photo.jpg", stored.MediaRef)

	require.Len(t, vault.items, 1)
	assert.Equal(t, uint64(1), vault.items[0].OwnerID)
}

func TestStoreToVaultPasswordChecks(t *testing.T) {
	svc, users, _, messages := newTestVaultService(t)
	ctx := context.Background()
	seedMediaMessage(t, messages, "m1", 2, 1, "chat/2/photo.jpg")

	_, err := svc.StoreToVault(ctx, 1, &dto.VaultStoreReq{MessageID: "m1", Password: "wrong"})
	assert.ErrorIs(t, err, ErrVaultPassword)

	users.users[3] = &model.User{ID: 3}
	seedMediaMessage(t, messages, "m2", 2, 3, "chat/2/photo.jpg")
	_, err = svc.StoreToVault(ctx, 3, &dto.VaultStoreReq{MessageID: "m2", Password: "x"})
	assert.ErrorIs(t, err, ErrVaultNotEnabled)

	_, err = svc.StoreToVault(ctx, 9, &dto.VaultStoreReq{MessageID: "m1", Password: "x"})
	assert.ErrorIs(t, err, UnauthorizedError)
}

func TestStoreToVaultMessageChecks(t *testing.T) {
	svc, _, _, messages := newTestVaultService(t)
	ctx := context.Background()

	_, err := svc.StoreToVault(ctx, 1, &dto.VaultStoreReq{MessageID: "missing", Password: "open-sesame"})
	assert.ErrorIs(t, err, ErrMessageNotFound)

	// 无媒体引用的消息不可转存
	require.NoError(t, messages.Insert(ctx, &mongo.Message{
		ID: "text1", SenderID: 2, ReceiverID: 1, Content: "hi", MediaType: mongo.MediaText,
	}))
	_, err = svc.StoreToVault(ctx, 1, &dto.VaultStoreReq{MessageID: "text1", Password: "open-sesame"})
	assert.ErrorIs(t, err, ErrMessageNoMedia)

	// 非会话成员不可转存
	seedMediaMessage(t, messages, "m3", 2, 3, "chat/2/photo.jpg")
	_, err = svc.StoreToVault(ctx, 1, &dto.VaultStoreReq{MessageID: "m3", Password: "open-sesame"})
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestStoreToVaultDuplicateTransfer(t *testing.T) {
	svc, _, _, messages := newTestVaultService(t)
	ctx := context.Background()
	seedMediaMessage(t, messages, "m1", 2, 1, "chat/2/photo.jpg")

	svc.tryLock = func(ctx context.Context, key string, value interface{}, expiration time.Duration, retryTimes int) (bool, error) {
		return false, nil
	}

	_, err := svc.StoreToVault(ctx, 1, &dto.VaultStoreReq{MessageID: "m1", Password: "open-sesame"})
	assert.ErrorIs(t, err, ErrActionDuplicate)
}

func TestStoreToVaultCopyFailureFallsBack(t *testing.T) {
	svc, _, vault, messages := newTestVaultService(t)
	ctx := context.Background()
	seedMediaMessage(t, messages, "m1", 2, 1, "chat/2/photo.jpg")

	svc.copyMedia = func(ctx context.Context, srcRef, destName string) (string, error) {
		return "", errors.New("minio unavailable")
	}

	// 对象拷贝尽力而为，失败时条目仍指向原始引用
	res, err := svc.StoreToVault(ctx, 1, &dto.VaultStoreReq{MessageID: "m1", Password: "open-sesame"})
	require.NoError(t, err)
	assert.Equal(t, "chat/2/photo.jpg", res.SourceRef)
	require.Len(t, vault.items, 1)
}

func TestListVault(t *testing.T) {
	svc, _, vault, _ := newTestVaultService(t)
	ctx := context.Background()

	vault.items = []*model.VaultItem{
		{ID: 1, OwnerID: 1, FileName: "a.jpg"},
		{ID: 2, OwnerID: 9, FileName: "b.jpg"},
		{ID: 3, OwnerID: 1, FileName: "c.jpg"},
	}

	res, err := svc.ListVault(ctx, 1)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a.jpg", res[0].FileName)
	assert.Equal(t, "c.jpg", res[1].FileName)
}
