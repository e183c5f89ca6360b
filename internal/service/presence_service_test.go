package service

import (
	"Chatify/internal/model"
	"Chatify/internal/pkg/consts"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[uint64]*model.User
	lastSeen  map[uint64]time.Time
	vaultHash map[uint64]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     make(map[uint64]*model.User),
		lastSeen:  make(map[uint64]time.Time),
		vaultHash: make(map[uint64]string),
	}
}

func (f *fakeUserRepo) GetUserById(ctx context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeUserRepo) UpdateLastSeen(ctx context.Context, id uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSeen[id] = at
	return nil
}

func (f *fakeUserRepo) UpdateVaultPassword(ctx context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vaultHash[id] = hash
	if u, ok := f.users[id]; ok {
		h := hash
		u.VaultPassword = &h
	}
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPresence(t *testing.T) (*presenceServiceImpl, *fakeUserRepo, *fakeBus, *fakeClock) {
	t.Helper()
	users := newFakeUserRepo()
	bus := &fakeBus{}
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}

	// 不启动巡检协程，离线判定在用例里直接调用 sweep
	svc := &presenceServiceImpl{
		userRepo: users,
		bus:      bus,
		records:  make(map[uint64]*presenceRecord),
		nowFunc:  clock.Now,
		stopChan: make(chan struct{}),
	}
	return svc, users, bus, clock
}

func TestHeartbeatFold(t *testing.T) {
	svc, _, _, _ := newTestPresence(t)
	ctx := context.Background()

	svc.Heartbeat(ctx, 1, 2, false)
	svc.Heartbeat(ctx, 1, 2, true)

	view, err := svc.Peer(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, view.Online)
	assert.True(t, view.InChat)
	assert.True(t, view.Typing)

	// 其他观察者看不到 in_chat 与 typing
	view, err = svc.Peer(ctx, 1, 3)
	require.NoError(t, err)
	assert.True(t, view.Online)
	assert.False(t, view.InChat)
	assert.False(t, view.Typing)
}

func TestStaleHeartbeatReadsOffline(t *testing.T) {
	svc, users, _, clock := newTestPresence(t)
	ctx := context.Background()

	seen := clock.Now().Add(-time.Hour)
	users.users[1] = &model.User{ID: 1, LastSeen: &seen}

	svc.Heartbeat(ctx, 1, 2, true)
	assert.True(t, svc.IsOnline(1))

	clock.Advance(presenceStaleWindow + time.Second)
	assert.False(t, svc.IsOnline(1))

	// 过期心跳之后 typing 一律不可信
	view, err := svc.Peer(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, view.Online)
	assert.False(t, view.Typing)
	require.NotNil(t, view.LastSeen)
	assert.Equal(t, seen, *view.LastSeen)
}

func TestJoinIsEdgeTriggered(t *testing.T) {
	svc, _, _, clock := newTestPresence(t)
	ctx := context.Background()

	joined := make(chan uint64, 8)
	svc.OnJoin(func(userID uint64) { joined <- userID })

	svc.Heartbeat(ctx, 1, 2, false)
	select {
	case uid := <-joined:
		assert.Equal(t, uint64(1), uid)
	case <-time.After(time.Second):
		t.Fatal("expected join callback on first heartbeat")
	}

	// 持续心跳不再触发
	svc.Heartbeat(ctx, 1, 2, false)
	svc.Heartbeat(ctx, 1, 2, true)
	select {
	case <-joined:
		t.Fatal("join callback must be edge triggered")
	case <-time.After(50 * time.Millisecond):
	}

	// 缺席后的第一次心跳再次算作加入
	clock.Advance(presenceStaleWindow + time.Second)
	svc.Heartbeat(ctx, 1, 2, false)
	select {
	case uid := <-joined:
		assert.Equal(t, uint64(1), uid)
	case <-time.After(time.Second):
		t.Fatal("expected join callback after absence")
	}
}

func TestSweepDetectsLeave(t *testing.T) {
	svc, users, bus, clock := newTestPresence(t)
	ctx := context.Background()

	svc.Heartbeat(ctx, 1, 2, false)
	onlineAt := clock.Now()

	clock.Advance(presenceStaleWindow + time.Second)
	svc.sweep()

	assert.False(t, svc.IsOnline(1))
	assert.Contains(t, bus.typesSeen(), consts.EventPresenceLeave)

	users.mu.Lock()
	defer users.mu.Unlock()
	assert.Equal(t, onlineAt, users.lastSeen[1])
}

func TestDisconnectIsImmediateLeave(t *testing.T) {
	svc, users, bus, clock := newTestPresence(t)
	ctx := context.Background()

	svc.Heartbeat(ctx, 1, 2, false)
	onlineAt := clock.Now()
	svc.Disconnect(ctx, 1)

	assert.False(t, svc.IsOnline(1))
	assert.Contains(t, bus.typesSeen(), consts.EventPresenceLeave)

	users.mu.Lock()
	defer users.mu.Unlock()
	assert.Equal(t, onlineAt, users.lastSeen[1])

	// 重复断开是无操作
	svc.Disconnect(ctx, 1)
}
