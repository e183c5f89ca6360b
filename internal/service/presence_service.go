package service

import (
	"Chatify/internal/api/dto"
	"Chatify/internal/pkg/consts"
	"Chatify/internal/pkg/mongo"
	"Chatify/internal/repository"
	"context"
	log "log/slog"
	"sync"
	"time"
)

const (
	// presenceStaleWindow 心跳超过该窗口即视为离线
	presenceStaleWindow = 15 * time.Second
	// presenceSweepTick 离线巡检周期
	presenceSweepTick = 5 * time.Second
)

// PresenceService 在线状态服务。对每个用户只保留最近一次心跳的折叠结果，
// 上线/掉线是边沿触发的事件：缺席后的第一次心跳算作加入，心跳流停止由巡检
// 协程判定为离开。心跳处理永远不阻塞消息链路。
type PresenceService interface {
	Heartbeat(ctx context.Context, userID uint64, inChatTarget uint64, typing bool)
	Peer(ctx context.Context, userID, viewerID uint64) (*dto.PresenceDTO, error)
	IsOnline(userID uint64) bool
	Disconnect(ctx context.Context, userID uint64)
	OnJoin(fn func(userID uint64))
	Close()
}

type presenceRecord struct {
	onlineAt     time.Time
	inChatTarget uint64
	typing       bool
}

type presenceServiceImpl struct {
	userRepo repository.UserRepo
	bus      EventBus

	mu      sync.RWMutex
	records map[uint64]*presenceRecord
	onJoin  []func(userID uint64)

	nowFunc  func() time.Time
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPresenceService 构造函数：启动离线巡检协程
func NewPresenceService(userRepo repository.UserRepo, bus EventBus) PresenceService {
	s := &presenceServiceImpl{
		userRepo: userRepo,
		bus:      bus,
		records:  make(map[uint64]*presenceRecord),
		nowFunc:  time.Now,
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.janitor()

	return s
}

// OnJoin 注册用户加入回调。必须在流量进入前完成注册
func (s *presenceServiceImpl) OnJoin(fn func(userID uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJoin = append(s.onJoin, fn)
}

// Heartbeat 折叠最新心跳。缺席后的第一次心跳触发加入事件与回调
func (s *presenceServiceImpl) Heartbeat(ctx context.Context, userID uint64, inChatTarget uint64, typing bool) {
	now := s.nowFunc()

	s.mu.Lock()
	prev, existed := s.records[userID]
	s.records[userID] = &presenceRecord{
		onlineAt:     now,
		inChatTarget: inChatTarget,
		typing:       typing,
	}
	joined := !existed || now.Sub(prev.onlineAt) > presenceStaleWindow
	callbacks := s.onJoin
	s.mu.Unlock()

	if joined {
		if inChatTarget != 0 {
			_ = s.bus.PublishPresence(ctx, mongo.PairKey(userID, inChatTarget), &dto.ChatEvent{
				Type:    consts.EventPresenceJoin,
				Payload: map[string]interface{}{"user_id": userID},
			})
		}
		for _, fn := range callbacks {
			go fn(userID)
		}
		return
	}

	if inChatTarget != 0 {
		_ = s.bus.PublishPresence(ctx, mongo.PairKey(userID, inChatTarget), &dto.ChatEvent{
			Type: consts.EventPresenceSync,
			Payload: map[string]interface{}{
				"user_id": userID,
				"typing":  typing,
			},
		})
	}
}

// Peer 以 viewerID 的视角查看 userID 的状态
func (s *presenceServiceImpl) Peer(ctx context.Context, userID, viewerID uint64) (*dto.PresenceDTO, error) {
	now := s.nowFunc()

	s.mu.RLock()
	rec, ok := s.records[userID]
	s.mu.RUnlock()

	online := ok && now.Sub(rec.onlineAt) <= presenceStaleWindow
	view := &dto.PresenceDTO{
		UserID: userID,
		Online: online,
	}
	if online {
		view.InChat = rec.inChatTarget == viewerID
		view.Typing = view.InChat && rec.typing
		return view, nil
	}

	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		view.LastSeen = user.LastSeen
	}
	return view, nil
}

// IsOnline 心跳仍在新鲜窗口内即视为在线
func (s *presenceServiceImpl) IsOnline(userID uint64) bool {
	now := s.nowFunc()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	return ok && now.Sub(rec.onlineAt) <= presenceStaleWindow
}

// Disconnect 连接断开时立刻判定离开，不等巡检
func (s *presenceServiceImpl) Disconnect(ctx context.Context, userID uint64) {
	s.mu.Lock()
	rec, ok := s.records[userID]
	if ok {
		delete(s.records, userID)
	}
	s.mu.Unlock()

	if ok {
		s.leave(ctx, userID, rec)
	}
}

func (s *presenceServiceImpl) Close() {
	close(s.stopChan)
	s.wg.Wait()
}

// janitor 周期巡检：心跳停止的用户被判定为离开
func (s *presenceServiceImpl) janitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(presenceSweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			return
		}
	}
}

func (s *presenceServiceImpl) sweep() {
	now := s.nowFunc()

	s.mu.Lock()
	stale := make(map[uint64]*presenceRecord)
	for uid, rec := range s.records {
		if now.Sub(rec.onlineAt) > presenceStaleWindow {
			stale[uid] = rec
			delete(s.records, uid)
		}
	}
	s.mu.Unlock()

	for uid, rec := range stale {
		s.leave(context.Background(), uid, rec)
	}
}

// leave 发布离开事件并持久化最后在线时间
func (s *presenceServiceImpl) leave(ctx context.Context, userID uint64, rec *presenceRecord) {
	if rec.inChatTarget != 0 {
		_ = s.bus.PublishPresence(ctx, mongo.PairKey(userID, rec.inChatTarget), &dto.ChatEvent{
			Type:    consts.EventPresenceLeave,
			Payload: map[string]interface{}{"user_id": userID, "last_seen": rec.onlineAt},
		})
	}

	if err := s.userRepo.UpdateLastSeen(ctx, userID, rec.onlineAt); err != nil {
		log.Warn("最后在线时间落库失败", "user_id", userID, "error", err)
	}
}
