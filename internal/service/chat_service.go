package service

import (
	"Chatify/internal/api/dto"
	"Chatify/internal/pkg/consts"
	"Chatify/internal/pkg/mongo"
	"Chatify/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

// ChatService 消息生命周期服务接口定义
type ChatService interface {
	Send(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	GetChatHistory(ctx context.Context, userID, peerID uint64) ([]*dto.MessageDTO, error)
	MarkDelivered(ctx context.Context, receiverID uint64, ids []string) (int64, error)
	DeliverPending(ctx context.Context, receiverID uint64)
	MarkViewedBulk(ctx context.Context, receiverID uint64, ids []string) (int64, error)
	OpenSnapshot(ctx context.Context, userID uint64, id string) (*dto.MessageDTO, error)
	CloseSnapshot(ctx context.Context, receiverID uint64, id string) error
	ToggleSaved(ctx context.Context, userID uint64, id string) (*dto.ToggleSavedRes, error)
	React(ctx context.Context, userID uint64, id string, emoji string) error
	Delete(ctx context.Context, userID uint64, id string) error
	PurgeExpired(ctx context.Context) (int, error)
}

type chatServiceImpl struct {
	messageRepo mongo.MessageRepo
	userRepo    repository.UserRepo
	bus         EventBus
	push        PushService
	presence    PresenceService
	nowFunc     func() time.Time
}

func NewChatService(messageRepo mongo.MessageRepo, userRepo repository.UserRepo, bus EventBus, push PushService, presence PresenceService) ChatService {
	return &chatServiceImpl{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		bus:         bus,
		push:        push,
		presence:    presence,
		nowFunc:     time.Now,
	}
}

// Send 发送消息
func (s *chatServiceImpl) Send(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if req.ReceiverID == 0 || req.ReceiverID == senderID {
		return nil, ErrTargetInvalid
	}

	mediaType := mongo.MediaType(req.MediaType)
	if !mediaType.Valid() {
		return nil, ErrParamInvalid
	}
	if mediaType.RequiresRef() && req.MediaRef == "" {
		return nil, ErrMediaRefRequired
	}

	content := req.Content
	if strings.TrimSpace(content) == "" {
		if mediaType == mongo.MediaText {
			return nil, ErrEmptyMessage
		}
		// 纯媒体消息补位单个空格
		content = " "
	}

	now := s.nowFunc()
	msg := &mongo.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Content:    content,
		MediaType:  mediaType,
		MediaRef:   req.MediaRef,
		CreatedAt:  now,
	}

	mode := req.AutoDeleteMode
	if mode == "" {
		mode = consts.AutoDeleteNone
	}
	switch mode {
	case consts.AutoDeleteNone:
	case consts.AutoDeleteView:
		msg.IsViewOnce = true
	case consts.AutoDelete3H:
		expires := now.Add(3 * time.Hour)
		msg.ExpiresAt = &expires
	default:
		return nil, ErrParamInvalid
	}

	// 快照媒体强制阅后即焚
	if mediaType == mongo.MediaSnapshot {
		msg.IsViewOnce = true
	}

	// 接收方在线则发送时刻即记为送达
	delivered := s.presence.IsOnline(req.ReceiverID)
	if delivered {
		msg.IsDelivered = true
		msg.DeliveredAt = &now
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// 落库失败就是发送失败：不发事件、不推送，避免出现发送方看到成功
	// 而文档并不存在的半截状态
	if err := s.messageRepo.Insert(writeCtx, msg); err != nil {
		log.ErrorContext(ctx, "消息写入失败", "message_id", msg.ID, "error", err)
		return nil, UnavailableError
	}

	_ = s.bus.PublishPair(ctx, msg.PairKey(), &dto.ChatEvent{
		Type:     consts.EventMessageNew,
		ID:       msg.ID,
		Revision: msg.Revision,
		Payload:  s.toMessageDTO(msg),
	})

	// 离线推送只带预览，失败不影响发送
	if !delivered {
		go s.notifyOffline(msg)
	}

	return s.toMessageDTO(msg), nil
}

// notifyOffline 解析发送者用户名作为推送标题后调用推送网关
func (s *chatServiceImpl) notifyOffline(msg *mongo.Message) {
	ctx := context.Background()

	title := "Chatify"
	if user, err := s.userRepo.GetUserById(ctx, msg.SenderID); err == nil && user != nil && user.Username != nil {
		title = *user.Username
	}

	s.push.Notify(ctx, msg.ReceiverID, title, previewFor(msg), msg.SenderID)
}

// GetChatHistory 拉取与某个对端的完整消息流
func (s *chatServiceImpl) GetChatHistory(ctx context.Context, userID, peerID uint64) ([]*dto.MessageDTO, error) {
	// 打开会话顺带触发一轮清理，清理失败不影响拉取
	if _, err := s.PurgeExpired(ctx); err != nil {
		log.WarnContext(ctx, "打开会话时清理过期消息失败", "error", err)
	}

	messages, err := s.messageRepo.ListByPair(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.MessageDTO, 0, len(messages))
	for _, msg := range messages {
		result = append(result, s.toMessageDTO(msg))
	}
	return result, nil
}

// MarkDelivered 批量送达回执，重复提交是无操作
func (s *chatServiceImpl) MarkDelivered(ctx context.Context, receiverID uint64, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrParamInvalid
	}

	modified, err := s.messageRepo.MarkDelivered(ctx, receiverID, ids, s.nowFunc())
	if err != nil {
		return 0, err
	}
	if modified > 0 {
		s.publishUpdates(ctx, ids)
	}
	return modified, nil
}

// DeliverPending 接收方上线时批量补投未送达消息
func (s *chatServiceImpl) DeliverPending(ctx context.Context, receiverID uint64) {
	pending, err := s.messageRepo.ListUndelivered(ctx, receiverID)
	if err != nil {
		log.WarnContext(ctx, "拉取未送达消息失败", "receiver_id", receiverID, "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	ids := make([]string, 0, len(pending))
	for _, msg := range pending {
		ids = append(ids, msg.ID)
	}

	if _, err := s.messageRepo.MarkDelivered(ctx, receiverID, ids, s.nowFunc()); err != nil {
		log.WarnContext(ctx, "批量补投标记失败", "receiver_id", receiverID, "error", err)
		return
	}
	s.publishUpdates(ctx, ids)
}

// MarkViewedBulk 批量已读回执，只作用于普通消息
func (s *chatServiceImpl) MarkViewedBulk(ctx context.Context, receiverID uint64, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrParamInvalid
	}

	modified, err := s.messageRepo.MarkViewed(ctx, receiverID, ids, s.nowFunc())
	if err != nil {
		return 0, err
	}
	if modified > 0 {
		s.publishUpdates(ctx, ids)
	}
	return modified, nil
}

// OpenSnapshot 打开阅后即焚快照。接收方每次打开消耗一次计数，
// 发送方回看不消耗。计数耗尽且未保存时返回已销毁
func (s *chatServiceImpl) OpenSnapshot(ctx context.Context, userID uint64, id string) (*dto.MessageDTO, error) {
	msg, err := s.messageRepo.OpenOnce(ctx, id, userID, s.nowFunc())
	if err == nil {
		_ = s.bus.PublishPair(ctx, msg.PairKey(), &dto.ChatEvent{
			Type:     consts.EventMessageUpdate,
			ID:       msg.ID,
			Revision: msg.Revision,
			Payload:  s.toMessageDTO(msg),
		})
		return s.toMessageDTO(msg), nil
	}
	if !errors.Is(err, mongodrv.ErrNoDocuments) {
		return nil, err
	}

	// 未命中：区分消息不存在、发送方回看、次数耗尽
	existing, gerr := s.messageRepo.GetByID(ctx, id)
	if gerr != nil {
		if errors.Is(gerr, mongodrv.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, gerr
	}
	if existing.SenderID == userID {
		return s.toMessageDTO(existing), nil
	}
	if existing.ReceiverID != userID {
		return nil, ErrNotParticipant
	}
	if !existing.IsViewOnce {
		return nil, ErrSnapshotOnly
	}
	return nil, ErrSnapshotExpired
}

// CloseSnapshot 接收方关闭快照视为隐式保存，重复关闭是幂等操作
func (s *chatServiceImpl) CloseSnapshot(ctx context.Context, receiverID uint64, id string) error {
	ok, err := s.messageRepo.SaveOnClose(ctx, id, receiverID)
	if err != nil {
		return err
	}
	if ok {
		s.publishUpdates(ctx, []string{id})
		return nil
	}

	existing, gerr := s.messageRepo.GetByID(ctx, id)
	if gerr != nil {
		if errors.Is(gerr, mongodrv.ErrNoDocuments) {
			// 关闭前已被清理
			return ErrMessageNotFound
		}
		return gerr
	}
	if existing.ReceiverID != receiverID {
		return ErrNotParticipant
	}
	if !existing.IsViewOnce {
		return ErrSnapshotOnly
	}
	return nil
}

// ToggleSaved 翻转保存标记。取消保存的消息若当场满足过期条件则立即硬删除，
// 裁决以切换时刻为准
func (s *chatServiceImpl) ToggleSaved(ctx context.Context, userID uint64, id string) (*dto.ToggleSavedRes, error) {
	msg, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if !msg.Participant(userID) {
		return nil, ErrNotParticipant
	}

	if !msg.IsSaved {
		ok, err := s.messageRepo.SetSaved(ctx, id, true)
		if err != nil {
			return nil, err
		}
		if !ok {
			// 条件更新落空：要么并发方已保存，要么清理任务已删
			return s.savedStateAfterRace(ctx, id)
		}
		s.publishUpdates(ctx, []string{id})
		return &dto.ToggleSavedRes{Saved: true}, nil
	}

	now := s.nowFunc()
	doomed := (msg.ExpiresAt != nil && !msg.ExpiresAt.After(now)) || (msg.IsViewOnce && msg.IsViewed)
	if doomed {
		ok, err := s.messageRepo.DeleteIfSaved(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return s.savedStateAfterRace(ctx, id)
		}
		_ = s.bus.PublishPair(ctx, msg.PairKey(), &dto.ChatEvent{
			Type:     consts.EventMessageDelete,
			ID:       id,
			Revision: msg.Revision + 1,
		})
		return &dto.ToggleSavedRes{Saved: false, Purged: true}, nil
	}

	ok, err := s.messageRepo.SetSaved(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.savedStateAfterRace(ctx, id)
	}
	s.publishUpdates(ctx, []string{id})
	return &dto.ToggleSavedRes{Saved: false}, nil
}

// savedStateAfterRace 条件更新落空后的兜底裁决：重读文档，还在就按当前
// 保存状态幂等返回，不在才算真的销毁
func (s *chatServiceImpl) savedStateAfterRace(ctx context.Context, id string) (*dto.ToggleSavedRes, error) {
	current, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return &dto.ToggleSavedRes{Saved: false, Purged: true}, nil
		}
		return nil, err
	}
	return &dto.ToggleSavedRes{Saved: current.IsSaved}, nil
}

// React 表情回应，单用户单表情，后写覆盖
func (s *chatServiceImpl) React(ctx context.Context, userID uint64, id string, emoji string) error {
	if emoji == "" {
		return ErrParamInvalid
	}

	msg, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return ErrMessageNotFound
		}
		return err
	}
	if !msg.Participant(userID) {
		return ErrNotParticipant
	}

	if err := s.messageRepo.SetReaction(ctx, id, userID, emoji); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return ErrMessageNotFound
		}
		return err
	}
	s.publishUpdates(ctx, []string{id})
	return nil
}

// Delete 会话任一方主动清除消息
func (s *chatServiceImpl) Delete(ctx context.Context, userID uint64, id string) error {
	msg, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return ErrMessageNotFound
		}
		return err
	}
	if !msg.Participant(userID) {
		return ErrNotParticipant
	}

	ok, err := s.messageRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMessageNotFound
	}
	_ = s.bus.PublishPair(ctx, msg.PairKey(), &dto.ChatEvent{
		Type:     consts.EventMessageDelete,
		ID:       id,
		Revision: msg.Revision + 1,
	})
	return nil
}

// PurgeExpired 清理一轮过期消息。单条失败只记录日志，扫描继续
func (s *chatServiceImpl) PurgeExpired(ctx context.Context) (int, error) {
	now := s.nowFunc()
	candidates, err := s.messageRepo.FindExpired(ctx, now, 500)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, msg := range candidates {
		ok, err := s.messageRepo.DeleteIfUnsaved(ctx, msg.ID)
		if err != nil {
			log.WarnContext(ctx, "清理过期消息失败", "message_id", msg.ID, "error", err)
			continue
		}
		if !ok {
			// 扫描后被保存，放行
			continue
		}
		purged++
		_ = s.bus.PublishPair(ctx, msg.PairKey(), &dto.ChatEvent{
			Type:     consts.EventMessageDelete,
			ID:       msg.ID,
			Revision: msg.Revision + 1,
		})
	}
	return purged, nil
}

// publishUpdates 按最新文档状态逐条发布变更事件
func (s *chatServiceImpl) publishUpdates(ctx context.Context, ids []string) {
	for _, id := range ids {
		msg, err := s.messageRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		_ = s.bus.PublishPair(ctx, msg.PairKey(), &dto.ChatEvent{
			Type:     consts.EventMessageUpdate,
			ID:       msg.ID,
			Revision: msg.Revision,
			Payload:  s.toMessageDTO(msg),
		})
	}
}

func (s *chatServiceImpl) toMessageDTO(msg *mongo.Message) *dto.MessageDTO {
	out := &dto.MessageDTO{}
	_ = copier.Copy(out, msg)
	out.MediaType = string(msg.MediaType)
	return out
}

// previewFor 生成离线推送预览文案
func previewFor(msg *mongo.Message) string {
	switch msg.MediaType {
	case mongo.MediaSnapshot:
		return "Sent a snapshot"
	case mongo.MediaLocation:
		return "Shared location"
	case mongo.MediaImage:
		return "Sent an image"
	case mongo.MediaVideo:
		return "Sent a video"
	case mongo.MediaText:
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			return "Sent a message"
		}
		runes := []rune(text)
		if len(runes) > consts.MessagePreviewLimit {
			return string(runes[:consts.MessagePreviewLimit]) + "..."
		}
		return text
	}
	return "Sent a message"
}
