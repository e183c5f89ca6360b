package job

import (
	"Chatify/internal/service"
	"context"
	log "log/slog"
	"time"
)

// ReaperJob 周期清理过期消息。多实例并发执行是安全的，
// 删除带保存态前提，重复扫描只会空转
type ReaperJob struct {
	chatService service.ChatService
}

func NewReaperJob(chatService service.ChatService) *ReaperJob {
	return &ReaperJob{chatService: chatService}
}

func (s *ReaperJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	purged, err := s.chatService.PurgeExpired(ctx)
	if err != nil {
		log.Error("过期消息清理失败", "err", err)
		return
	}
	if purged > 0 {
		log.Info("过期消息清理完成", "purged_count", purged)
	}
}
