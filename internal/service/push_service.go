package service

import (
	"Chatify/internal/api/config"
	"context"
	log "log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// PushService 离线推送网关客户端。投递失败只记录日志，永远不影响消息发送。
type PushService interface {
	Notify(ctx context.Context, recipientID uint64, title, preview string, senderID uint64)
}

type pushServiceImpl struct {
	client *resty.Client
}

func NewPushService() PushService {
	client := resty.New().
		SetTimeout(3 * time.Second).
		SetRetryCount(1)
	return &pushServiceImpl{client: client}
}

func (s *pushServiceImpl) Notify(ctx context.Context, recipientID uint64, title, preview string, senderID uint64) {
	cfg := config.Cfg.Push
	if cfg.URL == "" {
		return
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+cfg.Token).
		SetBody(map[string]interface{}{
			"user_id":   recipientID,
			"title":     title,
			"preview":   preview,
			"sender_id": senderID,
		}).
		Post(cfg.URL)

	if err != nil {
		log.WarnContext(ctx, "离线推送失败", "user_id", recipientID, "error", err)
		return
	}
	if resp.IsError() {
		log.WarnContext(ctx, "离线推送被网关拒绝", "user_id", recipientID, "status", resp.StatusCode())
	}
}
