package service

import (
	"Chatify/internal/api/dto"
	"Chatify/internal/pkg/consts"
	"Chatify/internal/pkg/redis"
	"context"

	"github.com/goccy/go-json"
)

// EventBus 会话事件总线。消息变更与在线状态事件按会话对扇出，
// WebSocket 端订阅对应频道后转发给客户端。
type EventBus interface {
	PublishPair(ctx context.Context, pairKey string, event *dto.ChatEvent) error
	PublishPresence(ctx context.Context, pairKey string, event *dto.ChatEvent) error
}

type redisEventBus struct{}

func NewRedisEventBus() EventBus {
	return &redisEventBus{}
}

func (s *redisEventBus) PublishPair(ctx context.Context, pairKey string, event *dto.ChatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return redis.Publish(ctx, consts.ChatPairKey+pairKey, payload)
}

func (s *redisEventBus) PublishPresence(ctx context.Context, pairKey string, event *dto.ChatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return redis.Publish(ctx, consts.ChatPresenceKey+pairKey, payload)
}
