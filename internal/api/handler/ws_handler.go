package handler

import (
	"Chatify/internal/api/dto"
	"Chatify/internal/pkg/consts"
	"Chatify/internal/pkg/mongo"
	"Chatify/internal/pkg/redis"
	"Chatify/internal/pkg/response"
	"Chatify/internal/pkg/security"
	"Chatify/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	presenceService service.PresenceService
}

func NewWsHandler(presenceService service.PresenceService) *WsHandler {
	return &WsHandler{presenceService: presenceService}
}

// Connect 建立会话实时通道：订阅会话对的消息与在线状态频道并转发，
// 读循环消费客户端心跳帧
func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	peerID, err := strconv.ParseUint(c.Query("peer_id"), 10, 64)
	if err != nil || peerID == 0 || peerID == userID {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	pairKey := mongo.PairKey(userID, peerID)
	channels := []string{
		consts.ChatPairKey + pairKey,
		consts.ChatPresenceKey + pairKey,
	}

	// 订阅 Redis 总线
	pubsub := redis.Subscribe(context.Background(), channels...)
	defer func() {
		_ = pubsub.Close()
	}()

	log.Info("用户 WS 连接已建立", "user_id", userID, "peer_id", peerID)

	// 连接建立本身算一次心跳
	s.presenceService.Heartbeat(context.Background(), userID, peerID, false)
	defer s.presenceService.Disconnect(context.Background(), userID)

	stopChan := make(chan struct{})

	// 读循环：消费心跳帧并监听客户端断开
	go func() {
		defer close(stopChan)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var hb dto.HeartbeatMsg
			if err := json.Unmarshal(data, &hb); err != nil || hb.Type != "heartbeat" {
				continue
			}
			s.presenceService.Heartbeat(context.Background(), userID, hb.InChatTarget, hb.Typing)
		}
	}()

	// 写循环：监听 Redis 并推送至客户端
	redisCh := pubsub.Channel()
	for {
		select {
		case msg := <-redisCh:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload))
			if err != nil {
				log.Error("WS 推送失败", "user_id", userID, "err", err)
				return
			}
		case <-stopChan:
			log.Info("用户 WS 连接已断开", "user_id", userID)
			return
		}
	}
}
