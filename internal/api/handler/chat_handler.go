package handler

import (
	"Chatify/internal/api/dto"
	"Chatify/internal/pkg/response"
	"Chatify/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService     service.ChatService
	presenceService service.PresenceService
}

func NewChatHandler(chatService service.ChatService, presenceService service.PresenceService) *ChatHandler {
	return &ChatHandler{chatService: chatService, presenceService: presenceService}
}

// SendMessage 发送消息接口
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	// 从 Context 中获取中间件解析出的当前用户 ID
	senderID := c.GetUint64("user_id")

	res, err := s.chatService.Send(c, senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetChatHistory 获取与某个对端的历史消息
func (s *ChatHandler) GetChatHistory(c *gin.Context) {
	userID := c.GetUint64("user_id")
	peerID, err := strconv.ParseUint(c.Query("peer_id"), 10, 64)
	if err != nil || peerID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.chatService.GetChatHistory(c, userID, peerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkDelivered 批量送达回执接口
func (s *ChatHandler) MarkDelivered(c *gin.Context) {
	var req dto.MarkDeliveredReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")

	count, err := s.chatService.MarkDelivered(c, userID, req.MessageIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"delivered_count": count})
}

// MarkViewed 批量已读回执接口 (普通消息)
func (s *ChatHandler) MarkViewed(c *gin.Context) {
	var req dto.MarkViewedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")

	count, err := s.chatService.MarkViewedBulk(c, userID, req.MessageIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"viewed_count": count})
}

// OpenSnapshot 打开阅后即焚快照
func (s *ChatHandler) OpenSnapshot(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("message_id")

	res, err := s.chatService.OpenSnapshot(c, userID, messageID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// CloseSnapshot 关闭快照，隐式保存
func (s *ChatHandler) CloseSnapshot(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("message_id")

	if err := s.chatService.CloseSnapshot(c, userID, messageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleSaved 翻转保存标记
func (s *ChatHandler) ToggleSaved(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("message_id")

	res, err := s.chatService.ToggleSaved(c, userID, messageID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// React 表情回应
func (s *ChatHandler) React(c *gin.Context) {
	var req dto.ReactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	messageID := c.Param("message_id")

	if err := s.chatService.React(c, userID, messageID, req.Emoji); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteMessage 主动清除消息
func (s *ChatHandler) DeleteMessage(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("message_id")

	if err := s.chatService.Delete(c, userID, messageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Cleanup 手动触发一轮过期清理
func (s *ChatHandler) Cleanup(c *gin.Context) {
	count, err := s.chatService.PurgeExpired(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"purged_count": count})
}

// PeerPresence 查看对端在线状态
func (s *ChatHandler) PeerPresence(c *gin.Context) {
	userID := c.GetUint64("user_id")
	peerID, err := strconv.ParseUint(c.Query("peer_id"), 10, 64)
	if err != nil || peerID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.presenceService.Peer(c, peerID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
