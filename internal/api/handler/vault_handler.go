package handler

import (
	"Chatify/internal/api/dto"
	"Chatify/internal/pkg/response"
	"Chatify/internal/service"

	"github.com/gin-gonic/gin"
)

type VaultHandler struct {
	vaultService service.VaultService
}

func NewVaultHandler(vaultService service.VaultService) *VaultHandler {
	return &VaultHandler{vaultService: vaultService}
}

// SetPassword 设置或更换保险库密码
func (s *VaultHandler) SetPassword(c *gin.Context) {
	var req dto.VaultPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	ownerID := c.GetUint64("user_id")

	if err := s.vaultService.SetVaultPassword(c, ownerID, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Store 密码核验后转存消息媒体
func (s *VaultHandler) Store(c *gin.Context) {
	var req dto.VaultStoreReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	ownerID := c.GetUint64("user_id")

	res, err := s.vaultService.StoreToVault(c, ownerID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// List 拉取保险库条目
func (s *VaultHandler) List(c *gin.Context) {
	ownerID := c.GetUint64("user_id")

	res, err := s.vaultService.ListVault(c, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
