package api

import "Chatify/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	ChatHandler  *handler.ChatHandler
	VaultHandler *handler.VaultHandler
	WSHandler    *handler.WsHandler
}
