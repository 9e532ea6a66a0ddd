package handler

import (
	"nau-assistant/internal/pkg/logger"
	"nau-assistant/internal/service"
	internalWS "nau-assistant/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ChatSocketHandler struct {
	chatbot service.IChatbotService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewChatSocketHandler(chatbot service.IChatbotService, hub *internalWS.Hub, log logger.ILogger) *ChatSocketHandler {
	return &ChatSocketHandler{chatbot: chatbot, hub: hub, logger: log}
}

// ServeWs upgrades the request and answers queries for the chat in :id.
func (h *ChatSocketHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	chatID := c.Params("id")
	if chatID == "" {
		chatID = service.DefaultChatId
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ChatSocketHandler", "Starting WebSocket session", map[string]interface{}{"chat_id": chatID})
		internalWS.ServeWs(h.hub, h.chatbot, conn, chatID)
		h.logger.Info("ChatSocketHandler", "WebSocket session ended", map[string]interface{}{"chat_id": chatID})
	})(c)
}
