package websocket

import (
	"context"

	"nau-assistant/internal/service"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one chat connection until the peer goes away.
func ServeWs(hub *Hub, chatbot service.IChatbotService, c *websocket.Conn, chatID string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newClient(hub, c, chatID, chatbot)
	if !hub.join(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx)
}
