package websocket

import (
	"context"
	"encoding/json"
	"time"

	"nau-assistant/internal/dto"
	"nau-assistant/internal/service"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

const (
	FrameAnswer         = "answer"
	FrameError          = "error"
	FrameIndexRefreshed = "index_refreshed"
)

// Client is one websocket connection bound to a chat session.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	ChatID  string
	Chatbot service.IChatbotService

	// Buffered channel of outbound frames. It is never closed; quit is
	// closed by the hub once the client is unregistered.
	Send chan []byte
	quit chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, chatID string, chatbot service.IChatbotService) *Client {
	return &Client{
		Hub:     hub,
		Conn:    conn,
		ChatID:  chatID,
		Chatbot: chatbot,
		Send:    make(chan []byte, 256),
		quit:    make(chan struct{}),
	}
}

// readPump turns every inbound frame into one chat turn. Frames from one
// connection are answered in order.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn(hubModule, "Unexpected close", map[string]interface{}{"chat_id": c.ChatID, "error": err.Error()})
			}
			return
		}

		select {
		case c.Send <- c.handleFrame(ctx, data):
		case <-c.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) []byte {
	var req dto.ChatSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return encodeFrame(dto.ChatSocketFrame{Type: FrameError, Error: "invalid frame"})
	}

	res, err := c.Chatbot.SendChat(ctx, &dto.SendChatRequest{
		ChatId:     c.ChatID,
		Query:      req.Query,
		FollowUpTo: req.FollowUpTo,
	})
	if err != nil {
		return encodeFrame(dto.ChatSocketFrame{Type: FrameError, Error: err.Error()})
	}
	return encodeFrame(dto.ChatSocketFrame{Type: FrameAnswer, Data: res})
}

func encodeFrame(frame dto.ChatSocketFrame) []byte {
	data, _ := json.Marshal(frame)
	return data
}

// writePump sends queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.quit:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			// one frame per message, clients parse each as a JSON document
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
