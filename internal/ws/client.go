package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"localchat/internal/tab"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max message size
	maxMessageSize = 64 * 1024 // 64 KB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Validate origin in production
		return true
	},
}

// Client bridges one websocket connection to one tab runtime: snapshots flow
// out, commands flow in.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	tab    *tab.Tab
	cancel context.CancelFunc
	log    *slog.Logger
}

// A command is a client-issued frame. Data is decoded per command type.
type command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// A frame is a server-issued message.
type frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ReadPump pumps commands from the websocket into the tab runtime.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.cancel()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("[CLIENT] Unexpected close", "user", c.tab.User().ID, "error", err)
			}
			break
		}

		c.handleCommand(ctx, message)
	}
}

// WritePump streams snapshots from the tab runtime to the websocket.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case snap := <-c.tab.Snapshots():
			payload, err := json.Marshal(frame{Type: "snapshot", Data: snap})
			if err != nil {
				c.log.Error("[CLIENT] Failed to marshal snapshot", "user", c.tab.User().ID, "error", err)
				continue
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Error("[CLIENT] Failed to write snapshot", "user", c.tab.User().ID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Error("[CLIENT] Failed to send ping", "user", c.tab.User().ID, "error", err)
				return
			}
		}
	}
}

func (c *Client) handleCommand(ctx context.Context, message []byte) {
	var cmd command
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.log.Error("[CLIENT] Error unmarshaling command", "user", c.tab.User().ID, "error", err)
		return
	}

	switch cmd.Type {
	case "message:send":
		var data struct {
			Text      string `json:"text"`
			ReplyToID string `json:"replyToId"`
		}
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			c.log.Warn("[CLIENT] Bad message:send payload", "user", c.tab.User().ID, "error", err)
			return
		}
		c.tab.Send(ctx, data.Text, data.ReplyToID)

	case "message:delete":
		var data struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			c.log.Warn("[CLIENT] Bad message:delete payload", "user", c.tab.User().ID, "error", err)
			return
		}
		c.tab.DeleteMessage(ctx, data.ID)

	case "reaction:toggle":
		var data struct {
			ID    string `json:"id"`
			Emoji string `json:"emoji"`
		}
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			c.log.Warn("[CLIENT] Bad reaction:toggle payload", "user", c.tab.User().ID, "error", err)
			return
		}
		c.tab.ToggleReaction(ctx, data.ID, data.Emoji)

	case "typing:start":
		c.tab.SetTyping(ctx, true)

	case "typing:stop":
		c.tab.SetTyping(ctx, false)

	case "game:start":
		c.tab.StartGame(ctx)

	case "game:join":
		c.tab.JoinGame(ctx)

	case "game:move":
		var data struct {
			Cell int `json:"cell"`
		}
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			c.log.Warn("[CLIENT] Bad game:move payload", "user", c.tab.User().ID, "error", err)
			return
		}
		c.tab.Move(ctx, data.Cell)

	case "game:restart":
		c.tab.RestartGame(ctx)

	case "game:quit":
		c.tab.QuitGame(ctx)

	case "visibility":
		var data struct {
			Visible bool `json:"visible"`
		}
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			c.log.Warn("[CLIENT] Bad visibility payload", "user", c.tab.User().ID, "error", err)
			return
		}
		c.tab.SetVisible(data.Visible)

	default:
		c.log.Warn("[CLIENT] Unknown command type", "type", cmd.Type, "user", c.tab.User().ID)
	}
}
