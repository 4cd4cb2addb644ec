package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"localchat/internal/notify"
	"localchat/internal/session"
	"localchat/internal/store"
	"localchat/internal/tab"
)

// Server wires incoming websocket upgrades to fresh tab runtimes. Each
// connection gets its own tab ID, notification bus, and sync loop; the
// shared store remains the only channel between them.
type Server struct {
	Hub      *Hub
	Gate     *session.Gate
	Store    *store.Store
	Redis    *redis.Client
	Room     string
	Interval time.Duration
	Logger   *slog.Logger
}

// ServeTab authenticates the session token, upgrades the connection, and
// spawns the tab runtime behind it.
func (s *Server) ServeTab(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	// Session token from query param or header
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	if token == "" {
		s.Logger.Warn("[WS] No token provided", "from", remoteAddr)
		http.Error(w, "Unauthorized: token required", http.StatusUnauthorized)
		return
	}

	sess, err := s.Gate.Parse(token)
	if err != nil {
		s.Logger.Warn("[WS] Token validation failed", "from", remoteAddr, "error", err)
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Error("[WS] Failed to upgrade connection", "user", sess.UserID, "error", err)
		return
	}

	s.Logger.Info("[WS] Tab connected", "user", sess.UserID, "username", sess.Username, "from", remoteAddr)

	bus := notify.NewBus(uuid.NewString(), s.Room, s.Redis, s.Logger)
	t := tab.New(sess, s.Store, bus, s.Room, s.Interval, s.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    s.Hub,
		conn:   conn,
		tab:    t,
		cancel: cancel,
		log:    s.Logger,
	}

	client.hub.register <- client

	go t.Run(ctx)
	go client.WritePump(ctx)
	go client.ReadPump(ctx)
}
