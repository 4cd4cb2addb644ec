package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"localchat/internal/config"
	"localchat/internal/session"
	"localchat/internal/store"
	"localchat/internal/ws"
)

const httpTimeout = 10 * time.Second

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel)

	connectCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	rdb, err := store.Connect(connectCtx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info("[SERVER] Connected to shared store", "url", cfg.RedisURL)

	st := store.New(rdb, logger)
	gate := session.NewGate(cfg.RoomCode, cfg.SessionSecret)
	hub := ws.NewHub(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)

	gateway := &ws.Server{
		Hub:      hub,
		Gate:     gate,
		Store:    st,
		Redis:    rdb,
		Room:     cfg.RoomCode,
		Interval: cfg.PollInterval,
		Logger:   logger,
	}

	mux := httprouter.New()

	mux.POST("/join", handleJoin(gate, logger))
	mux.GET("/ws", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gateway.ServeTab(w, r)
	})
	mux.GET("/qr", handleQR(logger))
	mux.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.GET("/version", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("localchat v" + releaseVersion + "\n"))
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
	}

	go func() {
		logger.Info("[SERVER] Listening", "addr", srv.Addr, "room", cfg.RoomCode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[SERVER] Listener failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// handleJoin is the room gate: room code plus username in, session token
// out. This is the only user-visible validation in the system.
func handleJoin(gate *session.Gate, logger *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			RoomCode string `json:"roomCode"`
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "could not decode request body")
			return
		}

		sess, err := gate.Join(body.RoomCode, body.Username)
		switch {
		case errors.Is(err, session.ErrWrongRoomCode):
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		case errors.Is(err, session.ErrInvalidUsername):
			respondError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			logger.Error("[SERVER] Join failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not create session")
			return
		}

		logger.Info("[SERVER] User joined", "user", sess.UserID, "username", sess.Username)
		respond(w, http.StatusOK, sess)
	}
}

// handleQR renders the join URL as a QR code so the second user on the couch
// can hop in without typing.
func handleQR(logger *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		target := scheme + "://" + r.Host + "/join"

		png, err := qrcode.Encode(target, qrcode.Medium, 256)
		if err != nil {
			logger.Error("[SERVER] Failed to encode QR code", "error", err)
			respondError(w, http.StatusInternalServerError, "could not encode QR code")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
