package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/pausalabs/pausa/internal/agent"
	"github.com/pausalabs/pausa/internal/database"
	"github.com/pausalabs/pausa/internal/desktop"
	"github.com/pausalabs/pausa/internal/logging"
	"github.com/pausalabs/pausa/internal/model"
	"github.com/pausalabs/pausa/internal/monitor"
	"github.com/pausalabs/pausa/internal/store"
	"github.com/pausalabs/pausa/internal/websocket"
)

func main() {
	logger := logging.Setup(os.Getenv("PAUSA_LOG_LEVEL"))

	addr := os.Getenv("PAUSA_AGENT_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8787"
	}

	stateDir := os.Getenv("PAUSA_AGENT_STATE_DIR")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Error("resolve home directory", "error", err)
			os.Exit(1)
		}
		stateDir = filepath.Join(home, ".local", "share", "pausa")
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		logger.Error("create state directory", "path", stateDir, "error", err)
		os.Exit(1)
	}

	sessionID, err := loadSessionID(filepath.Join(stateDir, "session-id"))
	if err != nil {
		logger.Error("load session id", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(filepath.Join(stateDir, "agent.db"))
	if err != nil {
		logger.Error("open agent database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	hub := websocket.NewHub(logger.With("component", "websocket"))

	var mon *monitor.Monitor
	notifier, err := desktop.New(
		func(t model.ReminderType) { mon.Snooze(t) },
		func() { mon.RequestFocus() },
		logger.With("component", "desktop"),
	)
	if err != nil {
		logger.Error("connect desktop notifications", "error", err)
		os.Exit(1)
	}
	mon = monitor.New(notifier, hub, logger.With("component", "monitor"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := notifier.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification signal loop", "error", err)
		}
	}()

	mon.Start(ctx)
	defer mon.Stop()

	a := agent.New(mon, store.NewTimerStore(db), hub, sessionID, logger)
	a.RestoreState()

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      a.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("pausa-agent listening", "addr", addr, "session", sessionID)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("agent server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// loadSessionID reads the persisted device session id, generating one on
// first run. The id identifies this device to pausad across restarts.
func loadSessionID(path string) (string, error) {
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", err
	}
	return id, nil
}
