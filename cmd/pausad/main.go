package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pausalabs/pausa/internal/database"
	"github.com/pausalabs/pausa/internal/logging"
	"github.com/pausalabs/pausa/internal/push"
	"github.com/pausalabs/pausa/internal/server"
)

func main() {
	generateKeys := flag.Bool("generate-vapid-keys", false, "generate a VAPID key pair and exit")
	flag.Parse()

	if *generateKeys {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("PAUSA_VAPID_PUBLIC_KEY=%s\nPAUSA_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	logger := logging.Setup(os.Getenv("PAUSA_LOG_LEVEL"))

	port := os.Getenv("PAUSA_PORT")
	if port == "" {
		port = "8080"
	}
	dbPath := os.Getenv("PAUSA_DB_PATH")
	if dbPath == "" {
		dbPath = "pausa.db"
	}

	cfg := server.Config{
		VAPIDPrivateKey: os.Getenv("PAUSA_VAPID_PRIVATE_KEY"),
		VAPIDSubject:    os.Getenv("PAUSA_VAPID_SUBJECT"),
		CronSecret:      os.Getenv("PAUSA_CRON_SECRET"),
	}
	if cfg.VAPIDPrivateKey == "" {
		logger.Error("PAUSA_VAPID_PRIVATE_KEY is required (run with -generate-vapid-keys to create one)")
		os.Exit(1)
	}
	if cfg.VAPIDSubject == "" {
		cfg.VAPIDSubject = "mailto:ops@pausa.app"
	}
	if cfg.CronSecret == "" {
		logger.Warn("PAUSA_CRON_SECRET not set, cron endpoints disabled")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv, err := server.New(db, cfg, logger)
	if err != nil {
		logger.Error("configure server", "error", err)
		os.Exit(1)
	}

	// Rate limiter entries expire on their own; this just bounds the map.
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("pausad listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
