// Package server wires the stores, push service, and background jobs into
// the pausad HTTP API.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pausalabs/pausa/internal/handler"
	"github.com/pausalabs/pausa/internal/middleware"
	"github.com/pausalabs/pausa/internal/push"
	"github.com/pausalabs/pausa/internal/scanner"
	"github.com/pausalabs/pausa/internal/scheduled"
	"github.com/pausalabs/pausa/internal/store"
)

// Config carries the deploy-time settings pausad needs beyond the database.
type Config struct {
	VAPIDPrivateKey string
	VAPIDSubject    string
	CronSecret      string
}

type Server struct {
	db          *sql.DB
	pushH       *handler.PushHandler
	timerH      *handler.TimerHandler
	scheduleH   *handler.ScheduleHandler
	cronH       *handler.CronHandler
	rateLimiter *middleware.RateLimiter
	cronSecret  string
	pushService *push.Service
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Server, error) {
	signer, err := push.NewECDSASigner(cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	if err != nil {
		return nil, fmt.Errorf("configure VAPID signer: %w", err)
	}

	timerStore := store.NewTimerStore(db)
	subStore := store.NewSubscriptionStore(db)
	scheduleStore := store.NewScheduleStore(db)

	pushSvc := push.NewService(signer, subStore, logger.With("component", "push"))
	sc := scanner.New(timerStore, subStore, pushSvc, logger.With("component", "scanner"))
	pr := scheduled.New(scheduleStore, subStore, pushSvc, logger.With("component", "scheduled"))

	return &Server{
		db:          db,
		pushH:       handler.NewPushHandler(subStore, pushSvc, logger.With("component", "push_handler")),
		timerH:      handler.NewTimerHandler(timerStore, logger.With("component", "timer_handler")),
		scheduleH:   handler.NewScheduleHandler(scheduleStore, logger.With("component", "schedule_handler")),
		cronH:       handler.NewCronHandler(sc, pr, logger.With("component", "cron_handler")),
		rateLimiter: middleware.NewRateLimiter(),
		cronSecret:  cfg.CronSecret,
		pushService: pushSvc,
		logger:      logger,
	}, nil
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Push subscription lifecycle
	mux.HandleFunc("POST /api/push/subscribe", s.rateLimitedHandler(s.pushH.Subscribe))
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/dispatch", s.pushH.Dispatch)

	// Timer state sync
	mux.HandleFunc("POST /api/timers/sync", s.timerH.Sync)
	mux.HandleFunc("DELETE /api/timers/{sessionId}", s.timerH.Reset)

	// Scheduled notification admin surface
	mux.HandleFunc("POST /api/schedules", s.scheduleH.Create)
	mux.HandleFunc("GET /api/schedules", s.scheduleH.List)
	mux.HandleFunc("GET /api/schedules/{id}/history", s.scheduleH.History)

	// Periodic jobs, invoked by the external cron scheduler
	cronAuth := middleware.RequireCronSecret(s.cronSecret)
	mux.Handle("POST /api/cron/scan-timers", cronAuth(http.HandlerFunc(s.cronH.ScanTimers)))
	mux.Handle("POST /api/cron/process-scheduled", cronAuth(http.HandlerFunc(s.cronH.ProcessScheduled)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 30, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
