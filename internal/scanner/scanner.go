// Package scanner implements the server-side timer expiry scan: the only
// notification path that reaches a device with no live client process.
package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/pausalabs/pausa/internal/model"
	"github.com/pausalabs/pausa/internal/push"
	"github.com/pausalabs/pausa/internal/store"
)

const (
	// Cooldown between two notification attempts for the same timer type.
	// Attempt-based, not delivery-based: a dead endpoint is not hammered
	// on every scan cycle.
	Cooldown = 5 * time.Minute

	// ExpiryWindow bounds how far in the past an end time may lie and
	// still produce a notification. Expired-but-ancient timers are
	// ignored, never back-notified.
	ExpiryWindow = 30 * time.Minute
)

// Attempt is the per-type detail of one notification attempt.
type Attempt struct {
	SessionID string             `json:"sessionId"`
	Type      model.ReminderType `json:"type"`
	Delivered bool               `json:"delivered"`
	Error     string             `json:"error,omitempty"`
}

// Summary reports one scan run for the invoking scheduler.
type Summary struct {
	Scanned   int       `json:"scanned"`
	Attempted int       `json:"attempted"`
	Delivered int       `json:"delivered"`
	Attempts  []Attempt `json:"attempts,omitempty"`
}

// Scanner evaluates all running timer states and dispatches push
// notifications for expired timer types.
type Scanner struct {
	timers *store.TimerStore
	subs   *store.SubscriptionStore
	push   *push.Service
	now    func() time.Time
	logger *slog.Logger
}

func New(timers *store.TimerStore, subs *store.SubscriptionStore, pushSvc *push.Service, logger *slog.Logger) *Scanner {
	return &Scanner{
		timers: timers,
		subs:   subs,
		push:   pushSvc,
		now:    time.Now,
		logger: logger,
	}
}

// Run performs one scan. Per-row and per-type failures are contained; only a
// store-level read failure aborts the run.
func (s *Scanner) Run(ctx context.Context) (*Summary, error) {
	states, err := s.timers.ListRunning()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Scanned: len(states)}
	for i := range states {
		s.scanState(ctx, &states[i], summary)
	}

	s.logger.Info("timer scan complete",
		"scanned", summary.Scanned, "attempted", summary.Attempted, "delivered", summary.Delivered)
	return summary, nil
}

func (s *Scanner) scanState(ctx context.Context, st *model.TimerState, summary *Summary) {
	now := s.now()
	nowMs := now.UnixMilli()

	for _, t := range model.ReminderTypes() {
		end := st.EndTime(t)
		if end == nil || *end > nowMs {
			continue
		}
		if nowMs-*end >= ExpiryWindow.Milliseconds() {
			continue // ancient expiry, not worth a late notification
		}
		if nowMs-st.LastNotified(t) < Cooldown.Milliseconds() {
			continue
		}

		subs, err := s.subs.ListActiveBySession(st.SessionID)
		if err != nil {
			s.logger.Error("list subscriptions", "session", st.SessionID, "error", err)
			continue
		}
		if len(subs) == 0 {
			// Expected state: an expired timer on a device that never
			// granted push permission.
			s.logger.Debug("expired timer without subscription", "session", st.SessionID, "type", t)
			continue
		}

		attempt := Attempt{SessionID: st.SessionID, Type: t}
		results := s.push.Fanout(ctx, subs, push.Payload{
			Title: t.Title(),
			Body:  t.Body(),
			Tag:   t.Tag(),
			URL:   "/",
		})
		for _, res := range results {
			if res.Success {
				attempt.Delivered = true
			} else if attempt.Error == "" {
				attempt.Error = res.Error
			}
		}

		// Cooldown governs attempt frequency, not delivery confirmation.
		if err := s.timers.UpdateLastNotified(st.SessionID, t, nowMs); err != nil {
			s.logger.Error("update last notified", "session", st.SessionID, "type", t, "error", err)
		}

		summary.Attempted++
		if attempt.Delivered {
			summary.Delivered++
		}
		summary.Attempts = append(summary.Attempts, attempt)
	}
}
