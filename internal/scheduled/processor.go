// Package scheduled drives admin-created one-off and recurring notifications
// from pending to sent, completed, or errored.
package scheduled

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pausalabs/pausa/internal/model"
	"github.com/pausalabs/pausa/internal/push"
	"github.com/pausalabs/pausa/internal/recurrence"
	"github.com/pausalabs/pausa/internal/store"
)

// Summary reports one processor run for the invoking scheduler.
type Summary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
}

// Processor delivers due scheduled notifications and advances or terminates
// their recurrence.
type Processor struct {
	schedules *store.ScheduleStore
	subs      *store.SubscriptionStore
	push      *push.Service
	now       func() time.Time
	logger    *slog.Logger
}

func New(schedules *store.ScheduleStore, subs *store.SubscriptionStore, pushSvc *push.Service, logger *slog.Logger) *Processor {
	return &Processor{
		schedules: schedules,
		subs:      subs,
		push:      pushSvc,
		now:       time.Now,
		logger:    logger,
	}
}

// Run processes all due rows once. A failure in one row marks that row
// errored and moves on; only a store-level read failure aborts the run.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	now := p.now()
	due, err := p.schedules.ListDue(now.UnixMilli())
	if err != nil {
		return nil, err
	}

	summary := &Summary{Processed: len(due)}
	for i := range due {
		n := &due[i]
		sent, failed, err := p.processRow(ctx, n, now)
		if err != nil {
			summary.Errors++
			p.logger.Error("process scheduled notification", "id", n.ID, "error", err)
			if markErr := p.schedules.MarkError(n.ID, err.Error()); markErr != nil {
				p.logger.Error("mark scheduled notification errored", "id", n.ID, "error", markErr)
			}
			continue
		}
		summary.Sent += sent
		summary.Failed += failed
	}

	p.logger.Info("scheduled notification run complete",
		"processed", summary.Processed, "sent", summary.Sent, "failed", summary.Failed, "errors", summary.Errors)
	return summary, nil
}

func (p *Processor) processRow(ctx context.Context, n *model.ScheduledNotification, now time.Time) (sent, failed int, err error) {
	rec, err := recurrence.Parse(n.RecurrenceType)
	if err != nil {
		return 0, 0, err
	}

	subs, desc, err := p.resolveTargets(n)
	if err != nil {
		return 0, 0, err
	}

	results := p.push.Fanout(ctx, subs, push.Payload{
		Title: n.Title,
		Body:  n.Body,
		Icon:  n.Icon,
		URL:   n.URL,
		Tag:   fmt.Sprintf("pausa-scheduled-%d", n.ID),
	})
	for _, res := range results {
		if res.Success {
			sent++
		} else {
			failed++
		}
	}

	// History is appended for every processed row, delivered or not.
	if err := p.schedules.AppendHistory(&model.NotificationHistory{
		ScheduleID:        n.ID,
		Title:             n.Title,
		Body:              n.Body,
		TargetDescription: desc,
		SentCount:         sent,
		FailedCount:       failed,
		ProcessedAt:       now,
	}); err != nil {
		p.logger.Error("append notification history", "id", n.ID, "error", err)
	}

	// The next occurrence is computed from the prior scheduled time, not from
	// now, so a late run does not shift every future occurrence.
	nextMs, done := recurrence.Advance(rec, n.ScheduledFor, n.RecurrenceEnd)
	switch {
	case rec == recurrence.None:
		err = p.schedules.MarkSent(n.ID, sent, failed)
	case done:
		err = p.schedules.MarkCompleted(n.ID, sent, failed)
	default:
		err = p.schedules.Reschedule(n.ID, nextMs, sent, failed)
	}
	if err != nil {
		return sent, failed, err
	}
	return sent, failed, nil
}

// resolveTargets returns the active subscriptions a row fans out to and a
// description of the audience for the history log.
func (p *Processor) resolveTargets(n *model.ScheduledNotification) ([]model.PushSubscription, string, error) {
	switch n.TargetType {
	case model.TargetAll:
		subs, err := p.subs.ListActive()
		if err != nil {
			return nil, "", fmt.Errorf("list active subscriptions: %w", err)
		}
		return subs, "all sessions", nil
	case model.TargetSpecific:
		var subs []model.PushSubscription
		for _, sessionID := range n.TargetSessionIDs {
			ss, err := p.subs.ListActiveBySession(sessionID)
			if err != nil {
				return nil, "", fmt.Errorf("list subscriptions for %s: %w", sessionID, err)
			}
			subs = append(subs, ss...)
		}
		return subs, fmt.Sprintf("%d selected sessions", len(n.TargetSessionIDs)), nil
	}
	return nil, "", fmt.Errorf("unknown target type: %q", n.TargetType)
}
