// Package monitor implements the local background check loop: it watches the
// last synced timer state while the UI is hidden or suspended and raises
// desktop notifications for expired timers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pausalabs/pausa/internal/model"
)

const (
	// tickInterval is how often the live loop re-evaluates timer state.
	tickInterval = 5 * time.Second

	// cooldownWindow suppresses repeat notifications for a timer type after
	// one has been raised.
	cooldownWindow = 5 * time.Minute

	// resumeDebounce delays the catch-up check after APP_RESUMED. Platforms
	// fire several resume signals in quick succession on wake; only the last
	// one triggers a check.
	resumeDebounce = 3 * time.Second

	// maxStateAge bounds how old a synced state may be and still drive
	// notifications. Older state reflects a client that stopped syncing, not
	// timers that are actually running.
	maxStateAge = 10 * time.Minute

	// expiryWindow bounds how far in the past an end time may lie and still
	// produce a notification.
	expiryWindow = 10 * time.Minute

	// snoozeDelay is how long a snoozed reminder stays quiet.
	snoozeDelay = 5 * time.Minute

	combinedTag = "pausa-combined"
)

// Notification is one user-visible alert. Raising a second notification with
// the same tag replaces the first.
type Notification struct {
	Tag   string
	Title string
	Body  string
}

// Notifier raises and clears user-visible notifications.
type Notifier interface {
	Notify(n Notification) error
	ClearAll() error
}

// Broadcaster pushes outbound events to every connected UI client.
type Broadcaster interface {
	Broadcast(v any)
}

// Monitor is the background timer watcher. All state is guarded by mu; the
// tick loop, the resume debounce timer, and Handle calls all funnel through
// the same checks.
type Monitor struct {
	mu        sync.Mutex
	notifier  Notifier
	broadcast Broadcaster
	logger    *slog.Logger
	now       func() time.Time
	debounce  time.Duration

	checking  bool
	state     *model.TimerState
	cooldowns map[model.ReminderType]time.Time // next eligible time per type

	resumeTimer *time.Timer
	cancel      context.CancelFunc
	done        chan struct{}
}

func New(notifier Notifier, broadcast Broadcaster, logger *slog.Logger) *Monitor {
	return &Monitor{
		notifier:  notifier,
		broadcast: broadcast,
		logger:    logger,
		now:       time.Now,
		debounce:  resumeDebounce,
		cooldowns: make(map[model.ReminderType]time.Time),
	}
}

// Start begins the background check loop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.tick()
			}
		}
	}()
}

// Stop halts the loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	if m.resumeTimer != nil {
		m.resumeTimer.Stop()
		m.resumeTimer = nil
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Handle processes one inbound control message. The returned reply is non-nil
// only for message types that answer (PING).
func (m *Monitor) Handle(msg Message) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch msg.Type {
	case MsgPing:
		return &Message{Type: MsgPong}, nil

	case MsgStartChecking:
		m.checking = true
		m.logger.Debug("background checking enabled")
		return nil, nil

	case MsgStopChecking:
		m.checking = false
		return nil, nil

	case MsgSyncTimerState:
		if msg.State == nil {
			return nil, errors.New("sync message missing timer state")
		}
		if age := m.now().UnixMilli() - msg.State.SavedAt; age > maxStateAge.Milliseconds() {
			// Stale state is ignored, not an error: the client follows up
			// with a fresh sync on its next tick.
			m.logger.Debug("ignoring stale timer state", "ageMs", age)
			return nil, nil
		}
		m.state = msg.State
		return nil, nil

	case MsgCheckTimers, MsgAppResumed:
		// Both arrive when the app regains focus; they share the debounced
		// resume check so a burst of signals evaluates once.
		m.scheduleResumeCheckLocked()
		return nil, nil

	case MsgResetCooldown:
		if !msg.TimerType.Valid() {
			return nil, fmt.Errorf("unknown timer type: %q", msg.TimerType)
		}
		delete(m.cooldowns, msg.TimerType)
		return nil, nil

	case MsgResetAllCooldowns:
		clear(m.cooldowns)
		return nil, nil

	case MsgTrialNotification:
		// Bypasses cooldowns and staleness: the user explicitly asked to see
		// what a notification looks like.
		n := Notification{
			Tag:   "pausa-trial",
			Title: "Test notification",
			Body:  "Notifications are working.",
		}
		if msg.PlanName != "" {
			n.Title = msg.PlanName + " trial"
			n.Body = fmt.Sprintf("%d days left in your %s trial.", msg.DaysRemaining, msg.PlanName)
		}
		if err := m.notifier.Notify(n); err != nil {
			return nil, err
		}
		m.broadcast.Broadcast(m.soundCommandLocked("", 1))
		return nil, nil

	case MsgClearNotifications:
		return nil, m.notifier.ClearAll()
	}
	return nil, fmt.Errorf("unknown message type: %q", msg.Type)
}

// Snooze defers a reminder from a notification action and tells the UI.
func (m *Monitor) Snooze(t model.ReminderType) {
	if !t.Valid() {
		return
	}
	m.mu.Lock()
	m.cooldowns[t] = m.now().Add(snoozeDelay)
	m.mu.Unlock()

	m.broadcast.Broadcast(SnoozeEvent{
		Type:         MsgSnoozeRequested,
		ReminderType: t,
		Duration:     snoozeDelay.Milliseconds(),
	})
}

// RequestFocus tells connected clients to bring the application forward,
// typically after the user clicked a notification.
func (m *Monitor) RequestFocus() {
	m.broadcast.Broadcast(FocusEvent{Type: MsgFocusApp, Timestamp: m.now().UnixMilli()})
}

func (m *Monitor) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.checking {
		return
	}
	m.checkLocked(false)
}

// scheduleResumeCheckLocked arms (or re-arms) the debounced resume check.
func (m *Monitor) scheduleResumeCheckLocked() {
	if m.resumeTimer != nil {
		m.resumeTimer.Stop()
	}
	m.resumeTimer = time.AfterFunc(m.debounce, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.checkLocked(true)
	})
}

// checkLocked evaluates the current state. A live check raises at most one
// notification per pass with an insistent sound; a resume check collapses
// multiple missed expiries into one combined notification with a single
// quiet chime.
func (m *Monitor) checkLocked(resume bool) {
	expired := m.expiredTypesLocked()
	if len(expired) == 0 {
		return
	}
	now := m.now()

	if !resume {
		t := expired[0]
		m.raiseLocked(Notification{Tag: t.Tag(), Title: t.Title(), Body: t.Body()}, t, 3)
		m.cooldowns[t] = now.Add(cooldownWindow)
		return
	}

	if len(expired) == 1 {
		t := expired[0]
		m.raiseLocked(Notification{Tag: t.Tag(), Title: t.Title(), Body: t.Body()}, t, 1)
		m.cooldowns[t] = now.Add(cooldownWindow)
		return
	}

	titles := make([]string, 0, len(expired))
	for _, t := range expired {
		titles = append(titles, t.Title())
		m.cooldowns[t] = now.Add(cooldownWindow)
	}
	m.raiseLocked(Notification{
		Tag:   combinedTag,
		Title: "Multiple reminders",
		Body:  "While you were away: " + strings.Join(titles, ", ") + ".",
	}, "", 1)
}

// expiredTypesLocked returns the timer types currently eligible for a
// notification, in evaluation order.
func (m *Monitor) expiredTypesLocked() []model.ReminderType {
	st := m.state
	if st == nil || !st.IsRunning {
		return nil
	}
	now := m.now()
	nowMs := now.UnixMilli()
	if nowMs-st.SavedAt > maxStateAge.Milliseconds() {
		m.logger.Debug("skipping check on stale state", "savedAt", st.SavedAt)
		return nil
	}

	var expired []model.ReminderType
	for _, t := range model.ReminderTypes() {
		end := st.EndTime(t)
		if end == nil || *end > nowMs {
			continue
		}
		if nowMs-*end >= expiryWindow.Milliseconds() {
			continue
		}
		if next, ok := m.cooldowns[t]; ok && now.Before(next) {
			continue
		}
		expired = append(expired, t)
	}
	return expired
}

func (m *Monitor) raiseLocked(n Notification, reminder model.ReminderType, repeat int) {
	if err := m.notifier.Notify(n); err != nil {
		m.logger.Error("raise notification", "tag", n.Tag, "error", err)
		return
	}
	m.broadcast.Broadcast(m.soundCommandLocked(reminder, repeat))
	m.logger.Info("notification raised", "tag", n.Tag, "title", n.Title)
}

func (m *Monitor) soundCommandLocked(reminder model.ReminderType, repeat int) SoundCommand {
	return SoundCommand{
		Type:           MsgPlaySound,
		ReminderType:   reminder,
		Timestamp:      m.now().UnixMilli(),
		RepeatCount:    repeat,
		RepeatInterval: 1500,
	}
}
