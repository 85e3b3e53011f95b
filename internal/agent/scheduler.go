package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/abutispinach/agroplan/internal/log"
)

// Reminder is a stored calendar entry that is due for a chat.
type Reminder struct {
	ID       int64
	Channel  string
	ChatID   string
	Crop     string
	Location string
	Date     string
	Task     string
	Details  string
	Tip      string
}

// Text renders the reminder message.
func (r Reminder) Text() string {
	msg := fmt.Sprintf("⏰ %s in %s, %s\n%s", r.Crop, r.Location, r.Date, r.Task)
	if r.Details != "" {
		msg += "\n" + r.Details
	}
	if r.Tip != "" {
		msg += "\nTip: " + r.Tip
	}
	return msg
}

// Messenger delivers text to a chat.
type Messenger interface {
	Send(chatID string, text string) error
}

// ReminderStore yields reminders due on or before a day and marks sent ones.
type ReminderStore interface {
	DueReminders(ctx context.Context, day string) ([]Reminder, error)
	MarkReminded(ctx context.Context, id int64) error
}

// Scheduler sends calendar reminders through the gateway the run came from.
type Scheduler struct {
	Store      ReminderStore
	Messengers map[string]Messenger
	Interval   time.Duration
	Now        func() time.Time
}

func NewScheduler(store ReminderStore, messengers map[string]Messenger, interval time.Duration) *Scheduler {
	return &Scheduler{
		Store:      store,
		Messengers: messengers,
		Interval:   interval,
	}
}

// Start polls until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("reminder scheduler started", "interval", interval)

	s.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll sends every due reminder once. A reminder whose delivery fails stays
// pending for the next poll.
func (s *Scheduler) Poll(ctx context.Context) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	day := now().Format(DateLayout)

	due, err := s.Store.DueReminders(ctx, day)
	if err != nil {
		log.Error("failed to poll reminders", "error", err)
		return
	}

	for _, r := range due {
		m, ok := s.Messengers[r.Channel]
		if !ok {
			log.Debug("no messenger for reminder", "id", r.ID, "channel", r.Channel)
			continue
		}
		if err := m.Send(r.ChatID, r.Text()); err != nil {
			log.Warn("failed to send reminder", "id", r.ID, "channel", r.Channel, "error", err)
			continue
		}
		if err := s.Store.MarkReminded(ctx, r.ID); err != nil {
			log.Error("failed to mark reminder", "id", r.ID, "error", err)
		}
	}
}
