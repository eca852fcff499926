// Package sla raises reminders for approvals that sit pending or blocked.
package sla

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
)

// Collections lists collections whose approvals are swept.
type Collections interface {
	List(ctx context.Context, opts collection.ListOptions) ([]collection.Collection, error)
}

// Notifier delivers sweep events.
type Notifier interface {
	Notify(ctx context.Context, ev notification.Event, recipients []string) ([]notification.Notification, error)
}

// Observer records sweep runs.
type Observer interface {
	ObserveSweep(result string, duration time.Duration)
}

// Result summarises one sweep.
type Result struct {
	Collections int `json:"collections"`
	Approvals   int `json:"approvals"`
	Emitted     int `json:"emitted"`
	Failed      int `json:"failed"`
}

// Sweeper scans unresolved approvals and emits SLA events. Repeated sweeps
// are absorbed by notification dedup keys.
type Sweeper struct {
	collections Collections
	notifier    Notifier
	observer    Observer
	nearingDays int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithNearingDays sets how long an approval may stay pending before a reminder.
func WithNearingDays(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.nearingDays = days
		}
	}
}

// WithObserver records each sweep.
func WithObserver(o Observer) Option {
	return func(s *Sweeper) { s.observer = o }
}

// NewSweeper creates a new Sweeper.
func NewSweeper(collections Collections, notifier Notifier, logger *slog.Logger, opts ...Option) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Sweeper{
		collections: collections,
		notifier:    notifier,
		nearingDays: notification.DefaultNearingDays,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// activeStates are the states whose approvals still matter.
var activeStates = []collection.State{
	collection.StateDraft,
	collection.StateAIPSubmitted,
	collection.StateAOTDrafting,
	collection.StateAOTReview,
	collection.StateAOTApproved,
	collection.StateImplementing,
}

// SweepOnce runs a single pass. Delivery failures are counted and the pass
// continues; the returned error reports the first of them.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	start := s.now()
	result, err := s.sweep(ctx, start)

	if s.observer != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.observer.ObserveSweep(outcome, s.now().Sub(start))
	}
	return result, err
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) (Result, error) {
	var result Result

	list, err := s.collections.List(ctx, collection.ListOptions{States: activeStates})
	if err != nil {
		return result, fmt.Errorf("listing collections: %w", err)
	}
	result.Collections = len(list)

	var firstErr error
	for _, c := range list {
		for _, a := range c.Approvals {
			if !a.Unresolved() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Approvals++

			ev := approvalEvent(c, a, now)
			if !s.due(ev) {
				continue
			}
			sent, err := s.notifier.Notify(ctx, ev, recipients(c, a))
			if err != nil {
				result.Failed++
				if firstErr == nil {
					firstErr = err
				}
				s.logger.Warn("sla notification failed", "collection_id", c.ID, "approval_id", a.ID, "error", err)
				continue
			}
			result.Emitted += len(sent)
		}
	}

	if firstErr != nil {
		return result, fmt.Errorf("sweep delivered with %d failures: %w", result.Failed, firstErr)
	}
	return result, nil
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("sla sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sla sweeper stopped")
			return nil
		case <-ticker.C:
			result, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("sla sweep failed", "error", err)
				continue
			}
			s.logger.Debug("sla sweep finished",
				"collections", result.Collections,
				"approvals", result.Approvals,
				"emitted", result.Emitted)
		}
	}
}

// due reports whether the approval has crossed its reminder threshold.
func (s *Sweeper) due(ev notification.Event) bool {
	if ev.Kind == notification.EventApprovalBlocked {
		return ev.DaysBlocked > 0
	}
	return ev.DaysPending >= s.nearingDays
}

func approvalEvent(c collection.Collection, a collection.Approval, now time.Time) notification.Event {
	ev := notification.Event{
		CollectionID:   c.ID,
		CollectionName: c.Name,
		Actor:          notification.Actor{ID: a.ApproverID},
		ActionURL:      "/collections/" + c.ID,
		OccurredAt:     now,
	}

	if a.Status == collection.ApprovalBlocked && a.BlockedSince != nil {
		days := wholeDays(now.Sub(*a.BlockedSince))
		ev.Kind = notification.EventApprovalBlocked
		ev.DaysBlocked = days
		ev.Title = fmt.Sprintf("%s approval blocked for %d days", a.Step, days)
		ev.Message = fmt.Sprintf("The %s approval on %s is blocked: %s", a.Step, c.Name, a.BlockedReason)
		ev.DedupKey = fmt.Sprintf("sla:%s:%s:blocked", c.ID, a.ID)
		return ev
	}

	days := wholeDays(now.Sub(a.RequestedAt))
	ev.Kind = notification.EventApprovalPending
	ev.DaysPending = days
	ev.Title = fmt.Sprintf("%s approval pending for %d days", a.Step, days)
	ev.Message = fmt.Sprintf("The %s approval on %s awaits %s.", a.Step, c.Name, a.ApproverID)
	ev.DedupKey = fmt.Sprintf("sla:%s:%s:pending", c.ID, a.ID)
	return ev
}

func recipients(c collection.Collection, a collection.Approval) []string {
	if a.ApproverID == "" || a.ApproverID == c.Owner {
		return []string{c.Owner}
	}
	return []string{a.ApproverID, c.Owner}
}

func wholeDays(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
