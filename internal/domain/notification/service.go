package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/curator/internal/repository"
)

// Service classifies, delivers and stores notifications.
type Service struct {
	repo       Repository
	publisher  Publisher
	classifier *Classifier
	observer   Observer
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver records every emitted notification.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a new notification service.
func NewService(repo Repository, publisher Publisher, classifier *Classifier, logger *slog.Logger, opts ...Option) *Service {
	if classifier == nil {
		classifier = NewClassifier(ClassifierOptions{})
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		repo:       repo,
		publisher:  publisher,
		classifier: classifier,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify classifies ev for each recipient and delivers the result. Recipients
// that already hold an open notification with the same dedup key are skipped.
// Everything is published before the batch is stored in one transaction, so a
// failed store keeps no rows. Messages already published cannot be recalled;
// subscribers treat them as hints and read the inbox for the stored state.
func (s *Service) Notify(ctx context.Context, ev Event, recipients []string) ([]Notification, error) {
	now := s.now()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now
	}

	var pending []Notification
	for _, recipientID := range recipients {
		if strings.TrimSpace(recipientID) == "" {
			continue
		}
		if ev.DedupKey != "" {
			open, err := s.repo.HasOpen(ctx, recipientID, ev.DedupKey)
			if err != nil {
				return nil, fmt.Errorf("%w: checking dedup key: %w", ErrDependency, err)
			}
			if open {
				s.logger.Debug("notification deduplicated", "recipient", recipientID, "dedup_key", ev.DedupKey)
				continue
			}
		}

		typ, priority := s.classifier.Classify(ev, recipientID, now)
		n := Notification{
			ID:             uuid.NewString(),
			Type:           typ,
			Priority:       priority,
			RecipientID:    recipientID,
			CollectionID:   ev.CollectionID,
			CollectionName: ev.CollectionName,
			Title:          ev.Title,
			Message:        ev.Message,
			Timestamp:      ev.OccurredAt,
			ActionURL:      ev.ActionURL,
			DedupKey:       ev.DedupKey,
		}
		if ev.Actor.ID != "" {
			n.Actors = []Actor{ev.Actor}
		}
		pending = append(pending, n)
	}

	if s.publisher != nil {
		for _, n := range pending {
			if err := s.publisher.Publish(ctx, n); err != nil {
				return nil, fmt.Errorf("%w: publishing notification: %w", ErrDependency, err)
			}
		}
	}

	if err := s.repo.CreateAll(ctx, pending); err != nil {
		return nil, fmt.Errorf("%w: storing notifications: %w", ErrDependency, err)
	}
	if s.observer != nil {
		for _, n := range pending {
			s.observer.ObserveNotification(string(n.Type), string(n.Priority))
		}
	}

	if len(pending) > 0 {
		s.logger.Debug("notifications emitted", "kind", ev.Kind, "collection_id", ev.CollectionID, "count", len(pending))
	}
	return pending, nil
}

// List returns notifications matching opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Notification, error) {
	if strings.TrimSpace(opts.RecipientID) == "" {
		return nil, fmt.Errorf("%w: recipient required", ErrValidation)
	}
	list, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return list, nil
}

// MarkRead flags a notification of recipientID as read.
func (s *Service) MarkRead(ctx context.Context, id, recipientID string) (*Notification, error) {
	return s.setFlag(ctx, id, recipientID, func(n *Notification) error {
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		return s.repo.SetRead(ctx, id, true)
	})
}

// Archive hides a notification of recipientID from the dashboard and default
// listings.
func (s *Service) Archive(ctx context.Context, id, recipientID string) (*Notification, error) {
	return s.setFlag(ctx, id, recipientID, func(n *Notification) error {
		if n.IsArchived {
			return nil
		}
		n.IsArchived = true
		return s.repo.SetArchived(ctx, id, true)
	})
}

// MarkAllRead marks every unread notification of the recipient as read.
func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	if strings.TrimSpace(recipientID) == "" {
		return 0, fmt.Errorf("%w: recipient required", ErrValidation)
	}
	count, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("marking all read: %w", err)
	}
	return count, nil
}

// DashboardSummary aggregates the recipient's open notifications.
func (s *Service) DashboardSummary(ctx context.Context, recipientID string) (DashboardSummary, error) {
	list, err := s.List(ctx, ListOptions{RecipientID: recipientID, UnreadOnly: true})
	if err != nil {
		return DashboardSummary{}, err
	}
	return Aggregate(list), nil
}

// setFlag applies a flag change on behalf of recipientID. Another
// recipient's notification is reported as missing.
func (s *Service) setFlag(ctx context.Context, id, recipientID string, apply func(n *Notification) error) (*Notification, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, fmt.Errorf("%w: recipient required", ErrValidation)
	}
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	if n.RecipientID != recipientID {
		return nil, ErrNotFound
	}
	if err := apply(n); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating notification: %w", err)
	}
	return n, nil
}
