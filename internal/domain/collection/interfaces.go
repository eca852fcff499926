package collection

import (
	"context"

	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/domain/suggest"
)

// Repository provides persistence for collections and their timeline.
type Repository interface {
	Create(ctx context.Context, c *Collection) error
	Save(ctx context.Context, c *Collection) error
	Get(ctx context.Context, id string) (*Collection, error)
	List(ctx context.Context, opts ListOptions) ([]Collection, error)
	ListTimeline(ctx context.Context, collectionID string, opts TimelineOptions) ([]TimelineEvent, error)
}

// Notifier fans a raw event out to recipients.
type Notifier interface {
	Notify(ctx context.Context, ev notification.Event, recipients []string) ([]notification.Notification, error)
}

// Suggester extracts keywords and categories from free text.
type Suggester interface {
	Suggest(text string) suggest.Result
}

// Observer records transition outcomes.
type Observer interface {
	ObserveTransition(from, to, result string)
}
