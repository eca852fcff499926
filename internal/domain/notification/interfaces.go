package notification

import "context"

// Repository provides persistence for notifications.
type Repository interface {
	CreateAll(ctx context.Context, list []Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, opts ListOptions) ([]Notification, error)
	SetRead(ctx context.Context, id string, read bool) error
	SetArchived(ctx context.Context, id string, archived bool) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	HasOpen(ctx context.Context, recipientID, dedupKey string) (bool, error)
}

// Publisher delivers notifications to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Observer records emitted notifications.
type Observer interface {
	ObserveNotification(typ, priority string)
}
