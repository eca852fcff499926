package mocks

import (
	"context"

	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/stretchr/testify/mock"
)

// CollectionRepository is a mock for collection.Repository.
type CollectionRepository struct {
	mock.Mock
}

func (m *CollectionRepository) Create(ctx context.Context, c *collection.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CollectionRepository) Save(ctx context.Context, c *collection.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CollectionRepository) Get(ctx context.Context, id string) (*collection.Collection, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*collection.Collection); ok {
		// Hand out a copy so services cannot mutate the fixture.
		cp := c.Clone()
		return &cp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollectionRepository) List(ctx context.Context, opts collection.ListOptions) ([]collection.Collection, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]collection.Collection); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollectionRepository) ListTimeline(ctx context.Context, collectionID string, opts collection.TimelineOptions) ([]collection.TimelineEvent, error) {
	args := m.Called(ctx, collectionID, opts)
	if list, ok := args.Get(0).([]collection.TimelineEvent); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// NotificationRepository is a mock for notification.Repository.
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) CreateAll(ctx context.Context, list []notification.Notification) error {
	args := m.Called(ctx, list)
	return args.Error(0)
}

func (m *NotificationRepository) Get(ctx context.Context, id string) (*notification.Notification, error) {
	args := m.Called(ctx, id)
	if n, ok := args.Get(0).(*notification.Notification); ok {
		cp := *n
		return &cp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NotificationRepository) List(ctx context.Context, opts notification.ListOptions) ([]notification.Notification, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]notification.Notification); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NotificationRepository) SetRead(ctx context.Context, id string, read bool) error {
	args := m.Called(ctx, id, read)
	return args.Error(0)
}

func (m *NotificationRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	args := m.Called(ctx, id, archived)
	return args.Error(0)
}

func (m *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) HasOpen(ctx context.Context, recipientID, dedupKey string) (bool, error) {
	args := m.Called(ctx, recipientID, dedupKey)
	return args.Bool(0), args.Error(1)
}

// Publisher is a mock for notification.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, n notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// Notifier is a mock for collection.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, ev notification.Event, recipients []string) ([]notification.Notification, error) {
	args := m.Called(ctx, ev, recipients)
	if list, ok := args.Get(0).([]notification.Notification); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
