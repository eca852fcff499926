package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/repository"
	"github.com/rpggio/curator/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	seen []string
}

func (o *countingObserver) ObserveNotification(typ, priority string) {
	o.seen = append(o.seen, typ+"/"+priority)
}

func TestNotificationService_Notify_ClassifiesPerRecipient(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	pub := &mocks.Publisher{}
	obs := &countingObserver{}

	repo.On("HasOpen", ctx, mock.Anything, "comment:1").Return(false, nil)
	repo.On("CreateAll", ctx, mock.Anything).Return(nil)
	pub.On("Publish", ctx, mock.Anything).Return(nil)

	svc := notification.NewService(repo, pub, nil, nil,
		notification.WithClock(func() time.Time { return now }),
		notification.WithObserver(obs))

	out, err := svc.Notify(ctx, notification.Event{
		Kind:         notification.EventComment,
		CollectionID: "c1",
		Actor:        notification.Actor{ID: "owner"},
		Mentions:     []string{"alice"},
		DedupKey:     "comment:1",
	}, []string{"alice", "bob", ""})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, notification.TypeMention, out[0].Type)
	require.Equal(t, notification.TypeUpdate, out[1].Type)
	require.Equal(t, now, out[0].Timestamp)
	require.Equal(t, []notification.Actor{{ID: "owner"}}, out[0].Actors)
	require.Equal(t, []string{"mention/high", "update/medium"}, obs.seen)
	pub.AssertNumberOfCalls(t, "Publish", 2)
	repo.AssertNumberOfCalls(t, "CreateAll", 1)
}

func TestNotificationService_Notify_Dedup(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	pub := &mocks.Publisher{}

	repo.On("HasOpen", ctx, "alice", "sla:c1:a1:pending").Return(true, nil)
	repo.On("HasOpen", ctx, "bob", "sla:c1:a1:pending").Return(false, nil)
	repo.On("CreateAll", ctx, mock.MatchedBy(func(list []notification.Notification) bool {
		return len(list) == 1 && list[0].RecipientID == "bob"
	})).Return(nil)
	pub.On("Publish", ctx, mock.Anything).Return(nil)

	svc := notification.NewService(repo, pub, nil, nil)
	out, err := svc.Notify(ctx, notification.Event{
		Kind:        notification.EventApprovalPending,
		DaysPending: 4,
		DedupKey:    "sla:c1:a1:pending",
	}, []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, notification.TypeApproval, out[0].Type)
	require.Equal(t, notification.PriorityHigh, out[0].Priority)
}

func TestNotificationService_Notify_PublishFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	pub := &mocks.Publisher{}
	pub.On("Publish", ctx, mock.Anything).Return(errors.New("connection refused"))

	svc := notification.NewService(repo, pub, nil, nil)
	_, err := svc.Notify(ctx, notification.Event{Kind: notification.EventStateChanged}, []string{"u1"})
	require.ErrorIs(t, err, notification.ErrDependency)
	repo.AssertNotCalled(t, "CreateAll", mock.Anything, mock.Anything)
}

func TestNotificationService_Notify_StoreFailure(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	obs := &countingObserver{}
	repo.On("CreateAll", ctx, mock.MatchedBy(func(list []notification.Notification) bool {
		return len(list) == 2
	})).Return(errors.New("disk full"))

	svc := notification.NewService(repo, nil, nil, nil, notification.WithObserver(obs))
	out, err := svc.Notify(ctx, notification.Event{Kind: notification.EventStateChanged}, []string{"owner", "watcher"})
	require.ErrorIs(t, err, notification.ErrDependency)
	require.Nil(t, out)
	require.Empty(t, obs.seen)
	repo.AssertNumberOfCalls(t, "CreateAll", 1)
}

func TestNotificationService_MarkRead(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	stored := &notification.Notification{ID: "n1", Type: notification.TypeBlocker, Priority: notification.PriorityCritical, CollectionID: "c1", RecipientID: "u1"}
	repo.On("Get", ctx, "n1").Return(stored, nil)
	repo.On("SetRead", ctx, "n1", true).Return(nil)

	svc := notification.NewService(repo, nil, nil, nil)
	n, err := svc.MarkRead(ctx, "n1", "u1")
	require.NoError(t, err)
	require.True(t, n.IsRead)
	require.Equal(t, notification.TypeBlocker, n.Type)
	require.Equal(t, notification.PriorityCritical, n.Priority)
	require.Equal(t, "c1", n.CollectionID)
}

func TestNotificationService_Archive_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := notification.NewService(repo, nil, nil, nil)
	_, err := svc.Archive(ctx, "missing", "u1")
	require.ErrorIs(t, err, notification.ErrNotFound)
}

func TestNotificationService_FlagsRequireRecipient(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	stored := &notification.Notification{ID: "n1", Type: notification.TypeMention, RecipientID: "bob"}
	repo.On("Get", ctx, "n1").Return(stored, nil)

	svc := notification.NewService(repo, nil, nil, nil)

	_, err := svc.MarkRead(ctx, "n1", "mallory")
	require.ErrorIs(t, err, notification.ErrNotFound)
	_, err = svc.Archive(ctx, "n1", "mallory")
	require.ErrorIs(t, err, notification.ErrNotFound)
	_, err = svc.MarkRead(ctx, "n1", "")
	require.ErrorIs(t, err, notification.ErrValidation)

	repo.AssertNotCalled(t, "SetRead", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SetArchived", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("MarkAllRead", ctx, "u1").Return(int64(4), nil)

	svc := notification.NewService(repo, nil, nil, nil)
	count, err := svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(4), count)

	_, err = svc.MarkAllRead(ctx, " ")
	require.ErrorIs(t, err, notification.ErrValidation)
}

func TestNotificationService_DashboardSummary(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("List", ctx, notification.ListOptions{RecipientID: "u1", UnreadOnly: true}).Return([]notification.Notification{
		note("c1", notification.TypeApproval, notification.PriorityHigh, now),
		note("c1", notification.TypeApproval, notification.PriorityHigh, now.Add(-time.Hour)),
	}, nil)

	svc := notification.NewService(repo, nil, nil, nil)
	summary, err := svc.DashboardSummary(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, summary.NearingSLA, 1)
	require.Equal(t, 2, summary.NearingSLA[0].Count)
}
