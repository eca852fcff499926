package collection_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/domain/suggest"
	"github.com/rpggio/curator/internal/repository"
	"github.com/rpggio/curator/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func readyCollection(state collection.State) *collection.Collection {
	return &collection.Collection{
		ID:       "c1",
		Name:     "Cardiac cohort",
		State:    state,
		Owner:    "owner",
		Watchers: []string{"watcher"},
		Datasets: []collection.Dataset{ds("d1", 50, 0, 50, 0)},
		Users:    []collection.UserAssignment{{UserID: "u1", Role: collection.RoleRequester}},
		Terms:    collection.AgreementOfTerms{PrimaryUse: collection.PrimaryUse{Research: true}},
	}
}

func TestCollectionService_Create(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Create", ctx, mock.Anything).Return(nil)

	engine := suggest.NewEngine(suggest.DefaultTaxonomy(), 0)
	svc := collection.NewService(repo, nil, nil, collection.WithClock(clock), collection.WithSuggester(engine))

	c, err := svc.Create(ctx, collection.CreateRequest{
		OwnerID: "owner",
		Name:    "Heart study",
		Intent:  "cardiac imaging for heart failure patients",
	})
	require.NoError(t, err)
	require.Equal(t, collection.StateDraft, c.State)
	require.Equal(t, fixedNow, c.StateEnteredAt)
	require.Contains(t, c.Keywords, "cardiac")
	require.Equal(t, "cardiology", c.Categories[0])
	require.Len(t, c.Timeline, 1)
	require.Equal(t, collection.EventCreated, c.Timeline[0].Type)
}

func TestCollectionService_Create_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Create", ctx, mock.Anything).Return(fmt.Errorf("%w: collection c1", repository.ErrConflict))

	svc := collection.NewService(repo, nil, nil, collection.WithClock(clock))
	_, err := svc.Create(ctx, collection.CreateRequest{ID: "c1", OwnerID: "mallory", Name: "Takeover"})
	require.ErrorIs(t, err, collection.ErrAlreadyExists)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCollectionService_Create_RequiresName(t *testing.T) {
	svc := collection.NewService(&mocks.CollectionRepository{}, nil, nil)
	_, err := svc.Create(context.Background(), collection.CreateRequest{OwnerID: "owner"})
	require.ErrorIs(t, err, collection.ErrValidation)
}

func TestCollectionService_Transition_NotifiesWatchers(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	notifier := &mocks.Notifier{}

	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateAOTDrafting), nil)
	repo.On("Save", ctx, mock.MatchedBy(func(c *collection.Collection) bool {
		return c.State == collection.StateAOTReview
	})).Return(nil)
	notifier.On("Notify", ctx, mock.MatchedBy(func(ev notification.Event) bool {
		return ev.Kind == notification.EventStateChanged &&
			ev.ToState == string(collection.StateAOTReview) &&
			!ev.StateTerminal &&
			ev.CollectionName == "Cardiac cohort"
	}), []string{"owner", "watcher"}).Return([]notification.Notification{}, nil)

	svc := collection.NewService(repo, notifier, nil, collection.WithClock(clock))
	c, err := svc.Transition(ctx, "c1", collection.StateAOTReview, "owner")
	require.NoError(t, err)
	require.Equal(t, collection.StateAOTReview, c.State)
	require.Equal(t, fixedNow, c.StateEnteredAt)

	last := c.Timeline[len(c.Timeline)-1]
	require.Equal(t, collection.EventStateChange, last.Type)
	require.Equal(t, collection.StateAOTDrafting, *last.FromState)
	require.Equal(t, collection.StateAOTReview, *last.ToState)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCollectionService_Transition_Invalid(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateDraft), nil)

	svc := collection.NewService(repo, nil, nil)
	_, err := svc.Transition(ctx, "c1", collection.StateImplementing, "owner")
	require.ErrorIs(t, err, collection.ErrInvalidTransition)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCollectionService_Transition_AIPRequiresReadiness(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "c1").Return(&collection.Collection{ID: "c1", State: collection.StateDraft, Owner: "owner"}, nil)

	svc := collection.NewService(repo, nil, nil)
	_, err := svc.Transition(ctx, "c1", collection.StateAIPSubmitted, "owner")
	require.ErrorIs(t, err, collection.ErrPreconditionNotMet)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCollectionService_Transition_DraftToPublicSetsFlag(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "c1").Return(&collection.Collection{ID: "c1", State: collection.StateDraft, Owner: "owner"}, nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)

	svc := collection.NewService(repo, &mocks.Notifier{}, nil)
	c, err := svc.Transition(ctx, "c1", collection.StatePublic, "owner")
	require.NoError(t, err)
	require.Equal(t, collection.StateDraft, c.State)
	require.True(t, c.IsPublic)
}

func TestCollectionService_Transition_CompensatesOnNotifyFailure(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	notifier := &mocks.Notifier{}

	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateImplementing), nil)
	repo.On("Save", ctx, mock.MatchedBy(func(c *collection.Collection) bool {
		return c.State == collection.StateAccessGranted
	})).Return(nil).Once()
	repo.On("Save", ctx, mock.MatchedBy(func(c *collection.Collection) bool {
		return c.State == collection.StateImplementing
	})).Return(nil).Once()
	notifier.On("Notify", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("broker down"))

	svc := collection.NewService(repo, notifier, nil)
	_, err := svc.Transition(ctx, "c1", collection.StateAccessGranted, "owner")
	require.ErrorIs(t, err, collection.ErrDependency)
	repo.AssertExpectations(t)
}

func TestCollectionService_Transition_SaveFailure(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateAOTReview), nil)
	repo.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))

	svc := collection.NewService(repo, &mocks.Notifier{}, nil)
	_, err := svc.Transition(ctx, "c1", collection.StateAOTApproved, "owner")
	require.ErrorIs(t, err, collection.ErrDependency)
}

func TestCollectionService_Transition_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := collection.NewService(repo, nil, nil)
	_, err := svc.Transition(ctx, "missing", collection.StateAIPSubmitted, "owner")
	require.ErrorIs(t, err, collection.ErrNotFound)
}

func TestCollectionService_SetTerms_ImmutableWhenImplementing(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateImplementing), nil)

	svc := collection.NewService(repo, nil, nil)
	_, err := svc.SetTerms(ctx, "c1", collection.AgreementOfTerms{
		PrimaryUse: collection.PrimaryUse{Analytics: true},
	}, "owner")
	require.ErrorIs(t, err, collection.ErrImmutableState)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCollectionService_AddDataset(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateDraft), nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)

	svc := collection.NewService(repo, nil, nil)
	c, err := svc.AddDataset(ctx, "c1", ds("d2", 0, 0, 0, 100), "owner")
	require.NoError(t, err)
	require.Len(t, c.Datasets, 2)

	_, err = svc.AddDataset(ctx, "c1", ds("d1", 0, 0, 0, 100), "owner")
	require.ErrorIs(t, err, collection.ErrValidation)

	_, err = svc.AddDataset(ctx, "c1", ds("d3", 0, 0, 0, 90), "owner")
	require.ErrorIs(t, err, collection.ErrValidation)
}

func TestCollectionService_RemoveDataset_Frozen(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateAOTApproved), nil)

	svc := collection.NewService(repo, nil, nil)
	_, err := svc.RemoveDataset(ctx, "c1", "d1", "owner")
	require.ErrorIs(t, err, collection.ErrImmutableState)
}

func TestCollectionService_UpdateDataset_UnavailableNotifies(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	notifier := &mocks.Notifier{}
	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateImplementing), nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)
	notifier.On("Notify", ctx, mock.MatchedBy(func(ev notification.Event) bool {
		return ev.Kind == notification.EventDatasetStatusChanged && ev.DatasetStatus == "unavailable"
	}), []string{"owner", "watcher"}).Return([]notification.Notification{}, nil)

	svc := collection.NewService(repo, notifier, nil)
	status := collection.DatasetUnavailable
	c, err := svc.UpdateDataset(ctx, "c1", collection.UpdateDatasetRequest{DatasetID: "d1", Status: &status}, "steward")
	require.NoError(t, err)
	require.Equal(t, collection.DatasetUnavailable, c.Datasets[0].Status)
	notifier.AssertExpectations(t)
}

func TestCollectionService_AddComment_NotifiesMentions(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	notifier := &mocks.Notifier{}
	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateDraft), nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)
	notifier.On("Notify", ctx, mock.MatchedBy(func(ev notification.Event) bool {
		return ev.Kind == notification.EventComment
	}), []string{"alice"}).Return([]notification.Notification{}, nil)

	svc := collection.NewService(repo, notifier, nil)
	c, err := svc.AddComment(ctx, "c1", "owner", `<script>alert(1)</script>please check @alice`)
	require.NoError(t, err)
	comment := c.Comments[len(c.Comments)-1]
	require.NotContains(t, comment.Body, "<script>")
	require.Equal(t, []string{"alice"}, comment.Mentions)
	notifier.AssertExpectations(t)
}

func TestCollectionService_AddWatcher_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	repo.On("Get", ctx, "c1").Return(readyCollection(collection.StateDraft), nil)

	svc := collection.NewService(repo, nil, nil)
	c, err := svc.AddWatcher(ctx, "c1", "watcher", "owner")
	require.NoError(t, err)
	require.Equal(t, []string{"watcher"}, c.Watchers)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCollectionService_Approvals(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	notifier := &mocks.Notifier{}

	base := readyCollection(collection.StateAOTReview)
	base.Approvals = []collection.Approval{{
		ID: "a1", Step: "privacy", ApproverID: "approver", Status: collection.ApprovalPending,
		RequestedAt: fixedNow.Add(-48 * time.Hour),
	}}
	repo.On("Get", ctx, "c1").Return(base, nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)
	notifier.On("Notify", ctx, mock.Anything, mock.Anything).Return([]notification.Notification{}, nil)

	svc := collection.NewService(repo, notifier, nil, collection.WithClock(clock))

	c, err := svc.RequestApproval(ctx, "c1", "security", "secops", "owner")
	require.NoError(t, err)
	require.Len(t, c.Approvals, 2)
	require.Equal(t, collection.ApprovalPending, c.Approvals[1].Status)
	notifier.AssertCalled(t, "Notify", ctx, mock.Anything, []string{"secops"})

	c, err = svc.BlockApproval(ctx, "c1", "a1", "missing DUA", "approver")
	require.NoError(t, err)
	require.Equal(t, collection.ApprovalBlocked, c.Approvals[0].Status)
	require.Equal(t, fixedNow, *c.Approvals[0].BlockedSince)

	c, err = svc.ResolveApproval(ctx, "c1", "a1", true, "approver")
	require.NoError(t, err)
	require.Equal(t, collection.ApprovalApproved, c.Approvals[0].Status)

	_, err = svc.ResolveApproval(ctx, "c1", "nope", true, "approver")
	require.ErrorIs(t, err, collection.ErrNotFound)
}

func TestCollectionService_AccessSummary(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.CollectionRepository{}
	c := readyCollection(collection.StateDraft)
	c.Datasets = []collection.Dataset{ds("a", 100, 0, 0, 0), ds("b", 0, 0, 100, 0)}
	repo.On("Get", ctx, "c1").Return(c, nil)

	svc := collection.NewService(repo, nil, nil)
	summary, err := svc.AccessSummary(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 50, summary.AlreadyOpenPct)
	require.Equal(t, 50, summary.NeedsApprovalPct)
	require.Equal(t, collection.ETAApproval, summary.ETA)
}
