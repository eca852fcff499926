package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/repository"
	"github.com/stretchr/testify/require"
)

func newCollection(id, owner string, state collection.State, updated time.Time) *collection.Collection {
	created := updated.Add(-time.Hour)
	return &collection.Collection{
		ID:             id,
		Name:           "Collection " + id,
		Description:    "desc",
		State:          state,
		Owner:          owner,
		CreatedAt:      created,
		UpdatedAt:      updated,
		StateEnteredAt: updated,
		Datasets: []collection.Dataset{{
			ID:              "d1",
			Name:            "Encounters",
			AccessBreakdown: collection.AccessBreakdown{AlreadyOpen: 60, NeedsApproval: 40},
			Status:          collection.DatasetAvailable,
		}},
		Users:    []collection.UserAssignment{{UserID: "u1", Name: "Una", Role: collection.RoleRequester}},
		Scope:    collection.Scope{Roles: []string{"analyst"}},
		Terms:    collection.AgreementOfTerms{PrimaryUse: collection.PrimaryUse{Research: true}},
		Watchers: []string{"w1"},
		Approvals: []collection.Approval{{
			ID: "a1", Step: "privacy", ApproverID: "p1", Status: collection.ApprovalPending, RequestedAt: created,
		}},
		Keywords:   []string{"cardiac"},
		Categories: []string{"cardiology"},
		Timeline: []collection.TimelineEvent{
			{ID: id + "-e1", Type: collection.EventCreated, ActorID: owner, Summary: "created", OccurredAt: created},
		},
	}
}

func TestCollectionRepository_SaveGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewCollectionRepository(db)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := newCollection("c1", "owner", collection.StateDraft, now)
	require.NoError(t, repo.Save(ctx, c))

	loaded, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, c.Name, loaded.Name)
	require.Equal(t, c.State, loaded.State)
	require.True(t, c.UpdatedAt.Equal(loaded.UpdatedAt))
	require.Equal(t, c.Datasets, loaded.Datasets)
	require.Equal(t, c.Users, loaded.Users)
	require.Equal(t, c.Scope, loaded.Scope)
	require.Equal(t, c.Terms, loaded.Terms)
	require.Equal(t, c.Watchers, loaded.Watchers)
	require.Len(t, loaded.Approvals, 1)
	require.True(t, c.Approvals[0].RequestedAt.Equal(loaded.Approvals[0].RequestedAt))
	require.Len(t, loaded.Timeline, 1)
	require.Equal(t, collection.EventCreated, loaded.Timeline[0].Type)
}

func TestCollectionRepository_GetNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCollectionRepository(db)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCollectionRepository_CreateRejectsExistingID(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewCollectionRepository(db)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	original := newCollection("c1", "alice", collection.StateAIPSubmitted, now)
	require.NoError(t, repo.Create(ctx, original))

	intruder := newCollection("c1", "mallory", collection.StateDraft, now.Add(time.Hour))
	intruder.Datasets = nil
	intruder.Timeline = []collection.TimelineEvent{
		{ID: "c1-intruder", Type: collection.EventCreated, ActorID: "mallory", Summary: "created", OccurredAt: now},
	}
	err := repo.Create(ctx, intruder)
	require.ErrorIs(t, err, repository.ErrConflict)

	loaded, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "alice", loaded.Owner)
	require.Equal(t, collection.StateAIPSubmitted, loaded.State)
	require.Len(t, loaded.Datasets, 1)
	require.Len(t, loaded.Timeline, 1)
	require.Equal(t, "c1-e1", loaded.Timeline[0].ID)
}

func TestCollectionRepository_SaveReplacesTimeline(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewCollectionRepository(db)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	prev := newCollection("c1", "owner", collection.StateAOTReview, now)
	require.NoError(t, repo.Save(ctx, prev))

	next := prev.Clone()
	from, to := collection.StateAOTReview, collection.StateAOTApproved
	next.State = to
	next.Timeline = append(next.Timeline, collection.TimelineEvent{
		ID: "c1-e2", Type: collection.EventStateChange, ActorID: "owner", Summary: "approved",
		FromState: &from, ToState: &to, OccurredAt: now.Add(time.Minute),
	})
	require.NoError(t, repo.Save(ctx, &next))

	loaded, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, collection.StateAOTApproved, loaded.State)
	require.Len(t, loaded.Timeline, 2)
	require.Equal(t, collection.StateAOTReview, *loaded.Timeline[1].FromState)

	// Restoring the earlier snapshot drops the newer event.
	require.NoError(t, repo.Save(ctx, prev))
	loaded, err = repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, collection.StateAOTReview, loaded.State)
	require.Len(t, loaded.Timeline, 1)
}

func TestCollectionRepository_List(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewCollectionRepository(db)

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, newCollection("c1", "alice", collection.StateDraft, base)))
	require.NoError(t, repo.Save(ctx, newCollection("c2", "alice", collection.StateImplementing, base.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, newCollection("c3", "bob", collection.StateMaintaining, base.Add(2*time.Hour))))

	all, err := repo.List(ctx, collection.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "c3", all[0].ID)

	mine, err := repo.List(ctx, collection.ListOptions{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	active, err := repo.List(ctx, collection.ListOptions{
		States: []collection.State{collection.StateDraft, collection.StateImplementing},
	})
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "c2", active[0].ID)
	require.Len(t, active[0].Approvals, 1)

	page, err := repo.List(ctx, collection.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "c2", page[0].ID)
}

func TestCollectionRepository_ListTimeline(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewCollectionRepository(db)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := newCollection("c1", "owner", collection.StateDraft, now)
	c.Timeline = append(c.Timeline,
		collection.TimelineEvent{ID: "e2", Type: collection.EventDatasetAdded, ActorID: "owner", Summary: "added", OccurredAt: now},
		collection.TimelineEvent{ID: "e3", Type: collection.EventCommentAdded, ActorID: "owner", Summary: "comment", OccurredAt: now},
		collection.TimelineEvent{ID: "e4", Type: collection.EventDatasetAdded, ActorID: "owner", Summary: "added again", OccurredAt: now},
	)
	require.NoError(t, repo.Save(ctx, c))

	events, err := repo.ListTimeline(ctx, "c1", collection.TimelineOptions{})
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, "e4", events[0].ID)

	added, err := repo.ListTimeline(ctx, "c1", collection.TimelineOptions{Type: collection.EventDatasetAdded, Limit: 1})
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.Equal(t, "e4", added[0].ID)
}
