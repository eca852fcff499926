package collection_test

import (
	"testing"

	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition_OnlySuccessors(t *testing.T) {
	targets := append(collection.States(), collection.StatePublic)

	for _, from := range collection.States() {
		allowed := map[collection.State]bool{}
		for _, s := range collection.Successors(from) {
			allowed[s] = true
		}
		for _, to := range targets {
			err := collection.ValidateTransition(from, to)
			if allowed[to] {
				require.NoError(t, err, "%s -> %s", from, to)
			} else {
				require.ErrorIs(t, err, collection.ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestValidateTransition_Table(t *testing.T) {
	tests := []struct {
		from, to collection.State
		ok       bool
	}{
		{collection.StateDraft, collection.StateAIPSubmitted, true},
		{collection.StateDraft, collection.StatePublic, true},
		{collection.StateDraft, collection.StateAOTDrafting, false},
		{collection.StateAOTReview, collection.StateAOTDrafting, true},
		{collection.StateAOTReview, collection.StateAOTApproved, true},
		{collection.StateAOTApproved, collection.StateAOTReview, false},
		{collection.StateAccessGranted, collection.StateMaintaining, true},
		{collection.StateMaintaining, collection.StateDraft, false},
		{collection.StateImplementing, collection.StateImplementing, false},
	}

	for _, tt := range tests {
		err := collection.ValidateTransition(tt.from, tt.to)
		if tt.ok {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, collection.ErrInvalidTransition)
		}
	}
}

func TestIsFrozen(t *testing.T) {
	require.False(t, collection.IsFrozen(collection.StateDraft))
	require.False(t, collection.IsFrozen(collection.StateAOTReview))
	require.True(t, collection.IsFrozen(collection.StateAOTApproved))
	require.True(t, collection.IsFrozen(collection.StateImplementing))
	require.True(t, collection.IsFrozen(collection.StateMaintaining))
}

func TestIsTerminal(t *testing.T) {
	require.True(t, collection.IsTerminal(collection.StateAccessGranted))
	require.True(t, collection.IsTerminal(collection.StateMaintaining))
	require.False(t, collection.IsTerminal(collection.StateImplementing))
}
