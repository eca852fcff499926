package collection

import "slices"

var stateOrder = []State{
	StateDraft,
	StateAIPSubmitted,
	StateAOTDrafting,
	StateAOTReview,
	StateAOTApproved,
	StateImplementing,
	StateAccessGranted,
	StateMaintaining,
}

var successors = map[State][]State{
	StateDraft:         {StatePublic, StateAIPSubmitted},
	StateAIPSubmitted:  {StateAOTDrafting},
	StateAOTDrafting:   {StateAOTReview},
	StateAOTReview:     {StateAOTApproved, StateAOTDrafting},
	StateAOTApproved:   {StateImplementing},
	StateImplementing:  {StateAccessGranted},
	StateAccessGranted: {StateMaintaining},
	StateMaintaining:   nil,
}

// States returns the workflow states in order.
func States() []State {
	return slices.Clone(stateOrder)
}

// Successors returns the legal targets from the given state.
func Successors(from State) []State {
	return slices.Clone(successors[from])
}

// ValidState reports whether s is a known workflow state.
func ValidState(s State) bool {
	_, ok := successors[s]
	return ok
}

// ValidateTransition validates a requested state transition.
func ValidateTransition(from, to State) error {
	if !slices.Contains(successors[from], to) {
		return ErrInvalidTransition
	}
	return nil
}

// IsTerminal reports whether the state is one a collection settles in once provisioned.
func IsTerminal(s State) bool {
	return s == StateAccessGranted || s == StateMaintaining
}

// IsFrozen reports whether datasets and terms are locked in this state.
func IsFrozen(s State) bool {
	return rank(s) >= rank(StateAOTApproved)
}

func rank(s State) int {
	return slices.Index(stateOrder, s)
}
