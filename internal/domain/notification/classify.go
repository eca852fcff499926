package notification

import (
	"slices"
	"time"
)

// Default classifier thresholds.
const (
	DefaultNearingDays      = 3
	DefaultCompletionWindow = 7 * 24 * time.Hour
)

// Rule maps matching events to a type and priority.
type Rule struct {
	Name     string
	Type     Type
	Priority Priority
	Match    func(ev Event, recipientID string, now time.Time) bool
}

// ClassifierOptions tunes the rule thresholds.
type ClassifierOptions struct {
	NearingDays      int
	CompletionWindow time.Duration
}

// Classifier evaluates an ordered rule table; the first match wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds the rule table with the given thresholds.
func NewClassifier(opts ClassifierOptions) *Classifier {
	if opts.NearingDays <= 0 {
		opts.NearingDays = DefaultNearingDays
	}
	if opts.CompletionWindow <= 0 {
		opts.CompletionWindow = DefaultCompletionWindow
	}

	return &Classifier{rules: []Rule{
		{
			Name: "approval-blocked", Type: TypeBlocker, Priority: PriorityCritical,
			Match: func(ev Event, _ string, _ time.Time) bool {
				return ev.Kind == EventApprovalBlocked && ev.DaysBlocked > 0
			},
		},
		{
			Name: "dataset-unavailable", Type: TypeBlocker, Priority: PriorityHigh,
			Match: func(ev Event, _ string, _ time.Time) bool {
				return ev.Kind == EventDatasetStatusChanged && ev.DatasetStatus == "unavailable"
			},
		},
		{
			Name: "mention", Type: TypeMention, Priority: PriorityHigh,
			Match: func(ev Event, recipientID string, _ time.Time) bool {
				return ev.Kind == EventComment && slices.Contains(ev.Mentions, recipientID)
			},
		},
		{
			Name: "approval-nearing-sla", Type: TypeApproval, Priority: PriorityHigh,
			Match: func(ev Event, _ string, _ time.Time) bool {
				return ev.Kind == EventApprovalPending && ev.DaysPending >= opts.NearingDays
			},
		},
		{
			Name: "completion", Type: TypeCompletion, Priority: PriorityLow,
			Match: func(ev Event, _ string, now time.Time) bool {
				return ev.Kind == EventStateChanged && ev.StateTerminal &&
					now.Sub(ev.OccurredAt) <= opts.CompletionWindow
			},
		},
		{
			Name: "state-update", Type: TypeUpdate, Priority: PriorityMedium,
			Match: func(ev Event, _ string, _ time.Time) bool {
				return ev.Kind == EventStateChanged
			},
		},
	}}
}

// Rules returns the rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	return slices.Clone(c.rules)
}

// Classify returns the type and priority of ev as seen by recipientID.
// Events no rule matches are (update, medium).
func (c *Classifier) Classify(ev Event, recipientID string, now time.Time) (Type, Priority) {
	for _, rule := range c.rules {
		if rule.Match(ev, recipientID, now) {
			return rule.Type, rule.Priority
		}
	}
	return TypeUpdate, PriorityMedium
}
