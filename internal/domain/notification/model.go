package notification

import "time"

// Type is the triage class of a notification.
type Type string

const (
	TypeBlocker    Type = "blocker"
	TypeMention    Type = "mention"
	TypeApproval   Type = "approval"
	TypeUpdate     Type = "update"
	TypeCompletion Type = "completion"
)

// Priority orders notifications within a type.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// Higher reports whether p outranks other.
func (p Priority) Higher(other Priority) bool {
	return priorityRank[p] > priorityRank[other]
}

// Actor identifies who caused a notification.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Notification is a classified, per-recipient message.
type Notification struct {
	ID             string    `json:"id"`
	Type           Type      `json:"type"`
	Priority       Priority  `json:"priority"`
	RecipientID    string    `json:"recipientId"`
	CollectionID   string    `json:"collectionId"`
	CollectionName string    `json:"collectionName"`
	Actors         []Actor   `json:"actors"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	IsRead         bool      `json:"isRead"`
	IsArchived     bool      `json:"isArchived"`
	ActionURL      string    `json:"actionUrl,omitempty"`
	DedupKey       string    `json:"dedupKey,omitempty"`
}

// EventKind names a raw domain event.
type EventKind string

const (
	EventStateChanged         EventKind = "state_changed"
	EventApprovalBlocked      EventKind = "approval_blocked"
	EventApprovalPending      EventKind = "approval_pending"
	EventApprovalResolved     EventKind = "approval_resolved"
	EventDatasetStatusChanged EventKind = "dataset_status_changed"
	EventComment              EventKind = "comment"
	EventCollectionUpdated    EventKind = "collection_updated"
)

// Event is a raw occurrence on a collection, before classification.
type Event struct {
	Kind           EventKind
	CollectionID   string
	CollectionName string
	Actor          Actor
	Title          string
	Message        string
	ActionURL      string
	DedupKey       string
	OccurredAt     time.Time

	// state_changed
	ToState       string
	StateTerminal bool

	// dataset_status_changed
	DatasetStatus string

	// comment
	Mentions []string

	// approval_pending / approval_blocked
	DaysPending int
	DaysBlocked int
}

// DashboardEntry rolls up unread notifications of one type on one collection.
type DashboardEntry struct {
	CollectionID    string    `json:"collectionId"`
	CollectionName  string    `json:"collectionName"`
	Type            Type      `json:"type"`
	Count           int       `json:"count"`
	LatestAt        time.Time `json:"latestAt"`
	HighestPriority Priority  `json:"highestPriority"`
}

// DashboardSummary groups entries into the triage buckets.
type DashboardSummary struct {
	CriticalBlockers []DashboardEntry `json:"criticalBlockers"`
	PendingMentions  []DashboardEntry `json:"pendingMentions"`
	NearingSLA       []DashboardEntry `json:"nearingSla"`
	ReadyForReview   []DashboardEntry `json:"readyForReview"`
	UnreadCount      int              `json:"unreadCount"`
}
