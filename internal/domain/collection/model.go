package collection

import "time"

// State represents the workflow position of a collection
type State string

const (
	StateDraft         State = "draft"
	StatePublic        State = "public"
	StateAIPSubmitted  State = "aip_submitted"
	StateAOTDrafting   State = "aot_drafting"
	StateAOTReview     State = "aot_review"
	StateAOTApproved   State = "aot_approved"
	StateImplementing  State = "implementing"
	StateAccessGranted State = "access_granted"
	StateMaintaining   State = "maintaining"
)

// DatasetStatus represents the availability of a dataset
type DatasetStatus string

const (
	DatasetAvailable     DatasetStatus = "available"
	DatasetPendingReview DatasetStatus = "pending_review"
	DatasetRestricted    DatasetStatus = "restricted"
	DatasetUnavailable   DatasetStatus = "unavailable"
)

// Role describes how a user participates in a collection
type Role string

const (
	RoleRequester Role = "requester"
	RoleReviewer  Role = "reviewer"
	RoleMember    Role = "member"
)

// Collection is a named bundle of datasets, user scope and usage terms
// moving through the provisioning workflow.
type Collection struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	State          State            `json:"state"`
	IsPublic       bool             `json:"isPublic"`
	Owner          string           `json:"owner"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	StateEnteredAt time.Time        `json:"stateEnteredAt"`
	Datasets       []Dataset        `json:"datasets"`
	Users          []UserAssignment `json:"users"`
	Scope          Scope            `json:"scope"`
	Terms          AgreementOfTerms `json:"terms"`
	Comments       []Comment        `json:"comments"`
	Timeline       []TimelineEvent  `json:"timeline"`
	Watchers       []string         `json:"watchers"`
	Approvals      []Approval       `json:"approvals"`
	Keywords       []string         `json:"keywords,omitempty"`
	Categories     []string         `json:"categories,omitempty"`
}

// AccessBreakdown holds the share of eligible users per access path, in percent.
// The four values of a single dataset sum to 100.
type AccessBreakdown struct {
	AlreadyOpen     int `json:"alreadyOpen"`
	ReadyToGrant    int `json:"readyToGrant"`
	NeedsApproval   int `json:"needsApproval"`
	MissingLocation int `json:"missingLocation"`
}

// Dataset is a dataset attached to a collection
type Dataset struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	AccessBreakdown AccessBreakdown `json:"accessBreakdown"`
	Status          DatasetStatus   `json:"status"`
}

// UserAssignment grants an individual a role on the collection
type UserAssignment struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
}

// Scope selects users by role or organisation rather than individually
type Scope struct {
	Roles []string `json:"roles,omitempty"`
	Orgs  []string `json:"orgs,omitempty"`
}

// PrimaryUse flags the primary purposes the data is requested for
type PrimaryUse struct {
	Research           bool `json:"research"`
	Analytics          bool `json:"analytics"`
	Operations         bool `json:"operations"`
	QualityImprovement bool `json:"qualityImprovement"`
}

// BeyondPrimaryUse flags secondary purposes
type BeyondPrimaryUse struct {
	AIResearch          bool `json:"aiResearch"`
	SoftwareDevelopment bool `json:"softwareDevelopment"`
}

// PublicationScope flags where results may be published
type PublicationScope struct {
	Internal bool `json:"internal"`
	External bool `json:"external"`
}

// ExternalSharingScope flags who data may be shared with
type ExternalSharingScope struct {
	Collaborators bool `json:"collaborators"`
	Vendors       bool `json:"vendors"`
	Public        bool `json:"public"`
}

// AgreementOfTerms is the set of permitted-use flags attached to a collection
type AgreementOfTerms struct {
	PrimaryUse       PrimaryUse           `json:"primaryUse"`
	BeyondPrimaryUse BeyondPrimaryUse     `json:"beyondPrimaryUse"`
	Publication      PublicationScope     `json:"publication"`
	ExternalSharing  ExternalSharingScope `json:"externalSharing"`
}

// HasPrimaryUse reports whether at least one primary-use flag is set.
func (t AgreementOfTerms) HasPrimaryUse() bool {
	p := t.PrimaryUse
	return p.Research || p.Analytics || p.Operations || p.QualityImprovement
}

// Comment is a note left on a collection
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	Mentions  []string  `json:"mentions,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TimelineEventType represents the kind of timeline entry
type TimelineEventType string

const (
	EventCreated           TimelineEventType = "created"
	EventStateChange       TimelineEventType = "state_change"
	EventPublicChanged     TimelineEventType = "public_changed"
	EventDatasetAdded      TimelineEventType = "dataset_added"
	EventDatasetRemoved    TimelineEventType = "dataset_removed"
	EventDatasetUpdated    TimelineEventType = "dataset_updated"
	EventTermsUpdated      TimelineEventType = "terms_updated"
	EventScopeUpdated      TimelineEventType = "scope_updated"
	EventCommentAdded      TimelineEventType = "comment_added"
	EventWatcherAdded      TimelineEventType = "watcher_added"
	EventApprovalRequested TimelineEventType = "approval_requested"
	EventApprovalResolved  TimelineEventType = "approval_resolved"
	EventApprovalBlocked   TimelineEventType = "approval_blocked"
)

// TimelineEvent is an append-only history entry
type TimelineEvent struct {
	ID         string            `json:"id"`
	Type       TimelineEventType `json:"type"`
	ActorID    string            `json:"actorId"`
	Summary    string            `json:"summary"`
	FromState  *State            `json:"fromState,omitempty"`
	ToState    *State            `json:"toState,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// ApprovalStatus represents the status of an approval request
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalBlocked  ApprovalStatus = "blocked"
)

// Approval is a sign-off requested from an approver
type Approval struct {
	ID            string         `json:"id"`
	Step          string         `json:"step"`
	ApproverID    string         `json:"approverId"`
	Status        ApprovalStatus `json:"status"`
	RequestedAt   time.Time      `json:"requestedAt"`
	BlockedSince  *time.Time     `json:"blockedSince,omitempty"`
	BlockedReason string         `json:"blockedReason,omitempty"`
	ResolvedAt    *time.Time     `json:"resolvedAt,omitempty"`
}

// Unresolved reports whether the approval still awaits a decision.
func (a Approval) Unresolved() bool {
	return a.Status == ApprovalPending || a.Status == ApprovalBlocked
}

// ReadinessItem is one evaluated line of the submission checklist
type ReadinessItem struct {
	Label    string `json:"label"`
	Complete bool   `json:"complete"`
	Link     string `json:"link"`
}

// Readiness is the evaluated checklist for a collection
type Readiness struct {
	Items     []ReadinessItem `json:"items"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Ready     bool            `json:"ready"`
}

// CollectionSummary is a lightweight representation for listing
type CollectionSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	State        State     `json:"state"`
	IsPublic     bool      `json:"isPublic"`
	Owner        string    `json:"owner"`
	DatasetCount int       `json:"datasetCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary returns the listing view of the collection.
func (c Collection) Summary() CollectionSummary {
	return CollectionSummary{
		ID:           c.ID,
		Name:         c.Name,
		State:        c.State,
		IsPublic:     c.IsPublic,
		Owner:        c.Owner,
		DatasetCount: len(c.Datasets),
		UpdatedAt:    c.UpdatedAt,
	}
}

// Clone returns a deep copy so callers can mutate without touching the snapshot.
func (c Collection) Clone() Collection {
	out := c
	out.Datasets = append([]Dataset(nil), c.Datasets...)
	out.Users = append([]UserAssignment(nil), c.Users...)
	out.Scope = Scope{
		Roles: append([]string(nil), c.Scope.Roles...),
		Orgs:  append([]string(nil), c.Scope.Orgs...),
	}
	out.Comments = make([]Comment, len(c.Comments))
	for i, cm := range c.Comments {
		cm.Mentions = append([]string(nil), cm.Mentions...)
		out.Comments[i] = cm
	}
	out.Timeline = append([]TimelineEvent(nil), c.Timeline...)
	out.Watchers = append([]string(nil), c.Watchers...)
	out.Approvals = append([]Approval(nil), c.Approvals...)
	out.Keywords = append([]string(nil), c.Keywords...)
	out.Categories = append([]string(nil), c.Categories...)
	return out
}

// Recipients returns the owner and explicit watchers, without duplicates.
func (c Collection) Recipients() []string {
	seen := make(map[string]bool, len(c.Watchers)+1)
	var out []string
	for _, id := range append([]string{c.Owner}, c.Watchers...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
