package mcp

import (
	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
)

type CreateCollectionParams struct {
	ID          string `json:"id,omitempty" jsonschema:"Collection identifier, generated when omitted"`
	Name        string `json:"name" jsonschema:"Collection display name"`
	Description string `json:"description,omitempty"`
	Intent      string `json:"intent,omitempty" jsonschema:"Free-text research intent, used to suggest keywords and categories"`
	ActorID     string `json:"actor_id,omitempty" jsonschema:"Acting user when the transport is not authenticated; becomes the owner"`
}

type CollectionIDParams struct {
	CollectionID string `json:"collection_id"`
}

type ListCollectionsParams struct {
	Owner  string   `json:"owner,omitempty"`
	States []string `json:"states,omitempty" jsonschema:"Filter by workflow states"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}

type ListTimelineParams struct {
	CollectionID string `json:"collection_id"`
	Type         string `json:"type,omitempty" jsonschema:"Only events of this type"`
	Limit        int    `json:"limit,omitempty"`
}

type TransitionParams struct {
	CollectionID string `json:"collection_id"`
	ToState      string `json:"to_state" jsonschema:"Target workflow state"`
	ActorID      string `json:"actor_id,omitempty"`
}

type SetPublicParams struct {
	CollectionID string `json:"collection_id"`
	Public       bool   `json:"public"`
	ActorID      string `json:"actor_id,omitempty"`
}

type BreakdownParams struct {
	AlreadyOpen     int `json:"already_open"`
	ReadyToGrant    int `json:"ready_to_grant"`
	NeedsApproval   int `json:"needs_approval"`
	MissingLocation int `json:"missing_location"`
}

func (b BreakdownParams) toDomain() collection.AccessBreakdown {
	return collection.AccessBreakdown{
		AlreadyOpen:     b.AlreadyOpen,
		ReadyToGrant:    b.ReadyToGrant,
		NeedsApproval:   b.NeedsApproval,
		MissingLocation: b.MissingLocation,
	}
}

type AddDatasetParams struct {
	CollectionID    string          `json:"collection_id"`
	DatasetID       string          `json:"dataset_id"`
	Name            string          `json:"name"`
	Status          string          `json:"status" jsonschema:"available, pending_review, restricted or unavailable"`
	AccessBreakdown BreakdownParams `json:"access_breakdown" jsonschema:"Percentages of the dataset's users per access bucket, summing to 100"`
	ActorID         string          `json:"actor_id,omitempty"`
}

type RemoveDatasetParams struct {
	CollectionID string `json:"collection_id"`
	DatasetID    string `json:"dataset_id"`
	ActorID      string `json:"actor_id,omitempty"`
}

type UpdateDatasetParams struct {
	CollectionID    string           `json:"collection_id"`
	DatasetID       string           `json:"dataset_id"`
	Status          *string          `json:"status,omitempty"`
	AccessBreakdown *BreakdownParams `json:"access_breakdown,omitempty"`
	ActorID         string           `json:"actor_id,omitempty"`
}

type SetTermsParams struct {
	CollectionID        string `json:"collection_id"`
	Research            bool   `json:"research,omitempty"`
	Analytics           bool   `json:"analytics,omitempty"`
	Operations          bool   `json:"operations,omitempty"`
	QualityImprovement  bool   `json:"quality_improvement,omitempty"`
	AIResearch          bool   `json:"ai_research,omitempty"`
	SoftwareDevelopment bool   `json:"software_development,omitempty"`
	PublishInternal     bool   `json:"publish_internal,omitempty"`
	PublishExternal     bool   `json:"publish_external,omitempty"`
	ShareCollaborators  bool   `json:"share_collaborators,omitempty"`
	ShareVendors        bool   `json:"share_vendors,omitempty"`
	SharePublic         bool   `json:"share_public,omitempty"`
	ActorID             string `json:"actor_id,omitempty"`
}

func (p SetTermsParams) toDomain() collection.AgreementOfTerms {
	return collection.AgreementOfTerms{
		PrimaryUse: collection.PrimaryUse{
			Research:           p.Research,
			Analytics:          p.Analytics,
			Operations:         p.Operations,
			QualityImprovement: p.QualityImprovement,
		},
		BeyondPrimaryUse: collection.BeyondPrimaryUse{
			AIResearch:          p.AIResearch,
			SoftwareDevelopment: p.SoftwareDevelopment,
		},
		Publication: collection.PublicationScope{
			Internal: p.PublishInternal,
			External: p.PublishExternal,
		},
		ExternalSharing: collection.ExternalSharingScope{
			Collaborators: p.ShareCollaborators,
			Vendors:       p.ShareVendors,
			Public:        p.SharePublic,
		},
	}
}

type UserParams struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role" jsonschema:"requester, reviewer or member"`
}

type SetUserScopeParams struct {
	CollectionID string       `json:"collection_id"`
	Users        []UserParams `json:"users,omitempty"`
	Roles        []string     `json:"roles,omitempty" jsonschema:"Role selectors granting access"`
	Orgs         []string     `json:"orgs,omitempty" jsonschema:"Organization selectors granting access"`
	ActorID      string       `json:"actor_id,omitempty"`
}

type AddCommentParams struct {
	CollectionID string `json:"collection_id"`
	Body         string `json:"body" jsonschema:"Comment text; @user mentions notify those users"`
	ActorID      string `json:"actor_id,omitempty"`
}

type AddWatcherParams struct {
	CollectionID string `json:"collection_id"`
	UserID       string `json:"user_id"`
	ActorID      string `json:"actor_id,omitempty"`
}

type RequestApprovalParams struct {
	CollectionID string `json:"collection_id"`
	Step         string `json:"step" jsonschema:"Approval step name, such as privacy or security"`
	ApproverID   string `json:"approver_id"`
	ActorID      string `json:"actor_id,omitempty"`
}

type ResolveApprovalParams struct {
	CollectionID string `json:"collection_id"`
	ApprovalID   string `json:"approval_id"`
	Approved     bool   `json:"approved"`
	ActorID      string `json:"actor_id,omitempty"`
}

type BlockApprovalParams struct {
	CollectionID string `json:"collection_id"`
	ApprovalID   string `json:"approval_id"`
	Reason       string `json:"reason"`
	ActorID      string `json:"actor_id,omitempty"`
}

type AccessSummaryParams struct {
	CollectionID string `json:"collection_id"`
	TotalUsers   int    `json:"total_users,omitempty" jsonschema:"Population size used to estimate how many users gain access without approval"`
}

type SuggestParams struct {
	Text string `json:"text" jsonschema:"Free text describing the research intent"`
}

type ListNotificationsParams struct {
	RecipientID     string `json:"recipient_id,omitempty" jsonschema:"Inbox owner when the transport is not authenticated"`
	CollectionID    string `json:"collection_id,omitempty"`
	Type            string `json:"type,omitempty"`
	Priority        string `json:"priority,omitempty"`
	UnreadOnly      bool   `json:"unread_only,omitempty"`
	IncludeArchived bool   `json:"include_archived,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Offset          int    `json:"offset,omitempty"`
}

type NotificationIDParams struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id,omitempty" jsonschema:"Inbox owner when the transport is not authenticated"`
}

type RecipientParams struct {
	RecipientID string `json:"recipient_id,omitempty" jsonschema:"Inbox owner when the transport is not authenticated"`
}

type CollectionResponse struct {
	Collection *collection.Collection `json:"collection"`
}

type CollectionListResponse struct {
	Collections []collection.CollectionSummary `json:"collections"`
}

type TimelineResponse struct {
	Events []collection.TimelineEvent `json:"events"`
}

type AccessSummaryResponse struct {
	collection.AccessSummary
	UsersWithAccess int `json:"usersWithAccess,omitempty"`
}

type NotificationResponse struct {
	Notification *notification.Notification `json:"notification"`
}

type NotificationListResponse struct {
	Notifications []notification.Notification `json:"notifications"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
