package mcp

import (
	"context"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
)

type toolHandlers struct {
	svc Services
}

var errSweepUnavailable = errors.New("sla sweeper not configured")

// registerTools adds every tool to server. Outputs are left untyped so the
// SDK skips output schema inference for the domain types.
func registerTools(server *sdkmcp.Server, svc Services) {
	h := &toolHandlers{svc: svc}

	// Collections
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "create_collection", Description: "Create a draft collection owned by the acting user. Intent text seeds keywords and categories."}, h.createCollection)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_collection", Description: "Get a collection with datasets, scope, terms, comments, approvals and timeline"}, h.getCollection)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_collections", Description: "List collection summaries, optionally filtered by owner and state"}, h.listCollections)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_timeline", Description: "List a collection's timeline, newest first"}, h.listTimeline)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "transition_collection", Description: "Move a collection to the next workflow state"}, h.transition)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "set_public", Description: "Publish or unpublish a collection"}, h.setPublic)

	// Datasets, terms and scope
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "add_dataset", Description: "Add a dataset with its access breakdown"}, h.addDataset)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "remove_dataset", Description: "Remove a dataset from a collection"}, h.removeDataset)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "update_dataset", Description: "Update a dataset's status or access breakdown"}, h.updateDataset)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "set_terms", Description: "Replace the agreement of terms flags"}, h.setTerms)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "set_user_scope", Description: "Replace the assigned users and role or org selectors"}, h.setUserScope)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_readiness", Description: "Evaluate the checklist gating AIP submission"}, h.getReadiness)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_access_summary", Description: "Aggregate dataset access paths and estimate time to access"}, h.getAccessSummary)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "suggest", Description: "Suggest keywords and categories for free text"}, h.suggest)

	// Collaboration
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "add_comment", Description: "Comment on a collection; mentioned users are notified"}, h.addComment)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "add_watcher", Description: "Subscribe a user to collection events"}, h.addWatcher)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "request_approval", Description: "Request an approval step from an approver"}, h.requestApproval)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "resolve_approval", Description: "Approve or reject a pending or blocked approval"}, h.resolveApproval)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "block_approval", Description: "Mark an approval as blocked with a reason"}, h.blockApproval)

	// Notifications
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_notifications", Description: "List the acting user's notifications, newest first"}, h.listNotifications)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "mark_read", Description: "Mark a notification as read"}, h.markRead)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "mark_all_read", Description: "Mark all of the acting user's notifications as read"}, h.markAllRead)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "archive_notification", Description: "Archive a notification"}, h.archiveNotification)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_dashboard_summary", Description: "Group unread notifications into critical blockers, mentions, nearing SLA and ready for review"}, h.dashboardSummary)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "run_sla_sweep", Description: "Run one SLA sweep over unresolved approvals"}, h.runSweep)
}

func (h *toolHandlers) createCollection(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateCollectionParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.Create(ctx, collection.CreateRequest{
		ID:          in.ID,
		OwnerID:     actor,
		Name:        in.Name,
		Description: in.Description,
		Intent:      in.Intent,
	})
	return collectionResult(c, err)
}

func (h *toolHandlers) getCollection(ctx context.Context, _ *sdkmcp.CallToolRequest, in CollectionIDParams) (*sdkmcp.CallToolResult, any, error) {
	c, err := h.svc.Collections.Get(ctx, in.CollectionID)
	return collectionResult(c, err)
}

func (h *toolHandlers) listCollections(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListCollectionsParams) (*sdkmcp.CallToolResult, any, error) {
	opts := collection.ListOptions{Owner: in.Owner, Limit: in.Limit, Offset: in.Offset}
	for _, s := range in.States {
		opts.States = append(opts.States, collection.State(s))
	}
	list, err := h.svc.Collections.List(ctx, opts)
	if err != nil {
		return toolError(err)
	}
	return nil, CollectionListResponse{Collections: list}, nil
}

func (h *toolHandlers) listTimeline(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListTimelineParams) (*sdkmcp.CallToolResult, any, error) {
	events, err := h.svc.Collections.ListTimeline(ctx, in.CollectionID, collection.TimelineOptions{
		Type:  collection.TimelineEventType(in.Type),
		Limit: in.Limit,
	})
	if err != nil {
		return toolError(err)
	}
	return nil, TimelineResponse{Events: events}, nil
}

func (h *toolHandlers) transition(ctx context.Context, _ *sdkmcp.CallToolRequest, in TransitionParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.Transition(ctx, in.CollectionID, collection.State(in.ToState), actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) setPublic(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetPublicParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.SetPublic(ctx, in.CollectionID, in.Public, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) addDataset(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddDatasetParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.AddDataset(ctx, in.CollectionID, collection.Dataset{
		ID:              in.DatasetID,
		Name:            in.Name,
		Status:          collection.DatasetStatus(in.Status),
		AccessBreakdown: in.AccessBreakdown.toDomain(),
	}, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) removeDataset(ctx context.Context, _ *sdkmcp.CallToolRequest, in RemoveDatasetParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.RemoveDataset(ctx, in.CollectionID, in.DatasetID, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) updateDataset(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateDatasetParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	req := collection.UpdateDatasetRequest{DatasetID: in.DatasetID}
	if in.Status != nil {
		status := collection.DatasetStatus(*in.Status)
		req.Status = &status
	}
	if in.AccessBreakdown != nil {
		breakdown := in.AccessBreakdown.toDomain()
		req.AccessBreakdown = &breakdown
	}
	c, err := h.svc.Collections.UpdateDataset(ctx, in.CollectionID, req, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) setTerms(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetTermsParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.SetTerms(ctx, in.CollectionID, in.toDomain(), actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) setUserScope(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetUserScopeParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	req := collection.ScopeRequest{Roles: in.Roles, Orgs: in.Orgs}
	for _, u := range in.Users {
		req.Users = append(req.Users, collection.UserAssignment{
			UserID: u.UserID,
			Name:   u.Name,
			Role:   collection.Role(u.Role),
		})
	}
	c, err := h.svc.Collections.SetUserScope(ctx, in.CollectionID, req, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) getReadiness(ctx context.Context, _ *sdkmcp.CallToolRequest, in CollectionIDParams) (*sdkmcp.CallToolResult, any, error) {
	r, err := h.svc.Collections.Readiness(ctx, in.CollectionID)
	if err != nil {
		return toolError(err)
	}
	return nil, r, nil
}

func (h *toolHandlers) getAccessSummary(ctx context.Context, _ *sdkmcp.CallToolRequest, in AccessSummaryParams) (*sdkmcp.CallToolResult, any, error) {
	summary, err := h.svc.Collections.AccessSummary(ctx, in.CollectionID)
	if err != nil {
		return toolError(err)
	}
	return nil, AccessSummaryResponse{
		AccessSummary:   summary,
		UsersWithAccess: collection.EstimateUsersWithAccess(in.TotalUsers, summary.AlreadyOpenPct+summary.ReadyToGrantPct),
	}, nil
}

func (h *toolHandlers) suggest(_ context.Context, _ *sdkmcp.CallToolRequest, in SuggestParams) (*sdkmcp.CallToolResult, any, error) {
	return nil, h.svc.Suggester.Suggest(in.Text), nil
}

func (h *toolHandlers) addComment(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddCommentParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.AddComment(ctx, in.CollectionID, actor, in.Body)
	return collectionResult(c, err)
}

func (h *toolHandlers) addWatcher(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddWatcherParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.AddWatcher(ctx, in.CollectionID, in.UserID, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) requestApproval(ctx context.Context, _ *sdkmcp.CallToolRequest, in RequestApprovalParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.RequestApproval(ctx, in.CollectionID, in.Step, in.ApproverID, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) resolveApproval(ctx context.Context, _ *sdkmcp.CallToolRequest, in ResolveApprovalParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.ResolveApproval(ctx, in.CollectionID, in.ApprovalID, in.Approved, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) blockApproval(ctx context.Context, _ *sdkmcp.CallToolRequest, in BlockApprovalParams) (*sdkmcp.CallToolResult, any, error) {
	actor, err := resolveActor(ctx, in.ActorID)
	if err != nil {
		return toolError(err)
	}
	c, err := h.svc.Collections.BlockApproval(ctx, in.CollectionID, in.ApprovalID, in.Reason, actor)
	return collectionResult(c, err)
}

func (h *toolHandlers) listNotifications(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListNotificationsParams) (*sdkmcp.CallToolResult, any, error) {
	recipient, err := resolveActor(ctx, in.RecipientID)
	if err != nil {
		return toolError(err)
	}
	list, err := h.svc.Notifications.List(ctx, notification.ListOptions{
		RecipientID:     recipient,
		CollectionID:    in.CollectionID,
		Type:            notification.Type(in.Type),
		Priority:        notification.Priority(in.Priority),
		UnreadOnly:      in.UnreadOnly,
		IncludeArchived: in.IncludeArchived,
		Limit:           in.Limit,
		Offset:          in.Offset,
	})
	if err != nil {
		return toolError(err)
	}
	return nil, NotificationListResponse{Notifications: list}, nil
}

func (h *toolHandlers) markRead(ctx context.Context, _ *sdkmcp.CallToolRequest, in NotificationIDParams) (*sdkmcp.CallToolResult, any, error) {
	recipient, err := resolveActor(ctx, in.RecipientID)
	if err != nil {
		return toolError(err)
	}
	n, err := h.svc.Notifications.MarkRead(ctx, in.ID, recipient)
	if err != nil {
		return toolError(err)
	}
	return nil, NotificationResponse{Notification: n}, nil
}

func (h *toolHandlers) archiveNotification(ctx context.Context, _ *sdkmcp.CallToolRequest, in NotificationIDParams) (*sdkmcp.CallToolResult, any, error) {
	recipient, err := resolveActor(ctx, in.RecipientID)
	if err != nil {
		return toolError(err)
	}
	n, err := h.svc.Notifications.Archive(ctx, in.ID, recipient)
	if err != nil {
		return toolError(err)
	}
	return nil, NotificationResponse{Notification: n}, nil
}

func (h *toolHandlers) markAllRead(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecipientParams) (*sdkmcp.CallToolResult, any, error) {
	recipient, err := resolveActor(ctx, in.RecipientID)
	if err != nil {
		return toolError(err)
	}
	n, err := h.svc.Notifications.MarkAllRead(ctx, recipient)
	if err != nil {
		return toolError(err)
	}
	return nil, MarkAllReadResponse{Updated: n}, nil
}

func (h *toolHandlers) dashboardSummary(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecipientParams) (*sdkmcp.CallToolResult, any, error) {
	recipient, err := resolveActor(ctx, in.RecipientID)
	if err != nil {
		return toolError(err)
	}
	summary, err := h.svc.Notifications.DashboardSummary(ctx, recipient)
	if err != nil {
		return toolError(err)
	}
	return nil, summary, nil
}

func (h *toolHandlers) runSweep(ctx context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, any, error) {
	if h.svc.Sweeper == nil {
		return nil, nil, errSweepUnavailable
	}
	result, err := h.svc.Sweeper.SweepOnce(ctx)
	if err != nil {
		return toolError(err)
	}
	return nil, result, nil
}

func collectionResult(c *collection.Collection, err error) (*sdkmcp.CallToolResult, any, error) {
	if err != nil {
		return toolError(err)
	}
	return nil, CollectionResponse{Collection: c}, nil
}
