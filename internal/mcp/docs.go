package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `curator tracks data collections from draft to granted access and triages the notifications they raise.

Core concepts:
- Collection: a named bundle of datasets, assigned users, role/org scope and agreement of terms, owned by one user.
- Workflow: draft → aip_submitted → aot_drafting → aot_review → aot_approved → implementing → access_granted → maintaining. Only the next state is reachable. "public" is a flag set on a draft, not a state.
- Readiness: submitting the AIP (aip_submitted) requires at least one dataset, at least one assigned user and one primary-use term.
- Freeze: from aot_approved onward datasets cannot be added or removed and terms cannot change.
- Notification: a per-recipient inbox item classified by type (blocker, approval, mention, update, completion) and priority.

Rules of engagement:
1) Orient: list_collections, then get_collection or get_readiness for the one you work on.
2) Build the draft: add_dataset, set_user_scope, set_terms. Check get_access_summary for the expected wait.
3) Advance: transition_collection one state at a time. PRECONDITION_NOT_MET means readiness items are missing.
4) Collaborate: add_comment with @user mentions, add_watcher, request_approval / resolve_approval / block_approval.
5) Triage: get_dashboard_summary first, then list_notifications and mark_read / archive_notification.

Actor: over authenticated HTTP the bearer token names the actor. Otherwise pass actor_id (recipient_id for inbox tools).

Docs:
- curator://docs/index
- curator://docs/workflow
- curator://docs/notifications
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "curator://docs/index",
		Name:        "docs_index",
		Title:       "curator docs index",
		Description: "Entry point: what the tools do and which doc to read next.",
		Content: `# curator: Agent Docs Index

## Quick start

1. ` + "`list_collections`" + ` to see what exists (filter with ` + "`owner`" + ` or ` + "`states`" + `).
2. ` + "`create_collection`" + ` with a name and an intent; keywords and categories are suggested from the intent.
3. Fill the draft with ` + "`add_dataset`" + `, ` + "`set_user_scope`" + ` and ` + "`set_terms`" + `.
4. ` + "`get_readiness`" + ` until ` + "`ready`" + ` is true, then ` + "`transition_collection`" + ` to ` + "`aip_submitted`" + `.
5. Watch ` + "`get_dashboard_summary`" + ` for blockers and mentions.

## Docs

- ` + "`curator://docs/workflow`" + ` states, readiness and freeze rules.
- ` + "`curator://docs/notifications`" + ` classification, priorities, dedup and the SLA sweep.

## Errors

Tool errors carry a code: ` + "`NOT_FOUND`" + `, ` + "`INVALID_TRANSITION`" + `, ` + "`PRECONDITION_NOT_MET`" + `, ` + "`IMMUTABLE_STATE`" + `, ` + "`VALIDATION_ERROR`" + `, ` + "`CONFLICT`" + ` or ` + "`DEPENDENCY_ERROR`" + `. ` + "`CONFLICT`" + ` means the collection id is taken. A dependency error means nothing was changed and the call can be retried.
`,
	},
	{
		URI:         "curator://docs/workflow",
		Name:        "docs_workflow",
		Title:       "Collection workflow",
		Description: "Workflow states, readiness checklist, freeze rules and access estimates.",
		Content: `# Collection workflow

## States

` + "`draft → aip_submitted → aot_drafting → aot_review → aot_approved → implementing → access_granted → maintaining`" + `

- Each state has exactly one successor. Skipping or moving backwards returns ` + "`INVALID_TRANSITION`" + `.
- Asking a draft to become ` + "`public`" + ` sets the public flag; the state stays ` + "`draft`" + `.
- ` + "`access_granted`" + ` and ` + "`maintaining`" + ` are terminal for SLA purposes.

## Readiness (gates aip_submitted)

- At least one dataset.
- At least one assigned user.
- At least one primary-use term (research, analytics, operations, quality improvement).

## Freeze

From ` + "`aot_approved`" + ` onward ` + "`add_dataset`" + `, ` + "`remove_dataset`" + ` and ` + "`set_terms`" + ` return ` + "`IMMUTABLE_STATE`" + `. Dataset status and breakdown updates stay allowed.

## Access summary

Each dataset carries a breakdown of already open, ready to grant, needs approval and missing location percentages summing to 100. The summary averages them per bucket (rounded half-up) and labels the dominant path: ~1 hour, 2–5 business days, or pending discovery. Ties pick the slower label.
`,
	},
	{
		URI:         "curator://docs/notifications",
		Name:        "docs_notifications",
		Title:       "Notifications and triage",
		Description: "How events become notifications, how they are prioritised, and how the dashboard groups them.",
		Content: `# Notifications and triage

## Classification

Rules are evaluated in order and the first match wins.

- **blocker / critical**: an approval has been blocked for at least a day.
- **blocker / high**: a dataset became unavailable.
- **mention / high**: you were @mentioned in a comment.
- **approval / high**: an approval has been pending for the nearing-SLA threshold (3 days by default).
- **completion / low**: the collection reached a terminal state within the completion window.
- **update / medium**: any other state change, and every event no rule matches.

## Dedup

Events carry a dedup key. A recipient holding an unarchived notification with the same key does not get another one. Archive a notification to allow the next reminder.

## Dashboard

` + "`get_dashboard_summary`" + ` groups unread notifications per collection into critical blockers, pending mentions, nearing SLA and ready for review, newest first.

## SLA sweep

The server sweeps unresolved approvals on an interval; ` + "`run_sla_sweep`" + ` runs one pass on demand.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
