package testserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/mcp"
	"github.com/rpggio/curator/internal/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokens = map[string]string{
	"alice-token": "alice",
	"bob-token":   "bob",
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()

	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "%s returned an error result", name)
	if out == nil {
		return
	}
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestHTTP_RejectsMissingToken(t *testing.T) {
	ts := testserver.New(t, tokens, nil)

	resp, err := http.Post(ts.Server.URL+"/mcp", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_HealthIsPublic(t *testing.T) {
	ts := testserver.New(t, tokens, nil)

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTP_TokenNamesTheActor(t *testing.T) {
	ts := testserver.New(t, tokens, nil)
	alice := ts.Connect(t, "alice-token")

	var created mcp.CollectionResponse
	callTool(t, alice, "create_collection", map[string]any{
		"id":       "c1",
		"name":     "Cardiac imaging",
		"intent":   "echocardiogram outcomes",
		"actor_id": "mallory",
	}, &created)
	assert.Equal(t, "alice", created.Collection.Owner)
	assert.Equal(t, collection.StateDraft, created.Collection.State)
}

func TestHTTP_MentionFlowAcrossSessions(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ts := testserver.New(t, tokens, func() time.Time { return now })

	alice := ts.Connect(t, "alice-token")
	bob := ts.Connect(t, "bob-token")

	callTool(t, alice, "create_collection", map[string]any{"id": "c1", "name": "Cardiac imaging"}, nil)
	callTool(t, alice, "add_comment", map[string]any{"collection_id": "c1", "body": "@bob please review the cohort"}, nil)

	var inbox mcp.NotificationListResponse
	callTool(t, bob, "list_notifications", map[string]any{}, &inbox)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, notification.TypeMention, inbox.Notifications[0].Type)
	assert.Equal(t, "bob", inbox.Notifications[0].RecipientID)

	var own mcp.NotificationListResponse
	callTool(t, alice, "list_notifications", map[string]any{}, &own)
	assert.Empty(t, own.Notifications)

	var dashboard notification.DashboardSummary
	callTool(t, bob, "get_dashboard_summary", map[string]any{}, &dashboard)
	assert.Equal(t, 1, dashboard.UnreadCount)

	res, err := alice.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      "mark_read",
		Arguments: map[string]any{"id": inbox.Notifications[0].ID, "recipient_id": "bob"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	var read mcp.NotificationResponse
	callTool(t, bob, "mark_read", map[string]any{"id": inbox.Notifications[0].ID}, &read)
	assert.True(t, read.Notification.IsRead)
}

func TestHTTP_MetricsRecordRequests(t *testing.T) {
	ts := testserver.New(t, tokens, nil)
	alice := ts.Connect(t, "alice-token")
	callTool(t, alice, "list_collections", map[string]any{}, nil)

	resp, err := http.Get(ts.Server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `route="/mcp"`)
}
