package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/domain/sla"
	"github.com/rpggio/curator/internal/domain/suggest"
)

// CollectionService defines collection operations needed by MCP.
type CollectionService interface {
	Create(ctx context.Context, req collection.CreateRequest) (*collection.Collection, error)
	Get(ctx context.Context, id string) (*collection.Collection, error)
	List(ctx context.Context, opts collection.ListOptions) ([]collection.CollectionSummary, error)
	ListTimeline(ctx context.Context, id string, opts collection.TimelineOptions) ([]collection.TimelineEvent, error)
	Readiness(ctx context.Context, id string) (collection.Readiness, error)
	AccessSummary(ctx context.Context, id string) (collection.AccessSummary, error)
	Transition(ctx context.Context, id string, target collection.State, actorID string) (*collection.Collection, error)
	SetPublic(ctx context.Context, id string, public bool, actorID string) (*collection.Collection, error)
	AddDataset(ctx context.Context, id string, d collection.Dataset, actorID string) (*collection.Collection, error)
	RemoveDataset(ctx context.Context, id, datasetID, actorID string) (*collection.Collection, error)
	UpdateDataset(ctx context.Context, id string, req collection.UpdateDatasetRequest, actorID string) (*collection.Collection, error)
	SetTerms(ctx context.Context, id string, terms collection.AgreementOfTerms, actorID string) (*collection.Collection, error)
	SetUserScope(ctx context.Context, id string, req collection.ScopeRequest, actorID string) (*collection.Collection, error)
	AddComment(ctx context.Context, id, authorID, body string) (*collection.Collection, error)
	AddWatcher(ctx context.Context, id, userID, actorID string) (*collection.Collection, error)
	RequestApproval(ctx context.Context, id, step, approverID, actorID string) (*collection.Collection, error)
	ResolveApproval(ctx context.Context, id, approvalID string, approved bool, actorID string) (*collection.Collection, error)
	BlockApproval(ctx context.Context, id, approvalID, reason, actorID string) (*collection.Collection, error)
}

// NotificationService defines inbox operations needed by MCP.
type NotificationService interface {
	List(ctx context.Context, opts notification.ListOptions) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) (*notification.Notification, error)
	Archive(ctx context.Context, id, recipientID string) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	DashboardSummary(ctx context.Context, recipientID string) (notification.DashboardSummary, error)
}

// Suggester extracts keywords and categories from free text.
type Suggester interface {
	Suggest(text string) suggest.Result
}

// Sweeper runs an on-demand SLA pass.
type Sweeper interface {
	SweepOnce(ctx context.Context) (sla.Result, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Collections   CollectionService
	Notifications NotificationService
	Suggester     Suggester
	Sweeper       Sweeper
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      ActorResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "curator",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Middleware added later wraps earlier middleware, so auth runs first and
	// the traffic log sees the resolved actor.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	// Stdio is a local single-user transport; tools take actor_id instead.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled && cfg.Resolver != nil {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}

	registerTools(server, cfg.Services)

	return server
}
