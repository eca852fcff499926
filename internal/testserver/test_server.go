// Package testserver runs the full HTTP stack against an in-memory database.
package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/domain/sla"
	"github.com/rpggio/curator/internal/domain/suggest"
	"github.com/rpggio/curator/internal/mcp"
	"github.com/rpggio/curator/internal/metrics"
	"github.com/rpggio/curator/internal/sqlite"
	"github.com/rpggio/curator/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Tokens   map[string]string
	Registry *prometheus.Registry
	Sweeper  *sla.Sweeper
}

// New starts a server that authenticates with tokens, a map of bearer token
// to actor ID. now pins the service clocks when non-nil.
func New(t *testing.T, tokens map[string]string, now func() time.Time) *TestServer {
	t.Helper()

	if now == nil {
		now = time.Now
	}

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	collectionRepo := sqlite.NewCollectionRepository(db)
	engine := suggest.NewEngine(suggest.DefaultTaxonomy(), suggest.DefaultMaxExtra)
	notificationSvc := notification.NewService(sqlite.NewNotificationRepository(db), nil, nil, nil,
		notification.WithClock(now), notification.WithObserver(m))
	collectionSvc := collection.NewService(collectionRepo, notificationSvc, nil,
		collection.WithClock(now), collection.WithSuggester(engine), collection.WithObserver(m))
	sweeper := sla.NewSweeper(collectionRepo, notificationSvc, nil, sla.WithClock(now), sla.WithObserver(m))

	resolver := mcp.TokenResolver(tokens)
	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Collections:   collectionSvc,
			Notifications: notificationSvc,
			Suggester:     engine,
			Sweeper:       sweeper,
		},
		Resolver:      resolver,
		AuthEnabled:   true,
		TransportMode: "http",
	})

	server := httptest.NewServer(transport.NewServer(transport.Options{
		MCP:      mcp.NewHTTPHandler(mcpServer, nil),
		Auth:     transport.AuthMiddleware(resolver),
		Metrics:  metrics.Handler(registry),
		Observer: m,
	}))

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Tokens:   tokens,
		Registry: registry,
		Sweeper:  sweeper,
	}

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// Connect opens an MCP client session that authenticates with token.
func (ts *TestServer) Connect(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: token}},
		MaxRetries: -1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

type bearerTransport struct {
	token string
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(req)
}
