package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	routes []string
	status []int
}

func (o *recordingObserver) ObserveRequest(_ string, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, route)
	o.status = append(o.status, status)
}

func TestHTTPServer_MCPRequiresAuth(t *testing.T) {
	var gotActor, gotSession string
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, _ = ActorFromContext(r.Context())
		gotSession, _ = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})
	resolver := &testResolver{tokenToActor: map[string]string{"token": "alice"}}
	observer := &recordingObserver{}

	server := httptest.NewServer(NewServer(Options{
		MCP:      mcpHandler,
		Auth:     AuthMiddleware(resolver),
		Observer: observer,
	}))
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/mcp", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Mcp-Session-Id", "sess1")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "alice", gotActor)
	require.Equal(t, "sess1", gotSession)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	require.Equal(t, []string{"/mcp", "/mcp"}, observer.routes)
	require.Equal(t, []int{http.StatusUnauthorized, http.StatusAccepted}, observer.status)
}

func TestHTTPServer_HealthAndMetrics(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("curator_up 1\n"))
	})
	server := httptest.NewServer(NewServer(Options{Metrics: metricsHandler}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "curator_up 1\n", string(body))

	resp, err = http.Post(server.URL+"/mcp", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
