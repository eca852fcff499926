package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const (
	actorIDKey contextKey = iota
)

// getActorID extracts the authenticated actor from context.
func getActorID(ctx context.Context) string {
	v, _ := ctx.Value(actorIDKey).(string)
	return v
}

// ActorResolver resolves an actor ID from a bearer token.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (string, error)
}

// TokenResolver resolves actors from a static token table.
type TokenResolver map[string]string

// ResolveActor implements ActorResolver.
func (t TokenResolver) ResolveActor(_ context.Context, token string) (string, error) {
	actor, ok := t[token]
	if !ok {
		return "", fmt.Errorf("unknown token")
	}
	return actor, nil
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver ActorResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			actorID, err := resolver.ResolveActor(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			if actorID == "" {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}

			ctx = context.WithValue(ctx, actorIDKey, actorID)
			return next(ctx, method, req)
		}
	}
}

// resolveActor prefers the authenticated actor over the one a tool call names.
func resolveActor(ctx context.Context, argument string) (string, error) {
	if actor := getActorID(ctx); actor != "" {
		return actor, nil
	}
	if actor := strings.TrimSpace(argument); actor != "" {
		return actor, nil
	}
	return "", errActorRequired
}
