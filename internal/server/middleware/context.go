// Package middleware holds the chi middleware stack: request logging, tracing, metrics,
// client info, bearer authentication and rate limiting.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey struct{ name string }

var (
	identityKey   = contextKey{"identity"}
	clientInfoKey = contextKey{"client_info"}
)

// Identity is the caller authenticated by a bearer access token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// ClientInfo is the caller's network identity.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the authenticated identity and true if set.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// WithClientInfo returns a context carrying ci.
func WithClientInfo(ctx context.Context, ci ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey, ci)
}

// GetClientInfo returns the client info stored by ClientInfoMiddleware, or the zero value.
func GetClientInfo(ctx context.Context) ClientInfo {
	ci, _ := ctx.Value(clientInfoKey).(ClientInfo)
	return ci
}

// ClientIP returns the client IP from context, or "unknown". It matches audit.IPExtractor.
func ClientIP(ctx context.Context) string {
	if ip := GetClientInfo(ctx).IP; ip != "" {
		return ip
	}
	return "unknown"
}

// ClientInfoMiddleware stores the client IP and User-Agent in the request context.
// With trustProxy the IP is the first parseable X-Forwarded-For entry, then X-Real-IP.
// Otherwise, and when neither header parses, it is the peer address.
func ClientInfoMiddleware(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ci := ClientInfo{IP: clientIP(r, trustProxy), UserAgent: r.UserAgent()}
			next.ServeHTTP(w, r.WithContext(WithClientInfo(r.Context(), ci)))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip.String()
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

func forwardedIP(raw string) net.IP {
	for _, part := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip
		}
	}
	return nil
}
