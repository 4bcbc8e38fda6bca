package middleware

import (
	"context"

	"github.com/angelmondragon/packfinderz-storefront/pkg/auth"
)

type contextKey string

const (
	ctxSession  contextKey = "session"
	ctxDeviceID contextKey = "device_id"
)

// SessionFromContext returns the caller session, anonymous when none was resolved.
func SessionFromContext(ctx context.Context) auth.Session {
	if ctx == nil {
		return auth.Anonymous()
	}
	if v, ok := ctx.Value(ctxSession).(auth.Session); ok {
		return v
	}
	return auth.Anonymous()
}

func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDeviceID).(string); ok {
		return v
	}
	return ""
}

// WithSession injects the resolved session into the context.
func WithSession(ctx context.Context, sess auth.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}

// WithDeviceID injects the device identifier into the context for downstream handlers.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxDeviceID, deviceID)
}
