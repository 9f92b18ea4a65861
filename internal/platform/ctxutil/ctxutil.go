// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil reads and writes the request-scoped values of the API:
// correlation id, logger and the staff claims of an authenticated caller.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/helpline/internal/platform/ctxkey"
	"github.com/taibuivan/helpline/internal/platform/sec"
)

// # Correlation

// WithRequestID attaches the correlation id. Events published during the
// request carry it as their correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.RequestID, id)
}

// GetRequestID returns the correlation id, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.RequestID).(string)
	return id
}

// # Logging

// WithLogger attaches the request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.Logger, logger)
}

// GetLogger returns the request logger, falling back to [slog.Default].
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.Logger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// # Staff Identity

// WithStaffClaims attaches the claims of a verified staff token.
func WithStaffClaims(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.StaffClaims, claims)
}

// StaffClaims returns the verified claims, or nil for anonymous callers.
// End-users never carry a token, so nil is the common case on /chat.
func StaffClaims(ctx context.Context) *sec.AuthClaims {
	claims, _ := ctx.Value(ctxkey.StaffClaims).(*sec.AuthClaims)
	return claims
}

// StaffRole returns the role of the token, or "" for anonymous callers.
func StaffRole(ctx context.Context) sec.Role {
	if claims := StaffClaims(ctx); claims != nil {
		return sec.Role(claims.Role)
	}
	return ""
}
