// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey names the per-request values the HTTP pipeline stores in a
// [context.Context]. Only [ctxutil] reads them directly.
package ctxkey

// Key identifies one request-scoped value. The unexported field means no
// other package can mint a colliding key.
type Key struct {
	name string
}

// String implements fmt.Stringer for debugging.
func (k Key) String() string {
	return "helpline/" + k.name
}

var (
	// RequestID holds the X-Request-ID correlation value.
	RequestID = Key{name: "request_id"}

	// StaffClaims holds the verified [sec.AuthClaims] of a staff token.
	StaffClaims = Key{name: "staff_claims"}

	// Logger holds the request-scoped *slog.Logger.
	Logger = Key{name: "logger"}
)
