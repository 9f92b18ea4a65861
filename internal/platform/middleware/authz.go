// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/ctxutil"
	"github.com/taibuivan/helpline/internal/platform/respond"
	"github.com/taibuivan/helpline/internal/platform/sec"
)

// TokenVerifier verifies staff bearer tokens. [*sec.TokenService] satisfies it.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

/*
Authenticate verifies an optional staff bearer token.

Description: A request without an Authorization header continues as
anonymous; that is how end-users reach /chat. A header that is present but
malformed or unverifiable is rejected with 401 rather than downgraded to
anonymous. Verified claims are stored in the context and the request logger
gains account_id and role.
*/
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			header := request.Header.Get(constants.HeaderAuthorization)
			if header == "" {
				next.ServeHTTP(writer, request)
				return
			}

			scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
			token = strings.TrimSpace(token)
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				respond.Error(writer, request, apperr.Unauthorized("Authorization header must be 'Bearer <token>'"))
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := ctxutil.WithStaffClaims(request.Context(), claims)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(
				slog.String("account_id", claims.UserID),
				slog.String("role", claims.Role),
			))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireRole admits staff whose token role is at least role in the
// superadmin > admin hierarchy. Anonymous callers get 401, lower roles 403.
func RequireRole(role sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			switch held := ctxutil.StaffRole(request.Context()); {
			case held == "":
				respond.Error(writer, request, apperr.Unauthorized("A staff token is required"))
			case !held.AtLeast(role):
				respond.Error(writer, request, apperr.Forbidden("Requires the "+string(role)+" role"))
			default:
				next.ServeHTTP(writer, request)
			}
		})
	}
}
