// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package request reads the parts of an inbound HTTP request the handlers
// need: the JSON body, chi path parameters and the optional staff claims.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/ctxutil"
	"github.com/taibuivan/helpline/internal/platform/sec"
)

// maxBodyBytes bounds every JSON request body. Message content is capped far
// below this, so the limit only stops abuse.
const maxBodyBytes = 1 << 20

var (
	ErrEmptyBody   = apperr.ValidationError("Request body is required")
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
	ErrBodyTooBig  = apperr.New(http.StatusRequestEntityTooLarge, apperr.CodeInvalidInput, "Request body is too large")
)

/*
DecodeJSON decodes the body into target.

Returns:
  - error: ErrEmptyBody | ErrBodyTooBig | ErrInvalidJSON
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)

	err := json.NewDecoder(body).Decode(target)
	var tooBig *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return ErrEmptyBody
	case errors.As(err, &tooBig):
		return ErrBodyTooBig
	default:
		return ErrInvalidJSON
	}
}

// Param returns the named chi URL parameter.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// Claims returns the verified staff claims, or nil for end-users.
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.StaffClaims(request.Context())
}

// RequiredClaims is [Claims] for staff-only endpoints: anonymous callers get
// a 401.
func RequiredClaims(request *http.Request) (*sec.AuthClaims, error) {
	claims := Claims(request)
	if claims == nil {
		return nil, apperr.Unauthorized("A staff token is required")
	}
	return claims, nil
}
