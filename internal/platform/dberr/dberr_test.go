// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/dberr"
)

/*
TestWrap verifies SQLSTATE classification into application errors.
*/
func TestWrap(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no rows", pgx.ErrNoRows, http.StatusNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), http.StatusNotFound},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, http.StatusConflict},
		{"foreign key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, http.StatusNotFound},
		{"bad uuid", &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}, http.StatusBadRequest},
		{"other", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := apperr.As(dberr.Wrap(tt.err, "load tenant"))
			if assert.NotNil(t, wrapped) {
				assert.Equal(t, tt.status, wrapped.HTTPStatus)
			}
		})
	}

	assert.Nil(t, dberr.Wrap(nil, "noop"))
}

/*
TestWrap_PassThrough verifies domain errors are not reclassified.
*/
func TestWrap_PassThrough(t *testing.T) {
	domain := apperr.New(http.StatusConflict, "ALREADY_BLOCKED", "User is already blocked")
	assert.Same(t, domain, dberr.Wrap(domain, "block"))
}

/*
TestIsUniqueViolation verifies constraint name filtering.
*/
func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "uq_block_active"})

	assert.True(t, dberr.IsUniqueViolation(err, ""))
	assert.True(t, dberr.IsUniqueViolation(err, "uq_block_active"))
	assert.False(t, dberr.IsUniqueViolation(err, "uq_tenant_name"))
	assert.False(t, dberr.IsUniqueViolation(errors.New("x"), ""))
}
