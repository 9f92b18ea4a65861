// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuid mints the identifiers of every stored row and checks ids that
// arrive from clients before they reach a uuid column.
package uuid

import "github.com/google/uuid"

// New returns a version 7 UUID. Its time prefix keeps inserts at the right
// edge of the primary key index.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Valid reports whether value is a UUID in the hyphenated 36-character form.
// Braced and URN forms are rejected so a ref is either an id or a name.
func Valid(value string) bool {
	if len(value) != 36 {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}
