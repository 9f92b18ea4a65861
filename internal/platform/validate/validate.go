// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate collects field-level input failures in the service layer
// and reports them as one INVALID_INPUT [apperr.AppError].
//
// A Validator is single-use and not safe for concurrent use.
package validate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/helpline/internal/platform/apperr"
)

// metadataKey is the shape of a message metadata key.
var metadataKey = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Validator accumulates failures through a chainable API. Call [Validator.Err]
// last.
type Validator struct {
	failures []apperr.FieldError
}

// Required fails when value is empty after trimming.
func (v *Validator) Required(field, value string) *Validator {
	return v.check(strings.TrimSpace(value) != "", field, "This field is required")
}

// MaxLen fails when value holds more than max runes.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	return v.check(utf8.RuneCountInString(value) <= max, field, fmt.Sprintf("Maximum %d characters", max))
}

// OneOf fails unless value is one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	return v.check(slices.Contains(allowed, value), field, "Must be one of: "+strings.Join(allowed, ", "))
}

// MetadataKeys fails when metadata has more than max entries or a key outside
// 1-64 letters, digits, dots, dashes and underscores. Only the first bad key
// is reported.
func (v *Validator) MetadataKeys(field string, metadata map[string]string, max int) *Validator {
	if len(metadata) > max {
		return v.check(false, field, fmt.Sprintf("Maximum %d entries", max))
	}
	for key := range metadata {
		if !metadataKey.MatchString(key) {
			return v.check(false, field, fmt.Sprintf("Invalid key %q", key))
		}
	}
	return v
}

// Err returns the accumulated failures, or nil when every rule passed.
func (v *Validator) Err() error {
	if len(v.failures) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.failures...)
}

func (v *Validator) check(ok bool, field, message string) *Validator {
	if !ok {
		v.failures = append(v.failures, apperr.FieldError{Field: field, Message: message})
	}
	return v
}
