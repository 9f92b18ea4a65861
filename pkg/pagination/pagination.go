// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides keyset cursors for API list endpoints.
//
// # Overview
//
// A cursor is the position of the last item of a page: its creation time and
// id. Clients receive it as an opaque base64url token authenticated with a
// keyed BLAKE2b MAC. The MAC also covers a scope string chosen by the caller
// (which never travels in the token), so a token issued for one scope fails
// to decode in any other.
package pagination

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20
	// MaxLimit is the upper bound for items per page to prevent system abuse.
	MaxLimit = 100

	macSize = 16
)

// ErrInvalidCursor is returned for tokens that are malformed or fail the MAC check.
var ErrInvalidCursor = errors.New("pagination: invalid cursor")

// Position is a point in the (CreatedAt, ID) ordering.
type Position struct {
	CreatedAt time.Time
	ID        string
}

// After reports whether p sorts strictly after other.
func (p Position) After(other Position) bool {
	if !p.CreatedAt.Equal(other.CreatedAt) {
		return p.CreatedAt.After(other.CreatedAt)
	}
	return p.ID > other.ID
}

// Codec encodes and verifies cursor tokens.
type Codec struct {
	key []byte
}

// NewCodec builds a Codec from secret. Secrets longer than a BLAKE2b key are
// hashed down to 32 bytes first.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("pagination: cursor secret is empty")
	}
	key := secret
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(secret)
		key = sum[:]
	}
	return &Codec{key: append([]byte(nil), key...)}, nil
}

// Encode returns the token for position within scope.
func (c *Codec) Encode(scope string, position Position) string {
	payload := make([]byte, 8, 8+len(position.ID)+macSize)
	binary.BigEndian.PutUint64(payload, uint64(position.CreatedAt.UnixNano()))
	payload = append(payload, position.ID...)
	payload = append(payload, c.sign(scope, payload)...)
	return base64.RawURLEncoding.EncodeToString(payload)
}

// Decode verifies token against scope and returns its position.
// An empty token decodes to the zero Position (start of the ordering).
func (c *Codec) Decode(scope, token string) (Position, error) {
	if token == "" {
		return Position{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) <= 8+macSize {
		return Position{}, ErrInvalidCursor
	}

	payload, mac := raw[:len(raw)-macSize], raw[len(raw)-macSize:]
	if subtle.ConstantTimeCompare(mac, c.sign(scope, payload)) != 1 {
		return Position{}, ErrInvalidCursor
	}

	nanos := int64(binary.BigEndian.Uint64(payload[:8]))
	return Position{
		CreatedAt: time.Unix(0, nanos).UTC(),
		ID:        string(bytes.Clone(payload[8:])),
	}, nil
}

func (c *Codec) sign(scope string, payload []byte) []byte {
	// Key length is checked in NewCodec, so New cannot fail here.
	hash, _ := blake2b.New(macSize, c.key)

	// Length prefix keeps scope and payload from sliding into each other.
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(scope)))
	hash.Write(length[:])
	hash.Write([]byte(scope))
	hash.Write(payload)
	return hash.Sum(nil)
}

// ClampLimit applies [DefaultLimit] to non-positive values and caps at [MaxLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
