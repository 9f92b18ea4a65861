// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package constants holds the fixed values shared across layers: server
// timing, chat limits, cache lifetimes, Redis prefixes and event types.
// Anything an operator may tune lives in config instead.
package constants

import "time"

// # Metadata

const (
	AppName    = "helpline-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// RateLimitCleanupInterval is how often idle limiter entries are swept.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is the idle time after which a caller's bucket is dropped.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "helpline.app"

	// AllowedOriginSuffix is the production domain accepted by the CORS middleware.
	AllowedOriginSuffix = "helpline.app"

	// DevTokenTTL is the lifetime of tokens minted by cmd/devtoken.
	DevTokenTTL = 12 * time.Hour
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # Chat

const (
	// PhoneDigits is the exact number of digits in a normalized phone number.
	PhoneDigits = 10

	// DefaultBlockReason is stored when a block request carries no reason.
	DefaultBlockReason = "No reason provided"

	// MaxContentLength bounds the message body in bytes.
	MaxContentLength = 4000
)

// # Cache Lifetimes

const (
	// TenantCacheTTL is the lifetime of a tenant in the in-process L1 cache.
	TenantCacheTTL = 30 * time.Second

	// BlockAnswerTTL is the lifetime of a cached IsBlocked answer in Redis.
	BlockAnswerTTL = 5 * time.Minute

	// DedupeTTL is how long a client message id is remembered.
	DedupeTTL = 24 * time.Hour
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixBlocked = "chat:blocked:"
	RedisPrefixDedupe  = "chat:dedupe:"
)

// # Event Types

const (
	EventMessageAppended = "chat.message.appended"
	EventUserBlocked     = "chat.user.blocked"
	EventUserUnblocked   = "chat.user.unblocked"
)
