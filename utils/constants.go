package utils

import (
	"time"
)

// Pricing constants
const (
	// RialCurrency is the ledger currency code
	RialCurrency = "IRR"

	// DefaultPriceCents is the fallback unit price (1.00 unit in minor units)
	// applied to ranges that have no price rule
	DefaultPriceCents int64 = 100
)

// Hold lifecycle constants
const (
	// HoldGracePeriod is how long a temporary hold survives after the
	// user's first SMS poll before the sweeper reclaims it
	HoldGracePeriod = 5 * time.Minute

	// MaxBatchSize caps how many numbers one allocation may reserve
	MaxBatchSize = 100
)

// ContextKey is the type for request-scoped context values
type ContextKey string

// Request context keys
const (
	RequestIDKey  ContextKey = "request_id"
	EndpointKey   ContextKey = "endpoint"
	CancelFuncKey ContextKey = "cancel_func"
)

// Upstream session constants
const (
	// UpstreamRequestTimeout bounds every call against the SMS site
	UpstreamRequestTimeout = 15 * time.Second

	// UpstreamCookieTTL is how long persisted session cookies are kept
	UpstreamCookieTTL = 12 * time.Hour
)
