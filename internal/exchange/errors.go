package exchange

import "errors"

var (
	// ErrUnsupported is returned by adapter methods a given backend does
	// not implement (mirrors broker_paper.go's "not supported on paper").
	ErrUnsupported = errors.New("exchange: operation not supported by this adapter")

	// ErrOrderNotFound is returned by QueryOrder/Cancel for an unknown id.
	ErrOrderNotFound = errors.New("exchange: order not found")

	// ErrAdapter wraps any upstream failure surfaced after the adapter's
	// own retry policy is exhausted (spec §7 AdapterError).
	ErrAdapter = errors.New("exchange: adapter request failed")
)
