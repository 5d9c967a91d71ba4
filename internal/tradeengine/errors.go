package tradeengine

import "errors"

var (
	// ErrOrderNotFound is raised when an UpdatePrice or single-id Cancel
	// command references an order id that is not currently open.
	ErrOrderNotFound = errors.New("tradeengine: order not found")

	// ErrInvalidIntensity is raised when a Buy/Sell command's intensity
	// is outside the (0, 100] percentage range.
	ErrInvalidIntensity = errors.New("tradeengine: intensity must be in (0, 100]")

	// ErrMarketMismatch is raised when an engine is constructed with a
	// market inconsistent with its configured start amounts' currencies.
	ErrMarketMismatch = errors.New("tradeengine: market inconsistent with start amounts")

	// ErrAlgorithmRegistered is raised by a second RegisterAlgorithm call.
	ErrAlgorithmRegistered = errors.New("tradeengine: algorithm already registered")
)
