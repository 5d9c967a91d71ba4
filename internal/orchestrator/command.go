// Package orchestrator implements the cross-exchange script runner
// (spec §4.6): it groups independent commands, runs each group against
// the per-exchange adapters, and threads transferable results between
// adjacent commands in the script.
package orchestrator

import (
	"fmt"

	"coincenter-core/internal/money"
)

// Type is the kind of action a Command performs.
type Type int

const (
	// MarketDataRecording is the only batchable command type: distinct
	// commands of this type with non-overlapping exchange sets can run
	// in the same group.
	MarketDataRecording Type = iota
	Trade
	Withdraw
)

func (t Type) String() string {
	switch t {
	case MarketDataRecording:
		return "market_data_recording"
	case Trade:
		return "trade"
	case Withdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// Command is one step of an orchestrator script: `(type, exchange_names,
// market, currency, amount, is_percentage, constraints)` per spec §4.6.
// Amount/Currency/Market are optional (nil) when the value is expected
// to come from threading the previous group's results.
type Command struct {
	Type          Type
	ExchangeNames []string
	Market        string
	Currency      *money.CurrencyCode
	Amount        *money.Amount
	IsPercentage  bool
	Constraints   map[string]string
}

// Validate checks that cmd is well-formed per spec §4.6's command
// composition rules, independent of any threading that later fills in
// omitted amounts/currencies. Structural violations (an unrecognized
// type, no exchanges to run against, a Withdraw with no destination
// address) are caller bugs, not per-exchange execution failures, so they
// are checked up front rather than surfacing per task.
func (c Command) Validate() error {
	switch c.Type {
	case MarketDataRecording, Trade, Withdraw:
	default:
		return fmt.Errorf("%w: unrecognized command type %d", ErrInvalidArgument, c.Type)
	}
	if len(c.ExchangeNames) == 0 {
		return fmt.Errorf("%w: %s command has no exchange_names", ErrInvalidArgument, c.Type)
	}
	if c.Type == Withdraw && c.Constraints["dest_address"] == "" {
		return fmt.Errorf("%w: withdraw command has no dest_address constraint", ErrInvalidArgument)
	}
	return nil
}

// Result is a transferable result produced by running one command
// against one exchange: the amount it moved (or recorded), and which
// exchange produced it. Trade/Withdraw commands downstream in the script
// consume these per the threading rules in orchestrator.go.
type Result struct {
	Exchange string
	Currency money.CurrencyCode
	Amount   money.Amount
}
