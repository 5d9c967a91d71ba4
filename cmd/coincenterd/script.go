package main

import (
	"encoding/json"
	"fmt"
	"os"

	"coincenter-core/internal/money"
	"coincenter-core/internal/orchestrator"
)

// scriptCommand is the on-disk JSON shape of one orchestrator.Command.
// money.Amount/CurrencyCode carry no JSON tags of their own (the core
// treats them as in-process values, per spec §6's "persisted file
// formats" list not including scripts), so this file owns the string
// round-trip via money.Parse/money.NewCurrencyCode.
type scriptCommand struct {
	Type         string            `json:"type"`
	Exchanges    []string          `json:"exchanges"`
	Market       string            `json:"market,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	Amount       string            `json:"amount,omitempty"`
	IsPercentage bool              `json:"is_percentage,omitempty"`
	Constraints  map[string]string `json:"constraints,omitempty"`
}

// loadScript reads a JSON array of scriptCommand from path and converts
// it to orchestrator.Commands.
func loadScript(path string) ([]orchestrator.Command, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []scriptCommand
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	out := make([]orchestrator.Command, 0, len(entries))
	for i, e := range entries {
		cmdType, err := parseCommandType(e.Type)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		cmd := orchestrator.Command{
			Type:          cmdType,
			ExchangeNames: e.Exchanges,
			Market:        e.Market,
			IsPercentage:  e.IsPercentage,
			Constraints:   e.Constraints,
		}
		if e.Currency != "" {
			cur, err := money.NewCurrencyCode(e.Currency)
			if err != nil {
				return nil, fmt.Errorf("command %d: currency %q: %w", i, e.Currency, err)
			}
			cmd.Currency = &cur
		}
		if e.Amount != "" {
			amt, err := money.Parse(e.Amount)
			if err != nil {
				return nil, fmt.Errorf("command %d: amount %q: %w", i, e.Amount, err)
			}
			cmd.Amount = &amt
		}
		out = append(out, cmd)
	}
	return out, nil
}

func parseCommandType(s string) (orchestrator.Type, error) {
	switch s {
	case "market_data_recording":
		return orchestrator.MarketDataRecording, nil
	case "trade":
		return orchestrator.Trade, nil
	case "withdraw":
		return orchestrator.Withdraw, nil
	default:
		return 0, fmt.Errorf("%w: unknown command type %q", orchestrator.ErrInvalidArgument, s)
	}
}
