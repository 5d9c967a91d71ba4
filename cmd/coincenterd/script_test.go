package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"coincenter-core/internal/orchestrator"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestLoadScriptParsesEveryCommandType(t *testing.T) {
	path := writeScript(t, `[
		{"type": "market_data_recording", "exchanges": ["kraken", "binance"]},
		{"type": "trade", "exchanges": ["kraken"], "currency": "BTC", "amount": "0.5 BTC", "is_percentage": false},
		{"type": "withdraw", "exchanges": ["kraken"], "currency": "USDT", "amount": "100 USDT", "constraints": {"dest_address": "addr1"}}
	]`)

	cmds, err := loadScript(path)
	if err != nil {
		t.Fatalf("loadScript: %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("got %d commands, want 3", len(cmds))
	}
	if cmds[0].Type != orchestrator.MarketDataRecording {
		t.Fatalf("cmds[0].Type = %s, want MarketDataRecording", cmds[0].Type)
	}
	if cmds[1].Type != orchestrator.Trade || cmds[1].Currency == nil || cmds[1].Amount == nil {
		t.Fatalf("cmds[1] = %+v, want a fully parsed trade command", cmds[1])
	}
	if cmds[2].Type != orchestrator.Withdraw || cmds[2].Constraints["dest_address"] != "addr1" {
		t.Fatalf("cmds[2] = %+v, want withdraw with dest_address constraint", cmds[2])
	}
}

func TestLoadScriptRejectsUnknownType(t *testing.T) {
	path := writeScript(t, `[{"type": "teleport", "exchanges": ["kraken"]}]`)
	if _, err := loadScript(path); !errors.Is(err, orchestrator.ErrInvalidArgument) {
		t.Fatalf("loadScript err = %v, want ErrInvalidArgument", err)
	}
}

func TestLoadScriptRejectsBadCurrency(t *testing.T) {
	path := writeScript(t, `[{"type": "trade", "exchanges": ["kraken"], "currency": "WAYTOOLONGACURRENCYCODE", "amount": "1 BTC"}]`)
	if _, err := loadScript(path); err == nil {
		t.Fatal("expected an error for an invalid currency code")
	}
}

func TestLoadScriptMissingFile(t *testing.T) {
	if _, err := loadScript(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing script file")
	}
}
