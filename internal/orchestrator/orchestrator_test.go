package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coincenter-core/internal/money"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
	// withdrawAmounts records the Amount threaded into each Withdraw call,
	// keyed by exchange, for assertions.
	withdrawAmounts map[string]money.Amount
}

func (f *fakeExecutor) Execute(ctx context.Context, exchangeName string, cmd Command, carry []Result) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd.Type.String()+"@"+exchangeName)
	if cmd.Type == Withdraw && cmd.Amount != nil {
		if f.withdrawAmounts == nil {
			f.withdrawAmounts = map[string]money.Amount{}
		}
		f.withdrawAmounts[exchangeName] = *cmd.Amount
	}
	f.mu.Unlock()

	amt, _ := money.Parse("100 USDT")
	return Result{Exchange: exchangeName, Currency: amt.Currency(), Amount: amt}, nil
}

func TestGroupCommandsBatchesDisjointRecordingExchanges(t *testing.T) {
	script := []Command{
		{Type: MarketDataRecording, ExchangeNames: []string{"kraken"}},
		{Type: MarketDataRecording, ExchangeNames: []string{"binance"}},
		{Type: MarketDataRecording, ExchangeNames: []string{"kraken"}}, // overlaps first: new group
		{Type: Trade, ExchangeNames: []string{"kraken"}},
	}
	groups := groupCommands(script)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(groups), groups)
	}
	if len(groups[0]) != 2 {
		t.Fatalf("expected first group to batch the two disjoint recordings, got %d", len(groups[0]))
	}
	if len(groups[1]) != 1 || len(groups[2]) != 1 {
		t.Fatalf("expected the overlapping recording and the trade in their own groups, got %+v", groups)
	}
}

func TestRunDispatchesEveryExchangeInABatch(t *testing.T) {
	exec := &fakeExecutor{}
	o := New(Config{Workers: 4, Repeats: 1}, exec, nil)
	script := []Command{
		{Type: MarketDataRecording, ExchangeNames: []string{"kraken", "binance"}},
	}
	if err := o.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.calls) != 2 {
		t.Fatalf("expected 2 dispatches, got %d: %v", len(exec.calls), exec.calls)
	}
}

func TestWithdrawThreadsSinglePriorResult(t *testing.T) {
	exec := &fakeExecutor{}
	o := New(Config{Workers: 2, Repeats: 1}, exec, nil)
	script := []Command{
		{Type: MarketDataRecording, ExchangeNames: []string{"kraken"}},
		{Type: Withdraw, ExchangeNames: []string{"ignored"}, Constraints: map[string]string{"dest_address": "addr1"}}, // amount nil: threaded from carry
	}
	if err := o.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	amt, ok := exec.withdrawAmounts["kraken"]
	if !ok {
		t.Fatalf("expected withdraw threaded onto exchange kraken (the recording's source), got %+v", exec.withdrawAmounts)
	}
	want, _ := money.Parse("100 USDT")
	if !amt.Equal(want) {
		t.Fatalf("threaded withdraw amount = %s, want %s", amt, want)
	}
}

func TestWithdrawSkipsWithoutExactlyOnePriorResult(t *testing.T) {
	exec := &fakeExecutor{}
	o := New(Config{Workers: 2, Repeats: 1}, exec, nil)
	script := []Command{
		{Type: Withdraw, ExchangeNames: []string{"kraken"}, Constraints: map[string]string{"dest_address": "addr1"}}, // no carry at all: must skip
	}
	if err := o.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.calls) != 0 {
		t.Fatalf("expected withdraw to be skipped with no prior result, got calls=%v", exec.calls)
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	exec := &fakeExecutor{}
	o := New(Config{Workers: 1, Repeats: -1, MinInterCyclePeriod: 10 * time.Millisecond}, exec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	script := []Command{{Type: MarketDataRecording, ExchangeNames: []string{"kraken"}}}

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx, script) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Run to return a context error after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not observe cancellation in time")
	}
}

func TestValidateRejectsUnrecognizedType(t *testing.T) {
	cmd := Command{Type: Type(99), ExchangeNames: []string{"kraken"}}
	if err := cmd.Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Validate() = %v, want ErrInvalidArgument", err)
	}
}

func TestValidateRejectsNoExchangeNames(t *testing.T) {
	cmd := Command{Type: MarketDataRecording}
	if err := cmd.Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Validate() = %v, want ErrInvalidArgument", err)
	}
}

func TestValidateRejectsWithdrawWithoutDestAddress(t *testing.T) {
	cmd := Command{Type: Withdraw, ExchangeNames: []string{"kraken"}}
	if err := cmd.Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Validate() = %v, want ErrInvalidArgument", err)
	}
}

func TestValidateAcceptsWellFormedCommands(t *testing.T) {
	cmds := []Command{
		{Type: MarketDataRecording, ExchangeNames: []string{"kraken"}},
		{Type: Trade, ExchangeNames: []string{"kraken"}},
		{Type: Withdraw, ExchangeNames: []string{"kraken"}, Constraints: map[string]string{"dest_address": "addr1"}},
	}
	for _, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			t.Fatalf("Validate(%+v): %v", cmd, err)
		}
	}
}

func TestRunSurfacesInvalidArgument(t *testing.T) {
	exec := &fakeExecutor{}
	o := New(Config{Workers: 1, Repeats: 1}, exec, nil)
	script := []Command{{Type: Withdraw, ExchangeNames: []string{"kraken"}}} // no dest_address
	if err := o.Run(context.Background(), script); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Run() = %v, want ErrInvalidArgument", err)
	}
}
