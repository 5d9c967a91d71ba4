package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"coincenter-core/internal/metrics"
	"coincenter-core/internal/money"
)

// Executor runs one command against one exchange. The orchestrator owns
// grouping and result-threading; Executor owns what a command actually
// does once dispatched (talking to an exchange.Adapter, writing a
// recording file, etc — left to the caller so this package stays
// testable against fakes).
type Executor interface {
	Execute(ctx context.Context, exchangeName string, cmd Command, carry []Result) (Result, error)
}

// Config sizes the orchestrator's worker pool and repeat cadence.
type Config struct {
	// Workers bounds how many (command, exchange) pairs run
	// concurrently within one group (spec §5 "worker pool whose width
	// is configured").
	Workers int
	// Repeats is the number of times to run the whole script; -1 means
	// run until cancelled (spec §4.6 "repeats (N or infinite)").
	Repeats int
	// MinInterCyclePeriod is the minimum delay observed between the end
	// of one cycle and the start of the next.
	MinInterCyclePeriod time.Duration
}

// Orchestrator runs scripts of Commands against Executor, grouping
// batchable commands and threading results per spec §4.6.
type Orchestrator struct {
	cfg    Config
	exec   Executor
	logger *zap.Logger
}

// New builds an Orchestrator logging through logger (a nil logger falls
// back to a no-op one, so callers in tests don't have to thread one
// through).
func New(cfg Config, exec Executor, logger *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg, exec: exec, logger: logger}
}

// Run executes script for cfg.Repeats cycles (at least one; forever if
// negative),
// observing ctx cancellation between commands and between repetitions
// (spec §5 "polled between commands and between repetitions... allows
// in-flight HTTP requests to complete").
func (o *Orchestrator) Run(ctx context.Context, script []Command) error {
	cycles := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.runOnce(ctx, script); err != nil {
			return err
		}
		cycles++
		if o.cfg.Repeats >= 0 && cycles >= maxInt(1, o.cfg.Repeats) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.cfg.MinInterCyclePeriod):
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// runOnce groups script into batches and runs each batch in textual
// order, threading each batch's results into the next.
func (o *Orchestrator) runOnce(ctx context.Context, script []Command) error {
	for _, cmd := range script {
		if err := cmd.Validate(); err != nil {
			return err
		}
	}

	groups := groupCommands(script)
	var carry []Result
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		results, err := o.runGroup(ctx, group, carry)
		if err != nil {
			return err
		}
		carry = results
	}
	return nil
}

// groupCommands batches consecutive MarketDataRecording commands whose
// exchange sets are pairwise disjoint into a single group (spec §4.6
// "within a group, exchanges are collected so no exchange appears
// twice"). Every other command type runs in its own singleton group,
// since recording is the only batchable type today.
func groupCommands(script []Command) [][]Command {
	var groups [][]Command
	i := 0
	for i < len(script) {
		cmd := script[i]
		if cmd.Type != MarketDataRecording {
			groups = append(groups, []Command{cmd})
			i++
			continue
		}
		group := []Command{cmd}
		seen := exchangeSet(cmd.ExchangeNames)
		j := i + 1
		for j < len(script) && script[j].Type == MarketDataRecording && !overlaps(seen, script[j].ExchangeNames) {
			group = append(group, script[j])
			addAll(seen, script[j].ExchangeNames)
			j++
		}
		groups = append(groups, group)
		i = j
	}
	return groups
}

func exchangeSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	addAll(s, names)
	return s
}

func addAll(s map[string]struct{}, names []string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func overlaps(s map[string]struct{}, names []string) bool {
	for _, n := range names {
		if _, ok := s[n]; ok {
			return true
		}
	}
	return false
}

// task is one (command, exchange) pair to dispatch within a group.
type task struct {
	cmd      Command
	exchange string
}

// runGroup threads carry into each command's missing parameters, then
// dispatches every (command, exchange) pair in the group concurrently,
// bounded by cfg.Workers. A failing pair is isolated — logged and
// excluded from the group's results — per spec §7 "one bad pairing does
// not abort the script".
func (o *Orchestrator) runGroup(ctx context.Context, group []Command, carry []Result) ([]Result, error) {
	var tasks []task
	for _, cmd := range group {
		threaded, skip := threadCommand(cmd, carry)
		if skip {
			o.logger.Warn("skipping command: could not thread a required amount from prior results",
				zap.String("command_type", cmd.Type.String()),
			)
			continue
		}
		for _, ex := range threaded.ExchangeNames {
			tasks = append(tasks, task{cmd: threaded, exchange: ex})
		}
	}

	if len(tasks) == 0 {
		return nil, nil
	}

	sem := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []Result

	for _, tk := range tasks {
		tk := tk
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := o.exec.Execute(ctx, tk.exchange, tk.cmd, carry)
			outcome := "ok"
			if err != nil {
				outcome = "error"
				o.logger.Error("command execution failed",
					zap.String("command_type", tk.cmd.Type.String()),
					zap.String("exchange", tk.exchange),
					zap.Error(err),
				)
			}
			metrics.OrchestratorCommands(tk.cmd.Type.String(), outcome).Inc()
			if err == nil {
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return results, nil
}

// threadCommand fills cmd's missing amount from carry per spec §4.6's
// threading rules. skip is true when a required amount could not be
// threaded (the command must be dropped from this group's dispatch).
func threadCommand(cmd Command, carry []Result) (threaded Command, skip bool) {
	if cmd.Amount != nil {
		return cmd, false
	}
	switch cmd.Type {
	case Trade:
		return threadTrade(cmd, carry)
	case Withdraw:
		return threadWithdraw(cmd, carry)
	default:
		return cmd, false
	}
}

// threadTrade implements "if every previous-result amount shares a
// currency, accumulate per exchange and use the accumulated set;
// otherwise log and skip."
func threadTrade(cmd Command, carry []Result) (Command, bool) {
	if len(carry) == 0 {
		return cmd, true
	}
	cur := carry[0].Currency
	for _, r := range carry[1:] {
		if !r.Currency.Equal(cur) {
			return cmd, true
		}
	}
	totals := map[string]money.Amount{}
	for _, r := range carry {
		if acc, ok := totals[r.Exchange]; ok {
			sum, err := money.Add(acc, r.Amount)
			if err != nil {
				return cmd, true
			}
			totals[r.Exchange] = sum
		} else {
			totals[r.Exchange] = r.Amount
		}
	}
	names := make([]string, 0, len(totals))
	for ex := range totals {
		names = append(names, ex)
	}
	cmd.ExchangeNames = names
	cmd.Currency = &cur
	cmd.Constraints = withThreadedAmounts(cmd.Constraints, totals)
	return cmd, false
}

// threadWithdraw implements "require exactly one previous-result amount;
// use that amount and its source exchange."
func threadWithdraw(cmd Command, carry []Result) (Command, bool) {
	if len(carry) != 1 {
		return cmd, true
	}
	r := carry[0]
	cmd.ExchangeNames = []string{r.Exchange}
	cmd.Currency = &r.Currency
	amt := r.Amount
	cmd.Amount = &amt
	return cmd, false
}

// withThreadedAmounts stashes the per-exchange accumulated amount onto
// the command's Constraints map (keyed "threaded_amount") so Execute can
// read it back without a separate threading channel.
func withThreadedAmounts(base map[string]string, totals map[string]money.Amount) map[string]string {
	out := make(map[string]string, len(base)+len(totals))
	for k, v := range base {
		out[k] = v
	}
	for ex, amt := range totals {
		out[fmt.Sprintf("threaded_amount:%s", ex)] = amt.String()
	}
	return out
}
