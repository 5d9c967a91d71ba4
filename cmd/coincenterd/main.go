// Command coincenterd is the process entrypoint: it loads configuration,
// wires exchange adapters, and dispatches to either the long-running
// orchestrator server or a one-shot backtest, adapted from the teacher's
// main.go (flag/env bootstrap, broker-switch wiring, HTTP mux with
// /healthz + /metrics, signal.NotifyContext shutdown) onto a
// spf13/cobra command surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "coincenterd",
	Short: "coincenterd runs the cross-exchange trading core",
	Long: "coincenterd loads a YAML configuration describing one or more exchange\n" +
		"adapters and either serves the orchestrator continuously or replays a\n" +
		"recorded order-book history through the trading engine once.",
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backtestCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
