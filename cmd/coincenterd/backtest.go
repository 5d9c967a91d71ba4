package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"coincenter-core/internal/app"
	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
	"coincenter-core/internal/tradeengine"
)

var (
	backtestMarket     string
	backtestStartBase  string
	backtestStartQuote string
	backtestMAFast     int
	backtestMASlow     int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest <csv-file>",
	Short: "Replay a recorded order-book CSV through the trading engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVarP(&backtestMarket, "market", "m", "BTC-USDT", "Market the CSV quotes (BASE-QUOTE)")
	backtestCmd.Flags().StringVar(&backtestStartBase, "start-base", "1 BTC", "Starting base balance")
	backtestCmd.Flags().StringVar(&backtestStartQuote, "start-quote", "10000 USDT", "Starting quote balance")
	backtestCmd.Flags().IntVar(&backtestMAFast, "ma-fast", 10, "Fast moving-average window (in replayed books)")
	backtestCmd.Flags().IntVar(&backtestMASlow, "ma-slow", 30, "Slow moving-average window (in replayed books)")
}

// tickRow is one line of the replayed CSV: time,bid_price,bid_vol,ask_price,ask_vol
type tickRow struct {
	t                      time.Time
	bidPrice, bidVol       float64
	askPrice, askVol       float64
}

func runBacktest(cmd *cobra.Command, args []string) error {
	mkt, err := market.Parse(backtestMarket)
	if err != nil {
		return fmt.Errorf("parse market %q: %w", backtestMarket, err)
	}
	startBase, err := money.Parse(backtestStartBase)
	if err != nil {
		return fmt.Errorf("parse start-base: %w", err)
	}
	startQuote, err := money.Parse(backtestStartQuote)
	if err != nil {
		return fmt.Errorf("parse start-quote: %w", err)
	}

	rows, err := loadTicks(args[0])
	if err != nil {
		return fmt.Errorf("load ticks: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("backtest: no rows in %s", args[0])
	}

	engine, err := tradeengine.New(mkt, startBase, startQuote, tradeengine.DefaultFeeConfig)
	if err != nil {
		return fmt.Errorf("new engine: %w", err)
	}
	algo := app.NewMomentumAlgorithm(backtestMAFast, backtestMASlow)
	if err := engine.RegisterAlgorithm(algo); err != nil {
		return fmt.Errorf("register algorithm: %w", err)
	}

	books := make([]*orderbook.Book, 0, len(rows))
	for i, r := range rows {
		bid, err := money.ParseDecimalString(strconv.FormatFloat(r.bidPrice, 'f', -1, 64), startQuote.Currency().String())
		if err != nil {
			return fmt.Errorf("row %d bid price: %w", i, err)
		}
		bidVol, err := money.ParseDecimalString(strconv.FormatFloat(r.bidVol, 'f', -1, 64), startBase.Currency().String())
		if err != nil {
			return fmt.Errorf("row %d bid volume: %w", i, err)
		}
		ask, err := money.ParseDecimalString(strconv.FormatFloat(r.askPrice, 'f', -1, 64), startQuote.Currency().String())
		if err != nil {
			return fmt.Errorf("row %d ask price: %w", i, err)
		}
		askVol, err := money.ParseDecimalString(strconv.FormatFloat(r.askVol, 'f', -1, 64), startBase.Currency().String())
		if err != nil {
			return fmt.Errorf("row %d ask volume: %w", i, err)
		}
		book, err := orderbook.NewFromTicker(mkt, bid, bidVol, ask, askVol, 1, bidVol.NbDecimals(), bid.NbDecimals())
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		books = append(books, book.WithTime(r.t))
	}

	stats, err := engine.TradeRange(books, nil)
	if err != nil {
		return fmt.Errorf("trade range: %w", err)
	}
	result, err := engine.FinalizeAndComputeResult()
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	fmt.Printf("replayed %d/%d books (%d invalid)\n", stats.OrderBooks.NbSuccessful, len(books), stats.OrderBooks.NbError)
	fmt.Printf("algorithm: %s\n", result.AlgorithmName)
	fmt.Printf("start: %s / %s\n", result.StartBase, result.StartQuote)
	fmt.Printf("quote_delta: %s\n", result.QuoteDelta)
	fmt.Printf("closed orders: %d\n", len(result.ClosedOrders))
	return nil
}

// loadTicks reads a headered CSV (time,bid_price,bid_vol,ask_price,ask_vol).
// Time accepts RFC3339 or UNIX seconds, mirroring the teacher's loadCSV in
// backtest.go.
func loadTicks(path string) ([]tickRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []tickRow
	var headers []string
	rowIdx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			if j < len(rec) {
				row[strings.ToLower(strings.TrimSpace(h))] = rec[j]
			}
		}
		rowIdx++

		ts, err := parseTimeField(row["time"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIdx, err)
		}
		bidPrice, _ := strconv.ParseFloat(row["bid_price"], 64)
		bidVol, _ := strconv.ParseFloat(row["bid_vol"], 64)
		askPrice, _ := strconv.ParseFloat(row["ask_price"], 64)
		askVol, _ := strconv.ParseFloat(row["ask_vol"], 64)
		out = append(out, tickRow{t: ts, bidPrice: bidPrice, bidVol: bidVol, askPrice: askPrice, askVol: askVol})
	}
	return out, nil
}

func parseTimeField(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time field")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q", s)
	}
	return time.Unix(sec, 0).UTC(), nil
}
