// cmd/backtest replays historical candles through the full analysis chain
// (indicators → phases → signals → order simulation) and prints the run
// statistics.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/candles.db --symbol=BTCUSDT
//	go run ./cmd/backtest --csv=candles.csv --symbol=BTCUSDT --grid
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"trendlab/internal/backtest"
	"trendlab/internal/model"
	"trendlab/internal/pipeline"
	sqlitestore "trendlab/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	dbPath := flag.String("db", "", "Path to SQLite candle database")
	csvPath := flag.String("csv", "", "Path to CSV candle file (ts,open,high,low,close,volume)")
	symbol := flag.String("symbol", "BTCUSDT", "Instrument symbol")
	fromTS := flag.Int64("from", 0, "Unix-ms timestamp to start from (0=all)")
	barHours := flag.Float64("bar-hours", 4.0, "Bar duration in hours")
	capital := flag.Float64("capital", 10000, "Initial capital")
	notional := flag.Float64("notional", 1000, "Fixed notional per order")
	stopPct := flag.Float64("stop", 5, "Stop-loss percent")
	profitPct := flag.Float64("profit", 10, "Take-profit percent")
	strategies := flag.String("strategies", "", "Comma-separated strategy ids (empty=all)")
	grid := flag.Bool("grid", false, "Run the dual-limit grid mode instead of signal entries")
	journal := flag.String("journal", "", "SQLite path to record signals/orders/stats (empty=skip)")
	flag.Parse()

	candles, err := loadCandles(*dbPath, *csvPath, *symbol, *fromTS)
	if err != nil {
		log.Fatalf("[backtest] loading candles: %v", err)
	}
	log.Printf("[backtest] loaded %d candles for %s", len(candles), *symbol)

	cfg := pipeline.DefaultConfig()
	cfg.BarHours = *barHours
	cfg.Strategies = splitIDs(*strategies)

	result, err := pipeline.New(cfg).Run(candles)
	if err != nil {
		log.Fatalf("[backtest] pipeline failed: %v", err)
	}

	simCfg := backtest.DefaultConfig()
	simCfg.Notional = decimal.NewFromFloat(*notional)
	simCfg.StopLossPct = decimal.NewFromFloat(*stopPct)
	simCfg.TakeProfitPct = decimal.NewFromFloat(*profitPct)
	initialCapital := decimal.NewFromFloat(*capital)

	var orders []model.VirtualOrder
	var stats model.RunStatistics
	if *grid {
		orders, stats, err = backtest.RunGrid(candles, result.Bundle, initialCapital, simCfg)
	} else {
		orders, stats, err = backtest.Run(result.Signals, candles, result.Bundle, result.Phases, initialCapital, simCfg)
	}
	if err != nil {
		log.Fatalf("[backtest] simulation failed: %v", err)
	}

	printSummary(*symbol, len(candles), result, orders, stats)

	if *journal != "" {
		if err := record(*journal, *symbol, result, orders, stats); err != nil {
			log.Fatalf("[backtest] journal failed: %v", err)
		}
		log.Printf("[backtest] recorded %d signals and %d orders to %s",
			len(result.Signals), len(orders), *journal)
	}
}

func printSummary(symbol string, candleCount int, result *pipeline.Result, orders []model.VirtualOrder, stats model.RunStatistics) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║            BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	fmt.Printf("║  Symbol:            %-20s ║\n", symbol)
	fmt.Printf("║  Candles:           %-20d ║\n", candleCount)
	fmt.Printf("║  Signals:           %-20d ║\n", len(result.Signals))
	fmt.Printf("║  Orders:            %-20d ║\n", stats.TotalOrders)
	fmt.Printf("║  Closed / Open:     %-20s ║\n",
		fmt.Sprintf("%d / %d", stats.ClosedOrders, stats.OpenOrders))
	fmt.Printf("║  Win rate:          %-20s ║\n", stats.WinRatePct.StringFixed(2)+"%")
	fmt.Printf("║  Realized P&L:      %-20s ║\n", stats.TotalRealizedPnL.StringFixed(2))
	fmt.Printf("║  Avg P&L:           %-20s ║\n", stats.AvgRealizedPct.StringFixed(2)+"%")
	fmt.Printf("║  Avg holding bars:  %-20s ║\n", stats.AvgHoldingBars.StringFixed(1))
	fmt.Printf("║  Max drawdown:      %-20s ║\n", stats.MaxDrawdownPct.StringFixed(2)+"%")
	fmt.Printf("║  Final capital:     %-20s ║\n", stats.FinalCapital.StringFixed(2))
	fmt.Println("╚══════════════════════════════════════════╝")

	if result.Cycle != nil {
		fmt.Printf("\nOpen cycle: %s since bar %d (%d bars, %.1fh), extreme slope %.1f\n",
			result.Cycle.Label, result.Cycle.StartIndex, result.Cycle.Bars,
			result.Cycle.DurationHours, result.Cycle.ExtremeSlope)
	}
	for i := range orders {
		o := &orders[i]
		if o.Closed() {
			fmt.Printf("  %s %-5s %-26s entry=%s exit=%s (%s) pnl=%s\n",
				o.EntryTime.Format("2006-01-02 15:04"), o.Direction, o.EntryStrategyID,
				o.EntryPrice.StringFixed(2), o.ExitPrice.StringFixed(2), o.ExitReason,
				o.RealizedPnL.StringFixed(2))
		} else {
			fmt.Printf("  %s %-5s %-26s entry=%s holding, floating pnl=%s\n",
				o.EntryTime.Format("2006-01-02 15:04"), o.Direction, o.EntryStrategyID,
				o.EntryPrice.StringFixed(2), o.FloatingPnL.StringFixed(2))
		}
	}
}

func record(journalPath, symbol string, result *pipeline.Result, orders []model.VirtualOrder, stats model.RunStatistics) error {
	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: journalPath})
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, sig := range result.Signals {
		if err := writer.RecordSignal(sig); err != nil {
			return err
		}
	}
	for i := range orders {
		if err := writer.RecordOrder(orders[i]); err != nil {
			return err
		}
	}
	return writer.RecordRun(symbol, stats)
}

func loadCandles(dbPath, csvPath, symbol string, fromTS int64) ([]model.Candle, error) {
	switch {
	case csvPath != "":
		return loadCSV(csvPath, symbol, fromTS)
	case dbPath != "":
		reader, err := sqlitestore.NewReader(dbPath)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return reader.ReadCandles(symbol, fromTS)
	default:
		return nil, fmt.Errorf("either --db or --csv is required")
	}
}

// loadCSV reads candles from "ts,open,high,low,close,volume" rows. A header
// row is detected and skipped.
func loadCSV(path, symbol string, fromTS int64) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	var candles []model.Candle
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("csv row needs 6 fields, got %d", len(rec))
		}
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			if first {
				first = false
				continue // header row
			}
			return nil, fmt.Errorf("csv ts %q: %w", rec[0], err)
		}
		first = false
		if ts <= fromTS && fromTS != 0 {
			continue
		}

		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("csv field %d %q: %w", i+1, rec[i+1], err)
			}
			vals[i] = v
		}
		candles = append(candles, model.Candle{
			Symbol: symbol,
			TS:     ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return candles, nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
