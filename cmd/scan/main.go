// cmd/scan runs the analysis chain live: it consumes closed candles from a
// websocket feed (or a SQLite replay), recomputes indicators, phases and
// signals on every new bar, and publishes fresh signals and phase
// transitions to Redis. Prometheus metrics are served on METRICS_ADDR.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendlab/config"
	"trendlab/internal/logger"
	"trendlab/internal/marketdata/feed"
	"trendlab/internal/marketdata/replay"
	"trendlab/internal/metrics"
	"trendlab/internal/model"
	"trendlab/internal/phase"
	"trendlab/internal/pipeline"
	"trendlab/internal/ringbuf"
	redisstore "trendlab/internal/store/redis"
	sqlitestore "trendlab/internal/store/sqlite"
)

// windowCap bounds the recompute window: enough history for the composite
// minimum plus headroom for the slow EMA to stabilize.
const windowCap = 720

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("scan", slog.LevelInfo)

	speed := flag.Float64("speed", 0, "Replay speed when no FEED_URL is set (0=max)")
	fromTS := flag.Int64("from", 0, "Replay start timestamp in Unix ms (0=all)")
	flag.Parse()

	cfg := config.Load()

	publisher, err := redisstore.New(redisstore.PublisherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[scan] redis init failed: %v", err)
	}
	defer publisher.Close()

	// Live feed candles are journaled so the candle table can serve later
	// replays and backtests. Replay mode reads from the same file, so no
	// writer is opened there.
	var journal *sqlitestore.Writer
	if cfg.FeedURL != "" {
		journal, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Fatalf("[scan] sqlite init failed: %v", err)
		}
		defer journal.Close()
	}

	m := metrics.New()
	go metrics.Serve(cfg.MetricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[scan] shutdown requested")
		cancel()
	}()

	candleCh := make(chan model.Candle, 1024)
	go runSource(ctx, cfg, *fromTS, *speed, m, candleCh)

	scan(ctx, cfg, m, publisher, journal, candleCh)
}

// runSource feeds candleCh from the websocket feed when FEED_URL is set,
// otherwise from a SQLite replay.
func runSource(ctx context.Context, cfg *config.Config, fromTS int64, speed float64, m *metrics.Metrics, candleCh chan<- model.Candle) {
	defer close(candleCh)

	if cfg.FeedURL != "" {
		f := feed.New(feed.Config{URL: cfg.FeedURL, Symbol: cfg.Symbol})
		f.OnReconnect = m.FeedReconnects.Inc
		if err := f.Run(ctx, candleCh); err != nil && ctx.Err() == nil {
			log.Printf("[scan] feed stopped: %v", err)
		}
		return
	}

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Printf("[scan] sqlite open failed: %v", err)
		return
	}
	defer reader.Close()
	if err := replay.New(reader).Run(ctx, cfg.Symbol, fromTS, speed, candleCh); err != nil && ctx.Err() == nil {
		log.Printf("[scan] replay stopped: %v", err)
	}
}

// scan consumes candles, recomputes the chain per bar, and publishes what
// changed since the previous bar.
func scan(ctx context.Context, cfg *config.Config, m *metrics.Metrics, publisher *redisstore.Publisher, journal *sqlitestore.Writer, candleCh <-chan model.Candle) {
	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.BarHours = cfg.BarHours
	pipeCfg.Strategies = cfg.ParseStrategies()
	runner := pipeline.New(pipeCfg)

	window := ringbuf.New(windowCap)
	var lastLabel phase.Label

	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-candleCh:
			if !ok {
				log.Printf("[scan] source drained, %d candles seen", window.Evicted()+uint64(window.Len()))
				return
			}
			if !window.Push(candle) {
				m.DroppedCandles.Inc()
				continue
			}
			m.CandlesTotal.Inc()

			if journal != nil {
				if err := journal.WriteCandles([]model.Candle{candle}); err != nil {
					log.Printf("[scan] candle journal failed at ts=%d: %v", candle.TS, err)
				}
			}

			if window.Len() < pipeCfg.Indicator.MinCandles {
				continue
			}

			start := time.Now()
			result, err := runner.Run(window.Snapshot())
			m.ObserveCompute(start)
			if err != nil {
				log.Printf("[scan] recompute failed at ts=%d: %v", candle.TS, err)
				continue
			}

			publish(ctx, m, publisher, result, &lastLabel)
		}
	}
}

// publish pushes the newest bar's signal (if any) and any phase transition.
func publish(ctx context.Context, m *metrics.Metrics, publisher *redisstore.Publisher, result *pipeline.Result, lastLabel *phase.Label) {
	last := len(result.Candles) - 1

	if label := result.Phases[last]; label != *lastLabel {
		*lastLabel = label
		m.PhaseState.Set(phaseGaugeValue(label))
		ts := result.Candles[last].TS
		if err := publisher.PublishPhase(ctx, result.Candles[last].Symbol, ts, label); err != nil {
			log.Printf("[scan] phase publish failed: %v", err)
		} else {
			log.Printf("[scan] phase transition → %s", label)
		}
	}

	if pctile, ok := result.Bundle.DevPctile.At(last); ok && (pctile <= 5 || pctile >= 95) {
		log.Printf("[scan] deviation stretched: percentile %.1f", pctile)
	}

	for _, sig := range result.Signals {
		if sig.CandleIndex != last {
			continue // already published on an earlier bar
		}
		start := time.Now()
		err := publisher.PublishSignal(ctx, sig)
		m.RedisPublishDur.Observe(time.Since(start).Seconds())
		if err != nil {
			log.Printf("[scan] signal publish failed: %v", err)
			continue
		}
		for _, id := range sig.TriggeredIDs() {
			m.SignalsTotal.WithLabelValues(id).Inc()
		}
		log.Printf("[scan] %s signal at %.4f triggers=%v", sig.Direction, sig.Price, sig.TriggeredIDs())
	}
}

func phaseGaugeValue(label phase.Label) float64 {
	switch label {
	case phase.BearStrong:
		return -2
	case phase.BearWarning:
		return -1
	case phase.BullWarning:
		return 1
	case phase.BullStrong:
		return 2
	default:
		return 0
	}
}
