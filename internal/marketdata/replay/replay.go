// Package replay provides a candle replayer that reads historical data from
// SQLite and emits it at configurable speed, so the live scanner can be
// exercised without a websocket feed.
package replay

import (
	"context"
	"log"
	"time"

	"trendlab/internal/model"
	sqlitestore "trendlab/internal/store/sqlite"
)

// Replayer reads historical candles from SQLite and replays them at a
// configurable speed multiplier.
type Replayer struct {
	reader *sqlitestore.Reader
}

// New creates a Replayer backed by a SQLite reader.
func New(reader *sqlitestore.Reader) *Replayer {
	return &Replayer{reader: reader}
}

// Run replays all candles for the symbol into outCh. speed controls the
// playback rate: 1.0 = real-time, 10.0 = 10x, 0 = as fast as possible.
// fromTS filters candles to those after this Unix-ms timestamp (0 = all).
func (r *Replayer) Run(ctx context.Context, symbol string, fromTS int64, speed float64, outCh chan<- model.Candle) error {
	candles, err := r.reader.ReadCandles(symbol, fromTS)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		log.Printf("[replay] no candles found for %s", symbol)
		return nil
	}

	log.Printf("[replay] loaded %d candles for %s, speed=%.1fx", len(candles), symbol, speed)

	var prevTS time.Time
	emitted := 0
	for _, c := range candles {
		select {
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d candles", emitted)
			return ctx.Err()
		default:
		}

		// Simulate time gaps between candles
		if speed > 0 && !prevTS.IsZero() {
			gap := c.Time().Sub(prevTS)
			if gap > 0 {
				scaledGap := time.Duration(float64(gap) / speed)
				// Cap max sleep to avoid very long waits
				if scaledGap > 5*time.Second {
					scaledGap = 5 * time.Second
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaledGap):
				}
			}
		}
		prevTS = c.Time()

		outCh <- c
		emitted++
	}

	log.Printf("[replay] completed: %d candles replayed", emitted)
	return nil
}
