// Package ringbuf provides a bounded rolling window of the most recent
// candles. The live scanner recomputes the whole indicator chain from this
// window on every closed candle, so the buffer keeps insertion order and
// hands out ordered snapshots.
package ringbuf

import (
	"sync"

	"trendlab/internal/model"
)

// Window is a fixed-capacity rolling candle buffer. When full, pushing a
// new candle evicts the oldest. Safe for one producer and one consumer.
type Window struct {
	mu      sync.Mutex
	buf     []model.Candle
	start   int // index of the oldest candle
	count   int
	evicted uint64
}

// New creates a window with the given capacity (minimum 1).
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]model.Candle, capacity)}
}

// Push appends a candle, evicting the oldest when the window is full.
// Out-of-order candles (ts not after the newest held) are rejected.
func (w *Window) Push(c model.Candle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count > 0 {
		newest := w.buf[(w.start+w.count-1)%len(w.buf)]
		if c.TS <= newest.TS {
			return false
		}
	}

	if w.count == len(w.buf) {
		w.buf[w.start] = c
		w.start = (w.start + 1) % len(w.buf)
		w.evicted++
		return true
	}
	w.buf[(w.start+w.count)%len(w.buf)] = c
	w.count++
	return true
}

// Snapshot returns the held candles in ascending time order. The returned
// slice is a copy; callers may retain it across further pushes.
func (w *Window) Snapshot() []model.Candle {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]model.Candle, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Len returns the number of candles currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Evicted returns how many candles have aged out of the window.
func (w *Window) Evicted() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.evicted
}
