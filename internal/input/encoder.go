// Package input turns raw encoder edges and button levels into the discrete
// rotate/press events consumed once per tick by the menu state machine.
package input

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/timfallmk/glowstick/internal/mathx"
)

const (
	DefaultDebounce        = 20 * time.Millisecond
	DefaultCoarseThreshold = 60 * time.Millisecond
	DefaultFineScale       = 1
	DefaultCoarseScale     = 10
)

// ErrUnsupported is returned by hardware sources on platforms without the
// required kernel interface.
var ErrUnsupported = errors.New("input source not supported on this platform")

// EncoderConfig tunes debounce and velocity scaling.
type EncoderConfig struct {
	Debounce        time.Duration
	CoarseThreshold time.Duration
	FineScale       int
	CoarseScale     int
}

// DefaultEncoderConfig returns the tuning used by the handheld.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Debounce:        DefaultDebounce,
		CoarseThreshold: DefaultCoarseThreshold,
		FineScale:       DefaultFineScale,
		CoarseScale:     DefaultCoarseScale,
	}
}

// Encoder is a single-producer/single-consumer mailbox between the edge
// handler and the tick loop. Edge only adds to the delta; Sample is the only
// place the delta is cleared, via an atomic swap.
type Encoder struct {
	cfg   EncoderConfig
	epoch time.Time

	delta atomic.Int32
	scale atomic.Int32

	// Nanoseconds since epoch of the last accepted edge; -1 before the first.
	lastEdge atomic.Int64
}

// NewEncoder creates an encoder mailbox. Zero fields in cfg take defaults.
func NewEncoder(cfg EncoderConfig) *Encoder {
	def := DefaultEncoderConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.CoarseThreshold <= 0 {
		cfg.CoarseThreshold = def.CoarseThreshold
	}
	if cfg.FineScale <= 0 {
		cfg.FineScale = def.FineScale
	}
	if cfg.CoarseScale < cfg.FineScale {
		cfg.CoarseScale = mathx.Max(def.CoarseScale, cfg.FineScale)
	}

	e := &Encoder{cfg: cfg, epoch: time.Now()}
	e.scale.Store(int32(cfg.FineScale))
	e.lastEdge.Store(-1)
	return e
}

// Edge records one detent. It is called from the interrupt or edge-event
// context and never blocks.
func (e *Encoder) Edge(clockwise bool, now time.Time) {
	if clockwise {
		e.Turn(1, now)
	} else {
		e.Turn(-1, now)
	}
}

// Turn records steps detents reported as one event, as relative input
// devices do for a fast spin. Debounce and velocity scaling apply once to
// the whole event.
func (e *Encoder) Turn(steps int, now time.Time) {
	if steps == 0 {
		return
	}

	ts := int64(now.Sub(e.epoch))
	last := e.lastEdge.Load()

	dt := time.Duration(ts - last)
	if last >= 0 && dt >= 0 && dt < e.cfg.Debounce {
		return
	}
	if last < 0 || dt < 0 {
		// First edge, or the clock went backwards: treat as a slow turn.
		dt = time.Duration(1<<62 - 1)
	}

	e.delta.Add(int32(steps))

	// Whole thresholds above the coarse threshold; an interval under twice
	// the threshold leaves the scale alone.
	scale := int(e.scale.Load())
	if dt < e.cfg.CoarseThreshold {
		scale++
	} else {
		over := int64(dt-e.cfg.CoarseThreshold) / int64(e.cfg.CoarseThreshold)
		scale -= int(mathx.Min(over, int64(e.cfg.CoarseScale)))
	}
	e.scale.Store(int32(mathx.Clamp(scale, e.cfg.FineScale, e.cfg.CoarseScale)))

	e.lastEdge.Store(ts)
}

// Sample returns and clears the accumulated steps together with the current
// velocity scale.
func (e *Encoder) Sample() (steps, scale int) {
	return int(e.delta.Swap(0)), int(e.scale.Load())
}

// Scale reports the current velocity scale without consuming steps.
func (e *Encoder) Scale() int {
	return int(e.scale.Load())
}

// Config returns the effective tuning.
func (e *Encoder) Config() EncoderConfig {
	return e.cfg
}
