// Package backoff implements the exponential-with-jitter reconnect/retry
// formula used by both the Watcher (spec §4.3) and the Controller Loop
// (spec §4.4): initial 1s, factor 2, cap 30s, jitter ±20%. Grounded on
// coordinator/coordinator.go's Config.ReconnectInitialDelay/
// ReconnectMaxDelay/ReconnectBackoffFactor, which the teacher hand-rolls in
// two places (the coordinator and, independently, nowhere in the changes
// feed); this package collapses that duplication into one shared helper.
package backoff

import (
	"math/rand"
	"time"
)

// Config parameterizes the backoff sequence.
type Config struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64 // fraction, e.g. 0.2 for ±20%
}

// Default is the spec's reconnect backoff: 1s, ×2, cap 30s, ±20% jitter.
func Default() Config {
	return Config{Initial: time.Second, Max: 30 * time.Second, Factor: 2, Jitter: 0.2}
}

// Sequence produces successive backoff durations, resetting to Initial
// after Reset.
type Sequence struct {
	cfg     Config
	current time.Duration
}

// NewSequence returns a Sequence starting at cfg.Initial.
func NewSequence(cfg Config) *Sequence {
	return &Sequence{cfg: cfg, current: cfg.Initial}
}

// Reset returns the sequence to its initial delay, called after a
// successful operation.
func (s *Sequence) Reset() {
	s.current = s.cfg.Initial
}

// Next returns the next delay to wait, applying jitter, and advances the
// sequence toward Max.
func (s *Sequence) Next() time.Duration {
	d := s.current
	s.current = time.Duration(float64(s.current) * s.cfg.Factor)
	if s.current > s.cfg.Max {
		s.current = s.cfg.Max
	}
	if s.cfg.Jitter <= 0 {
		return d
	}
	delta := float64(d) * s.cfg.Jitter
	offset := (rand.Float64()*2 - 1) * delta
	jittered := time.Duration(float64(d) + offset)
	if jittered < 0 {
		jittered = 0
	}
	return jittered
}
