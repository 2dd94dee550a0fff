// Package resilience provides the circuit breaker guarding external
// resource fetches. A micro-app whose asset host is down should degrade
// to failed script loads quickly instead of stacking up slow requests.
package resilience

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/microfront/hoist/internal/logging"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State is the breaker's position in the closed/open/half-open cycle.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Counts holds the request statistics for the current circuit epoch.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) admit() {
	c.Requests++
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// DefaultTripPolicy tolerates flaky asset hosts: a script load that
// fails intermittently should keep failing like a normal network error,
// so the circuit opens only on a long consecutive failure run or a
// sustained high failure ratio.
func DefaultTripPolicy(counts Counts) bool {
	if counts.ConsecutiveFailures >= 10 {
		return true
	}
	return counts.Requests >= 20 &&
		float64(counts.TotalFailures)/float64(counts.Requests) > 0.7
}

// Settings tunes the breaker. Zero values get fetch-appropriate
// defaults: one probe request in half-open, a 30s open period, and
// DefaultTripPolicy.
type Settings struct {
	// MaxRequests caps concurrent requests in the half-open state.
	MaxRequests uint32
	// Interval is how often the closed state clears its counts; zero
	// keeps counts for the life of the closed state.
	Interval time.Duration
	// Timeout is how long the open state lasts before probing.
	Timeout time.Duration
	// ReadyToTrip is consulted with the current counts after a failure
	// in the closed state.
	ReadyToTrip func(counts Counts) bool
}

// Breaker guards the resource-fetch path. Counts belong to an epoch
// that advances on every state change and on the closed state's
// interval rollover; outcomes of requests admitted under an earlier
// epoch are ignored.
type Breaker struct {
	name     string
	settings Settings
	logger   *logging.Logger

	// observer, if set, is told about every state transition. It runs
	// under the breaker's lock and must not call back in.
	observer func(name string, from, to State)

	mu       sync.Mutex
	state    State
	epoch    uint64
	counts   Counts
	deadline time.Time // closed: next counts reset; open: next probe
}

// New creates a closed breaker, filling unset settings with defaults.
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = DefaultTripPolicy
	}

	b := &Breaker{
		name:     name,
		settings: settings,
		logger:   logging.NewNop(),
	}
	if settings.Interval > 0 {
		b.deadline = time.Now().Add(settings.Interval)
	}
	return b
}

// WithLogger routes state-transition logging through the given logger.
func (b *Breaker) WithLogger(logger *logging.Logger) *Breaker {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithObserver registers a state-transition callback (feeds the
// monitoring gauge).
func (b *Breaker) WithObserver(fn func(name string, from, to State)) *Breaker {
	b.observer = fn
	return b
}

// Name returns the breaker's name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, applying any due timer transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refresh(time.Now())
}

// Counts returns the statistics of the current epoch.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Execute runs the request if the breaker admits it and records the
// outcome. When the circuit is open the request never runs and
// ErrCircuitOpen is returned.
func (b *Breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	epoch, err := b.admit(time.Now())
	if err != nil {
		return nil, err
	}

	result, err := req()
	b.settle(epoch, err == nil, time.Now())
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *Breaker) admit(now time.Time) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.refresh(now) {
	case StateOpen:
		return b.epoch, ErrCircuitOpen
	case StateHalfOpen:
		if b.counts.Requests >= b.settings.MaxRequests {
			return b.epoch, ErrTooManyRequests
		}
	}

	b.counts.admit()
	return b.epoch, nil
}

func (b *Breaker) settle(epoch uint64, success bool, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.refresh(now)
	if epoch != b.epoch {
		// the circuit moved on while this request was in flight
		return
	}

	if success {
		b.counts.success()
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
			b.transition(StateClosed, now)
		}
		return
	}

	b.counts.failure()
	switch state {
	case StateClosed:
		if b.settings.ReadyToTrip(b.counts) {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		b.transition(StateOpen, now)
	}
}

// refresh applies timer-driven transitions and returns the resulting
// state. Caller holds b.mu.
func (b *Breaker) refresh(now time.Time) State {
	switch b.state {
	case StateClosed:
		if b.settings.Interval > 0 && now.After(b.deadline) {
			b.counts = Counts{}
			b.epoch++
			b.deadline = now.Add(b.settings.Interval)
		}
	case StateOpen:
		if now.After(b.deadline) {
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state
}

// transition moves to a new state, starting a fresh epoch. Caller holds
// b.mu.
func (b *Breaker) transition(to State, now time.Time) {
	from := b.state
	if from == to {
		return
	}

	b.state = to
	b.epoch++
	b.counts = Counts{}
	switch to {
	case StateOpen:
		b.deadline = now.Add(b.settings.Timeout)
	case StateClosed:
		if b.settings.Interval > 0 {
			b.deadline = now.Add(b.settings.Interval)
		} else {
			b.deadline = time.Time{}
		}
	default:
		b.deadline = time.Time{}
	}

	b.logger.Info("fetch circuit state change",
		zap.String("breaker", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	if b.observer != nil {
		b.observer(b.name, from, to)
	}
}
