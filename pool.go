package docrender

import (
	"context"
	"runtime"
	"sync"
)

// Concurrency sizing constants.
const (
	// MinConcurrency ensures at least one browser can run.
	MinConcurrency = 1

	// MaxConcurrency caps simultaneous browsers to limit memory (~200MB each).
	MaxConcurrency = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// Compile-time interface checks
var (
	_ Engine  = (*LimitedEngine)(nil)
	_ Session = (*limitedSession)(nil)
)

// LimitedEngine bounds how many sessions of an underlying Engine are open at
// once. Each Acquire still obtains a fresh session; only the slot is shared.
type LimitedEngine struct {
	engine Engine
	slots  chan struct{}
}

// NewLimitedEngine wraps engine so that at most n sessions are open.
func NewLimitedEngine(engine Engine, n int) *LimitedEngine {
	if n < MinConcurrency {
		n = MinConcurrency
	}
	return &LimitedEngine{
		engine: engine,
		slots:  make(chan struct{}, n),
	}
}

// Acquire waits for a free slot, then acquires a session from the wrapped
// engine. The slot is returned when the session is closed. If ctx ends while
// waiting, the returned session is a no-op and the error is a render failure.
func (e *LimitedEngine) Acquire(ctx context.Context) (Session, error) {
	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return &limitedSession{}, renderFailure(ctx.Err())
	}

	inner, err := e.engine.Acquire(ctx)
	return &limitedSession{inner: inner, release: e.release}, err
}

// Size returns the slot capacity.
func (e *LimitedEngine) Size() int {
	return cap(e.slots)
}

// InUse returns the number of occupied slots.
func (e *LimitedEngine) InUse() int {
	return len(e.slots)
}

func (e *LimitedEngine) release() {
	<-e.slots
}

// limitedSession returns its slot exactly once, after the wrapped session
// has been torn down.
type limitedSession struct {
	inner   Session
	release func()
	once    sync.Once
	err     error
}

func (s *limitedSession) Render(ctx context.Context, html string) ([]byte, error) {
	if s.inner == nil {
		return nil, renderFailure(ErrBrowserConnect)
	}
	return s.inner.Render(ctx, html)
}

func (s *limitedSession) Close() error {
	s.once.Do(func() {
		if s.inner != nil {
			s.err = s.inner.Close()
		}
		if s.release != nil {
			s.release()
		}
	})
	return s.err
}

// ResolveConcurrency determines how many browsers may run at once.
// Priority: explicit value > GOMAXPROCS-based calculation.
func ResolveConcurrency(n int) int {
	if n > 0 {
		return n
	}

	// GOMAXPROCS is adjusted by automaxprocs in containers
	available := runtime.GOMAXPROCS(0)
	n = available / cpuDivisor

	if n < MinConcurrency {
		return MinConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}
