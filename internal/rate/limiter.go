package rate

import (
	"context"
	"sync"
	"time"
)

// Config defines rate limiting parameters for one API host.
// RequestsPerSecond <= 0 disables limiting.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	Cooldown          time.Duration
}

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	mu        sync.Mutex
	tokens    float64
	last      time.Time
	rate      float64
	burst     float64
	cooldown  time.Duration
	lastBlock time.Time
	now       func() time.Time
}

// New creates a new limiter with a full bucket.
func New(cfg Config) *Limiter {
	burst := float64(cfg.Burst)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		tokens:   burst,
		last:     time.Now(),
		rate:     cfg.RequestsPerSecond,
		burst:    burst,
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}
}

// Allow reports whether a request may proceed now and consumes a token if so.
func (l *Limiter) Allow() bool {
	return l.reserve() == 0
}

// reserve consumes a token when one is available and returns zero; otherwise it
// returns how long the caller should wait before trying again.
func (l *Limiter) reserve() time.Duration {
	if l.rate <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.cooldown > 0 && !l.lastBlock.IsZero() {
		if until := l.lastBlock.Add(l.cooldown); now.Before(until) {
			return until.Sub(now)
		}
	}

	l.tokens += now.Sub(l.last).Seconds() * l.rate
	l.last = now
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	if l.tokens >= 1 {
		l.tokens--
		return 0
	}

	if l.cooldown > 0 {
		l.lastBlock = now
		return l.cooldown
	}
	return time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}

// Wait blocks until a token becomes available or context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		d := l.reserve()
		if d == 0 {
			return nil
		}
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Manager holds per-host limiters.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	defaults Config
}

func NewManager(defaults Config) *Manager {
	return &Manager{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
	}
}

func (m *Manager) GetLimiter(key string) *Limiter {
	m.mu.RLock()
	if lim, ok := m.limiters[key]; ok {
		m.mu.RUnlock()
		return lim
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.limiters[key]; ok {
		return lim
	}
	lim := New(m.defaults)
	m.limiters[key] = lim
	return lim
}

// Wait ensures rate limit compliance for a given key.
func (m *Manager) Wait(ctx context.Context, key string) error {
	return m.GetLimiter(key).Wait(ctx)
}
