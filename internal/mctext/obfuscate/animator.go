// Package obfuscate animates §k runs by cycling random glyphs on a fixed tick.
package obfuscate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"craftkit.ai/internal/mctext"
)

const (
	DefaultInterval = 50 * time.Millisecond
	DefaultGlyphs   = "!@#$%^&*()_+-=[]{}|;:,.<>?"
	DefaultPoolSize = 100
)

type Config struct {
	Interval time.Duration
	Glyphs   string
	PoolSize int
	// Seed makes the glyph sequence reproducible (tests, golden frames).
	Seed *[2]uint64
}

type Animator struct {
	interval time.Duration
	glyphs   []rune
	minPool  int

	mu     sync.Mutex
	rng    *rand.Rand
	pool   []rune
	demand int
	gen    uint64

	frames chan uint64

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config) *Animator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Glyphs == "" {
		cfg.Glyphs = DefaultGlyphs
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	var src rand.Source
	if cfg.Seed != nil {
		src = rand.NewPCG(cfg.Seed[0], cfg.Seed[1])
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	a := &Animator{
		interval: cfg.Interval,
		glyphs:   []rune(cfg.Glyphs),
		minPool:  cfg.PoolSize,
		rng:      rand.New(src),
		frames:   make(chan uint64, 1),
	}
	a.mu.Lock()
	a.regenerateLocked()
	a.mu.Unlock()
	return a
}

// Start launches the tick loop. It is a no-op while already running.
func (a *Animator) Start(ctx context.Context) {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()
	if a.runningLocked() {
		return
	}
	if a.cancel != nil {
		// A cancelled parent ended the previous loop.
		a.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	go func() {
		defer close(done)
		a.run(ctx)
	}()
}

// Stop cancels the tick loop and waits for it to exit.
func (a *Animator) Stop() {
	a.lifeMu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.lifeMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the tick loop is active.
func (a *Animator) Running() bool {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()
	return a.runningLocked()
}

func (a *Animator) runningLocked() bool {
	if a.done == nil {
		return false
	}
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

func (a *Animator) run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick()
		}
	}
}

// Tick regenerates the pool once. The loop calls it; tests may call it directly.
func (a *Animator) Tick() {
	a.mu.Lock()
	a.regenerateLocked()
	gen := a.gen
	a.mu.Unlock()

	// Latest generation wins: drop a stale unread value first.
	select {
	case <-a.frames:
	default:
	}
	select {
	case a.frames <- gen:
	default:
	}
}

// Frames signals the generation number after every tick.
func (a *Animator) Frames() <-chan uint64 { return a.frames }

func (a *Animator) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}

func (a *Animator) Pool() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return string(a.pool)
}

func (a *Animator) regenerateLocked() {
	n := a.minPool
	if a.demand > n {
		n = a.demand
	}
	pool := make([]rune, n)
	for i := range pool {
		pool[i] = a.glyphs[a.rng.IntN(len(a.glyphs))]
	}
	a.pool = pool
	a.gen++
}

func (a *Animator) extendLocked(n int) {
	for len(a.pool) < n {
		a.pool = append(a.pool, a.glyphs[a.rng.IntN(len(a.glyphs))])
	}
}

// Render substitutes pool glyphs for the text of obfuscated runs. Offsets advance
// across runs so that two obfuscated runs in one pass never share glyphs.
func (a *Animator) Render(runs []mctext.Run) []mctext.Run {
	need := 0
	for _, r := range runs {
		if r.Obfuscated {
			need += r.Len()
		}
	}
	out := make([]mctext.Run, len(runs))
	copy(out, runs)
	if need == 0 {
		return out
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if need > a.demand {
		a.demand = need
	}
	a.extendLocked(need)

	off := 0
	for i, r := range out {
		if !r.Obfuscated {
			continue
		}
		n := r.Len()
		out[i].Text = string(a.pool[off : off+n])
		off += n
	}
	return out
}

// HasObfuscated reports whether any run needs animating.
func HasObfuscated(runs []mctext.Run) bool {
	for _, r := range runs {
		if r.Obfuscated {
			return true
		}
	}
	return false
}
