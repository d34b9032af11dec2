// Package stream feeds camera frames to scanner workers.
//
// A Supplier keeps a single-slot mailbox: Publish never blocks and a frame
// that no worker picked up yet is replaced by the newer one. Frames are
// dropped, never queued, so results always describe a recent frame.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/scanner"
)

// ErrStopped is returned by Publish and Start once the supplier is stopped.
var ErrStopped = errors.New("stream: supplier stopped")

// Config controls the worker pool and result filtering.
type Config struct {
	// Workers is the number of decode goroutines, each owning a Processor.
	Workers int
	// DebounceWindow suppresses a decoded text equal to the previous one
	// reported within the window. Zero disables debouncing.
	DebounceWindow time.Duration
	// DeliverAll also reports frames without a decoded symbol.
	DeliverAll bool
}

// DefaultConfig returns one worker with a one second debounce window.
func DefaultConfig() Config {
	return Config{Workers: 1, DebounceWindow: time.Second}
}

// Event is delivered to the handler for each reported frame.
type Event struct {
	WorkerID string
	Seq      uint64
	Result   scanner.Result
}

// Handler receives events. It is called from worker goroutines and must be
// safe for concurrent use when more than one worker runs.
type Handler func(Event)

// Stats is a snapshot of supplier counters.
type Stats struct {
	Published uint64 `json:"published"`
	Processed uint64 `json:"processed"`
	Decoded   uint64 `json:"decoded"`
	Dropped   uint64 `json:"dropped"`
	Debounced uint64 `json:"debounced"`
	Workers   int    `json:"workers"`
}

type item struct {
	frame *frame.Frame
	seq   uint64
}

// Supplier distributes published frames to scanner workers.
type Supplier struct {
	cfg     Config
	builder *scanner.Builder
	handler Handler
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	cond    *sync.Cond
	slot    *item
	seq     uint64
	started bool
	closed  bool

	stopOnce  sync.Once
	stopWatch func() bool
	wg        sync.WaitGroup

	published atomic.Uint64
	processed atomic.Uint64
	decoded   atomic.Uint64
	dropped   atomic.Uint64
	debounced atomic.Uint64

	debounceMu sync.Mutex
	lastText   string
	lastAt     time.Time
}

// Option customizes a Supplier.
type Option func(*Supplier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supplier) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for debounce decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Supplier) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a supplier. Each worker builds its own Processor from b.
func New(cfg Config, b *scanner.Builder, h Handler, opts ...Option) (*Supplier, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("stream: workers must be > 0, got %d", cfg.Workers)
	}
	if cfg.DebounceWindow < 0 {
		return nil, fmt.Errorf("stream: negative debounce window %v", cfg.DebounceWindow)
	}
	if b == nil {
		b = scanner.NewBuilder()
	}
	if h == nil {
		return nil, errors.New("stream: nil handler")
	}
	s := &Supplier{
		cfg:     cfg,
		builder: b,
		handler: h,
		logger:  slog.Default(),
		now:     time.Now,
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Publish hands a copy of f to the workers without blocking. A frame still
// waiting in the mailbox is replaced and counted as dropped.
func (s *Supplier) Publish(f *frame.Frame) error {
	if f == nil {
		return errors.New("stream: nil frame")
	}
	c := f.Clone()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.Release()
		return ErrStopped
	}
	s.seq++
	var replaced *item
	if s.slot != nil {
		replaced = s.slot
		s.dropped.Add(1)
	}
	s.slot = &item{frame: c, seq: s.seq}
	s.published.Add(1)
	s.cond.Signal()
	s.mu.Unlock()

	if replaced != nil {
		replaced.frame.Release()
	}
	return nil
}

// Start launches the workers. Canceling ctx stops the supplier.
func (s *Supplier) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStopped
	}
	if s.started {
		return errors.New("stream: already started")
	}

	procs := make([]*scanner.Processor, s.cfg.Workers)
	for i := range procs {
		p, err := s.builder.Build()
		if err != nil {
			return fmt.Errorf("stream: build worker %d: %w", i, err)
		}
		procs[i] = p
	}

	s.started = true
	for _, p := range procs {
		id := uuid.NewString()
		s.wg.Add(1)
		go s.work(ctx, id, p)
	}
	s.stopWatch = context.AfterFunc(ctx, s.close)
	s.logger.Debug("Stream workers started", "workers", len(procs))
	return nil
}

// Stop closes the mailbox and waits for workers to finish their current frame.
func (s *Supplier) Stop() {
	s.stopOnce.Do(func() {
		s.close()
		s.wg.Wait()
		s.mu.Lock()
		if s.stopWatch != nil {
			s.stopWatch()
		}
		pending := s.slot
		s.slot = nil
		s.mu.Unlock()
		if pending != nil {
			pending.frame.Release()
		}
		s.logger.Debug("Stream stopped", "stats", s.Stats())
	})
}

func (s *Supplier) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// next blocks until a frame is available or the supplier closes.
func (s *Supplier) next() (*item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.slot == nil && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return nil, false
	}
	it := s.slot
	s.slot = nil
	return it, true
}

func (s *Supplier) work(ctx context.Context, id string, p *scanner.Processor) {
	defer s.wg.Done()
	for {
		it, ok := s.next()
		if !ok {
			return
		}
		res, _ := p.Scan(ctx, it.frame)
		it.frame.Release()
		s.processed.Add(1)

		if res.Found() {
			s.decoded.Add(1)
			if s.suppress(res.Text) {
				s.debounced.Add(1)
				continue
			}
		} else if !s.cfg.DeliverAll {
			continue
		}
		s.handler(Event{WorkerID: id, Seq: it.seq, Result: res})
	}
}

// suppress reports whether text repeats the last reported text within the
// debounce window, and records it otherwise.
func (s *Supplier) suppress(text string) bool {
	if s.cfg.DebounceWindow == 0 {
		return false
	}
	now := s.now()
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if text == s.lastText && now.Sub(s.lastAt) < s.cfg.DebounceWindow {
		return true
	}
	s.lastText = text
	s.lastAt = now
	return false
}

// Stats returns a snapshot of the counters.
func (s *Supplier) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Processed: s.processed.Load(),
		Decoded:   s.decoded.Load(),
		Dropped:   s.dropped.Load(),
		Debounced: s.debounced.Load(),
		Workers:   s.cfg.Workers,
	}
}
