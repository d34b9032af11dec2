package scanner

import (
	"context"
	"errors"
	"sync"

	"github.com/MeKo-Tech/framescan/internal/frame"
)

// ErrSharedDecoder is returned by NewPool for a builder carrying an injected
// decoder. Every pooled Processor owns its decoder.
var ErrSharedDecoder = errors.New("scanner pool: builder has an injected decoder shared by all processors")

// Pool hands out Processors to concurrent callers such as HTTP handlers.
// Each Processor is used by one goroutine at a time.
type Pool struct {
	pool     sync.Pool
	template Builder
	cfg      Config
}

// NewPool validates the builder by building one Processor and pools it.
func NewPool(b *Builder) (*Pool, error) {
	if b.decoder != nil {
		return nil, ErrSharedDecoder
	}
	first, err := b.Build()
	if err != nil {
		return nil, err
	}
	p := &Pool{template: *b, cfg: b.cfg}
	p.pool.New = func() any {
		proc, err := p.template.Build()
		if err != nil {
			return nil
		}
		return proc
	}
	p.pool.Put(first)
	return p, nil
}

// Config returns the configuration of pooled Processors.
func (p *Pool) Config() Config { return p.cfg }

// Get takes a Processor from the pool, building one when the pool is empty.
func (p *Pool) Get() (*Processor, error) {
	if proc, ok := p.pool.Get().(*Processor); ok && proc != nil {
		return proc, nil
	}
	return p.template.Build()
}

// Put returns a Processor to the pool.
func (p *Pool) Put(proc *Processor) {
	if proc != nil {
		p.pool.Put(proc)
	}
}

// Scan borrows a Processor for one scan.
func (p *Pool) Scan(ctx context.Context, f *frame.Frame) (Result, error) {
	proc, err := p.Get()
	if err != nil {
		return Result{}, err
	}
	defer p.Put(proc)
	return proc.Scan(ctx, f)
}

// Process borrows a Processor for one decode.
func (p *Pool) Process(ctx context.Context, f *frame.Frame, params ...any) (string, bool) {
	proc, err := p.Get()
	if err != nil {
		return "", false
	}
	defer p.Put(proc)
	return proc.Process(ctx, f, params...)
}
