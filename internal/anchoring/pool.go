package anchoring

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPoolClosed is returned by Go after Shutdown.
var ErrPoolClosed = errors.New("anchoring: pool closed") //nolint:gochecknoglobals // sentinel error

// Pool runs tasks on their own goroutines with at most size of them executing
// at once. A panicking task is logged and does not affect its siblings.
type Pool struct {
	slots  chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	ctx    context.Context //nolint:containedctx // task lifetime is owned by the pool
	cancel context.CancelFunc
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		slots:  make(chan struct{}, size),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go schedules task. It never blocks on a free slot. If the pool is cancelled
// before task gets a slot, task never runs and dropped (when non-nil) is
// called in its place.
func (p *Pool) Go(task func(ctx context.Context), dropped func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	go p.run(task, dropped)

	return nil
}

func (p *Pool) run(task func(ctx context.Context), dropped func()) {
	defer p.wg.Done()

	select {
	case p.slots <- struct{}{}:
	case <-p.ctx.Done():
		p.drop(dropped)
		return
	}
	defer func() { <-p.slots }()

	// A slot and cancellation can be ready together.
	if p.ctx.Err() != nil {
		p.drop(dropped)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("anchoring: task panicked")
		}
	}()

	task(p.ctx)
}

func (p *Pool) drop(dropped func()) {
	if dropped != nil {
		dropped()
	}
}

// Shutdown stops accepting tasks and waits for in-flight ones. When ctx
// expires first, running tasks are cancelled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-finished
		return fmt.Errorf("anchoring.Pool.Shutdown: %w", ctx.Err())
	}
}
