// Package actor provides a sharded single-writer executor.
//
// Every key is bound to exactly one worker goroutine. All tasks submitted for
// the same key are executed strictly one at a time, in submission order, so
// read-modify-write sequences inside a task need no locks of their own.
package actor

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/pkg/errors"
)

const (
	DefaultPoolSize = 64

	taskBufferSize = 64
)

var ErrPoolClosed = errors.New("actor pool is closed")

type task struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

type worker struct {
	tasks chan task
	stop  chan struct{}
}

type Pool struct {
	workers []*worker
	wg      sync.WaitGroup

	mx     sync.RWMutex
	closed bool
	stop   chan struct{}
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	pool := &Pool{
		workers: make([]*worker, size),
		stop:    make(chan struct{}),
	}
	for i := range pool.workers {
		w := &worker{
			tasks: make(chan task, taskBufferSize),
			stop:  pool.stop,
		}
		pool.workers[i] = w
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			w.run()
		}()
	}
	return pool
}

// Do executes fn on the worker owning key and waits for the result.
// Enqueueing is aborted if ctx is cancelled first; once the task is accepted,
// Do always waits for fn to finish.
func (p *Pool) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	t := task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	p.mx.RLock()
	if p.closed {
		p.mx.RUnlock()
		return ErrPoolClosed
	}
	w := p.workers[p.shard(key)]
	select {
	case w.tasks <- t:
		p.mx.RUnlock()
	case <-ctx.Done():
		p.mx.RUnlock()
		return ctx.Err()
	}

	return <-t.done
}

// Close stops accepting new tasks, finishes the already accepted ones and
// waits for all workers to exit.
func (p *Pool) Close() error {
	p.mx.Lock()
	if p.closed {
		p.mx.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)
	p.mx.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Pool) shard(key string) int {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	return int(hash.Sum32() % uint32(len(p.workers))) //nolint:gosec
}

func (w *worker) run() {
	for {
		select {
		case t := <-w.tasks:
			t.done <- t.fn(t.ctx)
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain completes tasks that were accepted before the stop signal was observed.
func (w *worker) drain() {
	for {
		select {
		case t := <-w.tasks:
			t.done <- t.fn(t.ctx)
		default:
			return
		}
	}
}
