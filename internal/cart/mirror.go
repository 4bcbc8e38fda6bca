package cart

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/metrics"
)

const defaultMirrorQueueSize = 64

const (
	opAdd    = "add"
	opRemove = "remove"
	opClear  = "clear"
)

type mirrorTask struct {
	ctx     context.Context
	op      string
	run     func(ctx context.Context) error
	barrier chan struct{}
}

// mirror replays local mutations on the marketplace cart in order, one task at a time.
// Failures are logged and counted, never surfaced.
type mirror struct {
	logg    *logger.Logger
	metrics *metrics.CartMetrics

	mu      sync.RWMutex
	closed  bool
	tasks   chan mirrorTask
	pending atomic.Int64
	stopped chan struct{}
}

func newMirror(size int, logg *logger.Logger, m *metrics.CartMetrics) *mirror {
	if size <= 0 {
		size = defaultMirrorQueueSize
	}
	mr := &mirror{
		logg:    logg,
		metrics: m,
		tasks:   make(chan mirrorTask, size),
		stopped: make(chan struct{}),
	}
	go mr.loop()
	return mr
}

func (m *mirror) loop() {
	defer close(m.stopped)
	for task := range m.tasks {
		if task.barrier != nil {
			close(task.barrier)
			continue
		}
		m.execute(task)
		m.pending.Add(-1)
	}
}

func (m *mirror) execute(task mirrorTask) {
	ctx := m.logg.WithField(task.ctx, "remote_op", task.op)
	err := task.run(ctx)
	m.metrics.ObserveRemoteSync(task.op, err)
	if err != nil {
		m.logg.WarnErr(ctx, "cart.remote_mirror.failed", err)
	}
}

// enqueue schedules run without blocking. The request context is detached from its
// cancellation so the task outlives the request that produced it.
func (m *mirror) enqueue(ctx context.Context, op string, run func(ctx context.Context) error) bool {
	task := mirrorTask{ctx: context.WithoutCancel(ctx), op: op, run: run}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.logg.Warn(ctx, "cart.remote_mirror.closed")
		m.metrics.IncQueueDropped()
		return false
	}
	m.pending.Add(1)
	select {
	case m.tasks <- task:
		return true
	default:
		m.pending.Add(-1)
		m.logg.Warn(m.logg.WithField(ctx, "remote_op", op), "cart.remote_mirror.queue_full")
		m.metrics.IncQueueDropped()
		return false
	}
}

// Flush blocks until every task enqueued before the call has run. An idle mirror
// flushes immediately, even with an expired ctx.
func (m *mirror) Flush(ctx context.Context) error {
	done := make(chan struct{})

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		<-m.stopped
		return nil
	}
	if m.pending.Load() == 0 {
		m.mu.RUnlock()
		return nil
	}
	select {
	case m.tasks <- mirrorTask{barrier: done}:
	default:
		select {
		case m.tasks <- mirrorTask{barrier: done}:
		case <-ctx.Done():
			m.mu.RUnlock()
			return ctx.Err()
		}
	}
	m.mu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// the barrier may have been reached at the same moment
		select {
		case <-done:
			return nil
		default:
			return ctx.Err()
		}
	}
}

// Close drains the pending tasks and stops the worker.
func (m *mirror) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.tasks)
	}
	m.mu.Unlock()
	<-m.stopped
}
