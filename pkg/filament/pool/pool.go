// Package pool provides the fixed-size worker pool that runs connection
// drivers, with a supervisor that replaces workers lost to panics.
package pool

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/filament/pkg/filament/monitor"
)

// OverloadThreshold is how long a task may wait in the queue before the
// pool is considered overloaded and a trace event is emitted.
const OverloadThreshold = 100 * time.Millisecond

// Task is a unit of work for the pool.
type Task func()

type queued struct {
	fn       Task
	enqueued time.Time
}

type workerExit struct {
	id       int
	panicked bool
}

// Pool is a fixed-size worker pool over a shared queue.
//
// The queue is unbounded by default, so Execute never blocks; SetQueueBound
// switches to a bounded queue where Execute blocks while full. A supervisor
// goroutine watches worker exits: a worker that dies in a panic is replaced
// with a fresh one carrying the same id, so the pool always converges back
// to its configured size.
type Pool struct {
	size    int
	bound   int // 0 = unbounded
	mon     *monitor.Monitor
	metrics *monitor.Metrics

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []queued
	closed bool

	started atomic.Bool
	live    atomic.Int32
	exits   chan workerExit
	done    chan struct{}
}

// New creates a pool with the given worker count. Panics if size is zero,
// as the original thread-per-connection dispatch requires at least one
// worker.
func New(size int, mon *monitor.Monitor) *Pool {
	if size <= 0 {
		panic("pool: worker count must be positive")
	}
	p := &Pool{size: size, mon: mon}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetQueueBound bounds the task queue; Execute blocks while the queue is
// full. Must be called before Start.
func (p *Pool) SetQueueBound(n int) { p.bound = n }

// SetMetrics attaches prometheus collectors for panics/overloads/workers.
func (p *Pool) SetMetrics(m *monitor.Metrics) { p.metrics = m }

// Start spawns the workers and the supervisor.
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.exits = make(chan workerExit, p.size)
	p.done = make(chan struct{})

	for id := 0; id < p.size; id++ {
		p.spawn(id)
	}
	go p.supervise()
}

// Execute enqueues a task, blocking only when a queue bound is configured
// and reached. Returns false (without running the task) once the pool has
// been stopped. Panics if the pool has not been started.
func (p *Pool) Execute(fn Task) bool {
	if !p.started.Load() {
		panic("pool: Execute before Start")
	}
	p.mu.Lock()
	for p.bound > 0 && len(p.queue) >= p.bound && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, queued{fn: fn, enqueued: time.Now()})
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

// Stop closes the queue: Execute refuses new tasks, workers run the tasks
// already queued and then exit; Join waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Join blocks until every worker and the supervisor have exited. Call Stop
// first.
func (p *Pool) Join() {
	if p.started.Load() {
		<-p.done
	}
}

// WorkerCount returns the number of live workers.
func (p *Pool) WorkerCount() int { return int(p.live.Load()) }

func (p *Pool) spawn(id int) {
	p.live.Add(1)
	if p.metrics != nil {
		p.metrics.WorkersLive.Inc()
	}
	go p.work(id)
}

func (p *Pool) work(id int) {
	// The deferred send is the drop guard: it runs whether the loop
	// returns cleanly (queue closed) or unwinds from a task panic, and
	// tells the supervisor which of the two happened.
	panicked := true
	defer func() {
		if panicked {
			recover()
		}
		p.exits <- workerExit{id: id, panicked: panicked}
	}()

	for {
		task, ok := p.dequeue()
		if !ok {
			panicked = false
			return
		}
		if wait := time.Since(task.enqueued); wait > OverloadThreshold {
			p.mon.Emit(monitor.LevelTrace, monitor.KindThreadPoolOverload,
				"task waited "+wait.String()+" in queue")
			if p.metrics != nil {
				p.metrics.PoolOverloads.Inc()
			}
		}
		task.fn()
	}
}

func (p *Pool) dequeue() (queued, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 {
		if p.closed {
			return queued{}, false
		}
		p.cond.Wait()
	}
	task := p.queue[0]
	p.queue = p.queue[1:]
	// Wake a blocked Execute (bounded mode) or another idle worker.
	p.cond.Signal()
	return task, true
}

// supervise replaces panicked workers and closes done once the pool has
// drained to zero workers after Stop.
func (p *Pool) supervise() {
	defer close(p.done)
	for exit := range p.exits {
		p.live.Add(-1)
		if p.metrics != nil {
			p.metrics.WorkersLive.Dec()
		}

		if exit.panicked {
			p.mon.Emit(monitor.LevelError, monitor.KindWorkerPanic,
				"worker "+strconv.Itoa(exit.id)+" panicked, spawning replacement")
			if p.metrics != nil {
				p.metrics.WorkerPanics.Inc()
			}
			p.mu.Lock()
			stopping := p.closed
			p.mu.Unlock()
			if !stopping {
				p.spawn(exit.id)
				continue
			}
		}

		if p.live.Load() == 0 {
			p.mu.Lock()
			stopping := p.closed
			p.mu.Unlock()
			if stopping {
				return
			}
		}
	}
}
