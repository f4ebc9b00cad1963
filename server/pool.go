package server

import (
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/metrics"

	"github.com/Akshat-Diwedi/nuke-kv/server/common"
	"github.com/Akshat-Diwedi/nuke-kv/server/handler"
)

// queueDepth bounds the number of commands waiting for a worker. Producers
// (sessions) block when the queue is full, which caps memory held by
// pending tasks.
const queueDepth = 1024

// task is one queued command with its single-use response slot.
type task struct {
	verb string
	args []string
	resp chan handler.Result
}

// pool is the fixed worker pool draining the task queue into the verb
// dispatch table.
type pool struct {
	queue  chan *task
	table  map[string]handler.Func
	wg     sync.WaitGroup
	logger common.ILogger

	stopMu  sync.RWMutex
	stopped bool
}

func newPool(table map[string]handler.Func, logger common.ILogger) *pool {
	return &pool{
		queue:  make(chan *task, queueDepth),
		table:  table,
		logger: logger,
	}
}

// start spawns n workers.
func (p *pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop closes the queue; workers drain whatever is still pending (delivering
// real results) and exit. Blocks until every worker returned.
func (p *pool) stop() {
	p.stopMu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.stopMu.Unlock()
	p.wg.Wait()
}

// dispatch enqueues a command and returns the channel its result will land
// on. Each task's channel is buffered so a worker never blocks on delivery.
// Sessions racing a shutdown get an immediate error reply instead of a send
// on the closed queue.
func (p *pool) dispatch(verb string, args []string) <-chan handler.Result {
	t := &task{verb: verb, args: args, resp: make(chan handler.Result, 1)}

	p.stopMu.RLock()
	defer p.stopMu.RUnlock()
	if p.stopped {
		t.resp <- handler.Result{Code: handler.StatusInternal, Text: "-ERR server shutting down"}
		return t.resp
	}
	p.queue <- t
	return t.resp
}

func (p *pool) worker() {
	defer p.wg.Done()
	for t := range p.queue {
		t.resp <- p.run(t)
	}
}

// run executes one task. A panicking handler is converted into a 500 reply
// instead of taking the worker down.
func (p *pool) run(t *task) (res handler.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("handler for %s panicked: %v", t.verb, r)
			res = handler.Result{Code: handler.StatusInternal, Text: fmt.Sprintf("-ERR worker exception: %v", r)}
		}
	}()

	fn, known := p.table[t.verb]
	if !known {
		return handler.Result{Code: handler.StatusBadRequest, Text: fmt.Sprintf("-ERR unknown command '%s'", t.verb)}
	}
	metrics.GetOrCreateCounter(handler.MetricCommandsTotal).Inc()
	metrics.GetOrCreateCounter(fmt.Sprintf(`nukekv_command_total{command=%q}`, t.verb)).Inc()
	return fn(t.args)
}
