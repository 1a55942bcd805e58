// Package loop defines how panel components run blocking work without
// giving up single-threaded state ownership.
//
// A Task performs I/O off the interaction loop and returns an Apply closure.
// The executor runs the Apply on the loop, so every state mutation happens in
// one place, one at a time. Components never lock around their own state;
// they rely on the executor for ordering.
package loop

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Apply mutates state on the interaction loop.
type Apply func()

// Task runs off the loop. It may return nil when there is nothing to apply.
type Task func(ctx context.Context) Apply

// Executor schedules tasks. The name is used for logging and tests.
type Executor interface {
	Go(name string, task Task)
}

// Inline runs each task and its Apply immediately on the caller's goroutine.
// One-shot commands use it: the call returns once the whole chain settled.
type Inline struct {
	Ctx context.Context
}

// Go implements Executor.
func (e Inline) Go(_ string, task Task) {
	ctx := e.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if apply := task(ctx); apply != nil {
		apply()
	}
}

// Manual queues tasks until the caller resolves them, in any order. Tests
// use it to deliver responses out of order.
type Manual struct {
	Ctx context.Context

	mu      sync.Mutex
	pending []pendingTask
}

type pendingTask struct {
	name string
	task Task
}

// Go implements Executor.
func (m *Manual) Go(name string, task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, pendingTask{name: name, task: task})
}

// Pending lists the names of queued tasks in submission order.
func (m *Manual) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.pending))
	for i, p := range m.pending {
		names[i] = p.name
	}
	return names
}

// Len returns the number of queued tasks.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Run resolves the i-th queued task: runs it and then its Apply.
func (m *Manual) Run(i int) {
	m.mu.Lock()
	if i < 0 || i >= len(m.pending) {
		m.mu.Unlock()
		panic(fmt.Sprintf("loop: no pending task at %d (have %d)", i, len(m.pending)))
	}
	p := m.pending[i]
	m.pending = slices.Delete(m.pending, i, i+1)
	m.mu.Unlock()

	ctx := m.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if apply := p.task(ctx); apply != nil {
		apply()
	}
}

// RunNamed resolves the first queued task with the given name and reports
// whether one was found.
func (m *Manual) RunNamed(name string) bool {
	m.mu.Lock()
	i := slices.IndexFunc(m.pending, func(p pendingTask) bool { return p.name == name })
	m.mu.Unlock()
	if i < 0 {
		return false
	}
	m.Run(i)
	return true
}

// RunAll resolves tasks in order until the queue is empty, including tasks
// queued while running.
func (m *Manual) RunAll() {
	for m.Len() > 0 {
		m.Run(0)
	}
}
