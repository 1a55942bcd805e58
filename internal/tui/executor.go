package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tphakala/worktracker-go/internal/loop"
)

// applyMsg carries a finished task's Apply back into Update.
type applyMsg struct {
	name  string
	apply loop.Apply
}

// Executor turns loop tasks into bubbletea commands. The task body runs on
// bubbletea's command goroutine; its Apply comes back as a message and runs
// inside Update, so the coordinator only ever sees one goroutine.
type Executor struct {
	ctx context.Context

	mu     sync.Mutex
	queued []tea.Cmd
}

// NewExecutor returns an executor whose tasks receive ctx.
func NewExecutor(ctx context.Context) *Executor {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Executor{ctx: ctx}
}

// Go implements loop.Executor. The task starts once Drain's command is
// handed to bubbletea.
func (e *Executor) Go(name string, task loop.Task) {
	ctx := e.ctx
	cmd := func() tea.Msg {
		return applyMsg{name: name, apply: task(ctx)}
	}
	e.mu.Lock()
	e.queued = append(e.queued, cmd)
	e.mu.Unlock()
}

// Drain returns every task queued since the last call as one command, or
// nil when nothing is queued.
func (e *Executor) Drain() tea.Cmd {
	e.mu.Lock()
	cmds := e.queued
	e.queued = nil
	e.mu.Unlock()
	return tea.Batch(cmds...)
}
