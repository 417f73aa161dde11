// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
)

var _ progress.Reporter = (*Reporter)(nil)

// RunFunc performs a fan-out, reporting progress to reporter.
type RunFunc func(ctx context.Context, reporter progress.Reporter) (remote.Outcomes, error)

// Runner manages the TUI application and progress event integration.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
	mutex    sync.Mutex
}

// Reporter forwards progress events to a running TUI program.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a reporter that sends to program.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{
		program: program,
	}
}

// Report implements progress.Reporter.
func (tr *Reporter) Report(event progress.Event) {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	if tr.closed || tr.program == nil {
		return
	}

	tr.program.Send(ProgressEventMsg{Event: event})
}

// Close implements progress.Reporter.
func (tr *Reporter) Close() {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	tr.closed = true
}

// NewRunner creates a TUI runner titled title. Program options are passed to
// bubbletea, e.g. to replace the input and output in tests.
func NewRunner(ctx context.Context, title string, opts ...tea.ProgramOption) *Runner {
	model := NewModel(ctx, title)
	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewReporter(program),
	}
}

// Reporter returns the progress reporter for this TUI runner.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts the TUI and calls fn on its own goroutine. Once fn returns its
// result is shown until the user quits. If the user quits first, the context
// passed to fn is cancelled and Run waits for fn to return.
func (r *Runner) Run(ctx context.Context, fn RunFunc) (remote.Outcomes, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		outcomes remote.Outcomes
		err      error
	}

	resultChan := make(chan result, 1)

	go func() {
		outcomes, err := fn(runCtx, r.reporter)
		resultChan <- result{outcomes, err}
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var (
		res    result
		tuiErr error
	)

	select {
	case res = <-resultChan:
		r.program.Send(CompletedMsg{Outcomes: res.outcomes, Err: res.err})

		tuiErr = <-tuiDone

		r.reporter.Close()

	case tuiErr = <-tuiDone:
		r.reporter.Close()
		cancel()

		res = <-resultChan

	case <-ctx.Done():
		r.reporter.Close()
		r.program.Quit()
		cancel()

		res = <-resultChan

		<-tuiDone
	}

	if res.err != nil {
		return res.outcomes, res.err
	}

	return res.outcomes, tuiErr //nolint:wrapcheck
}

// RunWithoutTUI calls fn with reporter, for headless environments.
func RunWithoutTUI(ctx context.Context, fn RunFunc, reporter progress.Reporter) (remote.Outcomes, error) {
	if reporter == nil {
		reporter = progress.NewNullReporter()
	}

	return fn(ctx, reporter)
}
