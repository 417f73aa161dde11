// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
)

// MachineStatus is the state of one row.
type MachineStatus int

const (
	StatusPending MachineStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusTimedOut
)

// String returns a string representation of the status.
func (s MachineStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Row is one machine running one command.
type Row struct {
	Machine    string
	Command    string
	Status     MachineStatus
	ExitCode   int
	StartTime  *time.Time
	EndTime    *time.Time
	LastOutput string
	ErrorMsg   string
	mutex      sync.RWMutex
}

// NewRow creates a pending row.
func NewRow(machine, command string) *Row {
	return &Row{
		Machine: machine,
		Command: command,
		Status:  StatusPending,
	}
}

// UpdateStatus sets the status and records start and end times.
func (r *Row) UpdateStatus(status MachineStatus) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.Status = status
	now := time.Now()

	switch status {
	case StatusRunning:
		if r.StartTime == nil {
			r.StartTime = &now
		}
	case StatusSuccess, StatusFailed, StatusTimedOut:
		if r.EndTime == nil {
			r.EndTime = &now
		}
	case StatusPending:
	}
}

// UpdateOutput keeps the last non-empty line of output.
func (r *Row) UpdateOutput(output string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if output = strings.TrimSpace(output); output == "" {
		return
	}

	lines := strings.Split(output, "\n")
	r.LastOutput = strings.TrimSpace(lines[len(lines)-1])
}

// UpdateError records the error message.
func (r *Row) UpdateError(err string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.ErrorMsg = err
}

// Snapshot returns a copy of the row that is safe to read without locking.
func (r *Row) Snapshot() RowView {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return RowView{
		Machine:    r.Machine,
		Command:    r.Command,
		Status:     r.Status,
		ExitCode:   r.ExitCode,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		LastOutput: r.LastOutput,
		ErrorMsg:   r.ErrorMsg,
	}
}

// RowView is an immutable copy of a Row.
type RowView struct {
	Machine    string
	Command    string
	Status     MachineStatus
	ExitCode   int
	StartTime  *time.Time
	EndTime    *time.Time
	LastOutput string
	ErrorMsg   string
}

// Elapsed returns the run time so far, or the total once finished.
func (v RowView) Elapsed() time.Duration {
	if v.StartTime == nil {
		return 0
	}

	if v.EndTime != nil {
		return v.EndTime.Sub(*v.StartTime)
	}

	return time.Since(*v.StartTime)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	title     string
	rows      []*Row
	rowMap    map[string]*Row
	width     int
	height    int
	quitting  bool
	completed bool
	outcomes  remote.Outcomes
	runErr    error
	mutex     sync.RWMutex

	viewport viewport.Model
	spinner  spinner.Model
	styles   *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title    lipgloss.Style
	Pending  lipgloss.Style
	Running  lipgloss.Style
	Success  lipgloss.Style
	Failed   lipgloss.Style
	TimedOut lipgloss.Style
	Command  lipgloss.Style
	Output   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
	Border   lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		TimedOut: lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")),
		Command: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates a new TUI model with the given title.
func NewModel(ctx context.Context, title string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := NewStyles()
	sp.Style = styles.Running

	return &Model{
		ctx:      ctx,
		title:    title,
		rowMap:   make(map[string]*Row),
		viewport: viewport.New(defaultViewportWidth, defaultViewportHeight),
		spinner:  sp,
		styles:   styles,
	}
}

func rowKey(machine, command string) string {
	return machine + "\x00" + command
}

// getOrCreateRow returns the row for machine and command, appending a new
// one in first-seen order.
func (m *Model) getOrCreateRow(machine, command string) *Row {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := rowKey(machine, command)
	if row, ok := m.rowMap[key]; ok {
		return row
	}

	row := NewRow(machine, command)
	m.rowMap[key] = row
	m.rows = append(m.rows, row)

	return row
}

// processProgressEvent applies one progress event to its row.
func (m *Model) processProgressEvent(event progress.Event) {
	row := m.getOrCreateRow(event.Machine, event.Command)

	switch event.Type {
	case progress.EventStarted:
		row.UpdateStatus(StatusRunning)

	case progress.EventOutput:
		row.UpdateOutput(event.Data.OutputLine)

	case progress.EventCompleted:
		row.UpdateStatus(StatusSuccess)

	case progress.EventFailed:
		row.mutex.Lock()
		row.ExitCode = event.Data.ExitCode
		row.mutex.Unlock()

		row.UpdateStatus(StatusFailed)

		if event.Data.Error != nil {
			row.UpdateError(event.Data.Error.Error())
		}

	case progress.EventTimedOut:
		row.UpdateStatus(StatusTimedOut)

	case progress.EventTerminated:
		row.UpdateError("terminated after timeout")
	}
}

// counts returns how many rows are in each status.
func (m *Model) counts() map[MachineStatus]int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	c := make(map[MachineStatus]int)
	for _, r := range m.rows {
		c[r.Snapshot().Status]++
	}

	return c
}
