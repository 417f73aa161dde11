// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
)

const (
	defaultViewportWidth        = 100
	defaultViewportHeight       = 20
	minViewportWidth            = 40
	minStatusBarAvailableHeight = 10
	reservedLines               = 8
	machineColumnWidth          = 24
	durationRounding            = 100 * time.Millisecond
	ellipsis                    = "..."
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// CompletedMsg is sent once the fan-out has returned.
type CompletedMsg struct {
	Outcomes remote.Outcomes
	Err      error
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

		return m, cmd

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()
		m.mutex.Unlock()

		return m, cmd

	case spinner.TickMsg:
		var tick tea.Cmd

		m.spinner, tick = m.spinner.Update(msg)

		return m, tea.Batch(cmd, tick)

	case ProgressEventMsg:
		m.processProgressEvent(msg.Event)
		return m, cmd

	case CompletedMsg:
		m.mutex.Lock()
		m.completed = true
		m.outcomes = msg.Outcomes
		m.runErr = msg.Err
		m.mutex.Unlock()

		m.applyOutcomes(msg.Outcomes)

		return m, cmd
	}

	return m, cmd
}

// applyOutcomes reconciles rows with the final outcomes, in case progress
// events were dropped.
func (m *Model) applyOutcomes(outcomes remote.Outcomes) {
	for _, o := range outcomes {
		row := m.getOrCreateRow(o.Machine, o.Command)

		row.mutex.Lock()
		row.ExitCode = o.ExitCode

		if o.Error != "" {
			row.ErrorMsg = o.Error
		}
		row.mutex.Unlock()

		switch {
		case o.Status == remote.StatusTimedOut:
			row.UpdateStatus(StatusTimedOut)
		case o.Success():
			row.UpdateStatus(StatusSuccess)
		default:
			row.UpdateStatus(StatusFailed)
		}
	}
}

func (m *Model) updateViewportSize() {
	w := m.width - 2 //nolint:mnd // border
	if w < minViewportWidth {
		w = minViewportWidth
	}

	h := m.height - reservedLines
	if h < 1 {
		h = 1
	}

	m.viewport.Width = w
	m.viewport.Height = h
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var content strings.Builder

	m.mutex.RLock()
	rows := append([]*Row(nil), m.rows...)
	completed := m.completed
	hasError := m.runErr != nil || m.outcomes.HasError()
	m.mutex.RUnlock()

	for _, r := range rows {
		m.renderRow(&content, r.Snapshot())
	}

	if completed {
		content.WriteString("\n")

		if hasError {
			content.WriteString(m.styles.Failed.Render("Finished with failures"))
		} else {
			content.WriteString(m.styles.Success.Render("Finished successfully"))
		}

		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())

	var view strings.Builder

	view.WriteString(m.styles.Title.Render(m.title))
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))

	if m.height == 0 || m.height > minStatusBarAvailableHeight {
		view.WriteString("\n")
		view.WriteString(m.renderStatusBar())
		view.WriteString("\n")

		help := "↑/↓ to scroll, 'q' to quit"
		if completed {
			help = "'q' to quit and return to the terminal"
		}

		view.WriteString(m.styles.Help.Render(help))
	}

	return view.String()
}

func (m *Model) renderStatusBar() string {
	c := m.counts()

	parts := []string{
		m.styles.Running.Render(fmt.Sprintf("%d running", c[StatusRunning])),
		m.styles.Success.Render(fmt.Sprintf("%d ok", c[StatusSuccess])),
		m.styles.Failed.Render(fmt.Sprintf("%d failed", c[StatusFailed])),
		m.styles.TimedOut.Render(fmt.Sprintf("%d timed out", c[StatusTimedOut])),
	}

	return strings.Join(parts, "  ")
}

func (m *Model) renderRow(b *strings.Builder, v RowView) {
	var icon, name string

	switch v.Status {
	case StatusRunning:
		icon = m.spinner.View()
		name = m.styles.Running.Render(v.Machine)
	case StatusSuccess:
		icon = m.styles.Success.Render("✓")
		name = m.styles.Success.Render(v.Machine)
	case StatusFailed:
		icon = m.styles.Failed.Render("✗")
		name = m.styles.Failed.Render(v.Machine)
	case StatusTimedOut:
		icon = m.styles.TimedOut.Render("⏱")
		name = m.styles.TimedOut.Render(v.Machine)
	default:
		icon = m.styles.Pending.Render("·")
		name = m.styles.Pending.Render(v.Machine)
	}

	left := fmt.Sprintf("%s %s", icon, name)
	if pad := machineColumnWidth - lipgloss.Width(left); pad > 0 {
		left += strings.Repeat(" ", pad)
	}

	left += m.styles.Output.Render(fmt.Sprintf(" %8v ", v.Elapsed().Round(durationRounding)))

	var right string

	switch {
	case v.ErrorMsg != "" && v.Status != StatusRunning:
		right = m.styles.Error.Render(truncate(v.ErrorMsg, m.rightWidth(left)))
	case v.Status == StatusFailed:
		right = m.styles.Error.Render(fmt.Sprintf("exit code %d", v.ExitCode))
	case v.LastOutput != "":
		right = m.styles.Output.Render(truncate(v.LastOutput, m.rightWidth(left)))
	default:
		right = m.styles.Command.Render(truncate(v.Command, m.rightWidth(left)))
	}

	b.WriteString(left)
	b.WriteString(right)
	b.WriteString("\n")
}

func (m *Model) rightWidth(left string) int {
	w := m.viewport.Width - lipgloss.Width(left)
	if w < len(ellipsis)+1 {
		return len(ellipsis) + 1
	}

	return w
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}

	return string(r[:width-len(ellipsis)]) + ellipsis
}
