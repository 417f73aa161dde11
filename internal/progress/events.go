// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event is a lifecycle update for one machine's job.
type Event struct {
	Machine   string    // Machine the job targets; the source for copies
	Command   string    // Remote command, or "src -> dst" for copies
	Type      EventType // What happened
	Timestamp time.Time // When it happened
	Data      EventData // Type-specific payload
}

// EventType enumerates Event kinds.
type EventType int

const (
	// EventStarted is sent once the process has been spawned.
	EventStarted EventType = iota
	// EventOutput carries one complete line written by the process.
	EventOutput
	// EventCompleted is sent when the process exited with code zero.
	EventCompleted
	// EventFailed is sent for a non-zero exit or a spawn/wait error.
	EventFailed
	// EventTimedOut is sent when the wait gave up and termination begins.
	EventTimedOut
	// EventTerminated is sent once a timed out process has been reaped.
	EventTerminated
)

// String implements fmt.Stringer.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventOutput:
		return "output"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventTimedOut:
		return "timed out"
	case EventTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// EventData holds the optional fields of an Event.
type EventData struct {
	OutputLine string // EventOutput
	IsStderr   bool   // EventOutput
	ExitCode   int    // EventCompleted, EventFailed
	Error      error  // EventFailed
	Pid        int    // EventStarted
}

// Reporter receives events. Report must not block the caller.
type Reporter interface {
	Report(event Event)
	Close()
}

// Listener consumes events delivered by a ChannelReporter.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(e Event) {
	f(e)
}

// NullReporter discards every event.
type NullReporter struct{}

// Report implements Reporter.
func (NullReporter) Report(Event) {}

// Close implements Reporter.
func (NullReporter) Close() {}

// NewNullReporter returns a Reporter that discards events.
func NewNullReporter() Reporter {
	return NullReporter{}
}

// Emit stamps e with the current time and reports it. A nil reporter is ignored.
func Emit(r Reporter, e Event) {
	if r == nil {
		return
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	r.Report(e)
}
