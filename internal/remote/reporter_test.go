// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"sync"

	"github.com/matt-FFFFFF/fleetrun/internal/progress"
)

type recordingReporter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingReporter) Report(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recordingReporter) Close() {}

func (r *recordingReporter) all() []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]progress.Event(nil), r.events...)
}

func (r *recordingReporter) types() []progress.EventType {
	var types []progress.EventType
	for _, e := range r.all() {
		types = append(types, e.Type)
	}

	return types
}

func (r *recordingReporter) of(et progress.EventType) []progress.Event {
	var events []progress.Event

	for _, e := range r.all() {
		if e.Type == et {
			events = append(events, e)
		}
	}

	return events
}
