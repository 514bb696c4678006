// Package trace collects a human-readable record of the decisions made
// while processing a statement: which parsing strategy ran, what it
// produced, which reconciliation branch fired. The recorder is append-only
// and a nil *Recorder is a no-op, so call sites never need to guard.
package trace

import (
	"fmt"
	"sync"
)

// Entry is a single recorded decision, attributed to a processing stage.
type Entry struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Recorder accumulates entries across the stages of a single run.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

// Record appends a formatted entry under the given stage. Safe on a nil
// recorder.
func (r *Recorder) Record(stage, format string, args ...interface{}) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Stage: stage, Message: fmt.Sprintf(format, args...)})
}

// Entries returns a copy of everything recorded so far, in order.
func (r *Recorder) Entries() []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Stage returns the messages recorded under one stage, in order.
func (r *Recorder) Stage(stage string) []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.Stage == stage {
			out = append(out, e.Message)
		}
	}
	return out
}
