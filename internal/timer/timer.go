// Package timer implements the meditation countdown: a four state machine
// (ready, running, paused, done) driven by a single tick source.
//
// All transitions happen under the engine lock and notifications are
// delivered to sinks while it is held, so sinks see transitions in order.
// A Sink must not call back into the Engine from Update or Completed.
package timer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Status is the externally visible timer state.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusPaused
	StatusDone
)

var statusNames = map[Status]string{
	StatusReady:   "ready",
	StatusRunning: "running",
	StatusPaused:  "paused",
	StatusDone:    "done",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the status as its lower-case name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown timer status %q", text)
}

// Event names the operation that produced a notification.
type Event string

const (
	EventSelect   Event = "select"
	EventStart    Event = "start"
	EventResume   Event = "resume"
	EventPause    Event = "pause"
	EventStop     Event = "stop"
	EventTick     Event = "tick"
	EventComplete Event = "complete"
)

// Snapshot is a consistent view of the engine, emitted after every
// transition and every tick.
type Snapshot struct {
	Cycle     string  `json:"cycle"`
	Event     Event   `json:"event,omitempty"`
	Status    Status  `json:"status"`
	Remaining int     `json:"remaining"`
	Total     int     `json:"total"`
	Selected  int     `json:"selected"`
	Progress  float64 `json:"progress"`
}

// Sink receives engine notifications.
type Sink interface {
	Update(Snapshot)
	// Completed fires once per countdown cycle, on the transition into done.
	Completed()
}

// Sinks fans notifications out to every member in order.
type Sinks []Sink

func (s Sinks) Update(snap Snapshot) {
	for _, sink := range s {
		sink.Update(snap)
	}
}

func (s Sinks) Completed() {
	for _, sink := range s {
		sink.Completed()
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickSource replaces the default one second IntervalSource.
func WithTickSource(src TickSource) Option {
	return func(e *Engine) { e.source = src }
}

// WithSink adds sinks that receive notifications.
func WithSink(sinks ...Sink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sinks...) }
}

// WithLogger sets the logger used for transition logs.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithDefaultSeconds sets the initial and fallback duration. Invalid values
// are ignored.
func WithDefaultSeconds(seconds int) Option {
	return func(e *Engine) {
		if ValidateSeconds(seconds) == nil {
			e.fallback = seconds
		}
	}
}

// Engine owns the countdown state for one view.
type Engine struct {
	mu     sync.Mutex
	source TickSource
	sinks  Sinks
	logger *slog.Logger

	status    Status
	total     int
	remaining int
	selected  int
	fallback  int
	cycle     string

	// cancel is non-nil exactly while a tick source is scheduled.
	cancel func()
	// generation invalidates ticks from cancelled sources.
	generation uint64
}

// New creates an engine in the ready state. No notification is emitted.
func New(opts ...Option) *Engine {
	e := &Engine{
		source:   IntervalSource{},
		fallback: DefaultSeconds,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.selected = e.fallback
	e.total = e.fallback
	e.remaining = e.fallback
	e.status = StatusReady
	e.cycle = uuid.NewString()
	return e
}

// Start begins a fresh countdown of seconds when ready or done, resumes when
// paused and does nothing when already running. A zero value means no
// duration was supplied.
func (e *Engine) Start(seconds int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusRunning:
		return nil
	case StatusPaused:
		e.resumeLocked()
		return nil
	}

	if err := ValidateSeconds(seconds); err != nil {
		e.logger.Warn("timer: start rejected", "seconds", seconds, "error", err)
		return err
	}

	e.selected = seconds
	e.total = seconds
	e.remaining = seconds
	e.cycle = uuid.NewString()
	e.status = StatusRunning
	e.scheduleLocked()
	e.logger.Info("timer: started", "cycle", e.cycle, "seconds", seconds)
	e.emitLocked(EventStart)
	return nil
}

// Resume continues a paused countdown. It is a no-op in any other state.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusPaused {
		e.resumeLocked()
	}
}

func (e *Engine) resumeLocked() {
	e.status = StatusRunning
	e.scheduleLocked()
	e.logger.Info("timer: resumed", "cycle", e.cycle, "remaining", e.remaining)
	e.emitLocked(EventResume)
}

// Pause suspends a running countdown, keeping the remaining time.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusRunning {
		return
	}
	e.cancelLocked()
	e.status = StatusPaused
	e.logger.Info("timer: paused", "cycle", e.cycle, "remaining", e.remaining)
	e.emitLocked(EventPause)
}

// Stop cancels any countdown and resets to the selected duration. It never
// fires the completion signal.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
	e.resetLocked()
	e.logger.Info("timer: stopped", "cycle", e.cycle, "seconds", e.total)
	e.emitLocked(EventStop)
}

// Select records the duration chosen by the user. When ready or done the
// preview is reset to it; a running or paused countdown is left alone and
// the selection applies on the next stop.
func (e *Engine) Select(seconds int) error {
	if err := ValidateSeconds(seconds); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = seconds
	if e.status == StatusRunning || e.status == StatusPaused {
		e.logger.Debug("timer: selection deferred", "seconds", seconds, "status", e.status.String())
		return nil
	}
	e.resetLocked()
	e.emitLocked(EventSelect)
	return nil
}

// Attach adds sinks after construction, for collaborators that need the
// engine before they can be built.
func (e *Engine) Attach(sinks ...Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sinks...)
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked("")
}

// Close releases the tick source without notifying sinks. The engine is left
// ready and may be reused.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
	if e.status != StatusReady {
		e.resetLocked()
	}
}

func (e *Engine) tick(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if generation != e.generation || e.status != StatusRunning {
		return
	}

	if e.remaining > 1 {
		e.remaining--
		e.emitLocked(EventTick)
		return
	}

	e.remaining = 0
	e.cancelLocked()
	e.status = StatusDone
	e.logger.Info("timer: completed", "cycle", e.cycle, "seconds", e.total)
	e.emitLocked(EventComplete)
	e.sinks.Completed()
}

func (e *Engine) resetLocked() {
	seconds := e.selected
	if ValidateSeconds(seconds) != nil {
		seconds = e.fallback
		e.selected = seconds
	}
	e.total = seconds
	e.remaining = seconds
	e.status = StatusReady
	e.cycle = uuid.NewString()
}

func (e *Engine) scheduleLocked() {
	if e.cancel != nil {
		return
	}
	e.generation++
	gen := e.generation
	e.cancel = e.source.Start(func() { e.tick(gen) })
}

func (e *Engine) cancelLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil
	e.generation++
}

func (e *Engine) emitLocked(ev Event) {
	e.sinks.Update(e.snapshotLocked(ev))
}

func (e *Engine) snapshotLocked(ev Event) Snapshot {
	return Snapshot{
		Cycle:     e.cycle,
		Event:     ev,
		Status:    e.status,
		Remaining: e.remaining,
		Total:     e.total,
		Selected:  e.selected,
		Progress:  Progress(e.total, e.remaining),
	}
}
