// Package console renders the countdown on a terminal line.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"meditimer/internal/timer"
)

const barWidth = 20

// Display implements timer.Sink by redrawing a single line on every update.
type Display struct {
	mu   sync.Mutex
	w    io.Writer
	done chan struct{}
	once sync.Once
}

// New returns a display writing to w.
func New(w io.Writer) *Display {
	return &Display{w: w, done: make(chan struct{})}
}

// Update implements timer.Sink.
func (d *Display) Update(s timer.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "\r%-8s %s %s %3.0f%%", s.Status, timer.FormatClock(s.Remaining), Bar(s.Progress, barWidth), s.Progress*100)
}

// Completed implements timer.Sink.
func (d *Display) Completed() {
	d.mu.Lock()
	fmt.Fprintln(d.w, "\nDone. Take a breath.")
	d.mu.Unlock()
	d.once.Do(func() { close(d.done) })
}

// Done is closed after the first completion.
func (d *Display) Done() <-chan struct{} {
	return d.done
}

// Bar renders progress as a fixed width [####....] bar.
func Bar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
