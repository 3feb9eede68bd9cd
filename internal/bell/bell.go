// Package bell plays the completion chime through the system speaker.
package bell

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"meditimer/internal/timer"
)

const (
	sampleRate = beep.SampleRate(44100)
	chimeHz    = 528.0
	chimeFor   = 1500 * time.Millisecond
)

// Bell implements timer.Sink. Only Completed makes a sound.
type Bell struct {
	logger  *slog.Logger
	enabled bool
	mu      sync.Mutex
}

// New initialises the speaker. When that fails audio is disabled and the
// bell only logs.
func New(logger *slog.Logger) *Bell {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bell{logger: logger}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		logger.Warn("bell: audio disabled, failed to initialize speaker", "error", err)
		return b
	}
	b.enabled = true
	return b
}

// Update implements timer.Sink.
func (b *Bell) Update(timer.Snapshot) {}

// Completed implements timer.Sink.
func (b *Bell) Completed() {
	b.Ring()
}

// Ring plays the chime without waiting for it to finish.
func (b *Bell) Ring() {
	if !b.enabled {
		b.logger.Info("bell: ding (audio disabled)")
		return
	}

	tone, err := generators.SineTone(sampleRate, chimeHz)
	if err != nil {
		b.logger.Warn("bell: build tone", "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	speaker.Play(beep.Take(sampleRate.N(chimeFor), tone))
}

// Close releases the audio device.
func (b *Bell) Close() {
	if b.enabled {
		speaker.Close()
	}
}
