// Package homekit exposes the meditation timer as a HomeKit bridge with two
// switches. The "meditation" switch mirrors a running countdown and can start
// or pause it remotely. The "bell" switch turns on when a countdown completes
// so HomeKit automations can react to it.
package homekit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"

	"meditimer/internal/timer"
)

// Controller is the part of the timer engine HomeKit drives.
type Controller interface {
	Start(seconds int) error
	Resume()
	Pause()
	Snapshot() timer.Snapshot
}

// Bridge implements timer.Sink.
type Bridge struct {
	engine Controller
	logger *slog.Logger

	bridge     *accessory.Bridge
	meditation *accessory.Switch
	bell       *accessory.Switch

	// dispatch runs remote commands off the hap callback goroutine.
	dispatch func(func())
}

// New creates the bridge accessories for engine.
func New(name string, engine Controller, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		engine:     engine,
		logger:     logger,
		bridge:     accessory.NewBridge(accessory.Info{Name: name, Manufacturer: "meditimer"}),
		meditation: accessory.NewSwitch(accessory.Info{Name: "meditation"}),
		bell:       accessory.NewSwitch(accessory.Info{Name: "bell"}),
		dispatch:   func(f func()) { go f() },
	}
	b.meditation.A.Id = 2
	b.bell.A.Id = 3

	b.meditation.Switch.On.OnValueRemoteUpdate(func(on bool) {
		b.dispatch(func() { b.handleMeditation(on) })
	})
	b.bell.Switch.On.OnValueRemoteUpdate(func(on bool) {
		if on {
			b.logger.Info("homekit: bell switched on remotely")
		} else {
			b.logger.Info("homekit: bell acknowledged")
		}
	})
	return b
}

func (b *Bridge) handleMeditation(on bool) {
	if !on {
		b.logger.Info("homekit: pausing remotely")
		b.engine.Pause()
		return
	}

	snap := b.engine.Snapshot()
	if snap.Status == timer.StatusPaused {
		b.logger.Info("homekit: resuming remotely")
		b.engine.Resume()
		return
	}

	b.logger.Info("homekit: starting remotely", "seconds", snap.Selected)
	if err := b.engine.Start(snap.Selected); err != nil {
		b.logger.Warn("homekit: start rejected", "error", err)
		b.meditation.Switch.On.SetValue(false)
	}
}

// Update implements timer.Sink.
func (b *Bridge) Update(s timer.Snapshot) {
	b.meditation.Switch.On.SetValue(s.Status == timer.StatusRunning)
	if s.Event == timer.EventStart {
		b.bell.Switch.On.SetValue(false)
	}
}

// Completed implements timer.Sink.
func (b *Bridge) Completed() {
	b.logger.Info("homekit: ringing bell")
	b.bell.Switch.On.SetValue(true)
}

// Serve runs the HAP server until ctx is done.
func (b *Bridge) Serve(ctx context.Context, store hap.Store, addr, pin string) error {
	s, err := hap.NewServer(store, b.bridge.A, b.meditation.A, b.bell.A)
	if err != nil {
		return fmt.Errorf("create HAP server: %w", err)
	}
	s.Addr = addr
	s.Pin = pin

	b.logger.Info("homekit: serving", "addr", addr)
	if err := s.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("HAP server: %w", err)
	}
	return nil
}
