package timer

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// MinSeconds and MaxSeconds bound every duration the engine accepts.
	MinSeconds = 1
	MaxSeconds = 180 * 60

	// DefaultSeconds is used on construction and whenever the selected
	// duration turns out to be invalid on stop.
	DefaultSeconds = 60

	// MinCustomMinutes and MaxCustomMinutes bound the custom minute field.
	MinCustomMinutes = 1
	MaxCustomMinutes = 180
)

// ErrInvalidDuration is returned when a requested duration is missing or
// outside [MinSeconds, MaxSeconds].
var ErrInvalidDuration = errors.New("invalid duration")

// ValidateSeconds reports whether seconds is an acceptable countdown length.
// Zero stands for a missing value.
func ValidateSeconds(seconds int) error {
	if seconds == 0 {
		return fmt.Errorf("%w: no duration given", ErrInvalidDuration)
	}
	if seconds < MinSeconds || seconds > MaxSeconds {
		return fmt.Errorf("%w: %d seconds outside [%d, %d]", ErrInvalidDuration, seconds, MinSeconds, MaxSeconds)
	}
	return nil
}

// ClampMinutes is the input-collection pre-filter for the custom minute
// field. It does not replace ValidateSeconds.
func ClampMinutes(minutes int) int {
	if minutes > MaxCustomMinutes {
		return MaxCustomMinutes
	}
	if minutes < MinCustomMinutes {
		return MinCustomMinutes
	}
	return minutes
}

// CustomSeconds converts a custom minute count to seconds. Out of range
// values are rejected, never clamped.
func CustomSeconds(minutes int) (int, error) {
	if minutes < MinCustomMinutes || minutes > MaxCustomMinutes {
		return 0, fmt.Errorf("%w: %d minutes outside [%d, %d]", ErrInvalidDuration, minutes, MinCustomMinutes, MaxCustomMinutes)
	}
	return minutes * 60, nil
}

// Preset is one of the offered countdown lengths.
type Preset struct {
	Name    string `yaml:"name" json:"name"`
	Seconds int    `yaml:"seconds" json:"seconds"`
}

// DefaultPresets returns the presets offered when none are configured.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "1m", Seconds: 60},
		{Name: "3m", Seconds: 3 * 60},
		{Name: "5m", Seconds: 5 * 60},
		{Name: "10m", Seconds: 10 * 60},
		{Name: "15m", Seconds: 15 * 60},
		{Name: "20m", Seconds: 20 * 60},
		{Name: "30m", Seconds: 30 * 60},
	}
}

// ValidatePresets checks that every preset has a unique name and a valid
// duration.
func ValidatePresets(presets []Preset) error {
	if len(presets) == 0 {
		return errors.New("no presets configured")
	}
	seen := make(map[string]bool, len(presets))
	for _, p := range presets {
		if p.Name == "" {
			return errors.New("preset without a name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true
		if err := ValidateSeconds(p.Seconds); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return nil
}

// Catalog holds the preset list. It is safe for concurrent use so the
// config watcher can swap presets while requests read them.
type Catalog struct {
	mu      sync.RWMutex
	presets []Preset
}

// NewCatalog creates a catalog, falling back to DefaultPresets when presets
// is empty.
func NewCatalog(presets []Preset) (*Catalog, error) {
	c := &Catalog{}
	if len(presets) == 0 {
		presets = DefaultPresets()
	}
	if err := c.Replace(presets); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns a copy of the presets in configured order.
func (c *Catalog) List() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Lookup finds a preset by name.
func (c *Catalog) Lookup(name string) (Preset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Replace swaps the preset list after validating it. On error the previous
// list is kept.
func (c *Catalog) Replace(presets []Preset) error {
	if err := ValidatePresets(presets); err != nil {
		return err
	}
	cp := make([]Preset, len(presets))
	copy(cp, presets)
	c.mu.Lock()
	c.presets = cp
	c.mu.Unlock()
	return nil
}
