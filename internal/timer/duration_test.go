package timer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSeconds(t *testing.T) {
	testCases := []struct {
		name    string
		seconds int
		valid   bool
	}{
		{"Missing", 0, false},
		{"Negative", -60, false},
		{"One second", 1, true},
		{"One minute", 60, true},
		{"Maximum (180 minutes)", MaxSeconds, true},
		{"Over maximum", MaxSeconds + 1, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSeconds(tc.seconds)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDuration)
			}
		})
	}
}

// TestClampMinutes verifies the input pre-filter pins values into [1, 180]
func TestClampMinutes(t *testing.T) {
	assert.Equal(t, 1, ClampMinutes(-3))
	assert.Equal(t, 1, ClampMinutes(0))
	assert.Equal(t, 25, ClampMinutes(25))
	assert.Equal(t, 180, ClampMinutes(180))
	assert.Equal(t, 180, ClampMinutes(200))
}

// TestCustomSeconds verifies custom minutes are rejected rather than clamped
func TestCustomSeconds(t *testing.T) {
	s, err := CustomSeconds(1)
	require.NoError(t, err)
	assert.Equal(t, 60, s)

	s, err = CustomSeconds(180)
	require.NoError(t, err)
	assert.Equal(t, MaxSeconds, s)

	_, err = CustomSeconds(200)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = CustomSeconds(0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	// clamping first makes any input acceptable
	s, err = CustomSeconds(ClampMinutes(200))
	require.NoError(t, err)
	assert.Equal(t, MaxSeconds, s)
}

func TestValidatePresets(t *testing.T) {
	require.NoError(t, ValidatePresets(DefaultPresets()))

	assert.Error(t, ValidatePresets(nil))
	assert.Error(t, ValidatePresets([]Preset{{Name: "", Seconds: 60}}))
	assert.Error(t, ValidatePresets([]Preset{{Name: "a", Seconds: 60}, {Name: "a", Seconds: 120}}))
	assert.ErrorIs(t, ValidatePresets([]Preset{{Name: "long", Seconds: MaxSeconds * 2}}), ErrInvalidDuration)
}

func TestCatalog(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPresets(), c.List())

	p, ok := c.Lookup("3m")
	require.True(t, ok)
	assert.Equal(t, 180, p.Seconds)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)

	// the returned slice is a copy
	list := c.List()
	list[0].Seconds = 1
	p, _ = c.Lookup("1m")
	assert.Equal(t, 60, p.Seconds)

	// a bad replacement keeps the old list
	require.Error(t, c.Replace([]Preset{{Name: "x", Seconds: 0}}))
	assert.Len(t, c.List(), len(DefaultPresets()))

	require.NoError(t, c.Replace([]Preset{{Name: "breath", Seconds: 90}}))
	assert.Equal(t, []Preset{{Name: "breath", Seconds: 90}}, c.List())
}

func TestNewCatalogInvalid(t *testing.T) {
	_, err := NewCatalog([]Preset{{Name: "x", Seconds: -1}})
	assert.Error(t, err)
}

// TestCatalogConcurrentAccess verifies readers and writers can overlap
func TestCatalogConcurrentAccess(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.List()
				_, _ = c.Lookup("5m")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			_ = c.Replace(DefaultPresets())
		}
	}()
	wg.Wait()
}
