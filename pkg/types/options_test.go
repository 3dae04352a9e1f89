package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	t.Run("Default values", func(t *testing.T) {
		opts := Options{}

		assert.False(t, opts.Force)
		assert.Empty(t, opts.TestEmail)
		assert.Zero(t, opts.DeviceID)
		assert.False(t, opts.DryRun)
		assert.Empty(t, opts.ConfigFile)
		assert.Zero(t, opts.SendInterval)
		assert.False(t, opts.TestMode())
		assert.False(t, opts.HasDeviceFilter())
	})

	t.Run("Populated options", func(t *testing.T) {
		opts := Options{
			Force:        true,
			TestEmail:    "it@example.com",
			DeviceID:     42,
			SendInterval: 500 * time.Millisecond,
		}

		assert.True(t, opts.TestMode())
		assert.True(t, opts.HasDeviceFilter())
		assert.Equal(t, 500*time.Millisecond, opts.SendInterval)
	})
}
