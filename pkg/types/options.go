package types

import "time"

// Options contains the command-line options for a notifier run.
type Options struct {
	// Run mode
	Force     bool
	TestEmail string
	DeviceID  int
	DryRun    bool

	// ConfigFile is an optional YAML rules file.
	ConfigFile string

	// SendInterval is the minimum spacing between chat messages.
	SendInterval time.Duration

	// Timeout bounds each HTTP call.
	Timeout time.Duration
}

// TestMode reports whether output should be redirected to TestEmail.
func (o *Options) TestMode() bool {
	return o.TestEmail != ""
}

// HasDeviceFilter reports whether only a single device should be processed.
func (o *Options) HasDeviceFilter() bool {
	return o.DeviceID > 0
}
