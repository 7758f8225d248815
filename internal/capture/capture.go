package capture

import (
	"errors"
	"image"
)

// Errors shared by all capture backends.
var (
	ErrNoDisplay      = errors.New("no display found")
	ErrWindowNotFound = errors.New("window not found")
)

// Capturer defines the interface for screen capture backends
type Capturer interface {
	// Start initializes the capturer and any required resources
	Start() error

	// Stop releases resources and stops any background processes
	Stop() error

	// CaptureDisplay captures the full contents of a display
	CaptureDisplay(display int) (*image.RGBA, error)

	// CaptureRegion captures a region of a display, in display-local
	// coordinates
	CaptureRegion(display, x, y, width, height int) (*image.RGBA, error)

	// Name returns a human-readable name for this capturer
	Name() string

	// IsAvailable checks if this capturer can be used in the current environment
	IsAvailable() bool
}

// WindowCapturer is implemented by backends that can capture a single
// window's drawable, for thumbnails.
type WindowCapturer interface {
	CaptureWindow(windowID uint32) (*image.RGBA, error)
}
