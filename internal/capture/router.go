package capture

import (
	"fmt"
	"image"
	"sync"

	"screenstream/internal/logger"
)

// Router routes capture requests to the appropriate backend. Display and
// region grabs go through the screenshot capturer, window grabs need X11.
type Router struct {
	screenshotCapturer *ScreenshotCapturer
	x11Capturer        *X11Capturer
	mu                 sync.RWMutex
	started            bool
}

// NewRouter creates a new capture router
func NewRouter() *Router {
	return &Router{}
}

// Start initializes the available capturers
func (r *Router) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	log := logger.WithComponent("capture-router")

	ss := NewScreenshotCapturer()
	if err := ss.Start(); err != nil {
		log.Warn().Err(err).Msg("Screenshot capturer not available")
	} else {
		r.screenshotCapturer = ss
		log.Info().Msg("Screenshot capturer initialized")
	}

	x11, err := NewX11Capturer()
	if err != nil {
		log.Warn().Err(err).Msg("X11 capturer not available")
	} else {
		if err := x11.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start X11 capturer")
			x11.Stop()
		} else {
			r.x11Capturer = x11
			log.Info().Msg("X11 capturer initialized")
		}
	}

	if r.screenshotCapturer == nil && r.x11Capturer == nil {
		return fmt.Errorf("no capture backends available")
	}

	r.started = true
	return nil
}

// Stop stops all capturers
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.screenshotCapturer != nil {
		r.screenshotCapturer.Stop()
		r.screenshotCapturer = nil
	}

	if r.x11Capturer != nil {
		r.x11Capturer.Stop()
		r.x11Capturer = nil
	}

	r.started = false
	return nil
}

// CaptureDisplay captures the full contents of a display
func (r *Router) CaptureDisplay(display int) (*image.RGBA, error) {
	r.mu.RLock()
	ss := r.screenshotCapturer
	x11 := r.x11Capturer
	r.mu.RUnlock()

	if ss != nil {
		return ss.CaptureDisplay(display)
	}
	if x11 != nil {
		return x11.CaptureDisplay(display)
	}
	return nil, fmt.Errorf("no capturer available for display capture")
}

// CaptureRegion captures a region of a display
func (r *Router) CaptureRegion(display, x, y, width, height int) (*image.RGBA, error) {
	r.mu.RLock()
	ss := r.screenshotCapturer
	x11 := r.x11Capturer
	r.mu.RUnlock()

	if ss != nil {
		return ss.CaptureRegion(display, x, y, width, height)
	}
	if x11 != nil {
		return x11.CaptureRegion(display, x, y, width, height)
	}
	return nil, fmt.Errorf("no capturer available for region capture")
}

// CaptureWindow captures a single window's contents for thumbnails
func (r *Router) CaptureWindow(windowID uint32) (*image.RGBA, error) {
	r.mu.RLock()
	x11 := r.x11Capturer
	r.mu.RUnlock()

	if x11 == nil {
		return nil, fmt.Errorf("no capturer available for window capture")
	}
	return x11.CaptureWindow(windowID)
}

// NumDisplays returns the number of active displays
func (r *Router) NumDisplays() int {
	r.mu.RLock()
	ss := r.screenshotCapturer
	x11 := r.x11Capturer
	r.mu.RUnlock()

	if ss != nil {
		return ss.NumDisplays()
	}
	if x11 != nil {
		return 1
	}
	return 0
}

// DisplayBounds returns the bounds of a display
func (r *Router) DisplayBounds(display int) (image.Rectangle, error) {
	r.mu.RLock()
	ss := r.screenshotCapturer
	x11 := r.x11Capturer
	r.mu.RUnlock()

	if ss != nil {
		return ss.DisplayBounds(display)
	}
	if x11 != nil && display == 0 {
		return image.Rect(0, 0, int(x11.screen.WidthInPixels), int(x11.screen.HeightInPixels)), nil
	}
	return image.Rectangle{}, ErrNoDisplay
}

// WindowCapturer returns the window capture backend as an interface value
// that is untyped nil when X11 is unavailable, so callers can compare it
// against nil directly.
func (r *Router) WindowCapturer() WindowCapturer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.x11Capturer == nil {
		return nil
	}
	return r.x11Capturer
}
