package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"screenstream/internal/logger"
)

// ScreenshotCapturer captures displays through the kbinani/screenshot
// library, which talks to X11, GDI or CoreGraphics depending on platform.
type ScreenshotCapturer struct{}

// NewScreenshotCapturer creates a new screenshot-library capturer
func NewScreenshotCapturer() *ScreenshotCapturer {
	return &ScreenshotCapturer{}
}

// Start checks that at least one display is active
func (c *ScreenshotCapturer) Start() error {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return ErrNoDisplay
	}
	logger.WithComponent("screenshot-capturer").Info().
		Int("displays", n).
		Msg("Screenshot capturer initialized")
	return nil
}

// Stop releases resources; the screenshot library holds none
func (c *ScreenshotCapturer) Stop() error {
	return nil
}

// Name returns the capturer name
func (c *ScreenshotCapturer) Name() string {
	return "screenshot"
}

// IsAvailable checks if any display can be captured
func (c *ScreenshotCapturer) IsAvailable() bool {
	return screenshot.NumActiveDisplays() > 0
}

// NumDisplays returns the number of active displays
func (c *ScreenshotCapturer) NumDisplays() int {
	return screenshot.NumActiveDisplays()
}

// DisplayBounds returns the bounds of a display in virtual-screen coordinates
func (c *ScreenshotCapturer) DisplayBounds(display int) (image.Rectangle, error) {
	if display < 0 || display >= screenshot.NumActiveDisplays() {
		return image.Rectangle{}, fmt.Errorf("display %d: %w", display, ErrNoDisplay)
	}
	return screenshot.GetDisplayBounds(display), nil
}

// CaptureDisplay captures the full contents of a display
func (c *ScreenshotCapturer) CaptureDisplay(display int) (*image.RGBA, error) {
	if display < 0 || display >= screenshot.NumActiveDisplays() {
		return nil, fmt.Errorf("display %d: %w", display, ErrNoDisplay)
	}

	img, err := screenshot.CaptureDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to capture display %d: %w", display, err)
	}
	return img, nil
}

// CaptureRegion captures a region of a display. Coordinates are relative to
// the display's own origin.
func (c *ScreenshotCapturer) CaptureRegion(display, x, y, width, height int) (*image.RGBA, error) {
	bounds, err := c.DisplayBounds(display)
	if err != nil {
		return nil, err
	}

	rect := image.Rect(x, y, x+width, y+height).Add(bounds.Min)
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("region %dx%d at (%d, %d) is outside display %d", width, height, x, y, display)
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}
