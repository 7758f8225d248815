package stream

import (
	"fmt"
	"image"
	"sync"

	"screenstream/internal/config"
	"screenstream/internal/logger"
)

const maxFrameRate = 240

// Grabber is the capture backend the controller pulls frames from.
type Grabber interface {
	CaptureDisplay(display int) (*image.RGBA, error)
	CaptureRegion(display, x, y, width, height int) (*image.RGBA, error)
	NumDisplays() int
}

// Options configures a capture start request. Both streams always start
// together; each has its own frame rate and handlers.
type Options struct {
	Display int
	X       int
	Y       int
	Width   int
	Height  int

	RegionFrameRate     int
	FullScreenFrameRate int

	OnRegionFrame     FrameHandler
	OnFullScreenFrame FrameHandler

	OnRegionStopped     StopHandler
	OnFullScreenStopped StopHandler
}

// Controller drives the region and full-screen capture streams and keeps
// their buffer and drop statistics.
type Controller struct {
	grabber          Grabber
	quality          int
	queueSize        int
	failureThreshold int

	mu         sync.Mutex
	region     *worker
	fullScreen *worker
	running    bool
	deadCount  int
}

// NewController creates a capture stream controller
func NewController(grabber Grabber, cfg config.CaptureConfig) *Controller {
	return &Controller{
		grabber:          grabber,
		quality:          cfg.JPEGQuality,
		queueSize:        cfg.QueueSize,
		failureThreshold: cfg.FailureThreshold,
	}
}

// Start begins the region and full-screen capture streams. It returns
// CodeOK on success and an error code otherwise; no goroutine is started
// unless CodeOK is returned.
func (c *Controller) Start(opts Options) Code {
	if opts.Width <= 0 || opts.Height <= 0 {
		return CodeInvalidRegion
	}
	if opts.RegionFrameRate <= 0 || opts.RegionFrameRate > maxFrameRate ||
		opts.FullScreenFrameRate <= 0 || opts.FullScreenFrameRate > maxFrameRate {
		return CodeInvalidRate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return CodeAlreadyRunning
	}
	if c.grabber.NumDisplays() == 0 {
		return CodeNoDisplay
	}
	if opts.Display < 0 || opts.Display >= c.grabber.NumDisplays() {
		return CodeNoDisplay
	}

	display := opts.Display
	x, y, width, height := opts.X, opts.Y, opts.Width, opts.Height

	c.deadCount = 0
	c.region = newWorker("region",
		opts.RegionFrameRate, c.quality, c.queueSize, c.failureThreshold,
		func() (*image.RGBA, error) {
			return c.grabber.CaptureRegion(display, x, y, width, height)
		},
		opts.OnRegionFrame, opts.OnRegionStopped, c.workerExited)
	c.fullScreen = newWorker("fullscreen",
		opts.FullScreenFrameRate, c.quality, c.queueSize, c.failureThreshold,
		func() (*image.RGBA, error) {
			return c.grabber.CaptureDisplay(display)
		},
		opts.OnFullScreenFrame, opts.OnFullScreenStopped, c.workerExited)

	c.region.start()
	c.fullScreen.start()
	c.running = true

	logger.WithComponent("stream").Info().
		Int("display", display).
		Str("region", fmt.Sprintf("%dx%d at (%d, %d)", width, height, x, y)).
		Int("region_fps", opts.RegionFrameRate).
		Int("full_screen_fps", opts.FullScreenFrameRate).
		Msg("Capture started")

	return CodeOK
}

// workerExited is invoked from a worker's delivery goroutine after it
// terminates abnormally. Clean stops are handled by Stop itself.
func (c *Controller) workerExited(err *Error) {
	if err == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.deadCount++
	if c.deadCount >= 2 && c.running {
		c.running = false
		logger.WithComponent("stream").Warn().Msg("All capture streams terminated, capture is idle")
	}
}

// Stop terminates both capture streams and waits for their delivery
// goroutines to drain. Stop handlers are invoked with a nil error.
func (c *Controller) Stop() Code {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return CodeNotRunning
	}
	region := c.region
	fullScreen := c.fullScreen
	c.running = false
	c.mu.Unlock()

	region.stop()
	fullScreen.stop()

	logger.WithComponent("stream").Info().Msg("Capture stopped")
	return CodeOK
}

// Status reports whether capture is currently running
func (c *Controller) Status() Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return CodeRunning
	}
	return CodeIdle
}

// RegionBuffered returns the number of frames queued for the region stream
func (c *Controller) RegionBuffered() int32 {
	if w := c.regionWorker(); w != nil {
		return w.buffered()
	}
	return 0
}

// FullScreenBuffered returns the number of frames queued for the
// full-screen stream
func (c *Controller) FullScreenBuffered() int32 {
	if w := c.fullScreenWorker(); w != nil {
		return w.buffered()
	}
	return 0
}

// RegionDropped returns the cumulative drop count for the region stream
func (c *Controller) RegionDropped() int32 {
	if w := c.regionWorker(); w != nil {
		return w.droppedCount()
	}
	return 0
}

// FullScreenDropped returns the cumulative drop count for the full-screen
// stream
func (c *Controller) FullScreenDropped() int32 {
	if w := c.fullScreenWorker(); w != nil {
		return w.droppedCount()
	}
	return 0
}

// ResetStats zeroes the drop counters for both streams. Buffer counts are
// live gauges and fall back to zero as the queues drain.
func (c *Controller) ResetStats() {
	if w := c.regionWorker(); w != nil {
		w.resetDropped()
	}
	if w := c.fullScreenWorker(); w != nil {
		w.resetDropped()
	}
}

func (c *Controller) regionWorker() *worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region
}

func (c *Controller) fullScreenWorker() *worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fullScreen
}
