package screenstream

import (
	"fmt"
	"sync"

	"screenstream/internal/capture"
	"screenstream/internal/config"
	"screenstream/internal/logger"
	"screenstream/internal/permission"
	"screenstream/internal/stream"
	"screenstream/internal/window"
)

// captureController is what the service needs from the stream controller.
type captureController interface {
	Start(stream.Options) stream.Code
	Stop() stream.Code
	Status() stream.Code
	RegionBuffered() int32
	FullScreenBuffered() int32
	RegionDropped() int32
	FullScreenDropped() int32
	ResetStats()
}

// enumerator is what the service needs from the window manager.
type enumerator interface {
	Windows() ([]window.Info, error)
	Applications() ([]window.AppInfo, error)
	Thumbnail(windowID int32) ([]byte, error)
}

// permissions is what the service needs from the permission manager.
type permissions interface {
	Check()
	Granted() bool
}

// Service binds the capture, enumeration and permission surfaces together.
type Service struct {
	router      *capture.Router
	controller  captureController
	windows     enumerator
	windowMgr   *window.Manager
	permissions permissions

	closeOnce sync.Once
}

// NewService wires up the capture backends, stream controller, window
// manager and permission manager from the given configuration.
func NewService(cfgMgr *config.Manager) (*Service, error) {
	cfg := cfgMgr.Get()

	router := capture.NewRouter()
	if err := router.Start(); err != nil {
		return nil, fmt.Errorf("failed to start capture router: %w", err)
	}

	controller := stream.NewController(router, cfg.Capture)

	backend, err := window.NewX11Backend()
	if err != nil {
		logger.WithComponent("service").Warn().
			Err(err).
			Msg("Window backend unavailable, enumeration disabled")
	}

	var windowMgr *window.Manager
	if backend != nil {
		windowMgr = window.NewManager(backend, router.WindowCapturer(), cfg.Thumbnail)
		if err := windowMgr.Start(); err != nil {
			logger.WithComponent("service").Warn().
				Err(err).
				Msg("Failed to start window manager")
		}
	}

	display := cfg.Capture.Display
	perms := permission.NewManager(func() error {
		_, err := router.CaptureRegion(display, 0, 0, 1, 1)
		return err
	})

	s := &Service{
		router:      router,
		controller:  controller,
		permissions: perms,
		windowMgr:   windowMgr,
	}
	if windowMgr != nil {
		s.windows = windowMgr
	}
	return s, nil
}

// newServiceWith wires a service from explicit components, for tests.
func newServiceWith(controller captureController, windows enumerator, perms permissions) *Service {
	return &Service{
		controller:  controller,
		windows:     windows,
		permissions: perms,
	}
}

// Close releases backends and stops any running capture
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		if s.controller != nil {
			s.controller.Stop()
		}
		if s.windowMgr != nil {
			s.windowMgr.Stop()
		}
		if s.router != nil {
			s.router.Stop()
		}
	})
	return nil
}

// WindowManager returns the underlying window manager, nil when
// enumeration is unavailable
func (s *Service) WindowManager() *window.Manager {
	return s.windowMgr
}

// CheckCapturePermission triggers the permission check/request flow. The
// flow runs asynchronously; it may raise a desktop permission dialog.
func (s *Service) CheckCapturePermission() {
	go s.permissions.Check()
}

// IsCapturePermissionGranted returns whether capture permission currently
// holds
func (s *Service) IsCapturePermissionGranted() bool {
	return s.permissions.Granted()
}

// StartCapture starts the region and full-screen capture streams. Capture
// permission must already be granted.
func (s *Service) StartCapture(opts StartOptions) Code {
	if !s.permissions.Granted() {
		return CodePermissionDenied
	}
	return s.controller.Start(opts)
}

// StopCapture terminates the active capture streams
func (s *Service) StopCapture() Code {
	return s.controller.Stop()
}

// GetCaptureStatus returns the current capture state
func (s *Service) GetCaptureStatus() Code {
	return s.controller.Status()
}

// GetRegionBufferStats returns the number of frames queued for the region
// stream
func (s *Service) GetRegionBufferStats() int32 {
	return s.controller.RegionBuffered()
}

// GetFullScreenBufferStats returns the number of frames queued for the
// full-screen stream
func (s *Service) GetFullScreenBufferStats() int32 {
	return s.controller.FullScreenBuffered()
}

// GetRegionFrameDropStats returns the cumulative region stream drop count
func (s *Service) GetRegionFrameDropStats() int32 {
	return s.controller.RegionDropped()
}

// GetFullScreenFrameDropStats returns the cumulative full-screen stream
// drop count
func (s *Service) GetFullScreenFrameDropStats() int32 {
	return s.controller.FullScreenDropped()
}

// ResetPerformanceStats resets the performance counters for both streams
func (s *Service) ResetPerformanceStats() {
	s.controller.ResetStats()
}

// Windows synchronously enumerates capturable windows
func (s *Service) Windows() ([]WindowInfo, error) {
	if s.windows == nil {
		return nil, fmt.Errorf("window enumeration unavailable")
	}
	return s.windows.Windows()
}

// Applications synchronously enumerates running applications that own
// windows
func (s *Service) Applications() ([]ApplicationInfo, error) {
	if s.windows == nil {
		return nil, fmt.Errorf("application enumeration unavailable")
	}
	return s.windows.Applications()
}

// Thumbnail synchronously captures a window thumbnail as JPEG bytes
func (s *Service) Thumbnail(windowID int32) ([]byte, error) {
	if s.windows == nil {
		return nil, fmt.Errorf("window capture unavailable")
	}
	return s.windows.Thumbnail(windowID)
}

// GetAvailableWindows delivers the window list to the callback from a
// separate goroutine. The callback receives nil on enumeration failure.
func (s *Service) GetAvailableWindows(cb WindowListCallback) {
	go func() {
		windows, err := s.Windows()
		if err != nil {
			logger.WithComponent("service").Error().Err(err).Msg("Window enumeration failed")
			cb(nil)
			return
		}
		cb(windows)
	}()
}

// GetAvailableApplications delivers the application list to the callback
// from a separate goroutine. The callback receives nil on enumeration
// failure.
func (s *Service) GetAvailableApplications(cb ApplicationListCallback) {
	go func() {
		apps, err := s.Applications()
		if err != nil {
			logger.WithComponent("service").Error().Err(err).Msg("Application enumeration failed")
			cb(nil)
			return
		}
		cb(apps)
	}()
}

// GetWindowThumbnail delivers thumbnail JPEG data for a window to the
// callback from a separate goroutine. The callback receives nil when the
// window cannot be captured.
func (s *Service) GetWindowThumbnail(windowID int32, cb ThumbnailCallback) {
	go func() {
		data, err := s.Thumbnail(windowID)
		if err != nil {
			logger.WithComponent("service").Error().
				Err(err).
				Int32("window_id", windowID).
				Msg("Thumbnail capture failed")
			cb(nil)
			return
		}
		cb(data)
	}()
}
