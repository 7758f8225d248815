package screenstream

import "sync"

// The package-level functions mirror the flat call surface over a shared
// default service, for callers that do not manage a Service themselves.

var (
	defaultMu      sync.RWMutex
	defaultService *Service
)

// SetDefault installs the service the package-level functions operate on
func SetDefault(s *Service) {
	defaultMu.Lock()
	defaultService = s
	defaultMu.Unlock()
}

// Default returns the installed default service, nil when none is set
func Default() *Service {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultService
}

// CheckCapturePermission triggers the permission check/request flow
func CheckCapturePermission() {
	if s := Default(); s != nil {
		s.CheckCapturePermission()
	}
}

// IsCapturePermissionGranted returns whether capture permission holds
func IsCapturePermissionGranted() bool {
	if s := Default(); s != nil {
		return s.IsCapturePermissionGranted()
	}
	return false
}

// StartCapture starts the region and full-screen capture streams
func StartCapture(opts StartOptions) Code {
	if s := Default(); s != nil {
		return s.StartCapture(opts)
	}
	return CodeBackendFailure
}

// StopCapture terminates the active capture streams
func StopCapture() Code {
	if s := Default(); s != nil {
		return s.StopCapture()
	}
	return CodeBackendFailure
}

// GetCaptureStatus returns the current capture state
func GetCaptureStatus() Code {
	if s := Default(); s != nil {
		return s.GetCaptureStatus()
	}
	return CodeIdle
}

// GetRegionBufferStats returns the region stream buffer depth
func GetRegionBufferStats() int32 {
	if s := Default(); s != nil {
		return s.GetRegionBufferStats()
	}
	return 0
}

// GetFullScreenBufferStats returns the full-screen stream buffer depth
func GetFullScreenBufferStats() int32 {
	if s := Default(); s != nil {
		return s.GetFullScreenBufferStats()
	}
	return 0
}

// GetRegionFrameDropStats returns the region stream drop count
func GetRegionFrameDropStats() int32 {
	if s := Default(); s != nil {
		return s.GetRegionFrameDropStats()
	}
	return 0
}

// GetFullScreenFrameDropStats returns the full-screen stream drop count
func GetFullScreenFrameDropStats() int32 {
	if s := Default(); s != nil {
		return s.GetFullScreenFrameDropStats()
	}
	return 0
}

// ResetPerformanceStats resets the performance counters for both streams
func ResetPerformanceStats() {
	if s := Default(); s != nil {
		s.ResetPerformanceStats()
	}
}

// GetAvailableWindows delivers the window list to the callback
func GetAvailableWindows(cb WindowListCallback) {
	if s := Default(); s != nil {
		s.GetAvailableWindows(cb)
		return
	}
	go cb(nil)
}

// GetAvailableApplications delivers the application list to the callback
func GetAvailableApplications(cb ApplicationListCallback) {
	if s := Default(); s != nil {
		s.GetAvailableApplications(cb)
		return
	}
	go cb(nil)
}

// GetWindowThumbnail delivers thumbnail data for a window to the callback
func GetWindowThumbnail(windowID int32, cb ThumbnailCallback) {
	if s := Default(); s != nil {
		s.GetWindowThumbnail(windowID, cb)
		return
	}
	go cb(nil)
}
