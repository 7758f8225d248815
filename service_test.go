package screenstream

import (
	"fmt"
	"testing"
	"time"

	"screenstream/internal/stream"
	"screenstream/internal/window"
)

// fakeController records calls and returns canned codes.
type fakeController struct {
	startCode   Code
	stopCode    Code
	statusCode  Code
	started     bool
	stopped     bool
	statsReset  bool
	regionDrops int32
}

func (c *fakeController) Start(stream.Options) stream.Code { c.started = true; return c.startCode }
func (c *fakeController) Stop() stream.Code                { c.stopped = true; return c.stopCode }
func (c *fakeController) Status() stream.Code              { return c.statusCode }
func (c *fakeController) RegionBuffered() int32            { return 3 }
func (c *fakeController) FullScreenBuffered() int32        { return 5 }
func (c *fakeController) RegionDropped() int32             { return c.regionDrops }
func (c *fakeController) FullScreenDropped() int32         { return 2 }
func (c *fakeController) ResetStats()                      { c.statsReset = true }

// fakeEnumerator serves fixed window and application lists.
type fakeEnumerator struct {
	windows []window.Info
	apps    []window.AppInfo
	thumb   []byte
	err     error
}

func (e *fakeEnumerator) Windows() ([]window.Info, error) {
	return e.windows, e.err
}

func (e *fakeEnumerator) Applications() ([]window.AppInfo, error) {
	return e.apps, e.err
}

func (e *fakeEnumerator) Thumbnail(windowID int32) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.thumb, nil
}

type fakePermissions struct {
	granted bool
	checked chan struct{}
}

func (p *fakePermissions) Check() {
	if p.checked != nil {
		close(p.checked)
	}
	p.granted = true
}

func (p *fakePermissions) Granted() bool { return p.granted }

func TestStartCaptureRequiresPermission(t *testing.T) {
	controller := &fakeController{startCode: CodeOK}
	s := newServiceWith(controller, nil, &fakePermissions{granted: false})

	if got := s.StartCapture(StartOptions{}); got != CodePermissionDenied {
		t.Fatalf("StartCapture() = %d, want %d", got, CodePermissionDenied)
	}
	if controller.started {
		t.Error("controller was started despite missing permission")
	}

	s2 := newServiceWith(controller, nil, &fakePermissions{granted: true})
	if got := s2.StartCapture(StartOptions{}); got != CodeOK {
		t.Fatalf("StartCapture() with permission = %d, want %d", got, CodeOK)
	}
	if !controller.started {
		t.Error("controller was not started")
	}
}

func TestCheckCapturePermissionRunsAsync(t *testing.T) {
	perms := &fakePermissions{checked: make(chan struct{})}
	s := newServiceWith(&fakeController{}, nil, perms)

	s.CheckCapturePermission()

	select {
	case <-perms.checked:
	case <-time.After(2 * time.Second):
		t.Fatal("Check() was never invoked")
	}
}

func TestStatsDelegation(t *testing.T) {
	controller := &fakeController{statusCode: CodeRunning, regionDrops: 7}
	s := newServiceWith(controller, nil, &fakePermissions{granted: true})

	if got := s.GetCaptureStatus(); got != CodeRunning {
		t.Errorf("GetCaptureStatus() = %d, want %d", got, CodeRunning)
	}
	if got := s.GetRegionBufferStats(); got != 3 {
		t.Errorf("GetRegionBufferStats() = %d, want 3", got)
	}
	if got := s.GetFullScreenBufferStats(); got != 5 {
		t.Errorf("GetFullScreenBufferStats() = %d, want 5", got)
	}
	if got := s.GetRegionFrameDropStats(); got != 7 {
		t.Errorf("GetRegionFrameDropStats() = %d, want 7", got)
	}
	if got := s.GetFullScreenFrameDropStats(); got != 2 {
		t.Errorf("GetFullScreenFrameDropStats() = %d, want 2", got)
	}

	s.ResetPerformanceStats()
	if !controller.statsReset {
		t.Error("ResetPerformanceStats() did not reach the controller")
	}
}

func TestEnumerationUnavailable(t *testing.T) {
	s := newServiceWith(&fakeController{}, nil, &fakePermissions{})

	if _, err := s.Windows(); err == nil {
		t.Error("Windows() error = nil, want unavailable error")
	}
	if _, err := s.Applications(); err == nil {
		t.Error("Applications() error = nil, want unavailable error")
	}
	if _, err := s.Thumbnail(1); err == nil {
		t.Error("Thumbnail() error = nil, want unavailable error")
	}
}

func TestGetAvailableWindowsCallback(t *testing.T) {
	enum := &fakeEnumerator{
		windows: []window.Info{{ID: 1, Title: "one"}, {ID: 2, Title: "two"}},
	}
	s := newServiceWith(&fakeController{}, enum, &fakePermissions{})

	got := make(chan []WindowInfo, 1)
	s.GetAvailableWindows(func(windows []WindowInfo) { got <- windows })

	select {
	case windows := <-got:
		if len(windows) != 2 {
			t.Errorf("callback received %d windows, want 2", len(windows))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("window list callback was never invoked")
	}
}

func TestGetAvailableApplicationsCallbackOnFailure(t *testing.T) {
	enum := &fakeEnumerator{err: fmt.Errorf("backend gone")}
	s := newServiceWith(&fakeController{}, enum, &fakePermissions{})

	got := make(chan []ApplicationInfo, 1)
	s.GetAvailableApplications(func(apps []ApplicationInfo) { got <- apps })

	select {
	case apps := <-got:
		if apps != nil {
			t.Errorf("callback received %v, want nil on failure", apps)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("application list callback was never invoked")
	}
}

func TestGetWindowThumbnailCallback(t *testing.T) {
	enum := &fakeEnumerator{thumb: []byte{0xff, 0xd8, 0xff}}
	s := newServiceWith(&fakeController{}, enum, &fakePermissions{})

	got := make(chan []byte, 1)
	s.GetWindowThumbnail(42, func(data []byte) { got <- data })

	select {
	case data := <-got:
		if len(data) != 3 {
			t.Errorf("callback received %d bytes, want 3", len(data))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("thumbnail callback was never invoked")
	}
}

func TestDefaultServiceFallbacks(t *testing.T) {
	SetDefault(nil)
	defer SetDefault(nil)

	if got := StartCapture(StartOptions{}); got != CodeBackendFailure {
		t.Errorf("StartCapture() with no default = %d, want %d", got, CodeBackendFailure)
	}
	if got := GetCaptureStatus(); got != CodeIdle {
		t.Errorf("GetCaptureStatus() with no default = %d, want %d", got, CodeIdle)
	}
	if IsCapturePermissionGranted() {
		t.Error("IsCapturePermissionGranted() with no default = true, want false")
	}

	got := make(chan []WindowInfo, 1)
	GetAvailableWindows(func(windows []WindowInfo) { got <- windows })
	select {
	case windows := <-got:
		if windows != nil {
			t.Errorf("callback received %v, want nil with no default", windows)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("window list callback was never invoked")
	}
}
