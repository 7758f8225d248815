package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"screenstream"
	"screenstream/internal/config"
	"screenstream/internal/window"
)

// fakeService is a canned implementation of the Service interface.
type fakeService struct {
	granted    bool
	checked    bool
	startCode  screenstream.Code
	stopCode   screenstream.Code
	statusCode screenstream.Code
	statsReset bool
	lastStart  screenstream.StartOptions

	windows []screenstream.WindowInfo
	apps    []screenstream.ApplicationInfo
	thumb   []byte
}

func (f *fakeService) CheckCapturePermission()          { f.checked = true }
func (f *fakeService) IsCapturePermissionGranted() bool { return f.granted }

func (f *fakeService) StartCapture(opts screenstream.StartOptions) screenstream.Code {
	f.lastStart = opts
	return f.startCode
}

func (f *fakeService) StopCapture() screenstream.Code      { return f.stopCode }
func (f *fakeService) GetCaptureStatus() screenstream.Code { return f.statusCode }
func (f *fakeService) GetRegionBufferStats() int32         { return 1 }
func (f *fakeService) GetFullScreenBufferStats() int32     { return 2 }
func (f *fakeService) GetRegionFrameDropStats() int32      { return 3 }
func (f *fakeService) GetFullScreenFrameDropStats() int32  { return 4 }
func (f *fakeService) ResetPerformanceStats()              { f.statsReset = true }

func (f *fakeService) Windows() ([]screenstream.WindowInfo, error) {
	return f.windows, nil
}

func (f *fakeService) Applications() ([]screenstream.ApplicationInfo, error) {
	return f.apps, nil
}

func (f *fakeService) Thumbnail(windowID int32) ([]byte, error) {
	return f.thumb, nil
}

func (f *fakeService) WindowManager() *window.Manager { return nil }

func newTestServer(t *testing.T, svc *fakeService) *httptest.Server {
	t.Helper()
	cfgMgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("config manager: %v", err)
	}
	return httptest.NewServer(NewServer(svc, cfgMgr).Handler())
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s response: %v", url, err)
		}
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeService{})
	defer ts.Close()

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/health", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want %q", body["status"], "healthy")
	}
}

func TestCaptureStartEndpoint(t *testing.T) {
	svc := &fakeService{startCode: screenstream.CodeOK}
	ts := newTestServer(t, svc)
	defer ts.Close()

	req := map[string]int{
		"display": 0, "x": 10, "y": 20, "width": 640, "height": 480,
		"region_frame_rate": 30, "full_screen_frame_rate": 15,
	}
	payload, _ := json.Marshal(req)

	resp, err := http.Post(ts.URL+"/api/capture/start", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body codeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != screenstream.CodeOK {
		t.Errorf("code = %d, want %d", body.Code, screenstream.CodeOK)
	}

	if svc.lastStart.Width != 640 || svc.lastStart.Height != 480 {
		t.Errorf("start region = %dx%d, want 640x480", svc.lastStart.Width, svc.lastStart.Height)
	}
	if svc.lastStart.RegionFrameRate != 30 {
		t.Errorf("region frame rate = %d, want 30", svc.lastStart.RegionFrameRate)
	}
	if svc.lastStart.OnRegionFrame == nil || svc.lastStart.OnFullScreenFrame == nil {
		t.Error("frame handlers were not wired into the start options")
	}
}

func TestCaptureStartDefaultRates(t *testing.T) {
	svc := &fakeService{startCode: screenstream.CodeOK}
	ts := newTestServer(t, svc)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/capture/start", "application/json",
		bytes.NewReader([]byte(`{"width":640,"height":480}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.lastStart.RegionFrameRate != 15 {
		t.Errorf("region frame rate = %d, want configured default 15", svc.lastStart.RegionFrameRate)
	}
	if svc.lastStart.FullScreenFrameRate != 10 {
		t.Errorf("full-screen frame rate = %d, want configured default 10", svc.lastStart.FullScreenFrameRate)
	}
}

func TestCaptureStartRejected(t *testing.T) {
	svc := &fakeService{startCode: screenstream.CodeAlreadyRunning}
	ts := newTestServer(t, svc)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/capture/start", "application/json",
		bytes.NewReader([]byte(`{"width":640,"height":480,"region_frame_rate":30,"full_screen_frame_rate":15}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}

	var body codeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != screenstream.CodeAlreadyRunning {
		t.Errorf("code = %d, want %d", body.Code, screenstream.CodeAlreadyRunning)
	}
}

func TestCaptureStatusEndpoint(t *testing.T) {
	svc := &fakeService{statusCode: screenstream.CodeRunning}
	ts := newTestServer(t, svc)
	defer ts.Close()

	var body codeResponse
	getJSON(t, ts.URL+"/api/capture/status", &body)
	if body.Code != screenstream.CodeRunning {
		t.Errorf("code = %d, want %d", body.Code, screenstream.CodeRunning)
	}
}

func TestStatsEndpoints(t *testing.T) {
	svc := &fakeService{}
	ts := newTestServer(t, svc)
	defer ts.Close()

	var stats map[string]int32
	getJSON(t, ts.URL+"/api/stats", &stats)

	want := map[string]int32{
		"region_buffered":     1,
		"fullscreen_buffered": 2,
		"region_dropped":      3,
		"fullscreen_dropped":  4,
	}
	for key, val := range want {
		if stats[key] != val {
			t.Errorf("stats[%q] = %d, want %d", key, stats[key], val)
		}
	}

	resp, err := http.Post(ts.URL+"/api/stats/reset", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if !svc.statsReset {
		t.Error("stats reset did not reach the service")
	}
}

func TestPermissionEndpoints(t *testing.T) {
	svc := &fakeService{granted: true}
	ts := newTestServer(t, svc)
	defer ts.Close()

	var body map[string]bool
	getJSON(t, ts.URL+"/api/permission", &body)
	if !body["granted"] {
		t.Error("granted = false, want true")
	}

	resp, err := http.Post(ts.URL+"/api/permission/check", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if !svc.checked {
		t.Error("permission check did not reach the service")
	}
}

func TestWindowsEndpoint(t *testing.T) {
	svc := &fakeService{
		windows: []screenstream.WindowInfo{
			{ID: 11, PID: 100, Title: "Editor", Width: 800, Height: 600},
		},
	}
	ts := newTestServer(t, svc)
	defer ts.Close()

	var windows []screenstream.WindowInfo
	getJSON(t, ts.URL+"/api/windows", &windows)
	if len(windows) != 1 || windows[0].Title != "Editor" {
		t.Errorf("unexpected window list: %+v", windows)
	}
}

func TestApplicationsEndpoint(t *testing.T) {
	svc := &fakeService{
		apps: []screenstream.ApplicationInfo{
			{PID: 100, Name: "editor", BundleIdentifier: "x11.editor"},
		},
	}
	ts := newTestServer(t, svc)
	defer ts.Close()

	var apps []screenstream.ApplicationInfo
	getJSON(t, ts.URL+"/api/applications", &apps)
	if len(apps) != 1 || apps[0].BundleIdentifier != "x11.editor" {
		t.Errorf("unexpected application list: %+v", apps)
	}
}

func TestThumbnailEndpoint(t *testing.T) {
	svc := &fakeService{thumb: []byte{0xff, 0xd8, 0xff, 0xd9}}
	ts := newTestServer(t, svc)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/windows/11/thumbnail")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}

	resp2, err := http.Get(ts.URL + "/api/windows/notanid/thumbnail")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("status for bad id = %d, want 400", resp2.StatusCode)
	}
}

func TestCurrentWindowUnavailable(t *testing.T) {
	ts := newTestServer(t, &fakeService{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/window/current")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	ts := newTestServer(t, &fakeService{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", origin)
	}
}
