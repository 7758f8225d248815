package window

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"screenstream/internal/config"
)

// fakeBackend serves a fixed window list.
type fakeBackend struct {
	windows []*Info
	focused *Info
	err     error
}

func (b *fakeBackend) Connect() error                   { return nil }
func (b *fakeBackend) Close() error                     { return nil }
func (b *fakeBackend) ListWindows() ([]*Info, error)    { return b.windows, b.err }
func (b *fakeBackend) GetFocusedWindow() (*Info, error) { return b.focused, nil }
func (b *fakeBackend) WatchFocus(cb func(*Info)) error  { return nil }
func (b *fakeBackend) StopWatching()                    {}
func (b *fakeBackend) Name() string                     { return "fake" }

// fakeCapturer returns a fixed-size image for any window.
type fakeCapturer struct {
	width, height int
	err           error
}

func (c *fakeCapturer) CaptureWindow(windowID uint32) (*image.RGBA, error) {
	if c.err != nil {
		return nil, c.err
	}
	return image.NewRGBA(image.Rect(0, 0, c.width, c.height)), nil
}

func testThumbConfig() config.ThumbnailConfig {
	return config.ThumbnailConfig{MaxEdge: 64, JPEGQuality: 75}
}

func TestWindows(t *testing.T) {
	backend := &fakeBackend{
		windows: []*Info{
			{ID: 1, PID: 99999901, Title: "Editor", ApplicationName: "editor", Width: 800, Height: 600},
			{ID: 2, PID: 99999902, Title: "Terminal", ApplicationName: "term", Width: 640, Height: 480},
		},
	}
	m := NewManager(backend, nil, testThumbConfig())

	windows, err := m.Windows()
	if err != nil {
		t.Fatalf("Windows() error: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("Windows() returned %d entries, want 2", len(windows))
	}
	if windows[0].Title != "Editor" || windows[1].Title != "Terminal" {
		t.Errorf("unexpected window titles: %q, %q", windows[0].Title, windows[1].Title)
	}
}

func TestApplicationsGroupsByPID(t *testing.T) {
	// PIDs chosen so no live process matches and the window class is used
	backend := &fakeBackend{
		windows: []*Info{
			{ID: 1, PID: 99999902, Title: "Editor", ApplicationName: "editor"},
			{ID: 2, PID: 99999902, Title: "Editor - scratch", ApplicationName: "editor"},
			{ID: 3, PID: 99999901, Title: "Terminal", ApplicationName: "term"},
			{ID: 4, PID: 0, Title: "no owner", ApplicationName: "ghost"},
			{ID: 5, PID: 99999903, Title: "unnamed", ApplicationName: ""},
		},
	}
	m := NewManager(backend, nil, testThumbConfig())

	apps, err := m.Applications()
	if err != nil {
		t.Fatalf("Applications() error: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("Applications() returned %d entries, want 2", len(apps))
	}

	// sorted by PID
	if apps[0].PID != 99999901 || apps[1].PID != 99999902 {
		t.Errorf("unexpected PID order: %d, %d", apps[0].PID, apps[1].PID)
	}
	if apps[0].Name != "term" {
		t.Errorf("apps[0].Name = %q, want %q", apps[0].Name, "term")
	}
	if apps[1].BundleIdentifier != "x11.editor" {
		t.Errorf("apps[1].BundleIdentifier = %q, want %q", apps[1].BundleIdentifier, "x11.editor")
	}
}

func TestBundleIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"firefox", "x11.firefox"},
		{"Code", "x11.code"},
		{"My App 2", "x11.my-app-2"},
		{"gnome-terminal", "x11.gnome-terminal"},
		{"org.gnome.Maps", "x11.org.gnome.maps"},
	}

	for _, tt := range tests {
		if got := bundleIdentifier(tt.name); got != tt.want {
			t.Errorf("bundleIdentifier(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestThumbnailScalesDown(t *testing.T) {
	m := NewManager(&fakeBackend{}, &fakeCapturer{width: 800, height: 600}, testThumbConfig())

	data, err := m.Thumbnail(42)
	if err != nil {
		t.Fatalf("Thumbnail() error: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Thumbnail() did not return a valid JPEG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 48 {
		t.Errorf("thumbnail size = %dx%d, want 64x48", bounds.Dx(), bounds.Dy())
	}
}

func TestThumbnailSmallWindowKeptAsIs(t *testing.T) {
	m := NewManager(&fakeBackend{}, &fakeCapturer{width: 32, height: 20}, testThumbConfig())

	data, err := m.Thumbnail(42)
	if err != nil {
		t.Fatalf("Thumbnail() error: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Thumbnail() did not return a valid JPEG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 32 || bounds.Dy() != 20 {
		t.Errorf("thumbnail size = %dx%d, want 32x20", bounds.Dx(), bounds.Dy())
	}
}

func TestThumbnailWithoutCapturer(t *testing.T) {
	m := NewManager(&fakeBackend{}, nil, testThumbConfig())

	if _, err := m.Thumbnail(42); err == nil {
		t.Fatal("Thumbnail() error = nil, want unavailable error")
	}
}

func TestThumbnailCaptureFailure(t *testing.T) {
	m := NewManager(&fakeBackend{}, &fakeCapturer{err: fmt.Errorf("no such window")}, testThumbConfig())

	if _, err := m.Thumbnail(42); err == nil {
		t.Fatal("Thumbnail() error = nil, want capture error")
	}
}

func TestSubscribeNotifyUnsubscribe(t *testing.T) {
	m := NewManager(&fakeBackend{}, nil, testThumbConfig())

	ch := m.Subscribe()
	m.notifyListeners(&Info{ID: 7, Title: "focused"})

	select {
	case info := <-ch:
		if info.ID != 7 {
			t.Errorf("received window ID %d, want 7", info.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no focus notification received")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}
}
