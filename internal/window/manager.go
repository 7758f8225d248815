package window

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sort"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/image/draw"

	"screenstream/internal/capture"
	"screenstream/internal/config"
	"screenstream/internal/logger"
)

// Manager handles window and application enumeration plus thumbnail
// generation. It fans out focus change events to subscribers.
type Manager struct {
	backend     Backend
	thumbnailer capture.WindowCapturer
	thumbCfg    config.ThumbnailConfig

	mu        sync.RWMutex
	listeners []chan *Info
}

// NewManager creates a new window manager
func NewManager(backend Backend, thumbnailer capture.WindowCapturer, thumbCfg config.ThumbnailConfig) *Manager {
	return &Manager{
		backend:     backend,
		thumbnailer: thumbnailer,
		thumbCfg:    thumbCfg,
	}
}

// Start connects the backend and begins focus monitoring
func (m *Manager) Start() error {
	if err := m.backend.Connect(); err != nil {
		return fmt.Errorf("failed to connect window backend: %w", err)
	}
	if err := m.backend.WatchFocus(m.notifyListeners); err != nil {
		return fmt.Errorf("failed to watch focus: %w", err)
	}
	return nil
}

// Stop stops the window manager
func (m *Manager) Stop() {
	m.backend.StopWatching()
	m.backend.Close()

	m.mu.Lock()
	for _, ch := range m.listeners {
		close(ch)
	}
	m.listeners = nil
	m.mu.Unlock()
}

// Windows returns all enumerable windows
func (m *Manager) Windows() ([]Info, error) {
	infos, err := m.backend.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	windows := make([]Info, 0, len(infos))
	for _, info := range infos {
		windows = append(windows, *info)
	}
	return windows, nil
}

// Applications returns the applications owning at least one enumerable
// window, one entry per process
func (m *Manager) Applications() ([]AppInfo, error) {
	infos, err := m.backend.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	appMap := make(map[int32]*AppInfo)
	for _, win := range infos {
		if win.PID <= 0 {
			continue
		}
		if _, exists := appMap[win.PID]; exists {
			continue
		}

		name := win.ApplicationName
		if procName := processName(win.PID); procName != "" {
			name = procName
		}
		if name == "" {
			continue
		}

		appMap[win.PID] = &AppInfo{
			PID:              win.PID,
			Name:             name,
			BundleIdentifier: bundleIdentifier(name),
		}
	}

	apps := make([]AppInfo, 0, len(appMap))
	for _, app := range appMap {
		apps = append(apps, *app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].PID < apps[j].PID })

	return apps, nil
}

// processName resolves a PID to its process name, empty when unresolvable
func processName(pid int32) string {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return name
}

// bundleIdentifier synthesizes a reversed-DNS identifier from a process
// name. X11 has no native bundle identifiers.
func bundleIdentifier(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == '.', r == '-':
			return r
		default:
			return '-'
		}
	}, name)
	return "x11." + sanitized
}

// Thumbnail captures a window and returns a JPEG scaled down to the
// configured maximum edge
func (m *Manager) Thumbnail(windowID int32) ([]byte, error) {
	if m.thumbnailer == nil {
		return nil, fmt.Errorf("no window capturer available")
	}

	img, err := m.thumbnailer.CaptureWindow(uint32(windowID))
	if err != nil {
		return nil, fmt.Errorf("failed to capture window 0x%x: %w", uint32(windowID), err)
	}

	scaled := scaleToFit(img, m.thumbCfg.MaxEdge)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, scaled, &jpeg.Options{Quality: m.thumbCfg.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	logger.WithComponent("window").Debug().
		Int32("window_id", windowID).
		Int("bytes", buf.Len()).
		Msg("Thumbnail generated")

	return buf.Bytes(), nil
}

// scaleToFit downscales img so its longest edge is at most maxEdge.
// Images already within bounds are returned unchanged.
func scaleToFit(img *image.RGBA, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}

	var dw, dh int
	if w >= h {
		dw = maxEdge
		dh = h * maxEdge / w
	} else {
		dh = maxEdge
		dw = w * maxEdge / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// CurrentWindow returns the currently focused window
func (m *Manager) CurrentWindow() (*Info, error) {
	return m.backend.GetFocusedWindow()
}

// Subscribe adds a listener for focus changes
func (m *Manager) Subscribe() chan *Info {
	ch := make(chan *Info, 10)
	m.mu.Lock()
	m.listeners = append(m.listeners, ch)
	m.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener
func (m *Manager) Unsubscribe(ch chan *Info) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, listener := range m.listeners {
		if listener == ch {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// notifyListeners fans a focus change out to all subscribers
func (m *Manager) notifyListeners(info *Info) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, listener := range m.listeners {
		select {
		case listener <- info:
		default:
			// Skip if channel is full
		}
	}
}
