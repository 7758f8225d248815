package window

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"screenstream/internal/logger"
)

// X11Backend implements the Backend interface using X11
type X11Backend struct {
	conn          *xgb.Conn
	root          xproto.Window
	screen        *xproto.ScreenInfo
	mu            sync.RWMutex
	currentWindow *Info
	stopChan      chan struct{}
	watching      bool
}

// NewX11Backend creates a new X11 backend
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Backend{
		conn:     conn,
		root:     screen.Root,
		screen:   screen,
		stopChan: make(chan struct{}),
	}, nil
}

// Connect establishes connection to X11 (already done in NewX11Backend)
func (b *X11Backend) Connect() error {
	return nil
}

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.StopWatching()
	b.conn.Close()
	return nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// ListWindows returns all visible windows using EWMH _NET_CLIENT_LIST with
// QueryTree fallback
func (b *X11Backend) ListWindows() ([]*Info, error) {
	log := logger.WithComponent("x11-backend")

	windows, err := b.listWindowsEWMH()
	if err == nil && len(windows) > 0 {
		return windows, nil
	}
	if err != nil {
		log.Debug().Err(err).Msg("EWMH window list failed, falling back to QueryTree")
	}

	return b.listWindowsQueryTree()
}

// listWindowsEWMH gets windows from _NET_CLIENT_LIST (EWMH standard)
func (b *X11Backend) listWindowsEWMH() ([]*Info, error) {
	clientListAtom, err := b.getAtom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST atom: %w", err)
	}

	reply, err := xproto.GetProperty(
		b.conn,
		false,
		b.root,
		clientListAtom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}

	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("_NET_CLIENT_LIST is empty")
	}

	// The property is an array of 32-bit window IDs
	windows := make([]*Info, 0)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		winID := xproto.Window(uint32(reply.Value[i]) |
			uint32(reply.Value[i+1])<<8 |
			uint32(reply.Value[i+2])<<16 |
			uint32(reply.Value[i+3])<<24)

		info, err := b.getWindowInfo(winID)
		if err != nil {
			continue
		}

		// Skip windows without titles or class (usually not user windows)
		if info.Title == "" && info.ApplicationName == "" {
			continue
		}

		windows = append(windows, info)
	}

	return windows, nil
}

// listWindowsQueryTree gets windows by querying root window children
func (b *X11Backend) listWindowsQueryTree() ([]*Info, error) {
	tree, err := xproto.QueryTree(b.conn, b.root).Reply()
	if err != nil {
		return nil, err
	}

	windows := make([]*Info, 0)
	for _, child := range tree.Children {
		info, err := b.getWindowInfo(child)
		if err != nil {
			continue
		}

		if info.Title == "" && info.ApplicationName == "" {
			continue
		}

		windows = append(windows, info)
	}

	return windows, nil
}

// GetFocusedWindow returns the currently focused window
func (b *X11Backend) GetFocusedWindow() (*Info, error) {
	focusReply, err := xproto.GetInputFocus(b.conn).Reply()
	if err != nil {
		return nil, err
	}

	return b.getWindowInfo(focusReply.Focus)
}

// WatchFocus starts watching for focus changes
func (b *X11Backend) WatchFocus(callback func(*Info)) error {
	if err := b.beginWatching(); err != nil {
		return err
	}

	const eventMask = xproto.EventMaskPropertyChange | xproto.EventMaskFocusChange
	if err := xproto.ChangeWindowAttributesChecked(
		b.conn,
		b.root,
		xproto.CwEventMask,
		[]uint32{eventMask},
	).Check(); err != nil {
		b.abortWatching()
		return fmt.Errorf("failed to set event mask: %w", err)
	}

	go b.watchFocusLoop(callback)
	return nil
}

// beginWatching claims the watching state, so a failed start can be retried
func (b *X11Backend) beginWatching() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.watching {
		return fmt.Errorf("already watching")
	}
	b.watching = true
	b.stopChan = make(chan struct{})
	return nil
}

// abortWatching releases the watching state before the loop has started
func (b *X11Backend) abortWatching() {
	b.mu.Lock()
	b.watching = false
	b.mu.Unlock()
}

// watchFocusLoop polls for focus changes
func (b *X11Backend) watchFocusLoop(callback func(*Info)) {
	log := logger.WithComponent("x11-backend")
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	if info, err := b.GetFocusedWindow(); err == nil {
		b.mu.Lock()
		b.currentWindow = info
		b.mu.Unlock()
		callback(info)
	}

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			info, err := b.GetFocusedWindow()
			if err != nil {
				log.Debug().Err(err).Msg("Failed to get focused window")
				continue
			}

			b.mu.Lock()
			changed := b.currentWindow == nil ||
				b.currentWindow.ID != info.ID ||
				b.currentWindow.Title != info.Title
			if changed {
				b.currentWindow = info
			}
			b.mu.Unlock()

			if changed {
				callback(info)
			}
		}
	}
}

// StopWatching stops the focus watching loop
func (b *X11Backend) StopWatching() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.watching {
		close(b.stopChan)
		b.watching = false
	}
}

// getWindowInfo retrieves information about a window
func (b *X11Backend) getWindowInfo(win xproto.Window) (*Info, error) {
	info := &Info{
		ID: int32(win),
	}

	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("window 0x%x has no geometry: %w", uint32(win), err)
	}
	info.Width = int32(geom.Width)
	info.Height = int32(geom.Height)

	if titleAtom, err := b.getAtom("_NET_WM_NAME"); err == nil {
		if title, err := b.getProperty(win, titleAtom); err == nil {
			info.Title = title
		}
	}

	if info.Title == "" {
		if titleAtom, err := b.getAtom("WM_NAME"); err == nil {
			if title, err := b.getProperty(win, titleAtom); err == nil {
				info.Title = title
			}
		}
	}

	// WM_CLASS format is instance\0class\0; the class is the application name
	if classAtom, err := b.getAtom("WM_CLASS"); err == nil {
		if classRaw, err := b.getProperty(win, classAtom); err == nil {
			parts := strings.Split(classRaw, "\x00")
			if len(parts) >= 2 && parts[1] != "" {
				info.ApplicationName = parts[1]
			} else if len(parts) >= 1 && parts[0] != "" {
				info.ApplicationName = parts[0]
			}
		}
	}

	if pidAtom, err := b.getAtom("_NET_WM_PID"); err == nil {
		pidReply, err := xproto.GetProperty(
			b.conn,
			false,
			win,
			pidAtom,
			xproto.AtomCardinal,
			0,
			1,
		).Reply()
		if err == nil && len(pidReply.Value) >= 4 {
			info.PID = int32(uint32(pidReply.Value[0]) |
				uint32(pidReply.Value[1])<<8 |
				uint32(pidReply.Value[2])<<16 |
				uint32(pidReply.Value[3])<<24)
		}
	}

	return info, nil
}

// getAtom gets an atom ID by name
func (b *X11Backend) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

// getProperty gets a property value as a string
func (b *X11Backend) getProperty(win xproto.Window, atom xproto.Atom) (string, error) {
	reply, err := xproto.GetProperty(
		b.conn,
		false,
		win,
		atom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return "", err
	}

	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property")
	}

	return string(reply.Value), nil
}
