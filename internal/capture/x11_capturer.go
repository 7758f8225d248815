package capture

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"

	"screenstream/internal/logger"
)

// X11Capturer captures window drawables and root-window regions over X11.
// It exists alongside the screenshot capturer because per-window capture
// (thumbnails) needs direct drawable access.
type X11Capturer struct {
	conn             *xgb.Conn
	root             xproto.Window
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	mu               sync.Mutex
}

// NewX11Capturer creates a new X11 capturer
func NewX11Capturer() (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Capturer{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}, nil
}

// Start initializes the X11 capturer
func (c *X11Capturer) Start() error {
	log := logger.WithComponent("x11-capturer")

	// Composite lets us grab obscured windows via their backing pixmap
	if err := composite.Init(c.conn); err != nil {
		log.Warn().
			Err(err).
			Msg("Composite extension not available - thumbnails of obscured windows may fail")
		c.compositeEnabled = false
	} else {
		c.compositeEnabled = true
		log.Info().Msg("Composite extension initialized")
	}

	return nil
}

// Stop closes the X11 connection
func (c *X11Capturer) Stop() error {
	c.conn.Close()
	return nil
}

// Name returns the capturer name
func (c *X11Capturer) Name() string {
	return "x11"
}

// IsAvailable checks if X11 capture is available
func (c *X11Capturer) IsAvailable() bool {
	return c.conn != nil
}

// CaptureDisplay captures the root window. X11 exposes a single virtual
// screen, so the display index is ignored beyond validation.
func (c *X11Capturer) CaptureDisplay(display int) (*image.RGBA, error) {
	if display != 0 {
		return nil, fmt.Errorf("display %d: %w", display, ErrNoDisplay)
	}
	return c.CaptureRegion(0, 0, 0, int(c.screen.WidthInPixels), int(c.screen.HeightInPixels))
}

// CaptureRegion captures a region of the root window
func (c *X11Capturer) CaptureRegion(display, x, y, width, height int) (*image.RGBA, error) {
	if display != 0 {
		return nil, fmt.Errorf("display %d: %w", display, ErrNoDisplay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(c.root),
		int16(x), int16(y),
		uint16(width), uint16(height),
		0xffffffff,
	).Reply()

	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return c.convertImageData(reply.Data, width, height), nil
}

// CaptureWindow captures the contents of a single window by its X11 ID
func (c *X11Capturer) CaptureWindow(windowID uint32) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	win := xproto.Window(windowID)
	log := logger.WithComponent("x11-capturer")

	attrs, err := xproto.GetWindowAttributes(c.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("window 0x%x: %w", windowID, ErrWindowNotFound)
	}

	// An unmapped or input-only window has no pixels of its own; look for a
	// mapped child instead
	if attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
		log.Debug().
			Uint32("window_id", windowID).
			Msg("Window not directly capturable, searching for child windows")

		childWin, err := c.findCapturableChild(win)
		if err != nil {
			return nil, fmt.Errorf("no capturable window found for 0x%x: %w", windowID, err)
		}
		win = childWin
	}

	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	log.Debug().
		Uint32("window_id", uint32(win)).
		Uint16("width", geom.Width).
		Uint16("height", geom.Height).
		Msg("Capturing window")

	return c.captureWindowDrawable(win, geom)
}

// findCapturableChild recursively searches for a viewable child window
func (c *X11Capturer) findCapturableChild(parent xproto.Window) (xproto.Window, error) {
	tree, err := xproto.QueryTree(c.conn, parent).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to query tree: %w", err)
	}

	for _, child := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(c.conn, child).Reply()
		if err != nil {
			continue
		}

		geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(child)).Reply()
		if err != nil {
			continue
		}

		if attrs.Class == xproto.WindowClassInputOutput && attrs.MapState == xproto.MapStateViewable {
			if geom.Width > 10 && geom.Height > 10 {
				return child, nil
			}
		}

		if grandchild, err := c.findCapturableChild(child); err == nil {
			return grandchild, nil
		}
	}

	return 0, fmt.Errorf("no capturable child found")
}

// captureWindowDrawable grabs a window's pixels, through a Composite backing
// pixmap when the extension is available
func (c *X11Capturer) captureWindowDrawable(win xproto.Window, geom *xproto.GetGeometryReply) (*image.RGBA, error) {
	var drawable xproto.Drawable
	log := logger.WithComponent("x11-capturer")

	if c.compositeEnabled {
		err := composite.RedirectWindowChecked(c.conn, win, composite.RedirectAutomatic).Check()
		if err != nil {
			log.Warn().
				Err(err).
				Uint32("window_id", uint32(win)).
				Msg("Failed to redirect window via Composite, falling back to direct capture")
			drawable = xproto.Drawable(win)
		} else {
			defer composite.UnredirectWindow(c.conn, win, composite.RedirectAutomatic)

			pixmap, err := xproto.NewPixmapId(c.conn)
			if err != nil {
				drawable = xproto.Drawable(win)
			} else if err := composite.NameWindowPixmapChecked(c.conn, win, pixmap).Check(); err != nil {
				drawable = xproto.Drawable(win)
			} else {
				drawable = xproto.Drawable(pixmap)
				defer xproto.FreePixmap(c.conn, pixmap)
			}
		}
	} else {
		drawable = xproto.Drawable(win)
	}

	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()

	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return c.convertImageData(reply.Data, int(geom.Width), int(geom.Height)), nil
}

// convertImageData converts X11 ZPixmap data to RGBA
func (c *X11Capturer) convertImageData(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	depth := int(c.screen.RootDepth)

	if depth == 24 || depth == 32 {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := (y*width + x) * 4
				if i+3 < len(data) {
					// BGRA to RGBA
					img.Set(x, y, color.RGBA{
						R: data[i+2],
						G: data[i+1],
						B: data[i],
						A: 255,
					})
				}
			}
		}
	}

	return img
}

// Connection returns the X11 connection for sharing with the window backend
func (c *X11Capturer) Connection() *xgb.Conn {
	return c.conn
}

// Root returns the root window
func (c *X11Capturer) Root() xproto.Window {
	return c.root
}
