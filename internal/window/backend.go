package window

// Info describes an enumerable window
type Info struct {
	ID              int32  `json:"id"`
	PID             int32  `json:"pid"`
	Title           string `json:"title"`
	ApplicationName string `json:"application_name"`
	Width           int32  `json:"width"`
	Height          int32  `json:"height"`
}

// AppInfo describes a running application that owns at least one window
type AppInfo struct {
	PID              int32  `json:"pid"`
	Name             string `json:"name"`
	BundleIdentifier string `json:"bundle_identifier"`
}

// Backend defines the interface for window discovery backends
type Backend interface {
	// Connect establishes connection to the display server
	Connect() error

	// Close closes the connection to the display server
	Close() error

	// ListWindows returns all visible application windows
	ListWindows() ([]*Info, error)

	// GetFocusedWindow returns the currently focused window
	GetFocusedWindow() (*Info, error)

	// WatchFocus starts watching for focus changes and calls the callback
	// when the focused window changes
	WatchFocus(callback func(*Info)) error

	// StopWatching stops the focus watching loop
	StopWatching()

	// Name returns the backend name
	Name() string
}
