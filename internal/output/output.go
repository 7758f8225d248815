package output

// Output defines the interface for frame output mechanisms. Frames arrive
// already encoded as JPEG.
type Output interface {
	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// WriteFrame sends an encoded frame to the output
	WriteFrame(data []byte) error

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}
