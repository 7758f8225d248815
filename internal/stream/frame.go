package stream

import "time"

// Frame is a single captured frame, already encoded. The receiver owns the
// Data slice; the stream never reuses it.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Seq       uint64
	Timestamp time.Time
}

// FrameHandler receives frames from a capture stream. Handlers are invoked
// serially from a single delivery goroutine per stream.
type FrameHandler func(Frame)

// StopHandler is invoked exactly once when a stream terminates. err is nil
// for a clean stop and non-nil for abnormal termination.
type StopHandler func(err *Error)
