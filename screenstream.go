// Package screenstream exposes the flat screen capture surface: capture
// start/stop/status for a paired region and full-screen stream, per-stream
// buffer and drop statistics, capture permission checks, and window and
// application enumeration with thumbnails.
package screenstream

import (
	"screenstream/internal/stream"
	"screenstream/internal/window"
)

// Re-exported types so consumers only import this package.
type (
	Code            = stream.Code
	StreamError     = stream.Error
	Frame           = stream.Frame
	FrameHandler    = stream.FrameHandler
	StopHandler     = stream.StopHandler
	StartOptions    = stream.Options
	WindowInfo      = window.Info
	ApplicationInfo = window.AppInfo
)

// Status and error codes.
const (
	CodeOK      = stream.CodeOK
	CodeRunning = stream.CodeRunning
	CodeIdle    = stream.CodeIdle

	CodeAlreadyRunning   = stream.CodeAlreadyRunning
	CodeNotRunning       = stream.CodeNotRunning
	CodePermissionDenied = stream.CodePermissionDenied
	CodeNoDisplay        = stream.CodeNoDisplay
	CodeInvalidRegion    = stream.CodeInvalidRegion
	CodeInvalidRate      = stream.CodeInvalidRate
	CodeBackendFailure   = stream.CodeBackendFailure
)

// Error domains.
const (
	DomainCapture     = stream.DomainCapture
	DomainPermission  = stream.DomainPermission
	DomainEnumeration = stream.DomainEnumeration
)

// WindowListCallback receives the result of a window enumeration request.
type WindowListCallback func(windows []WindowInfo)

// ApplicationListCallback receives the result of an application enumeration
// request.
type ApplicationListCallback func(apps []ApplicationInfo)

// ThumbnailCallback receives thumbnail image data; data is nil when the
// window could not be captured.
type ThumbnailCallback func(data []byte)
