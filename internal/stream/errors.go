package stream

import "fmt"

// Code is a status or error code returned by the capture control surface.
// 0-9 are states, 10 and up are errors.
type Code int32

const (
	CodeOK      Code = 0
	CodeRunning Code = 1
	CodeIdle    Code = 2

	CodeAlreadyRunning   Code = 10
	CodeNotRunning       Code = 11
	CodePermissionDenied Code = 12
	CodeNoDisplay        Code = 13
	CodeInvalidRegion    Code = 14
	CodeInvalidRate      Code = 15
	CodeBackendFailure   Code = 16
)

// Error domains.
const (
	DomainCapture     = "capture"
	DomainPermission  = "permission"
	DomainEnumeration = "enumeration"
)

// Error describes why a capture stream terminated. It carries a numeric
// code, a domain and a human-readable description.
type Error struct {
	Code        Code   `json:"code"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
}

// NewError creates a stream error
func NewError(code Code, domain, description string) *Error {
	return &Error{Code: code, Domain: domain, Description: description}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (code %d)", e.Domain, e.Description, e.Code)
}
