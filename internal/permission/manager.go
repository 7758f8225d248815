package permission

import (
	"sync"

	"screenstream/internal/logger"
)

// ProbeFunc attempts a minimal capture to verify that capture works
// without portal mediation. X11 sessions have no permission gate, so a
// successful probe means capture is allowed.
type ProbeFunc func() error

// Manager tracks capture permission state. On portal-mediated desktops the
// permission flows through the ScreenCast portal; elsewhere a capture
// probe decides.
type Manager struct {
	probe       ProbeFunc
	portalCheck func() bool

	mu       sync.Mutex
	granted  bool
	checking bool
}

// NewManager creates a permission manager
func NewManager(probe ProbeFunc) *Manager {
	m := &Manager{probe: probe, portalCheck: portalGrant}

	// A persisted restore token means a previous session was granted
	if portal, err := NewPortal(); err == nil {
		if portal.HasRestoreToken() {
			m.granted = true
		}
		portal.Close()
	}

	return m
}

// Check runs the permission check/request flow. On portal desktops this may
// raise the permission dialog. Concurrent checks coalesce into one.
func (m *Manager) Check() {
	m.mu.Lock()
	if m.checking || m.granted {
		m.mu.Unlock()
		return
	}
	m.checking = true
	m.mu.Unlock()

	granted := m.runCheck()

	m.mu.Lock()
	m.checking = false
	if granted {
		m.granted = true
	}
	m.mu.Unlock()
}

func (m *Manager) runCheck() bool {
	if m.portalCheck != nil && m.portalCheck() {
		return true
	}

	if m.probe == nil {
		return false
	}
	if err := m.probe(); err != nil {
		logger.WithComponent("permission").Warn().Err(err).Msg("Capture probe failed, permission not granted")
		return false
	}
	return true
}

// portalGrant runs the portal permission request, reporting whether the
// grant succeeded
func portalGrant() bool {
	log := logger.WithComponent("permission")

	portal, err := NewPortal()
	if err != nil {
		log.Debug().Err(err).Msg("Portal unavailable, falling back to capture probe")
		return false
	}
	defer portal.Close()

	if err := portal.Request(); err != nil {
		log.Debug().Err(err).Msg("Portal permission request failed, falling back to capture probe")
		return false
	}
	return true
}

// Granted reports whether capture permission currently holds
func (m *Manager) Granted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.granted
}
