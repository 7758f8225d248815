package permission

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/godbus/dbus/v5"

	"screenstream/internal/logger"
)

// Portal negotiates screen capture permission through the
// xdg-desktop-portal ScreenCast interface over D-Bus.
type Portal struct {
	conn          *dbus.Conn
	sessionHandle dbus.ObjectPath
	restoreToken  string
	tokenPath     string
}

const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenCastIface = "org.freedesktop.portal.ScreenCast"
	requestIface    = "org.freedesktop.portal.Request"
)

// Source types for SelectSources
const (
	sourceTypeMonitor = 1 << 0
)

// Cursor modes for SelectSources
const (
	cursorModeEmbedded = 1 << 1
)

// Persist modes for SelectSources
const (
	persistModeSession = 2
)

// NewPortal creates a new portal client
func NewPortal() (*Portal, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}
	tokenPath := filepath.Join(configDir, "screenstream", "portal_token")

	p := &Portal{
		conn:      conn,
		tokenPath: tokenPath,
	}
	p.loadRestoreToken()

	return p, nil
}

// Close closes the portal connection
func (p *Portal) Close() error {
	if p.sessionHandle != "" {
		p.conn.Object(portalService, p.sessionHandle).Call(
			"org.freedesktop.portal.Session.Close", 0,
		)
	}
	return p.conn.Close()
}

// HasRestoreToken reports whether a grant from a previous session was
// persisted
func (p *Portal) HasRestoreToken() bool {
	return p.restoreToken != ""
}

// Request runs the full permission handshake: CreateSession, SelectSources,
// Start. The desktop environment may prompt the user. A restore token from
// a previous grant suppresses the prompt.
func (p *Portal) Request() error {
	log := logger.WithComponent("portal")

	sessionHandle, err := p.createSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	p.sessionHandle = sessionHandle
	log.Debug().Str("session", string(sessionHandle)).Msg("Created portal session")

	if err := p.selectSources(sessionHandle); err != nil {
		return fmt.Errorf("failed to select sources: %w", err)
	}

	if err := p.start(sessionHandle); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	log.Info().Msg("Capture permission granted via portal")
	return nil
}

// awaitResponse subscribes to portal Response signals, runs call, and waits
// for the response addressed to the request path call returned.
func (p *Portal) awaitResponse(timeout time.Duration, call func() (dbus.ObjectPath, error)) (map[string]dbus.Variant, error) {
	log := logger.WithComponent("portal")

	responseChan := make(chan *dbus.Signal, 10)

	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		log.Warn().Err(err).Msg("Failed to add match rule")
	}

	p.conn.Signal(responseChan)
	defer p.conn.RemoveSignal(responseChan)

	requestPath, err := call()
	if err != nil {
		return nil, err
	}

	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for portal response")
		case sig := <-responseChan:
			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			if len(sig.Body) < 2 {
				return nil, fmt.Errorf("invalid portal response")
			}

			response := sig.Body[0].(uint32)
			results, _ := sig.Body[1].(map[string]dbus.Variant)
			if response != 0 {
				return nil, fmt.Errorf("portal request denied (code %d)", response)
			}
			return results, nil
		}
	}
}

// createSession creates a new portal session
func (p *Portal) createSession() (dbus.ObjectPath, error) {
	obj := p.conn.Object(portalService, portalPath)

	options := map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(fmt.Sprintf("screenstream%d", os.Getpid())),
		"session_handle_token": dbus.MakeVariant(fmt.Sprintf("session%d", os.Getpid())),
	}

	results, err := p.awaitResponse(30*time.Second, func() (dbus.ObjectPath, error) {
		var requestPath dbus.ObjectPath
		err := obj.Call(screenCastIface+".CreateSession", 0, options).Store(&requestPath)
		if err != nil {
			return "", fmt.Errorf("CreateSession call failed: %w", err)
		}
		return requestPath, nil
	})
	if err != nil {
		return "", err
	}

	sessionHandle, ok := results["session_handle"]
	if !ok {
		return "", fmt.Errorf("no session handle in response")
	}
	switch v := sessionHandle.Value().(type) {
	case dbus.ObjectPath:
		return v, nil
	case string:
		return dbus.ObjectPath(v), nil
	default:
		return "", fmt.Errorf("unexpected session_handle type: %T", v)
	}
}

// selectSources selects what to share (full screen)
func (p *Portal) selectSources(sessionHandle dbus.ObjectPath) error {
	obj := p.conn.Object(portalService, portalPath)

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(fmt.Sprintf("select%d", os.Getpid())),
		"types":        dbus.MakeVariant(uint32(sourceTypeMonitor)),
		"multiple":     dbus.MakeVariant(false),
		"cursor_mode":  dbus.MakeVariant(uint32(cursorModeEmbedded)),
		"persist_mode": dbus.MakeVariant(uint32(persistModeSession)),
	}

	if p.restoreToken != "" {
		options["restore_token"] = dbus.MakeVariant(p.restoreToken)
	}

	// The user may need to pick a screen in the dialog, allow extra time
	_, err := p.awaitResponse(60*time.Second, func() (dbus.ObjectPath, error) {
		var requestPath dbus.ObjectPath
		err := obj.Call(screenCastIface+".SelectSources", 0, sessionHandle, options).Store(&requestPath)
		if err != nil {
			return "", fmt.Errorf("SelectSources call failed: %w", err)
		}
		return requestPath, nil
	})
	return err
}

// start starts the portal session and persists the restore token
func (p *Portal) start(sessionHandle dbus.ObjectPath) error {
	obj := p.conn.Object(portalService, portalPath)

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(fmt.Sprintf("start%d", os.Getpid())),
	}

	results, err := p.awaitResponse(30*time.Second, func() (dbus.ObjectPath, error) {
		var requestPath dbus.ObjectPath
		err := obj.Call(screenCastIface+".Start", 0, sessionHandle, "", options).Store(&requestPath)
		if err != nil {
			return "", fmt.Errorf("Start call failed: %w", err)
		}
		return requestPath, nil
	})
	if err != nil {
		return err
	}

	if restoreToken, ok := results["restore_token"]; ok {
		if token, ok := restoreToken.Value().(string); ok {
			p.restoreToken = token
			p.saveRestoreToken()
		}
	}

	return nil
}

// loadRestoreToken loads the restore token from disk
func (p *Portal) loadRestoreToken() {
	data, err := os.ReadFile(p.tokenPath)
	if err != nil {
		return
	}

	var token struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &token); err != nil {
		return
	}
	p.restoreToken = token.Token
}

// saveRestoreToken saves the restore token to disk
func (p *Portal) saveRestoreToken() {
	if p.restoreToken == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(p.tokenPath), 0755); err != nil {
		return
	}

	token := struct {
		Token string `json:"token"`
	}{Token: p.restoreToken}

	data, err := json.Marshal(token)
	if err != nil {
		return
	}

	os.WriteFile(p.tokenPath, data, 0600)
}
