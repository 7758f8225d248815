package permission

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// noPortal simulates a desktop without the ScreenCast portal.
func noPortal() bool { return false }

func TestCheckProbeSuccess(t *testing.T) {
	m := &Manager{
		probe:       func() error { return nil },
		portalCheck: noPortal,
	}

	if m.Granted() {
		t.Fatal("Granted() = true before any check")
	}

	m.Check()

	if !m.Granted() {
		t.Fatal("Granted() = false after successful probe")
	}
}

func TestCheckProbeFailure(t *testing.T) {
	m := &Manager{
		probe:       func() error { return fmt.Errorf("capture refused") },
		portalCheck: noPortal,
	}

	m.Check()

	if m.Granted() {
		t.Fatal("Granted() = true after failed probe")
	}
}

func TestCheckWithoutProbe(t *testing.T) {
	m := &Manager{portalCheck: noPortal}

	m.Check()

	if m.Granted() {
		t.Fatal("Granted() = true with neither portal nor probe")
	}
}

func TestGrantIsCached(t *testing.T) {
	var calls atomic.Int32
	m := &Manager{
		probe: func() error {
			calls.Add(1)
			return nil
		},
		portalCheck: noPortal,
	}

	m.Check()
	m.Check()

	if !m.Granted() {
		t.Fatal("Granted() = false after successful probe")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("probe ran %d times, want 1 (grant is cached)", got)
	}
}

func TestConcurrentChecksCoalesce(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	m := &Manager{
		probe: func() error {
			calls.Add(1)
			entered <- struct{}{}
			<-release
			return nil
		},
		portalCheck: noPortal,
	}

	go m.Check()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first Check() never reached the probe")
	}

	// A second Check while the first is in flight must return without
	// running the probe again
	done := make(chan struct{})
	go func() {
		m.Check()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent Check() did not coalesce")
	}

	close(release)

	deadline := time.After(2 * time.Second)
	for !m.Granted() {
		select {
		case <-deadline:
			t.Fatal("Granted() never became true")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("probe ran %d times, want 1", got)
	}
}
