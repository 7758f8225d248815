package window

import "testing"

func TestWatchStateReleasedAfterFailedStart(t *testing.T) {
	b := &X11Backend{}

	if err := b.beginWatching(); err != nil {
		t.Fatalf("beginWatching() error: %v", err)
	}
	if err := b.beginWatching(); err == nil {
		t.Fatal("second beginWatching() error = nil, want already watching")
	}

	// A failed WatchFocus start releases the state so a retry can claim it
	b.abortWatching()

	if err := b.beginWatching(); err != nil {
		t.Fatalf("beginWatching() after abort error: %v", err)
	}
	b.StopWatching()
}

func TestStopWatchingAfterAbortIsNoop(t *testing.T) {
	b := &X11Backend{}

	if err := b.beginWatching(); err != nil {
		t.Fatalf("beginWatching() error: %v", err)
	}
	b.abortWatching()

	// Must not close the stale stop channel
	b.StopWatching()
	b.StopWatching()

	select {
	case <-b.stopChan:
		t.Fatal("stop channel was closed for a watch that never started")
	default:
	}
}
