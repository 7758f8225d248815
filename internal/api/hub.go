package api

import "sync"

// frameHub fans encoded frames out to websocket subscribers. Slow
// subscribers miss frames instead of stalling the stream.
type frameHub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func newFrameHub() *frameHub {
	return &frameHub{
		clients: make(map[chan []byte]struct{}),
	}
}

func (h *frameHub) subscribe() chan []byte {
	ch := make(chan []byte, 2)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *frameHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *frameHub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- data:
		default:
		}
	}
}
