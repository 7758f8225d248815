package stream

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"screenstream/internal/logger"
)

// grabFunc produces one raw frame.
type grabFunc func() (*image.RGBA, error)

// worker runs one capture stream: a capture loop feeding a bounded frame
// queue, and a delivery loop draining it into the frame handler. When the
// queue is full the oldest pending frame is evicted and counted as dropped.
type worker struct {
	name             string
	frameRate        int
	quality          int
	failureThreshold int
	grab             grabFunc
	handler          FrameHandler
	stopHandler      StopHandler
	onExit           func(err *Error)

	queue    chan Frame
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	seq     atomic.Uint64
	dropped atomic.Int64

	// written by the capture loop before it closes queue, read by the
	// delivery loop after queue is closed
	failure *Error
}

func newWorker(name string, frameRate, quality, queueSize, failureThreshold int,
	grab grabFunc, handler FrameHandler, stopHandler StopHandler, onExit func(*Error)) *worker {
	return &worker{
		name:             name,
		frameRate:        frameRate,
		quality:          quality,
		failureThreshold: failureThreshold,
		grab:             grab,
		handler:          handler,
		stopHandler:      stopHandler,
		onExit:           onExit,
		queue:            make(chan Frame, queueSize),
		stopChan:         make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// start launches the capture and delivery loops
func (w *worker) start() {
	go w.captureLoop()
	go w.deliverLoop()
}

// stop requests termination and waits for delivery to drain
func (w *worker) stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	<-w.done
}

func (w *worker) buffered() int32 {
	return int32(len(w.queue))
}

func (w *worker) droppedCount() int32 {
	return int32(w.dropped.Load())
}

func (w *worker) resetDropped() {
	w.dropped.Store(0)
}

func (w *worker) captureLoop() {
	defer close(w.queue)

	log := logger.WithComponent("stream").With().Str("stream", w.name).Logger()
	interval := time.Second / time.Duration(w.frameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutive := 0
	var lastErr error

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			img, err := w.grab()
			if err != nil {
				consecutive++
				lastErr = err
				if consecutive >= w.failureThreshold {
					log.Error().
						Err(lastErr).
						Int("consecutive_failures", consecutive).
						Msg("Stream terminating after repeated capture failures")
					w.failure = NewError(CodeBackendFailure, DomainCapture,
						fmt.Sprintf("capture failed %d times in a row: %v", consecutive, lastErr))
					return
				}
				log.Debug().Err(err).Msg("Capture failed, retrying")
				continue
			}
			consecutive = 0

			data, err := encodeJPEG(img, w.quality)
			if err != nil {
				log.Warn().Err(err).Msg("Frame encode failed")
				continue
			}

			bounds := img.Bounds()
			w.enqueue(Frame{
				Data:      data,
				Width:     bounds.Dx(),
				Height:    bounds.Dy(),
				Seq:       w.seq.Add(1),
				Timestamp: time.Now(),
			})
		}
	}
}

// enqueue adds a frame to the queue, evicting the oldest pending frame when
// the queue is full
func (w *worker) enqueue(f Frame) {
	select {
	case w.queue <- f:
		return
	default:
	}

	select {
	case <-w.queue:
		w.dropped.Add(1)
	default:
	}

	select {
	case w.queue <- f:
	default:
		// delivery raced us and the queue filled again; drop the new frame
		w.dropped.Add(1)
	}
}

func (w *worker) deliverLoop() {
	for f := range w.queue {
		if w.handler != nil {
			w.handler(f)
		}
	}

	// queue closed: the capture loop is done and w.failure is settled
	if w.stopHandler != nil {
		w.stopHandler(w.failure)
	}
	if w.onExit != nil {
		w.onExit(w.failure)
	}
	close(w.done)
}

func encodeJPEG(img *image.RGBA, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
