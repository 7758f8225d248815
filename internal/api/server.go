package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"screenstream"
	"screenstream/internal/config"
	"screenstream/internal/logger"
	"screenstream/internal/output"
	"screenstream/internal/window"
)

// Service is the capture surface the HTTP layer talks to.
type Service interface {
	CheckCapturePermission()
	IsCapturePermissionGranted() bool

	StartCapture(opts screenstream.StartOptions) screenstream.Code
	StopCapture() screenstream.Code
	GetCaptureStatus() screenstream.Code

	GetRegionBufferStats() int32
	GetFullScreenBufferStats() int32
	GetRegionFrameDropStats() int32
	GetFullScreenFrameDropStats() int32
	ResetPerformanceStats()

	Windows() ([]screenstream.WindowInfo, error)
	Applications() ([]screenstream.ApplicationInfo, error)
	Thumbnail(windowID int32) ([]byte, error)
	WindowManager() *window.Manager
}

// Server exposes the capture service over HTTP and websockets.
type Server struct {
	router    *mux.Router
	service   Service
	configMgr *config.Manager
	upgrader  websocket.Upgrader
	log       zerolog.Logger

	regionHub     *frameHub
	fullScreenHub *frameHub
	mjpeg         *output.MJPEGOutput
}

// NewServer creates a new API server
func NewServer(service Service, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		service:   service,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		log:           *logger.WithComponent("api"),
		regionHub:     newFrameHub(),
		fullScreenHub: newFrameHub(),
		mjpeg:         output.NewMJPEGOutput(),
	}

	if err := s.mjpeg.Start(); err != nil {
		s.log.Warn().Err(err).Msg("MJPEG output failed to start")
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Capture control
	api.HandleFunc("/capture/start", s.handleStartCapture).Methods("POST")
	api.HandleFunc("/capture/stop", s.handleStopCapture).Methods("POST")
	api.HandleFunc("/capture/status", s.handleCaptureStatus).Methods("GET")

	// Performance statistics
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/stats/reset", s.handleResetStats).Methods("POST")

	// Permission
	api.HandleFunc("/permission", s.handleGetPermission).Methods("GET")
	api.HandleFunc("/permission/check", s.handleCheckPermission).Methods("POST")

	// Enumeration
	api.HandleFunc("/windows", s.handleGetWindows).Methods("GET")
	api.HandleFunc("/windows/{id}/thumbnail", s.handleGetThumbnail).Methods("GET")
	api.HandleFunc("/applications", s.handleGetApplications).Methods("GET")

	// Focused window state
	api.HandleFunc("/window/current", s.handleGetCurrentWindow).Methods("GET")
	api.HandleFunc("/window/stream", s.handleWindowStream)

	// Frame streams
	api.HandleFunc("/frames/region", s.handleRegionFrames)
	api.HandleFunc("/frames/fullscreen", s.handleFullScreenFrames)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// MJPEG preview of the full-screen stream
	s.router.HandleFunc("/stream", s.mjpeg.Handler())
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.log.Info().Str("addr", addr).Msg("Starting server")
	return http.ListenAndServe(addr, s.enableCORS(s.router))
}

// Handler returns the configured root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

type startRequest struct {
	Display             int `json:"display"`
	X                   int `json:"x"`
	Y                   int `json:"y"`
	Width               int `json:"width"`
	Height              int `json:"height"`
	RegionFrameRate     int `json:"region_frame_rate,omitempty"`
	FullScreenFrameRate int `json:"full_screen_frame_rate,omitempty"`
}

type codeResponse struct {
	Code screenstream.Code `json:"code"`
}

func (s *Server) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Omitted rates fall back to the configured defaults
	if req.RegionFrameRate <= 0 || req.FullScreenFrameRate <= 0 {
		cfg := s.configMgr.Get()
		if req.RegionFrameRate <= 0 {
			req.RegionFrameRate = cfg.Capture.RegionFrameRate
		}
		if req.FullScreenFrameRate <= 0 {
			req.FullScreenFrameRate = cfg.Capture.FullScreenFrameRate
		}
	}

	opts := screenstream.StartOptions{
		Display:             req.Display,
		X:                   req.X,
		Y:                   req.Y,
		Width:               req.Width,
		Height:              req.Height,
		RegionFrameRate:     req.RegionFrameRate,
		FullScreenFrameRate: req.FullScreenFrameRate,
		OnRegionFrame: func(frame screenstream.Frame) {
			s.regionHub.broadcast(frame.Data)
		},
		OnFullScreenFrame: func(frame screenstream.Frame) {
			s.fullScreenHub.broadcast(frame.Data)
			s.mjpeg.WriteFrame(frame.Data)
		},
		OnRegionStopped:     s.streamStopped("region"),
		OnFullScreenStopped: s.streamStopped("fullscreen"),
	}

	code := s.service.StartCapture(opts)
	status := http.StatusOK
	if code != screenstream.CodeOK {
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(codeResponse{Code: code})
}

func (s *Server) streamStopped(name string) screenstream.StopHandler {
	return func(err *screenstream.StreamError) {
		if err != nil {
			s.log.Error().Str("stream", name).Str("error", err.Description).Msg("Stream terminated")
			return
		}
		s.log.Debug().Str("stream", name).Msg("Stream stopped")
	}
}

func (s *Server) handleStopCapture(w http.ResponseWriter, r *http.Request) {
	code := s.service.StopCapture()
	status := http.StatusOK
	if code != screenstream.CodeOK {
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(codeResponse{Code: code})
}

func (s *Server) handleCaptureStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(codeResponse{Code: s.service.GetCaptureStatus()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]int32{
		"region_buffered":     s.service.GetRegionBufferStats(),
		"fullscreen_buffered": s.service.GetFullScreenBufferStats(),
		"region_dropped":      s.service.GetRegionFrameDropStats(),
		"fullscreen_dropped":  s.service.GetFullScreenFrameDropStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	s.service.ResetPerformanceStats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{
		"granted": s.service.IsCapturePermissionGranted(),
	})
}

func (s *Server) handleCheckPermission(w http.ResponseWriter, r *http.Request) {
	s.service.CheckCapturePermission()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "checking"})
}

func (s *Server) handleGetWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.service.Windows()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(windows)
}

func (s *Server) handleGetApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.service.Applications()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apps)
}

func (s *Server) handleGetThumbnail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 32)
	if err != nil {
		http.Error(w, "invalid window id", http.StatusBadRequest)
		return
	}

	data, err := s.service.Thumbnail(int32(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

func (s *Server) handleGetCurrentWindow(w http.ResponseWriter, r *http.Request) {
	wm := s.service.WindowManager()
	if wm == nil {
		http.Error(w, "Window backend unavailable", http.StatusServiceUnavailable)
		return
	}

	current, err := wm.CurrentWindow()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if current == nil {
		http.Error(w, "No window focused", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(current)
}

func (s *Server) handleWindowStream(w http.ResponseWriter, r *http.Request) {
	wm := s.service.WindowManager()
	if wm == nil {
		http.Error(w, "Window backend unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := wm.Subscribe()
	defer wm.Unsubscribe(updates)

	if current, err := wm.CurrentWindow(); err == nil && current != nil {
		if err := conn.WriteJSON(current); err != nil {
			return
		}
	}

	for info := range updates {
		if err := conn.WriteJSON(info); err != nil {
			return
		}
	}
}

func (s *Server) handleRegionFrames(w http.ResponseWriter, r *http.Request) {
	s.streamFrames(w, r, s.regionHub)
}

func (s *Server) handleFullScreenFrames(w http.ResponseWriter, r *http.Request) {
	s.streamFrames(w, r, s.fullScreenHub)
}

func (s *Server) streamFrames(w http.ResponseWriter, r *http.Request, hub *frameHub) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	frames := hub.subscribe()
	defer hub.unsubscribe(frames)

	for data := range frames {
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configMgr.Get()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.configMgr.Update(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "screenstream",
	})
}
