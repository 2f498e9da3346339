// Package monitor exposes the relay's runtime state over HTTP: health
// and metrics endpoints for probes, the latest preview frame, and a
// websocket feed pushing periodic status updates to UI clients.
package monitor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pose-relay-go/internal/types"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingEvery    = (pongWait * 9) / 10
	statusPeriod = 1 * time.Second
)

type Server struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.Mutex

	port     int
	statusFn func() map[string]any
	configFn func() map[string]any

	previewMu   sync.RWMutex
	previewMeta types.PreviewMeta
	previewJPEG []byte
}

func New(port int, statusFn, configFn func() map[string]any) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		port:     port,
		statusFn: statusFn,
		configFn: configFn,
	}
}

// UpdatePreview stores the latest published preview frame. Called by
// the relay loop once per frame.
func (s *Server) UpdatePreview(meta types.PreviewMeta, jpeg []byte) {
	s.previewMu.Lock()
	s.previewMeta = meta
	s.previewJPEG = append(s.previewJPEG[:0], jpeg...)
	s.previewMu.Unlock()
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/preview", s.handlePreview)
	mux.HandleFunc("/ws", s.handleWS)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	go s.broadcastStatus(ctx)

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.statusPayload())
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{}
	if s.configFn != nil {
		payload = s.configFn()
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	s.previewMu.RLock()
	jpeg := append([]byte(nil), s.previewJPEG...)
	s.previewMu.RUnlock()
	if len(jpeg) == 0 {
		http.Error(w, "no preview yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(jpeg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.mu.Lock()
	writeMu := &sync.Mutex{}
	s.clients[conn] = writeMu
	s.mu.Unlock()

	if s.configFn != nil {
		_ = s.writeJSON(conn, writeMu, s.configFn())
	}

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := s.writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer s.removeClient(conn)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var request map[string]any
			if err := json.Unmarshal(payload, &request); err != nil {
				continue
			}
			if request["type"] == "preview_request" {
				_ = s.writeJSON(conn, writeMu, s.previewPayload())
			}
		}
	}()
}

func (s *Server) broadcastStatus(ctx context.Context) {
	ticker := time.NewTicker(statusPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(s.statusPayload())
			if err != nil {
				continue
			}
			var stale []*websocket.Conn
			s.mu.Lock()
			for conn, writeMu := range s.clients {
				if err := s.writeMessage(conn, writeMu, websocket.TextMessage, payload); err != nil {
					stale = append(stale, conn)
				}
			}
			s.mu.Unlock()
			for _, conn := range stale {
				s.removeClient(conn)
			}
		}
	}
}

func (s *Server) statusPayload() map[string]any {
	payload := map[string]any{"type": "status"}
	if s.statusFn != nil {
		for k, v := range s.statusFn() {
			payload[k] = v
		}
	}
	payload["ws_clients"] = s.clientCount()
	s.previewMu.RLock()
	payload["preview_w"] = s.previewMeta.W
	payload["preview_h"] = s.previewMeta.H
	payload["preview_ts"] = s.previewMeta.TS
	s.previewMu.RUnlock()
	return payload
}

func (s *Server) previewPayload() map[string]any {
	s.previewMu.RLock()
	defer s.previewMu.RUnlock()
	return map[string]any{
		"type": "preview",
		"w":    s.previewMeta.W,
		"h":    s.previewMeta.H,
		"ts":   s.previewMeta.TS,
		"jpeg": base64.StdEncoding.EncodeToString(s.previewJPEG),
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) writeJSON(conn *websocket.Conn, writeMu *sync.Mutex, payload any) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}

func (s *Server) writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
