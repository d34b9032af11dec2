package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/stream"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMessage is a message sent to the client.
type WebSocketMessage struct {
	Type    string      `json:"type"` // "result", "stats" or "error"
	Payload interface{} `json:"payload,omitempty"`
}

// WebSocketRequest is a text message from the client. Type "frame" carries a
// frame; "stats" asks for the stream counters.
type WebSocketRequest struct {
	Type  string        `json:"type"`
	Frame *FrameRequest `json:"frame,omitempty"`
}

// WebSocketResult reports one decoded frame of the stream.
type WebSocketResult struct {
	Seq uint64 `json:"seq"`
	ScanResponse
}

// WebSocketError describes a rejected message.
type WebSocketError struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// lockedWriter serializes writes from stream workers and the read loop.
type lockedWriter struct {
	mu   sync.Mutex
	conn WebSocketConnWriter
}

func (w *lockedWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

// rawGeometry holds the frame geometry for binary messages, taken from the
// query string: /ws/frames?width=640&height=480&layout=nv21.
type rawGeometry struct {
	width, height int
	rowStride     int
	layout        frame.Layout
}

func parseRawGeometry(r *http.Request) (rawGeometry, error) {
	q := r.URL.Query()
	g := rawGeometry{layout: frame.LayoutNV21}
	var err error
	if v := q.Get("width"); v != "" {
		if g.width, err = strconv.Atoi(v); err != nil {
			return g, fmt.Errorf("invalid width %q", v)
		}
	}
	if v := q.Get("height"); v != "" {
		if g.height, err = strconv.Atoi(v); err != nil {
			return g, fmt.Errorf("invalid height %q", v)
		}
	}
	if v := q.Get("row_stride"); v != "" {
		if g.rowStride, err = strconv.Atoi(v); err != nil {
			return g, fmt.Errorf("invalid row_stride %q", v)
		}
	}
	if v := q.Get("layout"); v != "" {
		if g.layout, err = frame.ParseLayout(v); err != nil {
			return g, err
		}
	}
	return g, nil
}

// streamConfig applies the debounce_ms and deliver_all query overrides.
func (s *Server) streamConfig(r *http.Request) (stream.Config, error) {
	cfg := s.streamCfg
	q := r.URL.Query()
	if v := q.Get("debounce_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return cfg, fmt.Errorf("invalid debounce_ms %q", v)
		}
		cfg.DebounceWindow = time.Duration(ms) * time.Millisecond
	}
	if v := q.Get("deliver_all"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid deliver_all %q", v)
		}
		cfg.DeliverAll = all
	}
	return cfg, nil
}

// framesWebSocketHandler streams camera frames to a per-connection supplier.
// Frames arrive as JSON text messages or as raw binary dumps whose geometry
// is given in the query string.
func (s *Server) framesWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	geom, err := parseRawGeometry(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cfg, err := s.streamConfig(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	out := &lockedWriter{conn: conn}
	supplier, err := stream.New(cfg, s.builder, func(e stream.Event) {
		s.sendWebSocketMessage(out, WebSocketMessage{
			Type:    "result",
			Payload: WebSocketResult{Seq: e.Seq, ScanResponse: newScanResponse(e.Result, "")},
		})
		scansTotal.WithLabelValues("websocket", string(e.Result.Status)).Inc()
	}, stream.WithLogger(s.logger))
	if err != nil {
		s.sendWebSocketError(out, "stream_error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if err := supplier.Start(ctx); err != nil {
		s.sendWebSocketError(out, "stream_error", err.Error())
		return
	}
	defer func() {
		supplier.Stop()
		stats := supplier.Stats()
		streamFramesDropped.Add(float64(stats.Dropped))
		streamFramesDebounced.Add(float64(stats.Debounced))
		s.logger.Info("WebSocket connection closed", "remote_addr", r.RemoteAddr,
			"published", stats.Published, "decoded", stats.Decoded, "dropped", stats.Dropped)
	}()

	s.handleWebSocketConnection(ctx, conn, out, supplier, geom)
}

// handleWebSocketConnection reads frames until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, out WebSocketConnWriter,
	supplier *stream.Supplier, geom rawGeometry,
) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		websocketMessagesTotal.WithLabelValues("received").Inc()

		switch messageType {
		case websocket.TextMessage:
			s.handleWebSocketMessage(out, supplier, data)
		case websocket.BinaryMessage:
			s.handleWebSocketBinary(out, supplier, data, geom)
		}
	}
}

// handleWebSocketMessage processes a JSON text message.
func (s *Server) handleWebSocketMessage(out WebSocketConnWriter, supplier *stream.Supplier, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(out, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	switch req.Type {
	case "frame":
		if req.Frame == nil {
			s.sendWebSocketError(out, "invalid_request", "frame message without frame")
			return
		}
		f, err := req.Frame.ToFrame()
		if err != nil {
			s.sendWebSocketError(out, "invalid_frame", err.Error())
			return
		}
		s.publish(out, supplier, f)
	case "stats":
		s.sendWebSocketMessage(out, WebSocketMessage{Type: "stats", Payload: supplier.Stats()})
	default:
		s.sendWebSocketError(out, "invalid_request", fmt.Sprintf("unknown message type %q", req.Type))
	}
}

// handleWebSocketBinary processes a raw frame dump.
func (s *Server) handleWebSocketBinary(out WebSocketConnWriter, supplier *stream.Supplier, data []byte, geom rawGeometry) {
	if geom.width == 0 || geom.height == 0 {
		s.sendWebSocketError(out, "invalid_frame", "binary frames need width and height query parameters")
		return
	}
	f, err := frame.FromRaw(data, geom.width, geom.height, geom.layout, geom.rowStride)
	if err != nil {
		s.sendWebSocketError(out, "invalid_frame", err.Error())
		return
	}
	s.publish(out, supplier, f)
}

func (s *Server) publish(out WebSocketConnWriter, supplier *stream.Supplier, f *frame.Frame) {
	uploadSizeBytes.Observe(float64(f.Size()))
	if err := supplier.Publish(f); err != nil {
		s.sendWebSocketError(out, "stream_error", err.Error())
	}
}

func (s *Server) sendWebSocketMessage(conn WebSocketConnWriter, msg WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string) {
	s.sendWebSocketMessage(conn, WebSocketMessage{
		Type:    "error",
		Payload: WebSocketError{ErrorType: errorType, Message: message},
	})
}
