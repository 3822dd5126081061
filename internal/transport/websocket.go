package transport

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wmbusgo/wmbusdecode/internal/mlog"
	"github.com/wmbusgo/wmbusdecode/internal/session"
	"go.uber.org/zap"
)

const (
	// writeWait is the time allowed to write a response frame.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from a
	// peer before the connection is considered dead.
	pongWait = 60 * time.Second

	// pingPeriod is how often pings are sent to a peer; must stay below
	// pongWait so a live connection never times out between pings.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// frameMessage is the wire shape of one inbound frame-source message.
type frameMessage struct {
	Source string `json:"source"`
	Frame  string `json:"frame"`
	RSSI   int    `json:"rssi"`
	Key    string `json:"key"`
	Driver string `json:"driver"`
	Format string `json:"format"`
}

// handleFrames upgrades the HTTP connection to a WebSocket and services
// frame messages until the peer disconnects or the server shuts down.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		mlog.Error("WebSocket upgrade failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}

	s.trackConn(remoteAddr, conn)
	defer s.untrackConn(remoteAddr)

	mlog.Info("frame source connected", zap.String("remote_addr", remoteAddr))
	defer mlog.Info("frame source disconnected", zap.String("remote_addr", remoteAddr))

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go s.pingLoop(conn, remoteAddr, stopPing)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				mlog.Warn("unexpected close reading frame", zap.String("remote_addr", remoteAddr), zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		s.handleFrameMessage(conn, remoteAddr, data)
	}
}

func (s *Server) handleFrameMessage(conn *websocket.Conn, remoteAddr string, data []byte) {
	var fm frameMessage
	if err := json.Unmarshal(data, &fm); err != nil {
		mlog.Error("malformed frame message", zap.String("remote_addr", remoteAddr), zap.Error(err))
		s.writeJSON(conn, remoteAddr, map[string]any{"error": "malformed frame message"})
		return
	}

	if raw, err := hex.DecodeString(fm.Frame); err == nil {
		mlog.LogFrame(fm.Source, fm.RSSI, raw)
	} else {
		mlog.LogFrame(fm.Source, fm.RSSI, nil)
	}

	resp := s.session.Decode(session.Request{
		TelegramHex: fm.Frame,
		KeyHex:      fm.Key,
		Driver:      fm.Driver,
		Format:      fm.Format,
	})

	if err := s.writeRaw(conn, remoteAddr, []byte(resp)); err != nil {
		mlog.Error("failed to write decode response", zap.String("remote_addr", remoteAddr), zap.Error(err))
	}
}

func (s *Server) writeJSON(conn *websocket.Conn, remoteAddr string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		mlog.Error("failed to marshal response", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}
	if err := s.writeRaw(conn, remoteAddr, data); err != nil {
		mlog.Error("failed to write response", zap.String("remote_addr", remoteAddr), zap.Error(err))
	}
}

func (s *Server) writeRaw(conn *websocket.Conn, remoteAddr string, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) pingLoop(conn *websocket.Conn, remoteAddr string, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (s *Server) trackConn(remoteAddr string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeConns[remoteAddr] = conn.UnderlyingConn()
}

func (s *Server) untrackConn(remoteAddr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeConns, remoteAddr)
}
