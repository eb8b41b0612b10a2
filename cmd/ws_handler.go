package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"sharptimer/internal/logger"
	"sharptimer/internal/timer"
)

// Timing configuration and message size limits for the state stream.
const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 1 << 12 // 4 KB
	defaultInterval = 500 * time.Millisecond
	minInterval     = 100 * time.Millisecond
	maxInterval     = 10 * time.Second
)

// WSHandler streams live timer snapshots to a UI over a websocket, at a
// client-chosen sub-second interval.
type WSHandler struct {
	controller *timer.Controller
	log        *logger.Logger
	upgrader   websocket.Upgrader
}

func NewWSHandler(controller *timer.Controller, log *logger.Logger) *WSHandler {
	return &WSHandler{
		controller: controller,
		log:        log,
		upgrader: websocket.Upgrader{
			// Local single-user control surface; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsEnvelope struct {
	Type string       `json:"type"`
	Data timer.Status `json:"data"`
}

// Stream upgrades the connection and pushes timer snapshots until the client
// disconnects.
func (h *WSHandler) Stream(w http.ResponseWriter, r *http.Request) {
	interval := h.parseInterval(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("ws upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine handles control frames and detects disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.sendState(conn); err != nil {
		h.log.Infow("ws initial write failed", "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws ping failed", "err", err)
				return
			}
		case <-ticker.C:
			if err := h.sendState(conn); err != nil {
				h.log.Infow("ws write failed", "err", err)
				return
			}
		}
	}
}

func (h *WSHandler) sendState(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "timer_state", Data: h.controller.Snapshot()})
}

func (h *WSHandler) startReader(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// parseInterval reads interval_ms from the query, clamped to sane bounds.
func (h *WSHandler) parseInterval(r *http.Request) time.Duration {
	raw := r.URL.Query().Get("interval_ms")
	if raw == "" {
		return defaultInterval
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return defaultInterval
	}
	interval := time.Duration(ms) * time.Millisecond
	if interval < minInterval {
		return minInterval
	}
	if interval > maxInterval {
		return maxInterval
	}
	return interval
}
