package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jengzang/gobike-dashboard/internal/metrics"
	"github.com/jengzang/gobike-dashboard/internal/models"
	"github.com/jengzang/gobike-dashboard/internal/service"
)

// Websocket message types
const (
	MessageFilterChanged = "filter_changed"
	MessageResult        = "result"
	MessageError         = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ClientMessage is sent by the browser whenever a filter widget changes
type ClientMessage struct {
	Type   string              `json:"type"`
	Filter *models.FilterState `json:"filter,omitempty"`
	Top    int                 `json:"top,omitempty"`
}

// ServerMessage answers one ClientMessage. Seq echoes the order in which
// client messages arrived; the initial result has seq 0.
type ServerMessage struct {
	Type  string               `json:"type"`
	Seq   uint64               `json:"seq"`
	Data  *models.ResultBundle `json:"data,omitempty"`
	Error string               `json:"error,omitempty"`
}

// filterRequest is one unit of work for the connection's evaluator
type filterRequest struct {
	seq   uint64
	state models.FilterState
	top   int
	err   error
}

// WSHandler pushes dashboard results over a websocket
type WSHandler struct {
	dashboardService *service.DashboardService
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(dashboardService *service.DashboardService) *WSHandler {
	return &WSHandler{
		dashboardService: dashboardService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /api/v1/dashboard/ws
//
// The reader goroutine parses client messages into a one-slot queue; a
// message that arrives while an older one is still queued replaces it. The
// evaluator goroutine drains the queue and writes results, so only the most
// recent filter state is computed when the client changes filters quickly.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}
	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	pending := make(chan filterRequest, 1)
	pending <- filterRequest{seq: 0, state: models.DefaultFilterState()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.evaluate(conn, pending)
	}()

	h.read(conn, pending)
	close(pending)
	<-done
	conn.Close()
}

// read parses client messages until the connection fails
func (h *WSHandler) read(conn *websocket.Conn, pending chan filterRequest) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var seq uint64
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read failed: %v", err)
			}
			return
		}
		seq++

		req := filterRequest{seq: seq}
		var msg ClientMessage
		switch err := json.Unmarshal(data, &msg); {
		case err != nil:
			req.err = fmt.Errorf("malformed message: %w", err)
		case msg.Type != MessageFilterChanged:
			req.err = fmt.Errorf("unsupported message type %q", msg.Type)
		case msg.Filter == nil:
			req.err = errors.New("filter_changed without filter")
		default:
			req.state = *msg.Filter
			req.top = msg.Top
		}

		if offerLatest(pending, req) {
			metrics.WebSocketMessagesDropped.Inc()
		}
	}
}

// evaluate computes and writes results until pending is closed or a write fails
func (h *WSHandler) evaluate(conn *websocket.Conn, pending <-chan filterRequest) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case req, ok := <-pending:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(h.reply(req)); err != nil {
				log.Printf("[WS] Write failed: %v", err)
				conn.Close() // unblocks the reader
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (h *WSHandler) reply(req filterRequest) ServerMessage {
	if req.err != nil {
		return ServerMessage{Type: MessageError, Seq: req.seq, Error: req.err.Error()}
	}
	bundle, err := h.dashboardService.Evaluate(req.state, req.top, "ws")
	if err != nil {
		return ServerMessage{Type: MessageError, Seq: req.seq, Error: err.Error()}
	}
	return ServerMessage{Type: MessageResult, Seq: req.seq, Data: &bundle}
}

// offerLatest puts req into the one-slot queue, discarding a queued request
// that has not been picked up yet. It reports whether one was discarded.
// The caller must be the only sender on ch.
func offerLatest(ch chan filterRequest, req filterRequest) bool {
	select {
	case ch <- req:
		return false
	default:
	}

	replaced := false
	select {
	case <-ch:
		replaced = true
	default:
	}
	ch <- req
	return replaced
}
