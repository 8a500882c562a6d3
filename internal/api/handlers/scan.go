package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/options"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// StreamEvent is one websocket message of a streamed scan
type StreamEvent struct {
	Type     string                                           `json:"type"` // progress | result | error
	Progress *contracts.Progress                              `json:"progress,omitempty"`
	Result   *contracts.ScanResult[contracts.ValuationResult] `json:"result,omitempty"`
	Error    string                                           `json:"error,omitempty"`
}

// PostScan runs a synchronous valuation batch
// POST /api/scan {"universe":"sp500"} or {"ids":["AAPL","MSFT"]}
func (h *ScanHandler) PostScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ids, name, err := h.resolve(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.svc.RunBatch(r.Context(), ids, req.MaxParallel, nil)
	h.logger.WithFields(map[string]interface{}{
		"universe":  name,
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
	}).Info("Scan request completed")

	respondData(w, result)
}

// PostOptionsScan runs a synchronous option batch over the first N ids
// POST /api/options/scan {"universe":"sp500","type":"call","min_divergence":10}
func (h *ScanHandler) PostOptionsScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	minDivergence := ""
	if req.MinDivergence != nil {
		minDivergence = strconv.FormatFloat(*req.MinDivergence, 'f', -1, 64)
	}
	filter, err := parseFilter(req.Type, minDivergence, options.DefaultFilter.MinDivergence)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids, _, err := h.resolve(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondData(w, h.svc.ScanOptionsBatch(r.Context(), ids, req.MaxParallel, filter, nil))
}

// StreamScan runs a valuation batch and pushes progress over a websocket.
// Closing the socket cancels the batch.
// GET /api/scan/stream?universe=sp500&max_parallel=8 (or ids=AAPL,MSFT)
func (h *ScanHandler) StreamScan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxParallel, _ := strconv.Atoi(q.Get("max_parallel"))

	// 업그레이드 전에 요청을 검증해야 HTTP 에러로 응답 가능
	ids, name, err := h.resolve(r.Context(), ScanRequest{Universe: q.Get("universe"), IDs: splitIDs(q.Get("ids"))})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// read pump: any read error (client close) cancels the batch
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// progress never exceeds len(ids) events, so the buffer never blocks the collector
	events := make(chan StreamEvent, len(ids)+1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		h.writePump(conn, events)
	}()

	log := h.logger.WithFields(map[string]interface{}{"universe": name, "total": len(ids)})
	log.Info("Streaming scan started")

	result := h.svc.RunBatch(ctx, ids, maxParallel, func(p contracts.Progress) {
		select {
		case events <- StreamEvent{Type: "progress", Progress: &p}:
		default:
		}
	})
	events <- StreamEvent{Type: "result", Result: &result}
	close(events)
	<-done

	log.WithFields(map[string]interface{}{
		"succeeded": result.Succeeded,
		"cancelled": result.Cancelled,
	}).Info("Streaming scan finished")
}

// writePump is the only writer on conn
func (h *ScanHandler) writePump(conn *websocket.Conn, events <-chan StreamEvent) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan complete"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					h.logger.WithError(err).Debug("WebSocket write failed")
				}
				// drain so the producer never blocks
				for range events {
				}
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				for range events {
				}
				return
			}
		}
	}
}
