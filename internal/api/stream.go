package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	marketview "github.com/zappabad/coinsim/internal/market/view"
)

// streamMessage is one websocket frame.
type streamMessage struct {
	Seq  uint64 `json:"seq"`
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// Stream handles GET /ws. The first frame is a full snapshot; every market
// event follows in publication order.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	events, cancel := h.svc.Subscribe(h.cfg.WSBuffer)
	defer cancel()

	// drain client frames so close and pong control frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, streamMessage{Kind: "snapshot", Data: h.svc.Snapshot()}); err != nil {
		return
	}

	ping := time.NewTicker(h.cfg.WSPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case me, ok := <-events:
			if !ok {
				deadline := time.Now().Add(h.cfg.WSWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "market closed"), deadline)
				return
			}
			if err := h.write(conn, toStreamMessage(me)); err != nil {
				h.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(h.cfg.WSWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, msg streamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.cfg.WSWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func toStreamMessage(me marketview.MarketEvent) streamMessage {
	return streamMessage{Seq: me.Seq, Kind: me.Kind(), Data: me.Event}
}
