package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/kitty_ledger/internal/events"
	"github.com/R3E-Network/kitty_ledger/internal/httputil"
)

const (
	streamBuffer = 64
	maxBacklog   = 500
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// handleEvents streams committed ledger events as JSON records. Query
// parameters: recent=N replays up to N past records first, kind=K filters.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	backlog := 0
	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "recent must be a non-negative integer")
			return
		}
		if n > maxBacklog {
			n = maxBacklog
		}
		backlog = n
	}
	kind := r.URL.Query().Get("kind")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var filter events.Filter
	if kind != "" {
		filter = func(rec events.Record) bool { return rec.Kind == kind }
	}

	out := make(chan events.Record, streamBuffer)
	lagged := make(chan struct{})
	var lagOnce sync.Once
	cancel := s.feed.SubscribeFiltered(filter, func(rec events.Record) {
		select {
		case out <- rec:
		default:
			lagOnce.Do(func() { close(lagged) })
		}
	})
	defer cancel()

	var lastSeq uint64
	var history []events.Record
	if kind != "" {
		history = s.feed.RecentByKind(kind, backlog)
	} else {
		history = s.feed.Recent(backlog)
	}
	for i := len(history) - 1; i >= 0; i-- {
		if err := writeRecord(conn, history[i]); err != nil {
			return
		}
		lastSeq = history[i].Seq
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case rec := <-out:
			if rec.Seq <= lastSeq {
				continue
			}
			if err := writeRecord(conn, rec); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-lagged:
			s.log.Warn("event subscriber fell behind; closing stream")
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber too slow"),
				time.Now().Add(writeWait))
			return
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeRecord(conn *websocket.Conn, rec events.Record) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(rec)
}
