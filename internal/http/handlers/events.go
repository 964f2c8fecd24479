package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"nanobanana/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Events upgrades to a websocket and pushes one text frame per state change
// of the caller's session, starting with the current state.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "missing session")
		return
	}
	if a.broker == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "events are disabled")
		return
	}
	// Subscribe before reading the state so a change landing between the
	// two is delivered rather than lost.
	msgs, cancel := a.broker.Subscribe(id)
	defer cancel()

	st, err := a.svc.View(r.Context(), id)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "session unavailable")
		return
	}
	initial, err := json.Marshal(events.NewEvent(st))
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "encode event")
		return
	}

	log := a.logger(r)
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	done := make(chan struct{})
	go readPump(conn, done, log)
	writePump(conn, initial, msgs, done, log)
}

// readPump only services control frames; browsers never send data.
func readPump(conn *websocket.Conn, done chan<- struct{}, log *zerolog.Logger) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, initial []byte, msgs <-chan []byte, done <-chan struct{}, log *zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(kind int, data []byte) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(kind, data); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			return false
		}
		return true
	}

	if !write(websocket.TextMessage, initial) {
		return
	}
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				write(websocket.CloseMessage, []byte{})
				return
			}
			if !write(websocket.TextMessage, msg) {
				return
			}
		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		case <-done:
			return
		}
	}
}
