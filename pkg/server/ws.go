package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"igaudit/pkg/scan"
	"igaudit/pkg/store"
)

const (
	// eventBuffer is how many changes a client may lag behind before it
	// is dropped
	eventBuffer = 256
	writeWait   = 10 * time.Second
)

// Event is one message sent to a WebSocket client
type Event struct {
	Type     string          `json:"type"`
	Key      string          `json:"key,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
	Ack      *scan.Ack       `json:"ack,omitempty"`
}

const (
	EventChange = "change"
	EventAck    = "ack"
)

// handleWebSocket streams store changes to the client, starting with a
// snapshot of the current values. Commands sent by the client are
// dispatched like POST /api/commands and answered with an ack event.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Upgrading to websocket failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan Event, eventBuffer)
	// subscribe before the snapshot so nothing written in between is lost
	unsubscribe := s.cfg.Store.Subscribe(func(c store.Change) {
		select {
		case events <- Event{Type: EventChange, Key: c.Key, NewValue: c.NewValue}:
		default:
			// slow client; closing ctx drops it
			cancel()
		}
	})
	defer unsubscribe()

	snapshot, err := s.cfg.Store.Get(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Reading websocket snapshot failed")
		_ = conn.WriteJSON(map[string]string{"error": "failed to read state"})
		return
	}

	s.logger.Debug("Websocket client connected")
	go s.readCommands(ctx, cancel, conn, events)

	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.writeEvent(conn, Event{Type: EventChange, Key: k, NewValue: snapshot[k]}); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			s.logger.Debug("Websocket client disconnected")
			return
		case ev := <-events:
			if err := s.writeEvent(conn, ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

// readCommands owns the read side of conn. It ends the session when the
// client goes away.
func (s *Server) readCommands(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- Event) {
	defer cancel()
	for {
		var cmd scan.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				continue
			}
			return
		}

		_, ack := s.dispatch(ctx, cmd)
		select {
		case out <- Event{Type: EventAck, Ack: &ack}:
		case <-ctx.Done():
			return
		}
	}
}
