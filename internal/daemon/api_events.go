package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"bleep/internal/api"
	"bleep/internal/logging"
)

const (
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is bearer-token protected and usually bound to localhost;
	// browser UIs served from another origin still need to connect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleJobEvents streams a job's progress events over a websocket until the
// job finishes or the client disconnects.
func (s *apiServer) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	if job.Status.Terminal() {
		s.sendEvent(conn, api.EventFromJob(job))
		s.closeNormal(conn)
		return
	}

	hub := s.daemon.workflow.Hub()
	events, cancel := hub.Subscribe(job.ID)
	defer cancel()
	if _, seen := hub.Latest(job.ID); !seen {
		if !s.sendEvent(conn, api.EventFromJob(job)) {
			return
		}
	}

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go readUntilClosed(conn, stop)

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteTimeout)); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				// Closed on cancel, or after a terminal event that may have been
				// dropped from a full buffer: report what the store says.
				if latest, found := hub.Latest(job.ID); found && latest.Terminal() {
					s.sendEvent(conn, api.FromEvent(latest))
				} else if current, err := s.daemon.store.Get(context.WithoutCancel(ctx), job.ID); err == nil && current.Status.Terminal() {
					s.sendEvent(conn, api.EventFromJob(current))
				}
				s.closeNormal(conn)
				return
			}
			if e.Terminal() {
				// Delivered again above once the channel closes.
				continue
			}
			if !s.sendEvent(conn, api.FromEvent(e)) {
				return
			}
		}
	}
}

// readUntilClosed drains client frames so control messages are processed,
// calling done once the peer goes away.
func readUntilClosed(conn *websocket.Conn, done func()) {
	defer done()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *apiServer) sendEvent(conn *websocket.Conn, e api.Event) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	if err := conn.WriteJSON(e); err != nil {
		s.logger.Debug("event stream write failed", logging.String(logging.FieldJobID, e.JobID), logging.Error(err))
		return false
	}
	return true
}

func (s *apiServer) closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
