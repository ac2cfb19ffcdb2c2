package server

import (
	"net/http"
	"time"
)

const feedWriteTimeout = 5 * time.Second

// handleFeed upgrades to a websocket and pushes the version counter
// whenever the engine's change notification fires. Pushes carry no
// snapshot data; clients re-query the REST endpoints on each one.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("Feed upgrade failed")

		return
	}

	s.health.FeedClientsConnected.Inc()
	defer s.health.FeedClientsConnected.Dec()

	ch := s.engine.Subscribe()
	defer s.engine.Unsubscribe(ch)
	defer conn.Close()

	// Reader goroutine: the feed is push-only, so any read result
	// means the client is done.
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := func() bool {
		deadline := time.Now().Add(feedWriteTimeout)
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return false
		}

		if err := conn.WriteJSON(feedPush{
			RunID:   s.runID.String(),
			Version: s.engine.Version(),
		}); err != nil {
			s.log.WithError(err).Debug("Feed write failed")

			return false
		}

		s.health.FeedPushesTotal.Inc()

		return true
	}

	// Initial push so a late-joining client learns the current
	// version without waiting for the next mutation.
	if !push() {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ch:
			if !push() {
				return
			}
		}
	}
}
