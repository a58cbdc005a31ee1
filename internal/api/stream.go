package api

import (
	"net/http"
	"time"

	"github.com/banshee-data/activity.report/internal/activity"
	"github.com/banshee-data/activity.report/internal/httputil"
	"github.com/banshee-data/activity.report/internal/monitoring"
)

// streamActivity sends the current snapshot and then every published
// snapshot as an SSE data event. A slow client only ever sees the newest
// pending snapshot; intermediate ones are skipped.
func (s *Server) streamActivity(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	stream, err := httputil.NewEventStream(w)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	updates := make(chan activity.Snapshot, 1)
	id := s.tracker.Subscribe(func(snap activity.Snapshot) {
		// Observers run under the aggregator lock and must not block.
		select {
		case <-updates:
		default:
		}
		updates <- snap
	})
	defer s.tracker.Unsubscribe(id)

	if err := stream.SendJSON("", s.response(s.tracker.Snapshot())); err != nil {
		return
	}

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-updates:
			if err := stream.SendJSON("", s.response(snap)); err != nil {
				monitoring.Logf("activity stream: client write failed: %v", err)
				return
			}
		case <-keepAlive.C:
			if err := stream.Ping(); err != nil {
				return
			}
		}
	}
}
