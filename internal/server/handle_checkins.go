package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/conferly/api/internal/conferly"
)

// handleListCheckIns returns recorded check-in attempts, optionally scoped
// by the conferenceId query parameter.
func handleListCheckIns(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var conferenceID int64
		if raw := r.URL.Query().Get("conferenceId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				writeError(w, http.StatusBadRequest, "invalid conferenceId")
				return
			}
			conferenceID = id
		}

		list, err := store.ListCheckIns(r.Context(), conferenceID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []conferly.CheckInRecord{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// handleCheckInEvents streams live check-in events for one conference over
// SSE, for scan-station dashboards.
func handleCheckInEvents(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conferenceID, err := strconv.ParseInt(r.URL.Query().Get("conferenceId"), 10, 64)
		if err != nil || conferenceID <= 0 {
			writeError(w, http.StatusBadRequest, "conferenceId query parameter required")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ch := broker.Subscribe(conferenceID)
		defer broker.Unsubscribe(conferenceID, ch)

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: checkin\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
