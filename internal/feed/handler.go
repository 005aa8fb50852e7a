package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pacelog/pacelog/internal/auth"

	log "github.com/sirupsen/logrus"
)

const heartbeatInterval = 30 * time.Second

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
	}
}

// HandleSubscribe streams the caller's change feed as server-sent
// events until the client disconnects.
func (handler *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := handler.hub.Subscribe(userID)
	defer sub.Unsubscribe()

	log.Debugf("feed: user %d subscribed", userID)

	// let the client know the stream is live
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debugf("feed: user %d disconnected", userID)
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-sub.C:
			if !open {
				return
			}
			evJson, err := json.Marshal(ev)
			if err != nil {
				log.Errorf("feed: marshal event: %s", err)
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", evJson)
			flusher.Flush()
		}
	}
}
