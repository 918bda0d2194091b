package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/service"
)

const keepAliveInterval = 15 * time.Second

type SSEHandler struct {
	eventBus *service.EventBus
	dispatch Dispatcher
}

func NewSSEHandler(eventBus *service.EventBus, dispatch Dispatcher) *SSEHandler {
	return &SSEHandler{
		eventBus: eventBus,
		dispatch: dispatch,
	}
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func sendStatus(w http.ResponseWriter, eventName string, st domain.Status) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	sseWrite(w, eventName, string(b))
	return nil
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// Events streams the current status followed by one event per dispatch change.
func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch := h.eventBus.Subscribe()
		defer h.eventBus.Unsubscribe(ch)

		if err := sendStatus(w, "status", h.dispatch.Status()); err != nil {
			return
		}

		ctx := r.Context()
		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case event, ok := <-ch:
				if !ok {
					return
				}
				if err := sendStatus(w, event.Type, event.Status); err != nil {
					return
				}
			}
		}
	}
}
