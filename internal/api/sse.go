package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/horter-io/horter-go/internal/analog"
)

// ChangeEvent is the JSON form of a value change sent to SSE clients.
type ChangeEvent struct {
	Provider string    `json:"provider"`
	Channel  int       `json:"channel"`
	Name     string    `json:"name"`
	Old      float64   `json:"old"`
	New      float64   `json:"new"`
	Time     time.Time `json:"time"`
}

// Snapshot is the first message on a new SSE stream.
type Snapshot struct {
	Inputs  []ChannelValue `json:"inputs"`
	Outputs []ChannelValue `json:"outputs"`
}

func changeEvent(ev analog.ValueChangeEvent) ChangeEvent {
	return ChangeEvent{
		Provider: ev.Pin.Provider(),
		Channel:  ev.Pin.Address(),
		Name:     ev.Pin.Name(),
		Old:      ev.Old,
		New:      ev.New,
		Time:     ev.Time,
	}
}

// sseEvents handles the SSE (Server-Sent Events) endpoint.
// Clients receive a snapshot of all cached values immediately, then a change
// event for every value change.
func (h *Handlers) sseEvents(w http.ResponseWriter, r *http.Request) {
	// Verify the client supports streaming
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	id := uuid.New().String()
	ch := h.events.Subscribe(id)
	defer h.events.Unsubscribe(id)

	snap := Snapshot{}
	for _, p := range h.adc.Pins() {
		snap.Inputs = append(snap.Inputs, channelValue(p, h.adc.Value(p), true))
	}
	for _, p := range h.dac.Pins() {
		snap.Outputs = append(snap.Outputs, h.outputValue(p))
	}
	sendSSE(w, flusher, "snapshot", snap)

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			sendSSE(w, flusher, "change", changeEvent(ev))
		case <-r.Context().Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
