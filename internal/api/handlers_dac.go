package api

import (
	"encoding/json"
	"net/http"

	"github.com/horter-io/horter-go/internal/analog"
	"github.com/horter-io/horter-go/internal/horter"
)

// OutputUpdate is the body of PUT /api/dac/{ch}.
type OutputUpdate struct {
	Value *float64 `json:"value"`
}

func (h *Handlers) outputValue(pin analog.Pin) ChannelValue {
	return channelValue(pin, h.dac.Value(pin), true)
}

func (h *Handlers) getOutputs(w http.ResponseWriter, r *http.Request) {
	pins := h.dac.Pins()
	out := make([]ChannelValue, 0, len(pins))
	for _, p := range pins {
		out = append(out, h.outputValue(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getOutput(w http.ResponseWriter, r *http.Request) {
	pin, err := pinParam(r, horter.DACPin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.outputValue(pin))
}

func (h *Handlers) setOutput(w http.ResponseWriter, r *http.Request) {
	pin, err := pinParam(r, horter.DACPin)
	if err != nil {
		writeError(w, err)
		return
	}
	var upd OutputUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if upd.Value == nil {
		writeError(w, ErrBadRequest("value is required"))
		return
	}
	if err := h.dac.SetValue(r.Context(), pin, *upd.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.outputValue(pin))
}
