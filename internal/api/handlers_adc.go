package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/horter-io/horter-go/internal/horter"
)

// MonitorStatus is the state of the input polling monitor.
type MonitorStatus struct {
	IntervalMS int64 `json:"interval_ms"`
	Enabled    bool  `json:"enabled"`
}

// MonitorUpdate is the body of PATCH /api/adc/monitor. Absent fields are
// left unchanged.
type MonitorUpdate struct {
	IntervalMS *int  `json:"interval_ms,omitempty"`
	Enabled    *bool `json:"enabled,omitempty"`
}

func hexAddr(a uint16) string { return fmt.Sprintf("0x%02x", a) }

func (h *Handlers) monitorStatus() MonitorStatus {
	return MonitorStatus{
		IntervalMS: h.adc.MonitorInterval().Milliseconds(),
		Enabled:    h.adc.MonitorEnabled(),
	}
}

func (h *Handlers) getInputs(w http.ResponseWriter, r *http.Request) {
	pins := h.adc.Pins()
	out := make([]ChannelValue, 0, len(pins))
	for _, p := range pins {
		out = append(out, channelValue(p, h.adc.Value(p), true))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getInput(w http.ResponseWriter, r *http.Request) {
	pin, err := pinParam(r, horter.ADCPin)
	if err != nil {
		writeError(w, err)
		return
	}
	if cached, _ := strconv.ParseBool(r.URL.Query().Get("cached")); cached {
		writeJSON(w, http.StatusOK, channelValue(pin, h.adc.Value(pin), true))
		return
	}
	v, err := h.adc.ImmediateValue(r.Context(), pin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channelValue(pin, v, false))
}

func (h *Handlers) setMonitor(w http.ResponseWriter, r *http.Request) {
	var upd MonitorUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if upd.IntervalMS != nil && (*upd.IntervalMS <= 0 || int64(*upd.IntervalMS) > horter.MaxPollInterval.Milliseconds()) {
		writeError(w, ErrBadRequest(fmt.Sprintf("interval_ms must be between 1 and %d", horter.MaxPollInterval.Milliseconds())))
		return
	}
	if upd.IntervalMS != nil {
		h.adc.SetMonitorInterval(time.Duration(*upd.IntervalMS) * time.Millisecond)
	}
	if upd.Enabled != nil {
		h.adc.SetMonitorEnabled(*upd.Enabled)
	}
	writeJSON(w, http.StatusOK, h.monitorStatus())
}
