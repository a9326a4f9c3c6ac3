package api

import "net/http"

// BoardInfo describes one board.
type BoardInfo struct {
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Channels int     `json:"channels"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Info is the response of GET /api/info.
type Info struct {
	ADC     BoardInfo     `json:"adc"`
	DAC     BoardInfo     `json:"dac"`
	Monitor MonitorStatus `json:"monitor"`
}

func boardInfo(b Board) BoardInfo {
	return BoardInfo{
		Name:     b.Name(),
		Address:  hexAddr(b.Addr()),
		Channels: len(b.Pins()),
		Min:      b.MinSupportedValue(),
		Max:      b.MaxSupportedValue(),
	}
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Info{
		ADC:     boardInfo(h.adc),
		DAC:     boardInfo(h.dac),
		Monitor: h.monitorStatus(),
	})
}
