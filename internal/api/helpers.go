// Package api implements the HTTP REST API over the analog boards.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/horter-io/horter-go/internal/analog"
	"github.com/horter-io/horter-go/internal/horter"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	adc    ADC
	dac    DAC
	events EventBus
}

// Board is the part of a provider common to both boards.
type Board interface {
	Name() string
	Addr() uint16
	Pins() []analog.Pin
	MinSupportedValue() float64
	MaxSupportedValue() float64
	Value(pin analog.Pin) float64
}

// ADC is the interface the handlers use to read analog inputs.
type ADC interface {
	Board
	ImmediateValue(ctx context.Context, pin analog.Pin) (float64, error)
	MonitorInterval() time.Duration
	SetMonitorInterval(d time.Duration)
	MonitorEnabled() bool
	SetMonitorEnabled(on bool)
}

// DAC is the interface the handlers use to drive analog outputs.
type DAC interface {
	Board
	SetValue(ctx context.Context, pin analog.Pin, v float64) error
}

// EventBus is the interface for subscribing to value change events.
type EventBus interface {
	Subscribe(id string) <-chan analog.ValueChangeEvent
	Unsubscribe(id string)
}

// ChannelValue is the JSON form of one channel.
type ChannelValue struct {
	Channel int     `json:"channel"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Cached  bool    `json:"cached"`
}

func channelValue(pin analog.Pin, v float64, cached bool) ChannelValue {
	return ChannelValue{Channel: pin.Address(), Name: pin.Name(), Value: v, Cached: cached}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON response. Transport failures map to 502
// and a shut down provider to 503.
func writeError(w http.ResponseWriter, err error) {
	var appErr *AppError
	var te *horter.TransportError
	switch {
	case errors.As(err, &appErr):
	case errors.As(err, &te):
		appErr = ErrBadGateway(err.Error())
	case errors.Is(err, horter.ErrShutdown):
		appErr = ErrUnavailable(err.Error())
	default:
		appErr = ErrInternal(err.Error())
	}
	writeJSON(w, appErr.Status, appErr)
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}

// pinParam resolves the {ch} path parameter against lookup.
func pinParam(r *http.Request, lookup func(int) (analog.Pin, bool)) (analog.Pin, error) {
	ch, err := intParam(r, "ch")
	if err != nil {
		return analog.Pin{}, err
	}
	pin, ok := lookup(ch)
	if !ok {
		return analog.Pin{}, ErrNotFound("no channel " + strconv.Itoa(ch))
	}
	return pin, nil
}
