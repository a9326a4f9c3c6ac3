package horter

import (
	"fmt"

	"github.com/horter-io/horter-go/internal/analog"
)

var (
	adcPins = makePins(ADCName, ADCChannels, "ANALOG INPUT %d", analog.ModeAnalogInput)
	dacPins = makePins(DACName, DACChannels, "ANALOG OUTPUT %d", analog.ModeAnalogOutput)

	adcChannels = newChannelMap(adcPins)
	dacChannels = newChannelMap(dacPins)
)

func makePins(provider string, n int, format string, mode analog.Mode) []analog.Pin {
	pins := make([]analog.Pin, n)
	for ch := range pins {
		pins[ch] = analog.NewPin(provider, ch, fmt.Sprintf(format, ch), mode)
	}
	return pins
}

// ADCPins returns the ADC board's input pins in channel order.
func ADCPins() []analog.Pin { return append([]analog.Pin(nil), adcPins...) }

// DACPins returns the DAC board's output pins in channel order.
func DACPins() []analog.Pin { return append([]analog.Pin(nil), dacPins...) }

// ADCPin returns the input pin for channel ch.
func ADCPin(ch int) (analog.Pin, bool) {
	if ch < 0 || ch >= len(adcPins) {
		return analog.Pin{}, false
	}
	return adcPins[ch], true
}

// DACPin returns the output pin for channel ch.
func DACPin(ch int) (analog.Pin, bool) {
	if ch < 0 || ch >= len(dacPins) {
		return analog.Pin{}, false
	}
	return dacPins[ch], true
}

// channelMap resolves a pin identity to its channel index on one board.
// Identities not in the map are foreign to the board.
type channelMap map[analog.Pin]int

func newChannelMap(pins []analog.Pin) channelMap {
	m := make(channelMap, len(pins))
	for ch, p := range pins {
		m[p] = ch
	}
	return m
}

func (m channelMap) index(p analog.Pin) (int, bool) {
	ch, ok := m[p]
	return ch, ok
}

// adcOffset returns the frame offset of the pin's LSB.
func adcOffset(p analog.Pin) (int, bool) {
	ch, ok := adcChannels.index(p)
	if !ok {
		return 0, false
	}
	return 1 + 2*ch, true
}

// dacSelector returns the selector byte addressing the pin's output.
func dacSelector(p analog.Pin) (byte, bool) {
	ch, ok := dacChannels.index(p)
	if !ok {
		return 0, false
	}
	return byte(ch), true
}
