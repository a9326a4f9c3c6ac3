package horter

import (
	"math"

	"github.com/horter-io/horter-go/internal/analog"
)

// adcPointer is the register the ADC frame is read from. Writing it alone
// resets the board's read pointer.
const adcPointer byte = 0x00

// ADCFrame is the ADC board's read frame: a pointer/status byte followed by
// an (LSB, MSB) pair per channel in channel order.
type ADCFrame [1 + 2*ADCChannels]byte

// DACFrame is a DAC board write: selector, LSB, MSB.
type DACFrame [3]byte

// DecodeChannel extracts pin's code from frame, or InvalidValue when the pin
// is not an ADC board input.
//
// The board composes the code as msb*255 + lsb, not msb*256 + lsb.
func DecodeChannel(frame ADCFrame, pin analog.Pin) int {
	off, ok := adcOffset(pin)
	if !ok {
		return InvalidValue
	}
	lsb, msb := int(frame[off]), int(frame[off+1])
	return (msb&0xFF)*255 + (lsb & 0xFF)
}

// Clamp limits v to [MinValue, MaxValue]. NaN clamps to MinValue.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < MinValue {
		return MinValue
	}
	if v > MaxValue {
		return MaxValue
	}
	return v
}

// EncodeDAC builds the write frame for code on the output addressed by selector.
func EncodeDAC(selector byte, code int) DACFrame {
	return DACFrame{selector, byte(code & 0xFF), byte((code >> 8) & 0xFF)}
}
