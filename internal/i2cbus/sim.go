package i2cbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Default addresses of the simulated boards.
const (
	SimADCAddr uint16 = 0x08
	SimDACAddr uint16 = 0x58
)

const (
	simADCChannels = 5
	simDACChannels = 4
	simADCFrameLen = 1 + 2*simADCChannels
	simMaxCode     = 1023
)

// ErrNoDevice is returned for transactions addressed to an empty slot.
var ErrNoDevice = errors.New("i2cbus: sim: no device at address")

var _ i2c.BusCloser = (*Sim)(nil)

// Sim is a thread-safe in-memory I2C bus carrying one Horter ADC board and
// one Horter DAC board.
//
// The ADC board answers a pointer write followed by a read with its 11-byte
// frame: the pointer byte then an (LSB, MSB) pair per channel. The DAC board
// accepts 3-byte frames: selector, LSB, MSB.
type Sim struct {
	mu      sync.Mutex
	adcAddr uint16
	dacAddr uint16

	pointer  byte
	adc      [simADCChannels][2]byte // channel → {lsb, msb}
	dac      [simDACChannels]int
	dacLog   [][]byte
	loopback bool

	failRead  bool
	failWrite bool
	latency   time.Duration

	txCount     int
	inFlight    int
	maxInFlight int
	closeCount  int
}

// NewSim creates a simulated bus with the boards at their default addresses.
func NewSim() *Sim {
	return NewSimAt(SimADCAddr, SimDACAddr)
}

// NewSimAt creates a simulated bus with the boards at the given addresses.
func NewSimAt(adcAddr, dacAddr uint16) *Sim {
	return &Sim{adcAddr: adcAddr, dacAddr: dacAddr}
}

func (s *Sim) String() string { return "sim" }

// SetSpeed accepts any positive frequency.
func (s *Sim) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("i2cbus: sim: invalid speed %s", f)
	}
	return nil
}

// Tx performs one simulated transaction.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	s.txCount++
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	latency := s.latency
	s.mu.Unlock()

	// Simulate I2C timing
	if latency > 0 {
		time.Sleep(latency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if s.closeCount > 0 {
		return errors.New("i2cbus: sim: bus closed")
	}
	switch addr {
	case s.adcAddr:
		return s.adcTx(w, r)
	case s.dacAddr:
		return s.dacTx(w, r)
	}
	return fmt.Errorf("%w 0x%02x", ErrNoDevice, addr)
}

func (s *Sim) adcTx(w, r []byte) error {
	if len(w) > 0 {
		if s.failWrite && len(r) == 0 {
			return errors.New("i2cbus: sim: adc write failure configured")
		}
		if w[0] >= simADCFrameLen {
			return fmt.Errorf("i2cbus: sim: adc pointer 0x%02x out of range", w[0])
		}
		s.pointer = w[0]
	}
	if len(r) == 0 {
		return nil
	}
	if s.failRead {
		return errors.New("i2cbus: sim: adc read failure configured")
	}
	frame := s.frameLocked()
	n := copy(r, frame[s.pointer:])
	for i := n; i < len(r); i++ {
		r[i] = 0
	}
	return nil
}

func (s *Sim) frameLocked() [simADCFrameLen]byte {
	var f [simADCFrameLen]byte
	f[0] = s.pointer
	for ch, pair := range s.adc {
		f[1+2*ch] = pair[0]
		f[2+2*ch] = pair[1]
	}
	return f
}

func (s *Sim) dacTx(w, r []byte) error {
	if len(r) > 0 {
		return errors.New("i2cbus: sim: dac does not support reads")
	}
	if s.failWrite {
		return errors.New("i2cbus: sim: dac write failure configured")
	}
	if len(w) != 3 {
		return fmt.Errorf("i2cbus: sim: dac expects a 3-byte frame, got %d", len(w))
	}
	sel := int(w[0])
	if sel >= simDACChannels {
		return fmt.Errorf("i2cbus: sim: dac selector %d out of range", sel)
	}
	code := int(w[1]) | int(w[2])<<8
	s.dac[sel] = code
	s.dacLog = append(s.dacLog, append([]byte(nil), w...))
	if s.loopback {
		s.setADCCodeLocked(sel, code)
	}
	return nil
}

// SetADCCode sets the code an ADC channel reports. The code is split the way
// the board composes it: code = msb*255 + lsb.
func (s *Sim) SetADCCode(ch, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setADCCodeLocked(ch, code)
}

func (s *Sim) setADCCodeLocked(ch, code int) {
	if ch < 0 || ch >= simADCChannels {
		return
	}
	if code < 0 {
		code = 0
	}
	if code > simMaxCode {
		code = simMaxCode
	}
	s.adc[ch] = [2]byte{byte(code % 255), byte(code / 255)}
}

// SetADCBytes sets the raw byte pair an ADC channel reports.
func (s *Sim) SetADCBytes(ch int, lsb, msb byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= simADCChannels {
		return
	}
	s.adc[ch] = [2]byte{lsb, msb}
}

// DACCode returns the last code written to a DAC channel.
func (s *Sim) DACCode(ch int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= simDACChannels {
		return 0
	}
	return s.dac[ch]
}

// DACWrites returns a copy of every frame written to the DAC board.
func (s *Sim) DACWrites() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.dacLog))
	for i, f := range s.dacLog {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// SetLoopback mirrors DAC writes into the ADC channel with the same index.
func (s *Sim) SetLoopback(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loopback = on
}

// SetFailRead configures the sim to fail all reads.
func (s *Sim) SetFailRead(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRead = fail
}

// SetFailWrite configures the sim to fail all writes.
func (s *Sim) SetFailWrite(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrite = fail
}

// SetLatency makes every transaction take at least d.
func (s *Sim) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// TxCount returns the number of transactions attempted.
func (s *Sim) TxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

// MaxConcurrent returns the largest number of transactions seen in flight at once.
func (s *Sim) MaxConcurrent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// Close marks the bus closed. Later transactions fail.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	return nil
}

// CloseCount returns how many times Close was called.
func (s *Sim) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// Closed reports whether Close has been called.
func (s *Sim) Closed() bool {
	return s.CloseCount() > 0
}
