package i2cbus_test

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c"

	"github.com/horter-io/horter-go/internal/i2cbus"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    i2cbus.Backend
		wantErr bool
	}{
		{"", i2cbus.BackendPeriph, false},
		{"periph", i2cbus.BackendPeriph, false},
		{"ioctl", i2cbus.BackendIoctl, false},
		{"sim", i2cbus.BackendSim, false},
		{"spi", "", true},
	}
	for _, tc := range tests {
		got, err := i2cbus.ParseBackend(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseBackend(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOpenSim(t *testing.T) {
	b, err := i2cbus.Open(i2cbus.BackendSim, 1)
	if err != nil {
		t.Fatalf("Open(sim) error: %v", err)
	}
	if _, ok := b.(*i2cbus.Sim); !ok {
		t.Fatalf("Open(sim) returned %T, want *i2cbus.Sim", b)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestOpenInvalid(t *testing.T) {
	if _, err := i2cbus.Open(i2cbus.BackendSim, -1); err == nil {
		t.Error("Open with negative bus number should fail")
	}
	if _, err := i2cbus.Open("bogus", 1); err == nil {
		t.Error("Open with unknown backend should fail")
	}
}

func TestSimADCFrame(t *testing.T) {
	s := i2cbus.NewSim()
	for ch := 0; ch < 5; ch++ {
		s.SetADCBytes(ch, byte(10*(ch+1)), 0)
	}
	buf := make([]byte, 11)
	if err := s.Tx(i2cbus.SimADCAddr, []byte{0x00}, buf); err != nil {
		t.Fatalf("Tx error: %v", err)
	}
	want := []byte{0x00, 10, 0, 20, 0, 30, 0, 40, 0, 50, 0}
	if !bytes.Equal(buf, want) {
		t.Errorf("frame = %v, want %v", buf, want)
	}
}

func TestSimADCCodeSplit(t *testing.T) {
	tests := []struct {
		code     int
		lsb, msb byte
	}{
		{0, 0, 0},
		{254, 254, 0},
		{255, 0, 1},
		{1023, 3, 4},
		{5000, 3, 4}, // clamp
	}
	s := i2cbus.NewSim()
	buf := make([]byte, 11)
	for _, tc := range tests {
		s.SetADCCode(2, tc.code)
		if err := s.Tx(i2cbus.SimADCAddr, []byte{0x00}, buf); err != nil {
			t.Fatalf("Tx error: %v", err)
		}
		if buf[5] != tc.lsb || buf[6] != tc.msb {
			t.Errorf("SetADCCode(%d) → (%d,%d), want (%d,%d)", tc.code, buf[5], buf[6], tc.lsb, tc.msb)
		}
	}
}

func TestSimDACWriteAndLoopback(t *testing.T) {
	s := i2cbus.NewSim()
	s.SetLoopback(true)
	if err := s.Tx(i2cbus.SimDACAddr, []byte{0x01, 0xFF, 0x03}, nil); err != nil {
		t.Fatalf("Tx error: %v", err)
	}
	if got := s.DACCode(1); got != 1023 {
		t.Errorf("DACCode(1) = %d, want 1023", got)
	}
	if w := s.DACWrites(); len(w) != 1 || !bytes.Equal(w[0], []byte{0x01, 0xFF, 0x03}) {
		t.Errorf("DACWrites() = %v", w)
	}

	buf := make([]byte, 11)
	if err := s.Tx(i2cbus.SimADCAddr, []byte{0x00}, buf); err != nil {
		t.Fatalf("Tx error: %v", err)
	}
	if got := int(buf[4])*255 + int(buf[3]); got != 1023 {
		t.Errorf("loopback ADC channel 1 = %d, want 1023", got)
	}
}

func TestSimDACRejectsBadFrames(t *testing.T) {
	s := i2cbus.NewSim()
	if err := s.Tx(i2cbus.SimDACAddr, []byte{0x04, 0, 0}, nil); err == nil {
		t.Error("selector 4 should be rejected")
	}
	if err := s.Tx(i2cbus.SimDACAddr, []byte{0x00, 0}, nil); err == nil {
		t.Error("short frame should be rejected")
	}
	if len(s.DACWrites()) != 0 {
		t.Error("rejected frames must not be recorded")
	}
}

func TestSimFailures(t *testing.T) {
	s := i2cbus.NewSim()
	s.SetFailRead(true)
	if err := s.Tx(i2cbus.SimADCAddr, []byte{0}, make([]byte, 11)); err == nil {
		t.Error("read should fail")
	}
	s.SetFailRead(false)
	s.SetFailWrite(true)
	if err := s.Tx(i2cbus.SimDACAddr, []byte{0, 0, 0}, nil); err == nil {
		t.Error("write should fail")
	}

	err := s.Tx(0x42, []byte{0}, nil)
	if !errors.Is(err, i2cbus.ErrNoDevice) {
		t.Errorf("Tx to empty address err = %v, want ErrNoDevice", err)
	}
	if got := s.TxCount(); got != 3 {
		t.Errorf("TxCount() = %d, want 3", got)
	}
}

func TestSimClose(t *testing.T) {
	s := i2cbus.NewSim()
	if s.Closed() {
		t.Error("Closed() = true before Close")
	}
	_ = s.Close()
	if !s.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := s.Tx(i2cbus.SimADCAddr, []byte{0}, nil); err == nil {
		t.Error("Tx after Close should fail")
	}
	if got := s.CloseCount(); got != 1 {
		t.Errorf("CloseCount() = %d, want 1", got)
	}
}

func TestSimWithDev(t *testing.T) {
	// Drive the sim through periph's i2c.Dev, as the drivers do.
	s := i2cbus.NewSim()
	s.SetADCCode(0, 300)
	d := i2c.Dev{Bus: s, Addr: i2cbus.SimADCAddr}
	buf := make([]byte, 11)
	if err := d.Tx([]byte{0x00}, buf); err != nil {
		t.Fatalf("Dev.Tx error: %v", err)
	}
	if got := int(buf[2])*255 + int(buf[1]); got != 300 {
		t.Errorf("channel 0 = %d, want 300", got)
	}
}
