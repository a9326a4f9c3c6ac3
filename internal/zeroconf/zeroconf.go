// Package zeroconf registers the horterd HTTP API as an mDNS/DNS-SD service
// so clients on the LAN can find the boards without knowing the host.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_http._tcp"

// Service manages mDNS service registration.
type Service struct {
	name    string // instance name, e.g. "horterd"
	port    int
	adcAddr uint16
	dacAddr uint16
}

// New creates a Service that advertises the API on port, with the board
// addresses in the TXT record.
func New(name string, port int, adcAddr, dacAddr uint16) *Service {
	return &Service{
		name:    name,
		port:    port,
		adcAddr: adcAddr,
		dacAddr: dacAddr,
	}
}

// TXT returns the TXT records the service advertises.
func (s *Service) TXT() []string {
	return []string{
		"model=horter",
		fmt.Sprintf("adc=0x%02x", s.adcAddr),
		fmt.Sprintf("dac=0x%02x", s.dacAddr),
		"api=/api",
	}
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	if s.port <= 0 || s.port > 65535 {
		return fmt.Errorf("zeroconf: invalid port %d", s.port)
	}
	txt := s.TXT()

	server, err := zeroconf.Register(
		s.name,      // instance name
		serviceType, // service type
		"local.",    // domain
		s.port,      // port
		txt,         // TXT records
		nil,         // ifaces, nil means all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"port", s.port,
		"txt", txt,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
