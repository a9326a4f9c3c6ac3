// Package config handles loading and saving the horterd configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/horter-io/horter-go/internal/horter"
	"github.com/horter-io/horter-go/internal/i2cbus"
)

// FileName is the default configuration file name.
const FileName = "horterd.json"

// Config is the daemon configuration.
type Config struct {
	Bus            int     `json:"bus"`
	Backend        string  `json:"backend"`
	ADCAddress     uint16  `json:"adc_address"`
	DACAddress     uint16  `json:"dac_address"`
	PollIntervalMS int     `json:"poll_interval_ms"`
	MonitorEnabled bool    `json:"monitor_enabled"`
	MaxOpsPerSec   float64 `json:"max_ops_per_sec,omitempty"`
	HTTPAddr       string  `json:"http_addr"`
	MDNS           bool    `json:"mdns"`
	MDNSName       string  `json:"mdns_name,omitempty"`
}

// Default returns the factory configuration: bus 1, both boards at their
// factory addresses, monitor on at the default interval.
func Default() Config {
	return Config{
		Bus:            1,
		Backend:        string(i2cbus.BackendPeriph),
		ADCAddress:     horter.DefaultADCAddress,
		DACAddress:     horter.DefaultDACAddress,
		PollIntervalMS: int(horter.DefaultPollInterval / time.Millisecond),
		MonitorEnabled: true,
		HTTPAddr:       ":8080",
		MDNS:           false,
		MDNSName:       "horterd",
	}
}

// PollInterval returns PollIntervalMS as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Bus < 0 {
		return fmt.Errorf("config: bus %d: must not be negative", c.Bus)
	}
	if _, err := i2cbus.ParseBackend(c.Backend); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ADCAddress > 0x7F {
		return fmt.Errorf("config: adc_address 0x%x: not a 7-bit address", c.ADCAddress)
	}
	if c.DACAddress > 0x7F {
		return fmt.Errorf("config: dac_address 0x%x: not a 7-bit address", c.DACAddress)
	}
	if c.ADCAddress == c.DACAddress {
		return fmt.Errorf("config: adc and dac share address 0x%02x", c.ADCAddress)
	}
	if c.PollIntervalMS < int(horter.MinPollInterval/time.Millisecond) {
		return fmt.Errorf("config: poll_interval_ms %d: below minimum %d",
			c.PollIntervalMS, horter.MinPollInterval/time.Millisecond)
	}
	if int64(c.PollIntervalMS) > horter.MaxPollInterval.Milliseconds() {
		return fmt.Errorf("config: poll_interval_ms %d: above maximum %d",
			c.PollIntervalMS, horter.MaxPollInterval.Milliseconds())
	}
	if c.MaxOpsPerSec < 0 {
		return fmt.Errorf("config: max_ops_per_sec %v: must not be negative", c.MaxOpsPerSec)
	}
	if c.HTTPAddr == "" {
		return errors.New("config: http_addr is empty")
	}
	return nil
}

// Load reads the configuration at path. Fields missing from the file keep
// their default values. A missing file yields Default; a file that cannot be
// parsed or fails validation is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// Write to temp file, then rename (atomic on Linux)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
