package config_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horter-io/horter-go/internal/config"
	"github.com/horter-io/horter-go/internal/horter"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, horter.DefaultADCAddress, cfg.ADCAddress)
	assert.Equal(t, horter.DefaultDACAddress, cfg.DACAddress)
	assert.Equal(t, horter.DefaultPollInterval, cfg.PollInterval())
	assert.True(t, cfg.MonitorEnabled)
}

func TestLoad_MissingFile_ReturnsDefault(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), config.FileName))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	writeFile(t, path, `{"bus": 3, "poll_interval_ms": 250}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Bus)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, horter.DefaultDACAddress, cfg.DACAddress)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"corrupt", `{not json`},
		{"negative bus", `{"bus": -1}`},
		{"backend", `{"backend": "spi"}`},
		{"adc address", `{"adc_address": 200}`},
		{"dac address", `{"dac_address": 128}`},
		{"shared address", `{"adc_address": 8, "dac_address": 8}`},
		{"interval", `{"poll_interval_ms": 10}`},
		{"interval too long", `{"poll_interval_ms": 9223372036854775}`},
		{"rate", `{"max_ops_per_sec": -2}`},
		{"http addr", `{"http_addr": ""}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), config.FileName)
			writeFile(t, path, tc.body)
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", config.FileName)
	cfg := config.Default()
	cfg.Backend = "sim"
	cfg.PollIntervalMS = 500
	cfg.MonitorEnabled = false
	cfg.MDNS = true

	require.NoError(t, config.Save(path, cfg))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	var raw map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "poll_interval_ms")
}

func TestSave_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	cfg := config.Default()
	cfg.PollIntervalMS = 1
	assert.Error(t, config.Save(path, cfg))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWatch_ReloadsOnSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, config.Save(path, config.Default()))

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan config.Config, 8)
	done := make(chan error, 1)
	go func() {
		done <- config.Watch(ctx, path, func(c config.Config) { got <- c })
	}()

	// writes to other files are ignored
	writeFile(t, filepath.Join(dir, "other.json"), `{}`)

	cfg := config.Default()
	cfg.PollIntervalMS = 750
	deadline := time.After(5 * time.Second)
	// the watcher may not be registered yet; rewrite until it notices
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	require.NoError(t, config.Save(path, cfg))
	for {
		select {
		case c := <-got:
			assert.Equal(t, 750, c.PollIntervalMS)
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			require.NoError(t, config.Save(path, cfg))
		case <-deadline:
			cancel()
			t.Fatal("no reload observed")
		}
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := config.Watch(context.Background(), filepath.Join(t.TempDir(), "nope", config.FileName), func(config.Config) {})
	assert.Error(t, err)
}
