package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := getDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
	if cfg.Session.NumSensors != 6 || cfg.Session.UIVariant != "Lazio" || cfg.Session.TimeoutMinutes != 120 || cfg.Session.WindowMinutes != 10 {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.json")
	content := `{"server":{"port":9090},"session":{"deviceId":"DEV42","numSensors":12},"redis":{"enabled":false}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Session.DeviceID != "DEV42" || cfg.Session.NumSensors != 12 || cfg.Redis.Enabled {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// Campos ausentes mantêm o padrão
	if cfg.Session.WindowMinutes != DefaultWindowMinutes || cfg.Redis.Port != 6379 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	env := map[string]string{
		"MONITOR_SERVER_PORT":          "7070",
		"MONITOR_DEVICE_ID":            " DEV07 ",
		"MONITOR_HISTORICAL_MODE":      "true",
		"MONITOR_PEER_RECONNECT_DELAY": "5s",
		"MONITOR_PLC_ENABLED":          "1",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := getDefaultConfig()
	if err := applyEnvironmentOverrides(&cfg, lookup); err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.Server.Port != 7070 || cfg.Session.DeviceID != "DEV07" || !cfg.Session.HistoricalMode ||
		cfg.Peer.ReconnectDelay != 5*time.Second || !cfg.PLC.Enabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	env["MONITOR_NUM_SENSORS"] = "six"
	if err := applyEnvironmentOverrides(&cfg, lookup); err == nil {
		t.Fatalf("expected error for invalid integer")
	}
}

func TestValidate(t *testing.T) {
	cfg := getDefaultConfig()
	cfg.Peer.URL = ""
	cfg.Discovery.Enabled = false
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without peer url and discovery")
	}

	cfg = getDefaultConfig()
	cfg.Session.WindowMinutes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

func TestParseSessionQuery(t *testing.T) {
	defaults := getDefaultConfig().Session

	params, err := ParseSessionQuery(url.Values{"device_id": {"DEV01"}}, defaults)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params.DeviceID != "DEV01" || params.SensorCardinality != 6 || params.UIVariant != "Lazio" || params.TimeoutMinutes != 120 {
		t.Fatalf("defaults not applied: %+v", params)
	}

	params, err = ParseSessionQuery(url.Values{
		"device_id":   {"DEV02"},
		"num_sensors": {"3"},
		"ui":          {"Toscana"},
		"timeout":     {"30"},
	}, defaults)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params.SensorCardinality != 3 || params.UIVariant != "Toscana" || params.TimeoutMinutes != 30 {
		t.Fatalf("query not applied: %+v", params)
	}

	params, err = ParseSessionQuery(url.Values{}, defaults)
	if err != nil || params.DeviceID != "" {
		t.Fatalf("missing device id is left for the session to reject; got %+v, %v", params, err)
	}

	cardinalities := map[string]int{
		"3":    3,
		"6.0":  6,
		" 6 ":  6,
		"12":   12,
		"9":    12,
		"many": 12,
		"3abc": 3,
		"-6":   12,
	}
	for raw, want := range cardinalities {
		params, err := ParseSessionQuery(url.Values{"device_id": {"DEV01"}, "num_sensors": {raw}}, defaults)
		if err != nil {
			t.Fatalf("num_sensors %q: %v", raw, err)
		}
		if params.SensorCardinality != want {
			t.Errorf("num_sensors %q = %d; want %d", raw, params.SensorCardinality, want)
		}
	}
	if _, err := ParseSessionQuery(url.Values{"timeout": {"-1"}}, defaults); err == nil {
		t.Fatalf("expected error for negative timeout")
	}
}
