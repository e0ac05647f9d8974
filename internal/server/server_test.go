package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"digil_monitor/internal/config"
)

func newTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Peer.URL = "ws://127.0.0.1:1/events"
	cfg.Peer.ReconnectDelay = time.Second
	cfg.Redis.Enabled = false
	cfg.PLC.Enabled = false
	cfg.Discovery.Enabled = false
	cfg.Session.DeviceID = "DEV01"
	cfg.Session.AutoStart = true
	return cfg
}

func startTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.startServices()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return ts
}

func getJSON(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, body
}

func TestHealth_DegradedWithoutPeer(t *testing.T) {
	ts := startTestServer(t, newTestConfig())

	code, body := getJSON(t, ts.URL+"/health")
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}

	services, _ := body["services"].(map[string]interface{})
	want := map[string]string{
		"peer":      "offline",
		"redis":     "disabled",
		"plc":       "disabled",
		"discovery": "disabled",
		"websocket": "ok",
	}
	for name, status := range want {
		if services[name] != status {
			t.Errorf("services[%s] = %v, want %s", name, services[name], status)
		}
	}
}

func TestAutoStartRunsSession(t *testing.T) {
	ts := startTestServer(t, newTestConfig())

	code, body := getJSON(t, ts.URL+"/api/status")
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if body["status"] != "RUNNING" {
		t.Errorf("status = %v, want RUNNING", body["status"])
	}
	params, _ := body["params"].(map[string]interface{})
	if params["device_id"] != "DEV01" {
		t.Errorf("params = %v", params)
	}
}

func TestAutoStartWithoutDeviceStaysIdle(t *testing.T) {
	cfg := newTestConfig()
	cfg.Session.DeviceID = ""
	ts := startTestServer(t, cfg)

	_, body := getJSON(t, ts.URL+"/api/status")
	if body["status"] != "IDLE" {
		t.Errorf("status = %v, want IDLE", body["status"])
	}
}

func TestInfoAndMetricsRoutes(t *testing.T) {
	ts := startTestServer(t, newTestConfig())

	code, body := getJSON(t, ts.URL+"/info")
	if code != http.StatusOK || body["name"] != "DIGIL Monitor Dashboard" {
		t.Errorf("info = %d %v", code, body)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d", resp.StatusCode)
	}
}
