package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"digil_monitor/internal/config"
	"digil_monitor/internal/models"
	"digil_monitor/internal/monitor"
)

type nullTransport struct {
	events chan models.Event
}

func (n *nullTransport) Events() <-chan models.Event   { return n.events }
func (n *nullTransport) Send(cmd models.Command) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctrl := monitor.NewController(models.FilterConfig{WindowMinutes: 10}, nil)
	runner := monitor.NewRunner(ctrl, &nullTransport{events: make(chan models.Event)})

	ctx, cancel := context.WithCancel(context.Background())
	go runner.Run(ctx)
	t.Cleanup(cancel)

	router := NewRouter(runner, config.SessionConfig{NumSensors: 6, UIVariant: "Lazio", TimeoutMinutes: 120}, "/api")
	router.Setup()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var payload map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestStartSession(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"missing device id", "", http.StatusBadRequest},
		{"invalid timeout", "?device_id=DEV01&timeout=abc", http.StatusBadRequest},
		{"started", "?device_id=DEV01&num_sensors=6", http.StatusAccepted},
		{"already running", "?device_id=DEV02", http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, payload := do(t, http.MethodPost, srv.URL+"/api/session/start"+tc.query, nil)
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d; got %d (%v)", tc.want, resp.StatusCode, payload)
			}
		})
	}

	resp, payload := do(t, http.MethodGet, srv.URL+"/api/status", nil)
	if resp.StatusCode != http.StatusOK || payload["status"] != string(models.StatusRunning) {
		t.Fatalf("unexpected status %d %v", resp.StatusCode, payload)
	}

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/status", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405; got %d", resp.StatusCode)
	}
}

func TestProgressAndHistory(t *testing.T) {
	srv := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/api/session/start?device_id=DEV01", nil)

	resp, payload := do(t, http.MethodGet, srv.URL+"/api/progress", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("progress: %d", resp.StatusCode)
	}
	metrics := payload["metrics"].(map[string]interface{})
	if metrics["total_expected"].(float64) != 16 || payload["complete"] != false {
		t.Fatalf("unexpected progress %v", payload)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/history?kind=sensor&id=X", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid kind must be rejected; got %d", resp.StatusCode)
	}

	resp, payload = do(t, http.MethodGet, srv.URL+"/api/history?kind=metric&id=EIT_WINDVEL", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: %d", resp.StatusCode)
	}
	if entries, ok := payload["entries"].([]interface{}); !ok || len(entries) != 0 {
		t.Fatalf("expected an empty entries array; got %v", payload)
	}
}

func TestFilterConfirmationFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/filter/confirm", map[string]bool{"accept": true})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("confirm without pending change must conflict; got %d", resp.StatusCode)
	}

	do(t, http.MethodPost, srv.URL+"/api/session/start?device_id=DEV01", nil)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/filter", map[string]interface{}{"time_window_minutes": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero live window must be rejected; got %d", resp.StatusCode)
	}

	resp, payload := do(t, http.MethodPost, srv.URL+"/api/filter", models.FilterConfig{WindowMinutes: 30})
	if resp.StatusCode != http.StatusOK || payload["pending"] != true {
		t.Fatalf("change while running must be pending; got %d %v", resp.StatusCode, payload)
	}

	resp, payload = do(t, http.MethodPost, srv.URL+"/api/filter/confirm", map[string]bool{"accept": false})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decline: %d", resp.StatusCode)
	}
	filter := payload["filter"].(map[string]interface{})
	if filter["time_window_minutes"].(float64) != 10 || payload["status"] != string(models.StatusRunning) {
		t.Fatalf("declined change must keep the session and window; got %v", payload)
	}

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/filter", map[string]interface{}{"unknown": 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown fields must be rejected; got %d", resp.StatusCode)
	}
}
