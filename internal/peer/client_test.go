package peer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"digil_monitor/internal/config"
	"digil_monitor/internal/models"
)

// fakePeer servidor que responde ao start com uma métrica e um frame inválido
func fakePeer(t *testing.T, received chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected","data":"ok"}`))

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env := string(msg)
			received <- env

			if strings.Contains(env, models.CommandStartSession) {
				conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
				conn.WriteMessage(websocket.TextMessage, []byte(
					`{"event":"monitoring_started","data":{"message":"ok"}}`+"\n"+
						`{"event":"metric_found","data":{"metric_type":"EIT_WINDVEL","value":4.2,"timestamp":"14:29:00"}}`))
			}
			if strings.Contains(env, models.CommandStopSession) {
				// Derruba a conexão para forçar a reconexão
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig() config.PeerConfig {
	return config.PeerConfig{
		DialTimeout:       time.Second,
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 50 * time.Millisecond,
	}
}

func nextEvent(t *testing.T, c *Client) models.Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return nil
	}
}

func TestClient_RoundTripAndReconnect(t *testing.T) {
	received := make(chan string, 16)
	srv := fakePeer(t, received)
	defer srv.Close()

	c := NewClient(testConfig(), StaticURL(wsURL(srv)))
	if err := c.Send(models.StopSession{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected before Run; got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if _, ok := nextEvent(t, c).(models.Connected); !ok {
		t.Fatalf("first event must be the synthesized Connected")
	}
	if !c.IsConnected() {
		t.Fatalf("client should report connected")
	}

	if err := c.Send(models.StartSession{DeviceID: "DEV01", SensorCardinality: 6}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case env := <-received:
		if !strings.Contains(env, `"device_id":"DEV01"`) {
			t.Fatalf("unexpected envelope %s", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("peer never received the start command")
	}

	// O "connected" do peer e o frame inválido são descartados
	if _, ok := nextEvent(t, c).(models.SessionStarted); !ok {
		t.Fatalf("expected SessionStarted")
	}
	metric, ok := nextEvent(t, c).(models.MetricFound)
	if !ok || metric.ID != "EIT_WINDVEL" || metric.Value.String() != "4.2" {
		t.Fatalf("unexpected metric event %+v", metric)
	}

	if err := c.Send(models.StopSession{}); err != nil {
		t.Fatalf("send stop: %v", err)
	}
	if _, ok := nextEvent(t, c).(models.Connected); !ok {
		t.Fatalf("expected a new Connected after the peer dropped the connection")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled; got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if c.IsConnected() {
		t.Fatalf("client must be disconnected after Run returns")
	}
}

func TestClient_RetriesUntilPeerIsReachable(t *testing.T) {
	attempts := 0
	srv := fakePeer(t, make(chan string, 16))
	defer srv.Close()

	resolve := func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("peer ainda não anunciado")
		}
		return wsURL(srv), nil
	}

	c := NewClient(testConfig(), resolve)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	if _, ok := nextEvent(t, c).(models.Connected); !ok {
		t.Fatalf("expected Connected after retries")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 resolve attempts; got %d", attempts)
	}
}
