package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"digil_monitor/internal/config"
	"digil_monitor/internal/models"
	"digil_monitor/internal/monitor"
)

type fakeControls struct {
	mu      sync.Mutex
	started []models.SessionParams
	filters []models.FilterConfig
}

func (f *fakeControls) Start(_ context.Context, params models.SessionParams) error {
	if params.DeviceID == "" {
		return monitor.ErrMissingDeviceID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, params)
	return nil
}

func (f *fakeControls) Stop(context.Context) error { return nil }

func (f *fakeControls) RequestFilterChange(_ context.Context, cfg models.FilterConfig) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, cfg)
	return true, nil
}

func (f *fakeControls) ConfirmFilterChange(context.Context, bool) error {
	return monitor.ErrNoPendingChange
}

func (f *fakeControls) Status(context.Context) (models.StatusView, error) {
	return models.StatusView{Status: models.StatusIdle}, nil
}

func (f *fakeControls) View(context.Context) (models.DashboardView, error) {
	return models.DashboardView{Status: models.StatusView{Status: models.StatusIdle}}, nil
}

func (f *fakeControls) History(_ context.Context, kind models.Kind, id string) ([]models.HistoryEntry, error) {
	return []models.HistoryEntry{{Timestamp: "14:29:00", Value: "1"}}, nil
}

type received struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	ID    string          `json:"id"`
}

// browser conexão de teste que separa os frames agrupados por '\n'
type browser struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []received
}

func (b *browser) send(v interface{}) {
	b.t.Helper()
	if err := b.conn.WriteJSON(v); err != nil {
		b.t.Fatalf("write: %v", err)
	}
}

// expect lê até encontrar uma mensagem do tipo pedido
func (b *browser) expect(msgType string) received {
	b.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		for i, msg := range b.pending {
			if msg.Type == msgType {
				b.pending = append(b.pending[:i], b.pending[i+1:]...)
				return msg
			}
		}

		b.conn.SetReadDeadline(deadline)
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			b.t.Fatalf("waiting for %q: %v", msgType, err)
		}
		for _, frame := range bytes.Split(data, []byte{'\n'}) {
			var msg received
			if err := json.Unmarshal(frame, &msg); err != nil {
				b.t.Fatalf("bad frame %s: %v", frame, err)
			}
			b.pending = append(b.pending, msg)
		}
	}
}

func setupHub(t *testing.T) (*Hub, *fakeControls, *browser) {
	t.Helper()
	controls := &fakeControls{}
	hub := NewHub(controls, config.SessionConfig{NumSensors: 6, UIVariant: "Lazio", TimeoutMinutes: 120})
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(NewHandler(hub, nil))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return hub, controls, &browser{t: t, conn: conn}
}

func TestHub_WelcomeCarriesView(t *testing.T) {
	_, _, b := setupHub(t)

	welcome := b.expect(models.MessageWelcome)
	var data struct {
		ClientID string               `json:"clientId"`
		View     models.DashboardView `json:"view"`
	}
	if err := json.Unmarshal(welcome.Data, &data); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if data.ClientID == "" || data.View.Status.Status != models.StatusIdle {
		t.Fatalf("unexpected welcome %+v", data)
	}
}

func TestHub_StartMonitoringUsesDefaults(t *testing.T) {
	_, controls, b := setupHub(t)
	b.expect(models.MessageWelcome)

	b.send(models.CommandMessage{Type: models.BrowserStartMonitoring, ID: "r1"})
	errMsg := b.expect(models.MessageError)
	if errMsg.ID != "r1" || !strings.Contains(string(errMsg.Data), "missing_device_id") {
		t.Fatalf("expected missing_device_id error; got %+v", errMsg)
	}

	b.send(models.CommandMessage{
		Type:   models.BrowserStartMonitoring,
		Params: map[string]interface{}{"device_id": "DEV01", "num_sensors": 3},
		ID:     "r2",
	})
	if ack := b.expect(models.MessageAck); ack.ID != "r2" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	controls.mu.Lock()
	defer controls.mu.Unlock()
	if len(controls.started) != 1 {
		t.Fatalf("expected one start; got %d", len(controls.started))
	}
	got := controls.started[0]
	if got.DeviceID != "DEV01" || got.SensorCardinality != 3 || got.UIVariant != "Lazio" || got.TimeoutMinutes != 120 {
		t.Fatalf("unexpected params %+v", got)
	}
}

func TestHub_FilterAndHistoryCommands(t *testing.T) {
	_, controls, b := setupHub(t)
	b.expect(models.MessageWelcome)

	b.send(models.CommandMessage{
		Type:   models.BrowserUpdateTimeFilter,
		Params: map[string]interface{}{"historical_mode": false, "time_window_minutes": 30},
	})
	ack := b.expect(models.MessageAck)
	var payload models.AckMessage
	json.Unmarshal(ack.Data, &payload)
	if !payload.Pending {
		t.Fatalf("expected pending ack; got %s", ack.Data)
	}
	controls.mu.Lock()
	if len(controls.filters) != 1 || controls.filters[0].WindowMinutes != 30 {
		t.Fatalf("unexpected filters %+v", controls.filters)
	}
	controls.mu.Unlock()

	b.send(models.CommandMessage{Type: models.BrowserConfirmFilter, Params: map[string]interface{}{"accept": true}})
	if msg := b.expect(models.MessageError); !strings.Contains(string(msg.Data), "no_pending_change") {
		t.Fatalf("unexpected error %+v", msg)
	}

	b.send(models.CommandMessage{Type: models.BrowserGetHistory, Params: map[string]interface{}{"kind": "metric"}})
	b.expect(models.MessageError)

	b.send(models.CommandMessage{Type: models.BrowserGetHistory, Params: map[string]interface{}{"kind": "metric", "id": "EIT_WINDVEL"}})
	var history models.HistoryMessage
	json.Unmarshal(b.expect(models.MessageHistory).Data, &history)
	if history.ID != "EIT_WINDVEL" || len(history.Entries) != 1 {
		t.Fatalf("unexpected history %+v", history)
	}

	b.send(map[string]interface{}{"type": "ping", "params": map[string]interface{}{"time": 42}})
	var pong models.PongMessage
	json.Unmarshal(b.expect(models.MessagePong).Data, &pong)
	if pong.Time != 42 || pong.ServerTime == 0 {
		t.Fatalf("unexpected pong %+v", pong)
	}

	b.send(map[string]interface{}{"type": "get_status", "unexpected": true})
	if msg := b.expect(models.MessageError); !strings.Contains(string(msg.Data), "invalid_format") {
		t.Fatalf("unknown fields must be rejected; got %+v", msg)
	}
}

func TestHub_PresentBroadcastsEffects(t *testing.T) {
	hub, _, b := setupHub(t)
	b.expect(models.MessageWelcome)

	hub.Present(monitor.Outbound{Command: models.StopSession{}})
	hub.Present(monitor.Notify{Reason: monitor.NotifyCompletion, Pulses: monitor.CompletionPulses})
	hub.Present(monitor.TimerTick{Elapsed: "00:05"})

	var notify models.NotifyMessage
	json.Unmarshal(b.expect(models.MessageNotify).Data, &notify)
	if notify.Reason != "completion" || notify.Pulses != 3 {
		t.Fatalf("unexpected notify %+v", notify)
	}

	var timer models.TimerMessage
	json.Unmarshal(b.expect(models.MessageTimer).Data, &timer)
	if timer.Elapsed != "00:05" {
		t.Fatalf("unexpected timer %+v", timer)
	}
}

func TestMessageForEffect_SkipsOutbound(t *testing.T) {
	if _, ok := MessageForEffect(monitor.Outbound{Command: models.StopSession{}}, time.Now()); ok {
		t.Fatalf("peer commands must not reach browsers")
	}
	msg, ok := MessageForEffect(monitor.ConfirmationRequired{
		Current: models.FilterConfig{WindowMinutes: 10},
		Pending: models.FilterConfig{WindowMinutes: 30},
	}, time.Now())
	if !ok || msg.Type != models.MessageConfirmFilter {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func fillBroadcast(h *Hub) {
	for i := 0; i < cap(h.broadcast); i++ {
		h.broadcast <- []byte(`{"type":"filler"}`)
	}
}

func TestHub_PresentWaitsForRoomOnNotify(t *testing.T) {
	hub := NewHub(nil, config.SessionConfig{})
	defer hub.Shutdown()
	fillBroadcast(hub)

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-hub.broadcast
	}()

	hub.Present(monitor.Notify{Reason: monitor.NotifyNewAlarm, AlarmID: "EGM_OUT_SENS_23_VAR_32", Pulses: 1})

	var last []byte
	for len(hub.broadcast) > 0 {
		last = <-hub.broadcast
	}
	var msg models.WebSocketMessage
	if err := json.Unmarshal(last, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != models.MessageNotify {
		t.Fatalf("notify should be queued once room is available; last message %s", msg.Type)
	}
}

func TestHub_PresentDropsRoutineEffectsWhenFull(t *testing.T) {
	hub := NewHub(nil, config.SessionConfig{})
	defer hub.Shutdown()
	fillBroadcast(hub)

	start := time.Now()
	hub.Present(monitor.TimerTick{Elapsed: "00:05"})
	if waited := time.Since(start); waited >= criticalSendTimeout {
		t.Fatalf("timer tick must not wait for room; waited %v", waited)
	}

	for len(hub.broadcast) > 0 {
		data := <-hub.broadcast
		if strings.Contains(string(data), models.MessageTimer) {
			t.Fatalf("timer tick should have been dropped")
		}
	}
}
