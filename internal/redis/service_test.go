package redis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"digil_monitor/internal/config"
	"digil_monitor/internal/models"
	"digil_monitor/internal/monitor"
)

type call struct {
	op  string
	key string
	arg string
}

type fakePipe struct {
	calls []call
}

func (f *fakePipe) record(op, key string, arg interface{}) {
	f.calls = append(f.calls, call{op: op, key: key, arg: fmt.Sprint(arg)})
}

func (f *fakePipe) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.record("set", key, value)
	return redis.NewStatusCmd(ctx)
}

func (f *fakePipe) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.record("hset", key, values)
	return redis.NewIntCmd(ctx)
}

func (f *fakePipe) ZAddNX(ctx context.Context, key string, members ...*redis.Z) *redis.IntCmd {
	f.record("zaddnx", key, members[0].Member)
	return redis.NewIntCmd(ctx)
}

func (f *fakePipe) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) *redis.IntCmd {
	f.record("zremrangebyrank", key, fmt.Sprintf("%d %d", start, stop))
	return redis.NewIntCmd(ctx)
}

func (f *fakePipe) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.record("incr", key, "")
	return redis.NewIntCmd(ctx)
}

func (f *fakePipe) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.record("rpush", key, values[0])
	return redis.NewIntCmd(ctx)
}

func (f *fakePipe) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	f.record("ltrim", key, fmt.Sprintf("%d %d", start, stop))
	return redis.NewStatusCmd(ctx)
}

func (f *fakePipe) find(op, key string) (call, bool) {
	for _, c := range f.calls {
		if c.op == op && c.key == key {
			return c, true
		}
	}
	return call{}, false
}

func newTestMirror() *Mirror {
	m := NewMirror(&Client{prefix: "digil_monitor"})
	m.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return m
}

func TestPlan_ObservationWritesLatestAndCappedHistory(t *testing.T) {
	m := newTestMirror()
	pipe := &fakePipe{}

	view := models.ObservationView{
		Kind:  models.KindAlarm,
		ID:    "EGM_OUT_SENS_23_VAR_32",
		Value: "1",
		History: models.HistorySummary{
			Recent: []models.HistoryEntry{{Timestamp: "14:29:00", Value: "1", Source: models.SourceLive}},
			Total:  1,
		},
	}
	op := m.plan(context.Background(), pipe, monitor.RenderObservation{View: view})
	if op != "observation" {
		t.Fatalf("unexpected op %q", op)
	}

	base := "digil_monitor:alarm:EGM_OUT_SENS_23_VAR_32"
	if c, ok := pipe.find("set", base); !ok || !strings.Contains(c.arg, `"value":"1"`) {
		t.Fatalf("latest value not written: %+v", pipe.calls)
	}
	if c, ok := pipe.find("zaddnx", base+":history"); !ok || !strings.Contains(c.arg, `"timestamp":"14:29:00"`) {
		t.Fatalf("history entry not written: %+v", pipe.calls)
	}
	if c, ok := pipe.find("zremrangebyrank", base+":history"); !ok || c.arg != "0 -51" {
		t.Fatalf("history must be capped at 50 entries: %+v", pipe.calls)
	}
	if _, ok := pipe.find("set", "digil_monitor:latest_update"); !ok {
		t.Fatalf("latest_update not written")
	}
}

func TestPlan_ObservationWithoutHistorySkipsZAdd(t *testing.T) {
	m := newTestMirror()
	pipe := &fakePipe{}

	m.plan(context.Background(), pipe, monitor.RenderObservation{View: models.ObservationView{Kind: models.KindMetric, ID: "EIT_WINDVEL"}})
	if _, ok := pipe.find("zaddnx", "digil_monitor:metric:EIT_WINDVEL:history"); ok {
		t.Fatalf("no history entry expected")
	}
}

func TestPlan_SessionAndOtherAlarms(t *testing.T) {
	m := newTestMirror()
	pipe := &fakePipe{}
	ctx := context.Background()

	m.plan(ctx, pipe, monitor.SessionReset{
		SessionID: "abc",
		Params:    models.SessionParams{DeviceID: "DEV01", UIVariant: "Lazio"},
		Catalog:   monitor.CatalogView{Cardinality: 6},
	})
	if c, ok := pipe.find("hset", "digil_monitor:session"); !ok || !strings.Contains(c.arg, "DEV01") {
		t.Fatalf("session hash not written: %+v", pipe.calls)
	}

	m.plan(ctx, pipe, monitor.OtherAlarmAdded{View: models.OtherAlarmView{ID: "X"}})
	if c, ok := pipe.find("ltrim", "digil_monitor:other_alarms"); !ok || c.arg != fmt.Sprintf("%d -1", -otherAlarmsLimit) {
		t.Fatalf("other alarms list must be trimmed: %+v", pipe.calls)
	}

	m.plan(ctx, pipe, monitor.Notify{Reason: monitor.NotifyNewAlarm, AlarmID: "X", Pulses: 1})
	if _, ok := pipe.find("incr", "digil_monitor:notifications"); !ok {
		t.Fatalf("notification counter not incremented")
	}
}

func TestPlan_IgnoresOutbound(t *testing.T) {
	m := newTestMirror()
	pipe := &fakePipe{}
	if op := m.plan(context.Background(), pipe, monitor.Outbound{Command: models.StopSession{}}); op != "" {
		t.Fatalf("outbound commands are not mirrored; got %q", op)
	}
	if len(pipe.calls) != 0 {
		t.Fatalf("no writes expected; got %+v", pipe.calls)
	}
}

func TestMirror_DisabledIsInert(t *testing.T) {
	m := NewMirror(NewClient(config.RedisConfig{Enabled: false, Prefix: "digil_monitor"}))
	m.Present(monitor.TimerTick{Elapsed: "00:01"})
	if len(m.queue) != 0 {
		t.Fatalf("disabled mirror must not queue effects")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Run(ctx)
}
