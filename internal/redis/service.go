package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"digil_monitor/internal/history"
	"digil_monitor/internal/metrics"
	"digil_monitor/internal/models"
	"digil_monitor/internal/monitor"
	"digil_monitor/pkg/logger"
)

const (
	queueSize = 512

	// Tamanho máximo da lista de outros alarmes
	otherAlarmsLimit = 500

	writeTimeout = 2 * time.Second
)

// pipeline subconjunto de redis.Pipeliner usado pelo espelho
type pipeline interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	ZAddNX(ctx context.Context, key string, members ...*redis.Z) *redis.IntCmd
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// Mirror espelha os efeitos da sessão no Redis. Implementa
// monitor.Presenter; as escritas acontecem em uma goroutine própria.
type Mirror struct {
	client *Client
	queue  chan monitor.Effect
	now    func() time.Time
}

// NewMirror cria o espelho sobre um cliente já configurado
func NewMirror(client *Client) *Mirror {
	return &Mirror{
		client: client,
		queue:  make(chan monitor.Effect, queueSize),
		now:    time.Now,
	}
}

// Present implementa monitor.Presenter sem bloquear
func (m *Mirror) Present(effect monitor.Effect) {
	if !m.client.Enabled() {
		return
	}
	select {
	case m.queue <- effect:
	default:
		metrics.QueueDropped.WithLabelValues("redis").Inc()
	}
}

// Run consome a fila até o contexto ser cancelado
func (m *Mirror) Run(ctx context.Context) {
	if !m.client.Enabled() {
		return
	}

	if err := m.client.Connect(ctx); err != nil {
		logger.Warnf("Aviso: %v. O espelho Redis tentará reconectar.", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case effect := <-m.queue:
			m.apply(ctx, effect)
		}
	}
}

func (m *Mirror) apply(ctx context.Context, effect monitor.Effect) {
	if !m.client.IsConnected(ctx) {
		metrics.RedisOperations.WithLabelValues("skip", "offline").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if _, ok := effect.(monitor.SessionReset); ok {
		removed, err := m.client.ClearPrefix(ctx)
		metrics.RedisOperations.WithLabelValues("clear", metrics.Status(err)).Inc()
		if err != nil {
			logger.Errorf("Erro ao limpar sessão anterior no Redis: %v", err)
		} else {
			logger.Debugf("Sessão anterior removida do Redis: %d chaves", removed)
		}
	}

	pipe := m.client.Pipeline()
	op := m.plan(ctx, pipe, effect)
	if op == "" {
		pipe.Discard()
		return
	}

	_, err := pipe.Exec(ctx)
	metrics.RedisOperations.WithLabelValues(op, metrics.Status(err)).Inc()
	if err != nil {
		m.client.markFailed()
		logger.Errorf("Erro ao escrever %s no Redis: %v", op, err)
	}
}

// plan enfileira na pipeline as escritas de um efeito e devolve o nome da
// operação, ou vazio quando não há nada a escrever
func (m *Mirror) plan(ctx context.Context, pipe pipeline, effect monitor.Effect) string {
	nowMs := m.now().UnixMilli()
	key := m.client.FormatKey

	var op string
	switch e := effect.(type) {
	case monitor.SessionReset:
		op = "session"
		pipe.HSet(ctx, key("session"),
			"session_id", e.SessionID,
			"device_id", e.Params.DeviceID,
			"num_sensors", e.Catalog.Cardinality,
			"ui", e.Params.UIVariant,
			"timeout_minutes", e.Params.TimeoutMinutes,
			"metrics", marshal(e.Catalog.Metrics),
			"alarms", marshal(e.Catalog.Alarms),
			"started_at", nowMs,
		)

	case monitor.StatusChanged:
		op = "status"
		pipe.Set(ctx, key("status"), marshal(e.Status), 0)

	case monitor.RenderObservation:
		op = "observation"
		base := key(string(e.View.Kind) + ":" + e.View.ID)
		pipe.Set(ctx, base, marshal(e.View), 0)

		// A entrada mais recente só muda quando o valor muda
		if recent := e.View.History.Recent; len(recent) > 0 {
			histKey := base + ":history"
			pipe.ZAddNX(ctx, histKey, &redis.Z{Score: float64(nowMs), Member: marshal(recent[0])})
			pipe.ZRemRangeByRank(ctx, histKey, 0, -int64(history.MaxEntries+1))
		}

	case monitor.RenderProgress:
		op = "progress"
		pipe.Set(ctx, key("progress:"+string(e.Progress.Kind)),
			marshal(models.ProgressMessage{Progress: e.Progress, Missing: e.Missing}), 0)

	case monitor.RenderView:
		op = "view"
		pipe.Set(ctx, key("view"), marshal(e.View), 0)

	case monitor.Notify:
		op = "notify"
		pipe.Incr(ctx, key("notifications"))
		pipe.Set(ctx, key("last_notification"),
			marshal(models.NotifyMessage{Reason: string(e.Reason), AlarmID: e.AlarmID, Pulses: e.Pulses}), 0)

	case monitor.OtherAlarmAdded:
		op = "other_alarm"
		pipe.RPush(ctx, key("other_alarms"), marshal(e.View))
		pipe.LTrim(ctx, key("other_alarms"), -otherAlarmsLimit, -1)

	case monitor.ConfirmationRequired:
		op = "pending_filter"
		pipe.Set(ctx, key("pending_filter"), marshal(e.Pending), 0)

	case monitor.TimerTick:
		op = "timer"
		pipe.Set(ctx, key("elapsed"), e.Elapsed, 0)

	default:
		return ""
	}

	pipe.Set(ctx, key("latest_update"), marshal(map[string]interface{}{
		"timestamp": nowMs,
		"type":      op,
	}), 0)
	return op
}

func marshal(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("Erro ao serializar valor para o Redis: %v", err)
		return ""
	}
	return string(data)
}
