package plc

import (
	"context"
	"time"

	"digil_monitor/internal/config"
	"digil_monitor/internal/metrics"
	"digil_monitor/internal/models"
	"digil_monitor/internal/monitor"
	"digil_monitor/pkg/logger"
	"digil_monitor/pkg/utils"
)

// Layout do bloco de dados do anunciador
const (
	OffsetState          = 0  // INT
	OffsetMetricsPct     = 2  // REAL
	OffsetAlarmsPct      = 6  // REAL
	OffsetNotifications  = 10 // DINT
	OffsetMissingMetrics = 14 // INT
	OffsetMissingAlarms  = 16 // INT
	OffsetFlags          = 18 // BYTE

	FrameSize = 19
)

// Bits do byte de flags
const (
	FlagRunning  byte = 1 << 0
	FlagComplete byte = 1 << 1
	FlagFault    byte = 1 << 2
)

// Códigos de estado escritos no PLC
var stateCodes = map[models.SessionStatus]int16{
	models.StatusIdle:     0,
	models.StatusRunning:  1,
	models.StatusComplete: 2,
	models.StatusTimedOut: 3,
	models.StatusError:    4,
	models.StatusStopped:  5,
}

// Writer destino das escritas; S7Client implementa
type Writer interface {
	WriteDataBlock(dbNumber int, startOffset int, data []byte) error
}

// Frame conteúdo do bloco de dados
type Frame struct {
	State          int16
	MetricsPct     float32
	AlarmsPct      float32
	Notifications  int32
	MissingMetrics int16
	MissingAlarms  int16
	Flags          byte
}

// Encode serializa o frame em big-endian, no formato do S7
func (f Frame) Encode() []byte {
	buf := make([]byte, FrameSize)
	copy(buf[OffsetState:], utils.Int16ToBytes(f.State))
	copy(buf[OffsetMetricsPct:], utils.Float32ToBytes(f.MetricsPct))
	copy(buf[OffsetAlarmsPct:], utils.Float32ToBytes(f.AlarmsPct))
	copy(buf[OffsetNotifications:], utils.Int32ToBytes(f.Notifications))
	copy(buf[OffsetMissingMetrics:], utils.Int16ToBytes(f.MissingMetrics))
	copy(buf[OffsetMissingAlarms:], utils.Int16ToBytes(f.MissingAlarms))
	buf[OffsetFlags] = f.Flags
	return buf
}

// Annunciator publica o estado da sessão no PLC. Implementa
// monitor.Presenter; as escritas são agrupadas a cada UpdateRate.
type Annunciator struct {
	writer  Writer
	config  config.PLCConfig
	updates chan monitor.Effect

	// Estado pertencente à goroutine de Run
	frame Frame
	dirty bool
}

// NewAnnunciator cria o anunciador sobre um Writer
func NewAnnunciator(cfg config.PLCConfig, writer Writer) *Annunciator {
	return &Annunciator{
		writer:  writer,
		config:  cfg,
		updates: make(chan monitor.Effect, 64),
	}
}

// Present implementa monitor.Presenter sem bloquear
func (a *Annunciator) Present(effect monitor.Effect) {
	if !a.config.Enabled || !relevant(effect) {
		return
	}

	select {
	case a.updates <- effect:
	default:
		metrics.QueueDropped.WithLabelValues("plc").Inc()
		logger.Warn("Canal de atualizações para o PLC está cheio, descartando efeito")
	}
}

// Run aplica os efeitos e escreve o frame até o contexto ser cancelado
func (a *Annunciator) Run(ctx context.Context) {
	if !a.config.Enabled {
		logger.Info("Serviço PLC desabilitado por configuração")
		return
	}

	rate := a.config.UpdateRate
	if rate <= 0 {
		rate = time.Second
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	logger.Infof("Anunciador PLC iniciado (DB%d, %v)", a.config.DBNumber, rate)

	for {
		select {
		case <-ctx.Done():
			a.flush()
			return

		case effect := <-a.updates:
			a.apply(effect)

		case <-ticker.C:
			a.flush()
		}
	}
}

// apply atualiza o frame a partir de um efeito
func (a *Annunciator) apply(effect monitor.Effect) {
	switch e := effect.(type) {
	case monitor.StatusChanged:
		a.frame.State = stateCodes[e.Status.Status]
		a.frame.Flags = flagsFor(e.Status.Status)

	case monitor.SessionReset:
		a.frame.MetricsPct = 0
		a.frame.AlarmsPct = 0
		a.frame.MissingMetrics = 0
		a.frame.MissingAlarms = 0

	case monitor.RenderProgress:
		a.setProgress(e.Progress)

	case monitor.RenderView:
		a.setProgress(e.View.Metrics.Progress)
		a.setProgress(e.View.Alarms.Progress)

	case monitor.Notify:
		// O PLC gera um pulso por incremento
		a.frame.Notifications += int32(e.Pulses)

	default:
		return
	}
	a.dirty = true
}

func (a *Annunciator) setProgress(p models.ProgressSnapshot) {
	switch p.Kind {
	case models.KindMetric:
		a.frame.MetricsPct = float32(p.Percentage)
		a.frame.MissingMetrics = int16(len(p.MissingIDs))
	case models.KindAlarm:
		a.frame.AlarmsPct = float32(p.Percentage)
		a.frame.MissingAlarms = int16(len(p.MissingIDs))
	}
}

// flush escreve o frame se algo mudou desde a última escrita
func (a *Annunciator) flush() {
	if !a.dirty {
		return
	}

	err := a.writer.WriteDataBlock(a.config.DBNumber, 0, a.frame.Encode())
	metrics.PLCWrites.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		logger.Error("Falha ao escrever no PLC", err)
		return
	}
	a.dirty = false
}

func flagsFor(status models.SessionStatus) byte {
	switch status {
	case models.StatusRunning:
		return FlagRunning
	case models.StatusComplete:
		return FlagComplete
	case models.StatusTimedOut, models.StatusError:
		return FlagFault
	}
	return 0
}

func relevant(effect monitor.Effect) bool {
	switch effect.(type) {
	case monitor.StatusChanged, monitor.SessionReset, monitor.RenderProgress,
		monitor.RenderView, monitor.Notify:
		return true
	}
	return false
}
