// Package monitor concilia as observações recebidas do peer com o catálogo
// esperado, aplica o filtro temporal e mantém o histórico e o progresso.
//
// Nada aqui é seguro para uso concorrente: o Runner é o único dono do
// Controller e serializa eventos, comandos e ticks em uma única goroutine.
package monitor

import (
	"strings"
	"time"

	"digil_monitor/internal/catalog"
	"digil_monitor/internal/filter"
	"digil_monitor/internal/history"
	"digil_monitor/internal/models"
)

// OtherAlarm entrada da lista de alarmes fora do catálogo
type OtherAlarm struct {
	ID        string
	Value     models.Scalar
	Timestamp string
}

// State dados de uma única sessão de monitoramento
type State struct {
	params  models.SessionParams
	catalog catalog.Catalog
	window  *filter.Window

	metrics       *Store
	alarms        *Store
	metricHistory *history.Tracker
	alarmHistory  *history.Tracker

	// Sem deduplicação: cada evento gera uma entrada
	others []OtherAlarm
}

// NewState cria o estado vazio de uma sessão e deriva o catálogo esperado
func NewState(params models.SessionParams, window *filter.Window) *State {
	return &State{
		params:        params,
		catalog:       catalog.Derive(params.SensorCardinality),
		window:        window,
		metrics:       newStore(models.KindMetric),
		alarms:        newStore(models.KindAlarm),
		metricHistory: history.NewTracker(),
		alarmHistory:  history.NewTracker(),
	}
}

// Catalog retorna o catálogo da sessão
func (s *State) Catalog() catalog.Catalog {
	return s.catalog
}

// Store retorna as observações de um tipo
func (s *State) Store(kind models.Kind) *Store {
	if kind == models.KindAlarm {
		return s.alarms
	}
	return s.metrics
}

func (s *State) tracker(kind models.Kind) *history.Tracker {
	if kind == models.KindAlarm {
		return s.alarmHistory
	}
	return s.metricHistory
}

// History retorna o histórico completo de um identificador
func (s *State) History(kind models.Kind, id string) []models.HistoryEntry {
	return s.tracker(kind).History(id)
}

// OtherAlarms retorna a lista de outros alarmes na ordem de chegada
func (s *State) OtherAlarms() []models.OtherAlarmView {
	now := s.window.Now()
	views := make([]models.OtherAlarmView, 0, len(s.others))
	for _, o := range s.others {
		views = append(views, otherAlarmView(o, now))
	}
	return views
}

func (s *State) catalogView() CatalogView {
	return CatalogView{
		Cardinality: s.catalog.Cardinality(),
		Metrics:     s.catalog.MetricIDs(),
		Alarms:      s.catalog.AlarmIDs(),
	}
}

func otherAlarmView(o OtherAlarm, now time.Time) models.OtherAlarmView {
	return models.OtherAlarmView{
		ID:        o.ID,
		Label:     catalog.AlarmLabel(o.ID),
		Value:     o.Value,
		Timestamp: o.Timestamp,
		Date:      displayDate(o.Timestamp, now),
	}
}

func label(kind models.Kind, id string) string {
	if kind == models.KindAlarm {
		return catalog.AlarmLabel(id)
	}
	return id
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
