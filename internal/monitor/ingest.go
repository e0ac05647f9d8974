package monitor

import (
	"digil_monitor/internal/models"
	"digil_monitor/internal/validation"
)

// IngestMetric incorpora uma leitura de métrica
func (s *State) IngestMetric(ev models.MetricFound) ([]Effect, error) {
	id := normalizeID(ev.ID)
	if id == "" {
		return nil, ErrMissingID
	}

	obs, _ := s.upsert(models.KindMetric, id, ev.Timestamp.String(), ev.Value, models.ParseSource(ev.Source))

	obs.Category = models.ParseCategory(ev.Category)
	if obs.Category == models.CategoryUnknown {
		obs.Category = s.catalog.CategoryOf(id)
	}

	return []Effect{
		RenderObservation{View: s.observationView(obs, s.window.Now())},
		s.progressEffect(models.KindMetric),
	}, nil
}

// IngestAlarm incorpora a leitura de um alarme esperado. O aviso de alarme
// novo só é emitido na primeira observação do identificador.
func (s *State) IngestAlarm(ev models.AlarmFound) ([]Effect, error) {
	id := normalizeID(ev.ID)
	if id == "" {
		return nil, ErrMissingID
	}

	obs, created := s.upsert(models.KindAlarm, id, ev.Timestamp.String(), ev.Value, models.SourceLive)

	annotation := validation.Annotate(ev.Validation)
	obs.Validation = &annotation

	effects := []Effect{
		RenderObservation{View: s.observationView(obs, s.window.Now())},
		s.progressEffect(models.KindAlarm),
	}
	if created {
		effects = append(effects, Notify{Reason: NotifyNewAlarm, AlarmID: id, Pulses: 1})
	}
	return effects, nil
}

// IngestOtherAlarm acrescenta uma entrada à lista de outros alarmes
func (s *State) IngestOtherAlarm(ev models.OtherAlarmFound) ([]Effect, error) {
	id := normalizeID(ev.ID)
	if id == "" {
		return nil, ErrMissingID
	}

	other := OtherAlarm{ID: id, Value: ev.Value, Timestamp: ev.Timestamp.String()}
	s.others = append(s.others, other)

	return []Effect{OtherAlarmAdded{View: otherAlarmView(other, s.window.Now())}}, nil
}

// upsert atualiza sempre o último estado; o histórico só recebe a entrada
// quando o valor mudou em relação ao anterior.
func (s *State) upsert(kind models.Kind, id, timestamp string, value models.Scalar, source models.Source) (*Observation, bool) {
	store := s.Store(kind)

	prev, existed := store.Get(id)
	changed := !existed || prev.Value != value

	obs, created := store.upsert(id)
	obs.Timestamp = timestamp
	obs.Value = value
	obs.Source = source

	if changed {
		s.tracker(kind).Append(id, models.HistoryEntry{
			Timestamp: timestamp,
			Value:     value,
			Source:    source,
		})
	}
	return obs, created
}
