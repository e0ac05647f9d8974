package monitor

import (
	"fmt"
	"time"

	"digil_monitor/internal/filter"
	"digil_monitor/internal/models"
	"digil_monitor/pkg/utils"
)

const (
	msgWaiting       = "Aguardando dados..."
	msgWaitingRecent = "Aguardando dados recentes (último: %s, %s)"
	alarmIcon        = "🚨"
)

// Snapshot recalcula o progresso local de um tipo. Contagens informadas
// pelo peer nunca entram aqui porque ele desconhece o filtro temporal.
func (s *State) Snapshot(kind models.Kind) models.ProgressSnapshot {
	return s.snapshotAt(kind, s.window.Now())
}

func (s *State) snapshotAt(kind models.Kind, now time.Time) models.ProgressSnapshot {
	expected := s.catalog.Expected(kind)
	store := s.Store(kind)
	cfg := s.window.Config()

	snap := models.ProgressSnapshot{
		Kind:          kind,
		TotalExpected: len(expected),
		MissingIDs:    make([]string, 0, len(expected)),
	}
	for _, id := range expected {
		if obs, ok := store.Get(id); ok && filter.IsVisibleAt(obs.Timestamp, cfg, now) {
			snap.VisibleCount++
			continue
		}
		snap.MissingIDs = append(snap.MissingIDs, id)
	}

	if snap.TotalExpected > 0 {
		snap.Percentage = float64(snap.VisibleCount) / float64(snap.TotalExpected) * 100
	}
	return snap
}

// Complete indica que nenhum identificador esperado está faltando
func (s *State) Complete() bool {
	now := s.window.Now()
	return s.snapshotAt(models.KindMetric, now).Complete() && s.snapshotAt(models.KindAlarm, now).Complete()
}

// KindView monta a visão completa de um tipo: visíveis, ocultas pelo
// filtro, faltantes e progresso, todas avaliadas no mesmo instante.
func (s *State) KindView(kind models.Kind) models.KindView {
	now := s.window.Now()

	view := models.KindView{
		Visible: []models.ObservationView{},
		Hidden:  []models.ObservationView{},
	}
	s.Store(kind).Each(func(obs *Observation) {
		if v := s.observationView(obs, now); v.Visible {
			view.Visible = append(view.Visible, v)
		} else {
			view.Hidden = append(view.Hidden, v)
		}
	})

	view.Progress = s.snapshotAt(kind, now)
	view.Missing = s.missingViews(kind, view.Progress.MissingIDs, now)
	return view
}

func (s *State) progressEffect(kind models.Kind) RenderProgress {
	now := s.window.Now()
	snap := s.snapshotAt(kind, now)
	return RenderProgress{Progress: snap, Missing: s.missingViews(kind, snap.MissingIDs, now)}
}

func (s *State) missingViews(kind models.Kind, ids []string, now time.Time) []models.MissingView {
	store := s.Store(kind)
	views := make([]models.MissingView, 0, len(ids))
	for _, id := range ids {
		mv := models.MissingView{Kind: kind, ID: id, Label: label(kind, id), Message: msgWaiting}
		if obs, ok := store.Get(id); ok {
			mv.Held = true
			mv.Message = fmt.Sprintf(msgWaitingRecent, obs.Timestamp, lastSeen(obs.Timestamp, now))
		}
		views = append(views, mv)
	}
	return views
}

func (s *State) observationView(obs *Observation, now time.Time) models.ObservationView {
	icon := obs.Category.Icon()
	if obs.Kind == models.KindAlarm {
		icon = alarmIcon
	}

	return models.ObservationView{
		Kind:       obs.Kind,
		ID:         obs.ID,
		Label:      label(obs.Kind, obs.ID),
		Category:   obs.Category,
		Icon:       icon,
		Source:     obs.Source,
		SourceIcon: obs.Source.Icon(),
		Value:      obs.Value,
		Timestamp:  obs.Timestamp,
		Date:       displayDate(obs.Timestamp, now),
		Visible:    filter.IsVisibleAt(obs.Timestamp, s.window.Config(), now),
		Validation: obs.Validation,
		History:    s.tracker(obs.Kind).Summary(obs.ID),
	}
}

func displayDate(timestamp string, now time.Time) string {
	t, err := filter.ParseTimestamp(timestamp, now)
	if err != nil {
		return ""
	}
	return utils.FormatDisplayDate(t)
}

func lastSeen(timestamp string, now time.Time) string {
	t, err := filter.ParseTimestamp(timestamp, now)
	if err != nil {
		return "horário inválido"
	}
	return utils.TimeAgo(t, now)
}
