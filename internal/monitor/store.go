package monitor

import (
	"digil_monitor/internal/models"
)

// Observation último estado conhecido de uma métrica ou alarme
type Observation struct {
	Kind       models.Kind
	ID         string
	Timestamp  string
	Value      models.Scalar
	Source     models.Source
	Category   models.Category
	Validation *models.ValidationAnnotation
}

// Store guarda uma observação por identificador, na ordem de chegada
type Store struct {
	kind  models.Kind
	order []string
	items map[string]*Observation
}

func newStore(kind models.Kind) *Store {
	return &Store{kind: kind, items: make(map[string]*Observation)}
}

// Get retorna a observação do identificador
func (s *Store) Get(id string) (*Observation, bool) {
	obs, ok := s.items[id]
	return obs, ok
}

// upsert retorna a observação existente ou cria uma nova
func (s *Store) upsert(id string) (*Observation, bool) {
	if obs, ok := s.items[id]; ok {
		return obs, false
	}
	obs := &Observation{Kind: s.kind, ID: id}
	s.items[id] = obs
	s.order = append(s.order, id)
	return obs, true
}

// Len quantidade de observações
func (s *Store) Len() int {
	return len(s.order)
}

// Each percorre as observações na ordem de chegada
func (s *Store) Each(fn func(*Observation)) {
	for _, id := range s.order {
		fn(s.items[id])
	}
}
