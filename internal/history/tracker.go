// Package history registra as mudanças de valor de cada observação.
package history

import (
	"digil_monitor/internal/models"
)

const (
	// MaxEntries quantidade máxima de mudanças guardadas por identificador
	MaxEntries = 50
	// SummaryEntries quantidade de entradas exibidas no resumo
	SummaryEntries = 10
)

// Tracker guarda, por identificador, as mudanças de valor em ordem da mais
// recente para a mais antiga. Não é seguro para uso concorrente; o dono do
// estado da sessão serializa o acesso.
type Tracker struct {
	entries map[string][]models.HistoryEntry
}

// NewTracker cria um tracker vazio
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string][]models.HistoryEntry)}
}

// Append registra uma mudança como a mais recente do identificador.
// Quem chama decide se houve mudança; acima de MaxEntries a mais antiga sai.
func (t *Tracker) Append(id string, entry models.HistoryEntry) {
	list := append(t.entries[id], models.HistoryEntry{})
	copy(list[1:], list)
	list[0] = entry
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}
	t.entries[id] = list
}

// Latest retorna a mudança mais recente do identificador
func (t *Tracker) Latest(id string) (models.HistoryEntry, bool) {
	list := t.entries[id]
	if len(list) == 0 {
		return models.HistoryEntry{}, false
	}
	return list[0], true
}

// History retorna uma cópia do histórico, mais recente primeiro
func (t *Tracker) History(id string) []models.HistoryEntry {
	list := t.entries[id]
	if len(list) == 0 {
		return nil
	}
	return append([]models.HistoryEntry(nil), list...)
}

// Summary retorna as entradas mais recentes e a quantidade de mais antigas
func (t *Tracker) Summary(id string) models.HistorySummary {
	list := t.entries[id]
	n := len(list)
	if n > SummaryEntries {
		n = SummaryEntries
	}

	return models.HistorySummary{
		Recent: append([]models.HistoryEntry(nil), list[:n]...),
		Older:  len(list) - n,
		Total:  len(list),
	}
}

// Len retorna a quantidade de entradas de um identificador
func (t *Tracker) Len(id string) int {
	return len(t.entries[id])
}

// Reset descarta todo o histórico
func (t *Tracker) Reset() {
	t.entries = make(map[string][]models.HistoryEntry)
}
