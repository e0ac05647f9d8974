// Package filter implementa o filtro temporal de visibilidade das observações.
//
// A visibilidade é sempre recalculada a partir do timestamp, da configuração
// e do instante atual; nunca é guardada na observação.
//
// Limitação conhecida: timestamps "HH:MM:SS" são sempre interpretados como
// sendo de hoje. Uma leitura registrada pouco antes da meia-noite passa a
// parecer ter ~24h quando o relógio vira o dia.
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"digil_monitor/internal/models"
)

// DefaultWindowMinutes janela padrão do modo live
const DefaultWindowMinutes = 10

// Window mantém a configuração corrente do filtro
type Window struct {
	cfg models.FilterConfig
	now func() time.Time
}

// New cria um filtro; now nil usa time.Now
func New(cfg models.FilterConfig, now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{cfg: cfg, now: now}
}

// Config retorna a configuração corrente
func (w *Window) Config() models.FilterConfig {
	return w.cfg
}

// Reconfigure substitui a configuração. O re-scan das observações é feito
// pelo dono do estado da sessão logo em seguida.
func (w *Window) Reconfigure(cfg models.FilterConfig) {
	w.cfg = cfg
}

// Now retorna o instante corrente do relógio do filtro
func (w *Window) Now() time.Time {
	return w.now()
}

// IsVisible avalia o timestamp contra a configuração corrente
func (w *Window) IsVisible(timestamp string) bool {
	return IsVisibleAt(timestamp, w.cfg, w.now())
}

// IsVisibleAt é o predicado puro de visibilidade.
// Um timestamp que não pode ser interpretado não tem idade e continua visível.
func IsVisibleAt(timestamp string, cfg models.FilterConfig, now time.Time) bool {
	if cfg.HistoricalMode {
		return true
	}

	parsed, err := ParseTimestamp(timestamp, now)
	if err != nil {
		return true
	}

	ageMinutes := now.Sub(parsed).Minutes()
	return ageMinutes <= float64(cfg.WindowMinutes)
}

// ParseTimestamp interpreta "HH:MM:SS[.fff]" como hoje no fuso local de now,
// ou um valor sem ':' como epoch em milissegundos (a parte decimal é truncada).
func ParseTimestamp(timestamp string, now time.Time) (time.Time, error) {
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" {
		return time.Time{}, fmt.Errorf("timestamp vazio")
	}

	if strings.Contains(timestamp, ":") {
		if t, ok := parseTimeOfDay(timestamp, now); ok {
			return t, nil
		}
		if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("formato de horário não reconhecido: %s", timestamp)
	}

	ms, err := parseEpochMillis(timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp epoch inválido %q: %w", timestamp, err)
	}
	return time.UnixMilli(ms).In(now.Location()), nil
}

// parseEpochMillis aceita "1749738540000" e "1749738540000.0"
func parseEpochMillis(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("valor não finito")
	}
	return int64(f), nil
}

func parseTimeOfDay(s string, now time.Time) (time.Time, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, false
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts[:2] {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > limits[i] {
			return time.Time{}, false
		}
		values[i] = v
	}

	// Segundos podem trazer fração: "50.123"
	var nanos int
	if len(parts) == 3 {
		sec, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || sec < 0 || sec >= float64(limits[2]+1) {
			return time.Time{}, false
		}
		values[2] = int(sec)
		nanos = int((sec - float64(values[2])) * float64(time.Second))
	}

	year, month, day := now.Date()
	return time.Date(year, month, day, values[0], values[1], values[2], nanos, now.Location()), true
}
