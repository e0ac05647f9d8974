package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifica o tipo de observação
type Kind string

const (
	KindMetric Kind = "metric"
	KindAlarm  Kind = "alarm"
)

// ParseKind aceita "metric"/"metrics" e "alarm"/"alarms"
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metric", "metrics":
		return KindMetric, true
	case "alarm", "alarms":
		return KindAlarm, true
	}
	return "", false
}

// Source indica a origem de uma leitura
type Source string

const (
	// SourceLive leitura de telemetria em tempo real
	SourceLive Source = "live"
	// SourceLastValue último valor conhecido (lastval)
	SourceLastValue Source = "lastval"
)

// ParseSource converte o valor recebido do peer em Source
func ParseSource(s string) Source {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lastval", "last-known-value", "last_known_value", "lastvalue":
		return SourceLastValue
	default:
		return SourceLive
	}
}

// Icon retorna o token de ícone da origem
func (s Source) Icon() string {
	if s == SourceLastValue {
		return "📌"
	}
	return "📡"
}

// Category classifica as métricas esperadas
type Category int

const (
	CategoryUnknown Category = iota
	CategoryWeather
	CategoryJunctionBox
	CategoryLoad
)

// String retorna o nome da categoria
func (c Category) String() string {
	switch c {
	case CategoryWeather:
		return "weather"
	case CategoryJunctionBox:
		return "junctionBox"
	case CategoryLoad:
		return "load"
	default:
		return "unknown"
	}
}

// Icon retorna o token de ícone da categoria
func (c Category) Icon() string {
	switch c {
	case CategoryWeather:
		return "🌤️"
	case CategoryJunctionBox:
		return "📦"
	case CategoryLoad:
		return "⚡"
	default:
		return "📊"
	}
}

// MarshalJSON serializa a categoria pelo nome
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ParseCategory converte um nome em Category
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weather":
		return CategoryWeather
	case "junctionbox", "junction_box", "junction-box":
		return CategoryJunctionBox
	case "load":
		return CategoryLoad
	default:
		return CategoryUnknown
	}
}

// Scalar aceita string, número, booleano ou null no JSON e guarda a
// representação textual. Valores e timestamps chegam do peer nos dois formatos.
type Scalar string

// UnmarshalJSON implementa json.Unmarshaler
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Scalar(num.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*s = Scalar(strconv.FormatBool(b))
	return nil
}

// String retorna o texto do valor
func (s Scalar) String() string {
	return string(s)
}

// HistoryEntry representa uma mudança de valor registrada
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Value     Scalar `json:"value"`
	Source    Source `json:"source"`
}

// FilterConfig define a janela temporal de visibilidade
type FilterConfig struct {
	HistoricalMode bool `json:"historical_mode"`
	WindowMinutes  int  `json:"time_window_minutes"`
}

// ValidationDescriptor descritor opcional de validação de um alarme
type ValidationDescriptor struct {
	Valid         *bool  `json:"valid,omitempty"`
	VendorName    string `json:"vendor_name,omitempty"`
	FlagTimestamp string `json:"flag_timestamp,omitempty"`
	Message       string `json:"message,omitempty"`
}

// SessionParams parâmetros de uma sessão de monitoramento
type SessionParams struct {
	DeviceID          string `json:"device_id"`
	SensorCardinality int    `json:"num_sensors"`
	UIVariant         string `json:"ui"`
	TimeoutMinutes    int    `json:"timeout_minutes"`
}

// ProgressSnapshot contagem local de visíveis/faltantes para um tipo
type ProgressSnapshot struct {
	Kind          Kind     `json:"kind"`
	VisibleCount  int      `json:"visible_count"`
	TotalExpected int      `json:"total_expected"`
	MissingIDs    []string `json:"missing_ids"`
	Percentage    float64  `json:"percentage"`
}

// Complete indica que não há identificadores faltantes
func (p ProgressSnapshot) Complete() bool {
	return p.TotalExpected > 0 && len(p.MissingIDs) == 0
}
