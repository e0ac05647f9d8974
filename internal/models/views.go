package models

// SessionStatus estado da máquina de sessão
type SessionStatus string

const (
	StatusIdle     SessionStatus = "IDLE"
	StatusRunning  SessionStatus = "RUNNING"
	StatusComplete SessionStatus = "COMPLETE"
	StatusTimedOut SessionStatus = "TIMED_OUT"
	StatusError    SessionStatus = "ERROR"
	StatusStopped  SessionStatus = "STOPPED"
)

// Terminal indica um estado do qual só se sai com um novo início
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusTimedOut, StatusError, StatusStopped:
		return true
	}
	return false
}

// ValidationState classificação de confirmação de um alarme
type ValidationState string

const (
	ValidationConfirmed   ValidationState = "CONFIRMED"
	ValidationUnconfirmed ValidationState = "UNCONFIRMED"
	ValidationFlagMissing ValidationState = "FLAG_MISSING"
)

// ValidationAnnotation anotação anexada ao modelo de renderização do alarme
type ValidationAnnotation struct {
	State         ValidationState `json:"state"`
	Vendor        string          `json:"vendor,omitempty"`
	FlagTimestamp string          `json:"flag_timestamp,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// HistorySummary visão resumida do histórico de mudanças
type HistorySummary struct {
	Recent []HistoryEntry `json:"recent"`
	Older  int            `json:"older"`
	Total  int            `json:"total"`
}

// ObservationView modelo de renderização de uma observação
type ObservationView struct {
	Kind       Kind                  `json:"kind"`
	ID         string                `json:"id"`
	Label      string                `json:"label"`
	Category   Category              `json:"category"`
	Icon       string                `json:"icon"`
	Source     Source                `json:"source"`
	SourceIcon string                `json:"source_icon"`
	Value      Scalar                `json:"value"`
	Timestamp  string                `json:"timestamp"`
	Date       string                `json:"date"`
	Visible    bool                  `json:"visible"`
	Validation *ValidationAnnotation `json:"validation,omitempty"`
	History    HistorySummary        `json:"history"`
}

// MissingView modelo de renderização de um identificador faltante
type MissingView struct {
	Kind    Kind   `json:"kind"`
	ID      string `json:"id"`
	Label   string `json:"label"`
	Message string `json:"message"`
	// Held indica que existe observação, mas fora da janela temporal
	Held bool `json:"held"`
}

// OtherAlarmView entrada da lista de outros alarmes
type OtherAlarmView struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Value     Scalar `json:"value"`
	Timestamp string `json:"timestamp"`
	Date      string `json:"date"`
}

// KindView visão de um tipo de observação
type KindView struct {
	Visible  []ObservationView `json:"visible"`
	Hidden   []ObservationView `json:"hidden"`
	Missing  []MissingView     `json:"missing"`
	Progress ProgressSnapshot  `json:"progress"`
}

// StatusView estado da sessão para exibição
type StatusView struct {
	Status        SessionStatus `json:"status"`
	Message       string        `json:"message"`
	Level         string        `json:"level"`
	SessionID     string        `json:"session_id,omitempty"`
	Params        SessionParams `json:"params"`
	Filter        FilterConfig  `json:"filter"`
	Elapsed       string        `json:"elapsed"`
	PendingFilter *FilterConfig `json:"pending_filter,omitempty"`
}

// DashboardView visão completa do painel
type DashboardView struct {
	Status      StatusView       `json:"status"`
	Metrics     KindView         `json:"metrics"`
	Alarms      KindView         `json:"alarms"`
	OtherAlarms []OtherAlarmView `json:"other_alarms"`
}
