package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Nomes dos eventos trocados com o peer de monitoramento
const (
	EventConnected          = "connected"
	EventSessionStarted     = "monitoring_started"
	EventMetricFound        = "metric_found"
	EventMetricsProgress    = "metrics_update"
	EventAlarmFound         = "alarm_found"
	EventOtherAlarmFound    = "other_alarm_found"
	EventAlarmsProgress     = "alarms_update"
	EventSessionComplete    = "monitoring_complete"
	EventSessionTimeout     = "monitoring_timeout"
	EventSessionError       = "monitoring_error"
	EventFilterAcknowledged = "filter_updated"
	EventConfigDetected     = "config_detected"
	EventSessionStopped     = "monitoring_stopped"

	CommandStartSession = "start_unified_monitoring"
	CommandStopSession  = "stop_monitoring"
	CommandUpdateFilter = "update_time_filter"
)

var (
	// ErrUnknownEvent evento com nome não reconhecido
	ErrUnknownEvent = errors.New("evento desconhecido")
	// ErrMalformedEvent envelope ou payload inválido
	ErrMalformedEvent = errors.New("evento malformado")
)

// Envelope formato de cada frame trocado com o peer
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event é a união fechada de eventos recebidos do peer
type Event interface {
	EventName() string
	isEvent()
}

// Connected canal de eventos estabelecido
type Connected struct {
	Data string `json:"data,omitempty"`
}

// SessionStarted confirmação de início do monitoramento
type SessionStarted struct {
	Message string `json:"message,omitempty"`
}

// MetricFound observação de uma métrica
type MetricFound struct {
	ID        string `json:"metric_type"`
	Value     Scalar `json:"value"`
	Timestamp Scalar `json:"timestamp"`
	Source    string `json:"source,omitempty"`
	Category  string `json:"category,omitempty"`
	Elapsed   string `json:"elapsed,omitempty"`
}

// MetricsProgress contagem reportada pelo peer para métricas
type MetricsProgress struct {
	FoundCount    int      `json:"found_count"`
	TotalExpected int      `json:"total_expected"`
	MissingIDs    []string `json:"missing_list"`
	LastCheck     string   `json:"last_check,omitempty"`
}

// AlarmFound observação de um alarme esperado
type AlarmFound struct {
	ID         string                `json:"alarm_type"`
	Value      Scalar                `json:"value"`
	Timestamp  Scalar                `json:"timestamp"`
	Validation *ValidationDescriptor `json:"validation,omitempty"`
	Elapsed    string                `json:"elapsed,omitempty"`
}

// OtherAlarmFound alarme fora da lista esperada
type OtherAlarmFound struct {
	ID        string `json:"alarm_type"`
	Value     Scalar `json:"value"`
	Timestamp Scalar `json:"timestamp"`
	Elapsed   string `json:"elapsed,omitempty"`
}

// AlarmsProgress contagem reportada pelo peer para alarmes
type AlarmsProgress struct {
	FoundCount    int      `json:"found_count"`
	TotalExpected int      `json:"total_expected"`
	MissingIDs    []string `json:"missing_list"`
	OtherCount    int      `json:"other_count,omitempty"`
	LastCheck     string   `json:"last_check,omitempty"`
}

// SessionComplete o peer recebeu todos os dados
type SessionComplete struct {
	Success  bool   `json:"success,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// SessionTimeout o peer atingiu o timeout
type SessionTimeout struct {
	Message string `json:"message,omitempty"`
}

// SessionError erro reportado pelo peer
type SessionError struct {
	Message string `json:"error"`
}

// FilterAcknowledged eco da configuração de filtro aplicada pelo peer
type FilterAcknowledged struct {
	FilterConfig
}

// ConfigDetected o peer ajustou a configuração de alarmes esperados
type ConfigDetected struct {
	Message string `json:"message"`
}

// SessionStopped confirmação de parada
type SessionStopped struct {
	Message string `json:"message,omitempty"`
}

func (Connected) EventName() string          { return EventConnected }
func (SessionStarted) EventName() string     { return EventSessionStarted }
func (MetricFound) EventName() string        { return EventMetricFound }
func (MetricsProgress) EventName() string    { return EventMetricsProgress }
func (AlarmFound) EventName() string         { return EventAlarmFound }
func (OtherAlarmFound) EventName() string    { return EventOtherAlarmFound }
func (AlarmsProgress) EventName() string     { return EventAlarmsProgress }
func (SessionComplete) EventName() string    { return EventSessionComplete }
func (SessionTimeout) EventName() string     { return EventSessionTimeout }
func (SessionError) EventName() string       { return EventSessionError }
func (FilterAcknowledged) EventName() string { return EventFilterAcknowledged }
func (ConfigDetected) EventName() string     { return EventConfigDetected }
func (SessionStopped) EventName() string     { return EventSessionStopped }

func (Connected) isEvent()          {}
func (SessionStarted) isEvent()     {}
func (MetricFound) isEvent()        {}
func (MetricsProgress) isEvent()    {}
func (AlarmFound) isEvent()         {}
func (OtherAlarmFound) isEvent()    {}
func (AlarmsProgress) isEvent()     {}
func (SessionComplete) isEvent()    {}
func (SessionTimeout) isEvent()     {}
func (SessionError) isEvent()       {}
func (FilterAcknowledged) isEvent() {}
func (ConfigDetected) isEvent()     {}
func (SessionStopped) isEvent()     {}

// DecodeEvent decodifica um frame do peer em um evento tipado
func DecodeEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var ev Event
	var err error
	switch env.Event {
	case EventConnected:
		ev, err = decodeInto[Connected](env.Data)
	case EventSessionStarted:
		ev, err = decodeInto[SessionStarted](env.Data)
	case EventMetricFound:
		ev, err = decodeInto[MetricFound](env.Data)
	case EventMetricsProgress:
		ev, err = decodeInto[MetricsProgress](env.Data)
	case EventAlarmFound:
		ev, err = decodeInto[AlarmFound](env.Data)
	case EventOtherAlarmFound:
		ev, err = decodeInto[OtherAlarmFound](env.Data)
	case EventAlarmsProgress:
		ev, err = decodeInto[AlarmsProgress](env.Data)
	case EventSessionComplete:
		ev, err = decodeInto[SessionComplete](env.Data)
	case EventSessionTimeout:
		ev, err = decodeInto[SessionTimeout](env.Data)
	case EventSessionError:
		ev, err = decodeInto[SessionError](env.Data)
	case EventFilterAcknowledged:
		ev, err = decodeInto[FilterAcknowledged](env.Data)
	case EventConfigDetected:
		ev, err = decodeInto[ConfigDetected](env.Data)
	case EventSessionStopped:
		ev, err = decodeInto[SessionStopped](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Event, err)
	}
	return ev, nil
}

func decodeInto[T Event](data json.RawMessage) (Event, error) {
	var v T
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeEvent serializa um evento no envelope do peer
func EncodeEvent(ev Event) ([]byte, error) {
	return encodeEnvelope(ev.EventName(), ev)
}

// Command é a união fechada de comandos enviados ao peer
type Command interface {
	CommandName() string
	isCommand()
}

// StartSession pede ao peer o início do monitoramento
type StartSession struct {
	DeviceID          string `json:"device_id"`
	SensorCardinality int    `json:"num_sensors"`
	UIVariant         string `json:"ui"`
	TimeoutMinutes    int    `json:"timeout_minutes"`
	HistoricalMode    bool   `json:"historical_mode"`
	WindowMinutes     int    `json:"time_window_minutes"`
}

// StopSession pede ao peer a parada do monitoramento
type StopSession struct{}

// UpdateFilter informa o peer sobre a nova janela temporal
type UpdateFilter struct {
	FilterConfig
}

func (StartSession) CommandName() string { return CommandStartSession }
func (StopSession) CommandName() string  { return CommandStopSession }
func (UpdateFilter) CommandName() string { return CommandUpdateFilter }

func (StartSession) isCommand() {}
func (StopSession) isCommand()  {}
func (UpdateFilter) isCommand() {}

// EncodeCommand serializa um comando no envelope do peer
func EncodeCommand(cmd Command) ([]byte, error) {
	return encodeEnvelope(cmd.CommandName(), cmd)
}

func encodeEnvelope(name string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}
