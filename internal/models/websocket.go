package models

import "time"

// Tipos de mensagem enviados aos navegadores
const (
	MessageObservation   = "observation"
	MessageProgress      = "progress"
	MessageView          = "view"
	MessageNotify        = "notify"
	MessageStatus        = "status"
	MessageTimer         = "timer"
	MessageOtherAlarm    = "other_alarm"
	MessageConfirmFilter = "confirm_filter"
	MessageHistory       = "history"
	MessageSessionReset  = "session_reset"
	MessageAck           = "ack"
	MessageWelcome       = "welcome"
	MessageError         = "error"
	MessagePing          = "ping"
	MessagePong          = "pong"
)

// Comandos aceitos dos navegadores
const (
	BrowserStartMonitoring  = "start_monitoring"
	BrowserStopMonitoring   = "stop_monitoring"
	BrowserUpdateTimeFilter = "update_time_filter"
	BrowserConfirmFilter    = "confirm_filter_change"
	BrowserGetHistory       = "get_history"
	BrowserGetStatus        = "get_status"
	BrowserPing             = "ping"
)

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ID        string      `json:"id,omitempty"` // correlaciona com o CommandMessage
}

// NotifyMessage pedido de aviso sonoro/visual
type NotifyMessage struct {
	Reason  string `json:"reason"`
	AlarmID string `json:"alarm_id,omitempty"`
	Pulses  int    `json:"pulses"`
}

// ProgressMessage contagem local de um tipo e seus faltantes
type ProgressMessage struct {
	Progress ProgressSnapshot `json:"progress"`
	Missing  []MissingView    `json:"missing"`
}

// ConfirmFilterMessage troca de filtro aguardando confirmação do operador
type ConfirmFilterMessage struct {
	Current FilterConfig `json:"current"`
	Pending FilterConfig `json:"pending"`
}

// TimerMessage tempo decorrido da sessão em MM:SS
type TimerMessage struct {
	Elapsed string `json:"elapsed"`
}

// SessionResetMessage nova sessão iniciada com os dados anteriores descartados
type SessionResetMessage struct {
	SessionID  string        `json:"session_id"`
	Params     SessionParams `json:"params"`
	NumSensors int           `json:"num_sensors"`
	Metrics    []string      `json:"metrics"`
	Alarms     []string      `json:"alarms"`
}

// HistoryMessage histórico completo de um identificador
type HistoryMessage struct {
	Kind    Kind           `json:"kind"`
	ID      string         `json:"id"`
	Entries []HistoryEntry `json:"entries"`
}

// AckMessage confirmação de um comando do navegador
type AckMessage struct {
	Command string `json:"command"`
	Pending bool   `json:"pending,omitempty"`
}

// CommandMessage é uma mensagem de comando do navegador para o servidor
type CommandMessage struct {
	Type   string                 `json:"type"`             // start_monitoring, stop_monitoring, update_time_filter, ...
	Params map[string]interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string                 `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando enviado pelo cliente
type ClientCommand struct {
	Command   string
	Params    map[string]interface{}
	RequestID string
	ClientID  string
}

// PongMessage resposta a um ping do navegador
type PongMessage struct {
	Time       int64 `json:"time"`
	ServerTime int64 `json:"serverTime"`
}
