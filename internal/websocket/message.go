package websocket

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"digil_monitor/internal/models"
	"digil_monitor/internal/monitor"
)

// Funções utilitárias para criação e processamento de mensagens WebSocket

// MessageForEffect traduz um efeito do núcleo na mensagem enviada aos
// navegadores. Comandos ao peer não são repassados.
func MessageForEffect(effect monitor.Effect, now time.Time) (models.WebSocketMessage, bool) {
	msg := models.WebSocketMessage{Timestamp: now}

	switch e := effect.(type) {
	case monitor.RenderObservation:
		msg.Type = models.MessageObservation
		msg.Data = e.View
	case monitor.RenderProgress:
		msg.Type = models.MessageProgress
		msg.Data = models.ProgressMessage{Progress: e.Progress, Missing: e.Missing}
	case monitor.RenderView:
		msg.Type = models.MessageView
		msg.Data = e.View
	case monitor.Notify:
		msg.Type = models.MessageNotify
		msg.Data = models.NotifyMessage{Reason: string(e.Reason), AlarmID: e.AlarmID, Pulses: e.Pulses}
	case monitor.StatusChanged:
		msg.Type = models.MessageStatus
		msg.Data = e.Status
	case monitor.SessionReset:
		msg.Type = models.MessageSessionReset
		msg.Data = models.SessionResetMessage{
			SessionID:  e.SessionID,
			Params:     e.Params,
			NumSensors: e.Catalog.Cardinality,
			Metrics:    e.Catalog.Metrics,
			Alarms:     e.Catalog.Alarms,
		}
	case monitor.ConfirmationRequired:
		msg.Type = models.MessageConfirmFilter
		msg.Data = models.ConfirmFilterMessage{Current: e.Current, Pending: e.Pending}
	case monitor.OtherAlarmAdded:
		msg.Type = models.MessageOtherAlarm
		msg.Data = e.View
	case monitor.TimerTick:
		msg.Type = models.MessageTimer
		msg.Data = models.TimerMessage{Elapsed: e.Elapsed}
	default:
		return msg, false
	}
	return msg, true
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message string, errorCode string, requestID string) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      models.MessageError,
		Timestamp: time.Now(),
		Error:     message,
		ID:        requestID,
		Data: map[string]string{
			"code": errorCode,
		},
	}
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

// sessionValues converte os parâmetros do comando no formato da URL do
// painel, para reaproveitar a mesma validação
func sessionValues(params map[string]interface{}) url.Values {
	values := url.Values{}
	for key, raw := range params {
		switch v := raw.(type) {
		case string:
			values.Set(key, v)
		case float64:
			values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			values.Set(key, strconv.FormatBool(v))
		case nil:
		default:
			values.Set(key, fmt.Sprint(v))
		}
	}
	return values
}

// filterFromParams lê historical_mode e time_window_minutes
func filterFromParams(params map[string]interface{}) (models.FilterConfig, error) {
	var cfg models.FilterConfig

	if raw, ok := params["historical_mode"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return cfg, fmt.Errorf("historical_mode deve ser booleano")
		}
		cfg.HistoricalMode = b
	}

	if raw, ok := params["time_window_minutes"]; ok {
		switch v := raw.(type) {
		case float64:
			cfg.WindowMinutes = int(v)
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return cfg, fmt.Errorf("time_window_minutes inválido %q", v)
			}
			cfg.WindowMinutes = n
		default:
			return cfg, fmt.Errorf("time_window_minutes deve ser numérico")
		}
	}
	return cfg, nil
}

// stringParam retorna um parâmetro textual ou vazio
func stringParam(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
