package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"digil_monitor/internal/catalog"
	"digil_monitor/internal/models"
)

// Nomes dos parâmetros de URL aceitos no início de uma sessão
const (
	ParamDeviceID   = "device_id"
	ParamNumSensors = "num_sensors"
	ParamUI         = "ui"
	ParamTimeout    = "timeout"
)

// SessionParams converte os padrões configurados em parâmetros de sessão
func (s SessionConfig) SessionParams() models.SessionParams {
	return models.SessionParams{
		DeviceID:          s.DeviceID,
		SensorCardinality: s.NumSensors,
		UIVariant:         s.UIVariant,
		TimeoutMinutes:    s.TimeoutMinutes,
	}
}

// FilterConfig retorna a configuração inicial do filtro temporal
func (s SessionConfig) FilterConfig() models.FilterConfig {
	return models.FilterConfig{
		HistoricalMode: s.HistoricalMode,
		WindowMinutes:  s.WindowMinutes,
	}
}

// ParseSessionQuery lê os parâmetros da sessão da URL, completando com os
// padrões. O device_id não é validado aqui: a ausência é recusada no início
// da sessão, antes de qualquer chamada ao peer.
func ParseSessionQuery(values url.Values, defaults SessionConfig) (models.SessionParams, error) {
	params := defaults.SessionParams()

	if v := strings.TrimSpace(values.Get(ParamDeviceID)); v != "" {
		params.DeviceID = v
	}
	if v := strings.TrimSpace(values.Get(ParamUI)); v != "" {
		params.UIVariant = v
	}

	// Valores fora de {3, 6} valem 12, inclusive os não numéricos
	if v := strings.TrimSpace(values.Get(ParamNumSensors)); v != "" {
		params.SensorCardinality = catalog.Normalize(leadingInt(v))
	}

	if v := strings.TrimSpace(values.Get(ParamTimeout)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return params, fmt.Errorf("%s inválido %q", ParamTimeout, v)
		}
		params.TimeoutMinutes = n
	}

	return params, nil
}

// leadingInt lê os dígitos iniciais: "6.0" vale 6 e "abc" vale 0
func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
