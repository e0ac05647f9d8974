package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal requisições HTTP atendidas
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration duração das requisições HTTP
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digil_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// EventsReceived eventos recebidos do peer, por nome
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_peer_events_received_total",
			Help: "Total number of events received from the monitoring peer",
		},
		[]string{"event"},
	)

	// EventsDropped eventos descartados, por motivo
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_peer_events_dropped_total",
			Help: "Total number of peer events dropped",
		},
		[]string{"reason"},
	)

	// CommandsSent comandos enviados ao peer
	CommandsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_peer_commands_sent_total",
			Help: "Total number of commands sent to the monitoring peer",
		},
		[]string{"command", "status"},
	)

	// PeerConnected 1 enquanto o canal com o peer está aberto
	PeerConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digil_peer_connected",
			Help: "Whether the event channel to the peer is connected",
		},
	)

	// PeerReconnects tentativas de reconexão ao peer
	PeerReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digil_peer_reconnects_total",
			Help: "Total number of reconnection attempts to the peer",
		},
	)

	// ObservationsRendered observações atualizadas, por tipo
	ObservationsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_observations_rendered_total",
			Help: "Total number of observation updates rendered",
		},
		[]string{"kind"},
	)

	// Notifications avisos emitidos
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_notifications_total",
			Help: "Total number of notifications fired",
		},
		[]string{"reason"},
	)

	// SessionTransitions transições da máquina de estados
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_session_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"status"},
	)

	// ProgressPercentage progresso local visível, por tipo
	ProgressPercentage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "digil_progress_percentage",
			Help: "Locally computed visible percentage per observation kind",
		},
		[]string{"kind"},
	)

	// MissingCount identificadores esperados faltantes, por tipo
	MissingCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "digil_missing_ids",
			Help: "Expected identifiers currently missing per observation kind",
		},
		[]string{"kind"},
	)

	// DispatchLatency tempo para processar um evento e seus efeitos
	DispatchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digil_dispatch_latency_seconds",
			Help:    "Time spent handling one input and its effects",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// BrowserClients navegadores conectados ao hub
	BrowserClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digil_browser_clients",
			Help: "Number of connected dashboard browsers",
		},
	)

	// RedisOperations operações no espelho Redis
	RedisOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_redis_operations_total",
			Help: "Total number of Redis mirror operations",
		},
		[]string{"operation", "status"},
	)

	// PLCWrites escritas no bloco de dados do PLC
	PLCWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_plc_writes_total",
			Help: "Total number of annunciator writes to the PLC",
		},
		[]string{"status"},
	)

	// QueueDropped efeitos descartados por fila cheia
	QueueDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digil_queue_dropped_total",
			Help: "Total number of effects dropped because a sink queue was full",
		},
		[]string{"sink"},
	)
)

// Handler expõe as métricas no formato Prometheus
func Handler() http.Handler {
	return promhttp.Handler()
}

// Status rótulo padronizado de resultado
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
