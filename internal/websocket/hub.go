package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"digil_monitor/internal/config"
	"digil_monitor/internal/metrics"
	"digil_monitor/internal/models"
	"digil_monitor/internal/monitor"
	"digil_monitor/pkg/logger"
)

// Tempo máximo de um comando do navegador dentro do loop de monitoramento
const commandTimeout = 5 * time.Second

// Espera máxima por espaço na fila para avisos e mudanças de estado
const criticalSendTimeout = 250 * time.Millisecond

// Controls operações da sessão disponíveis aos navegadores
type Controls interface {
	Start(ctx context.Context, params models.SessionParams) error
	Stop(ctx context.Context) error
	RequestFilterChange(ctx context.Context, cfg models.FilterConfig) (bool, error)
	ConfirmFilterChange(ctx context.Context, accept bool) error
	Status(ctx context.Context) (models.StatusView, error)
	View(ctx context.Context) (models.DashboardView, error)
	History(ctx context.Context, kind models.Kind, id string) ([]models.HistoryEntry, error)
}

// Hub gerencia todas as conexões WebSocket e distribuição de mensagens.
// Implementa monitor.Presenter.
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	// Canal para registrar clientes
	register chan *Client

	// Canal para desregistrar clientes
	unregister chan *Client

	// Canal para mensagens de broadcast
	broadcast chan []byte

	// Comando recebido dos clientes
	commands chan models.ClientCommand

	// Mutex para operações concorrentes no mapa de clientes
	mu sync.RWMutex

	controls Controls
	defaults config.SessionConfig

	// Estatísticas
	stats struct {
		totalMessages      int64
		totalClients       int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	// Sinal para encerramento do hub
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub cria uma nova instância do Hub
func NewHub(controls Controls, defaults config.SessionConfig) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		commands:   make(chan models.ClientCommand, 100),
		controls:   controls,
		defaults:   defaults,
		ctx:        ctx,
		cancel:     cancel,
	}

	h.stats.lastStatsReset = time.Now()

	return h
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	logger.Info("Iniciando WebSocket Hub")

	// Ticker para estatísticas periódicas
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			metrics.BrowserClients.Set(float64(clientCount))
			logger.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			// Enviar dados iniciais para o cliente
			go h.sendInitialDataToClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			h.mu.RLock()
			deadClients := make([]*Client, 0, 4)
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Canal do cliente está cheio, marcar para desconexão
					deadClients = append(deadClients, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range deadClients {
				logger.Warnf("Cliente %s não acompanha o ritmo das mensagens, desconectando", client.id)
				h.removeClient(client)
			}

		case cmd := <-h.commands:
			go h.handleClientCommand(cmd)

		case <-statsTicker.C:
			h.logStats()
		}
	}
}

// Present implementa monitor.Presenter. Com a fila cheia a mensagem é
// descartada; avisos e mudanças de estado esperam até criticalSendTimeout.
func (h *Hub) Present(effect monitor.Effect) {
	msg, ok := MessageForEffect(effect, time.Now())
	if !ok {
		return
	}

	data, err := SerializeMessage(msg)
	if err != nil {
		logger.Error("Erro ao serializar mensagem "+msg.Type, err)
		return
	}

	select {
	case h.broadcast <- data:
		return
	default:
	}

	if critical(effect) {
		timer := time.NewTimer(criticalSendTimeout)
		defer timer.Stop()
		select {
		case h.broadcast <- data:
			return
		case <-timer.C:
		case <-h.ctx.Done():
		}
	}

	metrics.QueueDropped.WithLabelValues("websocket").Inc()
	logger.Warnf("Fila de broadcast cheia, descartando mensagem %s", msg.Type)
}

// critical efeitos que o navegador não pode perder
func critical(effect monitor.Effect) bool {
	switch effect.(type) {
	case monitor.Notify, monitor.StatusChanged:
		return true
	}
	return false
}

// handleClientCommand processa comandos recebidos dos clientes
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	logger.Infof("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	client := h.getClientByID(cmd.ClientID)
	if client == nil {
		return
	}

	if h.controls == nil {
		h.sendTo(client, NewErrorMessage("Monitoramento indisponível", "unavailable", cmd.RequestID))
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, commandTimeout)
	defer cancel()

	var (
		reply interface{}
		err   error
	)

	switch cmd.Command {
	case models.BrowserStartMonitoring:
		var params models.SessionParams
		params, err = config.ParseSessionQuery(sessionValues(cmd.Params), h.defaults)
		if err == nil {
			err = h.controls.Start(ctx, params)
		}
		reply = models.AckMessage{Command: cmd.Command}

	case models.BrowserStopMonitoring:
		err = h.controls.Stop(ctx)
		reply = models.AckMessage{Command: cmd.Command}

	case models.BrowserUpdateTimeFilter:
		var cfg models.FilterConfig
		var pending bool
		cfg, err = filterFromParams(cmd.Params)
		if err == nil {
			pending, err = h.controls.RequestFilterChange(ctx, cfg)
		}
		reply = models.AckMessage{Command: cmd.Command, Pending: pending}

	case models.BrowserConfirmFilter:
		accept, _ := cmd.Params["accept"].(bool)
		err = h.controls.ConfirmFilterChange(ctx, accept)
		reply = models.AckMessage{Command: cmd.Command}

	case models.BrowserGetHistory:
		h.sendHistory(ctx, client, cmd)
		return

	case models.BrowserGetStatus:
		var status models.StatusView
		status, err = h.controls.Status(ctx)
		if err == nil {
			h.sendTo(client, models.WebSocketMessage{
				Type:      models.MessageStatus,
				Timestamp: time.Now(),
				Data:      status,
				ID:        cmd.RequestID,
			})
			return
		}

	default:
		logger.Warnf("Comando desconhecido: %s", cmd.Command)
		h.sendTo(client, NewErrorMessage("Comando desconhecido: "+cmd.Command, "unknown_command", cmd.RequestID))
		return
	}

	if err != nil {
		h.sendTo(client, NewErrorMessage(err.Error(), errorCode(err), cmd.RequestID))
		return
	}

	h.sendTo(client, models.WebSocketMessage{
		Type:      models.MessageAck,
		Timestamp: time.Now(),
		Data:      reply,
		ID:        cmd.RequestID,
	})
}

// sendHistory envia o histórico completo de um identificador
func (h *Hub) sendHistory(ctx context.Context, client *Client, cmd models.ClientCommand) {
	kind, ok := models.ParseKind(stringParam(cmd.Params, "kind"))
	id := stringParam(cmd.Params, "id")
	if !ok || id == "" {
		h.sendTo(client, NewErrorMessage("Parâmetros kind e id são obrigatórios", "invalid_params", cmd.RequestID))
		return
	}

	entries, err := h.controls.History(ctx, kind, id)
	if err != nil {
		h.sendTo(client, NewErrorMessage(err.Error(), errorCode(err), cmd.RequestID))
		return
	}

	h.sendTo(client, models.WebSocketMessage{
		Type:      models.MessageHistory,
		Timestamp: time.Now(),
		Data:      models.HistoryMessage{Kind: kind, ID: id, Entries: entries},
		ID:        cmd.RequestID,
	})
}

// sendInitialDataToClient envia boas-vindas e o painel atual
func (h *Hub) sendInitialDataToClient(client *Client) {
	data := map[string]interface{}{
		"message":  "Conectado ao painel de monitoramento DIGIL",
		"clientId": client.id,
	}

	if h.controls != nil {
		ctx, cancel := context.WithTimeout(h.ctx, commandTimeout)
		view, err := h.controls.View(ctx)
		cancel()
		if err == nil {
			data["view"] = view
		} else {
			logger.Warnf("Painel indisponível para o cliente %s: %v", client.id, err)
		}
	}

	h.sendTo(client, models.WebSocketMessage{
		Type:      models.MessageWelcome,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// sendTo envia para um único cliente se ele ainda estiver registrado
func (h *Hub) sendTo(client *Client, msg interface{}) {
	data, err := SerializeMessage(msg)
	if err != nil {
		logger.Error("Erro ao serializar resposta", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		metrics.QueueDropped.WithLabelValues("websocket_client").Inc()
	}
}

// removeClient desregistra o cliente e fecha seu canal de envio
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		logger.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, len(h.clients))
	}
	clientCount := len(h.clients)
	h.mu.Unlock()

	metrics.BrowserClients.Set(float64(clientCount))
}

func (h *Hub) logStats() {
	h.statsLock.Lock()
	elapsed := time.Since(h.stats.lastStatsReset).Seconds()
	if elapsed > 0 {
		h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
	}
	h.stats.messagesSinceReset = 0
	h.stats.lastStatsReset = time.Now()
	mps := h.stats.messagesPerSecond
	total := h.stats.totalMessages
	h.statsLock.Unlock()

	logger.Infof("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens",
		h.ClientCount(), mps, total)
}

// Shutdown encerra graciosamente o hub
func (h *Hub) Shutdown() {
	h.cancel()
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.BrowserClients.Set(0)
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}

// errorCode classifica erros da sessão para o navegador
func errorCode(err error) string {
	switch {
	case errors.Is(err, monitor.ErrMissingDeviceID):
		return "missing_device_id"
	case errors.Is(err, monitor.ErrSessionRunning):
		return "session_running"
	case errors.Is(err, monitor.ErrNoPendingChange):
		return "no_pending_change"
	case errors.Is(err, monitor.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, monitor.ErrRunnerStopped), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	default:
		return "invalid_params"
	}
}
