package websocket

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"digil_monitor/internal/metrics"
	"digil_monitor/internal/models"
	"digil_monitor/pkg/logger"
)

const (
	// Tempo permitido para escrever uma mensagem para o navegador.
	writeWait = 10 * time.Second

	// Tempo permitido para ler a próxima mensagem do navegador.
	pongWait = 60 * time.Second

	// Envia pings com esse intervalo. Deve ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Tamanho máximo da mensagem permitido.
	maxMessageSize = 512 * 1024 // 512KB

	// Tamanho do buffer de canal para mensagens de saída.
	sendBufferSize = 256
)

// Client representa uma conexão WebSocket individual
type Client struct {
	hub *Hub

	// Conexão WebSocket.
	conn *websocket.Conn

	// Buffer de mensagens para envio.
	send chan []byte

	// ID único do cliente
	id string

	userAgent   string
	ipAddress   string
	connectedAt time.Time
}

// newClient cria um novo cliente WebSocket
func newClient(hub *Hub, conn *websocket.Conn, userAgent, ipAddress string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          uuid.New().String(),
		userAgent:   userAgent,
		ipAddress:   ipAddress,
		connectedAt: time.Now(),
	}
}

// readPump bombeia mensagens do WebSocket para o hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
		logger.Debugf("Cliente %s (%s) encerrado após %v", c.id, c.ipAddress, time.Since(c.connectedAt).Round(time.Second))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Errorf("Erro de leitura WebSocket: %v", err)
			}
			break
		}

		c.processIncomingMessage(message)
	}
}

// writePump bombeia mensagens do hub para a conexão WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// O hub fechou o canal.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Adicionar mensagens na fila ao escritor atual
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processIncomingMessage processa uma mensagem recebida do navegador
func (c *Client) processIncomingMessage(message []byte) {
	var cmd models.CommandMessage
	decoder := json.NewDecoder(bytes.NewReader(message))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&cmd); err != nil {
		logger.Warnf("Erro ao decodificar mensagem do cliente %s: %v", c.id, err)
		c.hub.sendTo(c, NewErrorMessage("Formato de mensagem inválido", "invalid_format", ""))
		return
	}

	if cmd.Type == models.BrowserPing {
		c.handlePing(cmd)
		return
	}

	// Encaminhar comando para o hub processar
	select {
	case c.hub.commands <- models.ClientCommand{
		Command:   cmd.Type,
		Params:    cmd.Params,
		RequestID: cmd.ID,
		ClientID:  c.id,
	}:
	default:
		metrics.QueueDropped.WithLabelValues("websocket_commands").Inc()
		c.hub.sendTo(c, NewErrorMessage("Servidor ocupado, tente novamente", "busy", cmd.ID))
	}
}

// handlePing responde com pong
func (c *Client) handlePing(cmd models.CommandMessage) {
	var pingTime int64
	if timeVal, ok := cmd.Params["time"].(float64); ok {
		pingTime = int64(timeVal)
	}

	c.hub.sendTo(c, models.WebSocketMessage{
		Type:      models.MessagePong,
		Timestamp: time.Now(),
		ID:        cmd.ID,
		Data: models.PongMessage{
			Time:       pingTime,
			ServerTime: time.Now().UnixMilli(),
		},
	})
}
