// Package peer mantém o canal de eventos com o servidor de monitoramento.
package peer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"digil_monitor/internal/config"
	"digil_monitor/internal/metrics"
	"digil_monitor/internal/models"
	"digil_monitor/pkg/logger"
)

const (
	// Tempo permitido para escrever uma mensagem para o peer.
	writeWait = 10 * time.Second

	// Tamanho máximo da mensagem permitido.
	maxMessageSize = 512 * 1024 // 512KB

	eventBufferSize = 256
	sendBufferSize  = 64
)

var (
	// ErrNotConnected o canal com o peer não está aberto
	ErrNotConnected = errors.New("peer desconectado")
	// ErrSendQueueFull a fila de saída está cheia
	ErrSendQueueFull = errors.New("fila de envio para o peer cheia")
)

// Resolver devolve a URL do peer a cada tentativa de conexão
type Resolver func(ctx context.Context) (string, error)

// StaticURL resolve sempre para a mesma URL
func StaticURL(url string) Resolver {
	return func(context.Context) (string, error) {
		return url, nil
	}
}

// Client conexão WebSocket com reconexão automática ao peer
type Client struct {
	cfg     config.PeerConfig
	resolve Resolver
	dialer  *websocket.Dialer

	events chan models.Event
	send   chan []byte

	mu        sync.RWMutex
	connected bool
	url       string
}

// NewClient cria o cliente; a conexão só é aberta por Run
func NewClient(cfg config.PeerConfig, resolve Resolver) *Client {
	if resolve == nil {
		resolve = StaticURL(cfg.URL)
	}
	return &Client{
		cfg:     cfg,
		resolve: resolve,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.DialTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		events: make(chan models.Event, eventBufferSize),
		send:   make(chan []byte, sendBufferSize),
	}
}

// Events canal de eventos decodificados. Um Connected sintético é emitido
// a cada conexão estabelecida.
func (c *Client) Events() <-chan models.Event {
	return c.events
}

// IsConnected verifica se o canal está aberto
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// URL retorna o endereço da conexão atual
func (c *Client) URL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.url
}

// Send enfileira um comando. Não bloqueia; comandos não são guardados
// enquanto o canal estiver fechado.
func (c *Client) Send(cmd models.Command) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	data, err := models.EncodeCommand(cmd)
	if err != nil {
		return fmt.Errorf("erro ao serializar %s: %w", cmd.CommandName(), err)
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Run conecta e reconecta ao peer até o contexto ser cancelado
func (c *Client) Run(ctx context.Context) error {
	delay := c.cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}

	for {
		conn, url, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			metrics.PeerReconnects.Inc()
			logger.Warnf("Falha ao conectar ao peer: %v. Nova tentativa em %v", err, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}

			delay *= 2
			if c.cfg.MaxReconnectDelay > 0 && delay > c.cfg.MaxReconnectDelay {
				delay = c.cfg.MaxReconnectDelay
			}
			continue
		}

		delay = c.cfg.ReconnectDelay
		if delay <= 0 {
			delay = time.Second
		}

		logger.Infof("Conectado ao peer em %s", url)
		c.serve(ctx, conn, url)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Conexão com o peer perdida, reconectando")
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, string, error) {
	url, err := c.resolve(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("erro ao localizar peer: %w", err)
	}

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, url, fmt.Errorf("erro ao conectar em %s: %w", url, err)
	}
	return conn, url, nil
}

// serve executa as bombas de leitura e escrita até a conexão cair
func (c *Client) serve(ctx context.Context, conn *websocket.Conn, url string) {
	c.drainSendQueue()
	c.setConnected(true, url)
	metrics.PeerConnected.Set(1)

	defer func() {
		c.setConnected(false, "")
		metrics.PeerConnected.Set(0)
	}()

	done := make(chan struct{})
	go c.writePump(conn, done)

	select {
	case c.events <- models.Connected{Data: url}:
	case <-ctx.Done():
	}

	// Fechar a conexão desbloqueia a leitura quando o contexto termina
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.readPump(ctx, conn)
	close(done)
	conn.Close()
}

// readPump decodifica os frames do peer e os repassa ao canal de eventos
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)

	pongWait := c.pongWait()
	if pongWait > 0 {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				logger.Errorf("Erro de leitura do peer: %v", err)
			}
			return
		}

		if pongWait > 0 {
			conn.SetReadDeadline(time.Now().Add(pongWait))
		}

		// Um frame pode trazer vários envelopes separados por '\n'
		for _, frame := range bytes.Split(message, []byte{'\n'}) {
			if len(bytes.TrimSpace(frame)) == 0 {
				continue
			}
			ev, ok := c.decode(frame)
			if !ok {
				continue
			}
			select {
			case c.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Client) decode(frame []byte) (models.Event, bool) {
	ev, err := models.DecodeEvent(frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, models.ErrUnknownEvent) {
			reason = "unknown_event"
		}
		metrics.EventsDropped.WithLabelValues(reason).Inc()
		logger.Warnf("Frame do peer descartado: %v", err)
		return nil, false
	}

	// A conexão já gera o seu próprio Connected
	if _, ok := ev.(models.Connected); ok {
		if c.cfg.Debug {
			logger.Debug("Evento connected do peer ignorado")
		}
		return nil, false
	}

	if c.cfg.Debug {
		logger.Debugf("Evento do peer: %s", ev.EventName())
	}
	return ev, true
}

// writePump envia os comandos enfileirados e pings periódicos
func (c *Client) writePump(conn *websocket.Conn, done <-chan struct{}) {
	var pings <-chan time.Time
	if c.cfg.PingInterval > 0 {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("Erro ao escrever para o peer", err)
				conn.Close()
				return
			}

		case <-pings:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// pongWait prazo de leitura derivado do intervalo de ping
func (c *Client) pongWait() time.Duration {
	if c.cfg.PingInterval <= 0 {
		return 0
	}
	return c.cfg.PingInterval * 10 / 9
}

func (c *Client) drainSendQueue() {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func (c *Client) setConnected(connected bool, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
	c.url = url
}
