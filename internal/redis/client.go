// Package redis espelha o estado do painel em um Redis para consumidores
// externos. O espelho só escreve: nada é lido de volta para a sessão.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"digil_monitor/internal/config"
	"digil_monitor/pkg/logger"
)

// Intervalo mínimo entre tentativas de reconexão
const reconnectInterval = 5 * time.Second

// Client encapsula a conexão e operações com o Redis
type Client struct {
	client *redis.Client
	prefix string
	config config.RedisConfig

	mu          sync.Mutex
	connected   bool
	lastAttempt time.Time
}

// NewClient cria um novo cliente Redis
func NewClient(cfg config.RedisConfig) *Client {
	if !cfg.Enabled {
		logger.Info("Cliente Redis desabilitado por configuração")
		return &Client{config: cfg, prefix: cfg.Prefix}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	return &Client{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		config: cfg,
		prefix: cfg.Prefix,
	}
}

// Enabled indica se o espelho está habilitado
func (c *Client) Enabled() bool {
	return c.config.Enabled && c.client != nil
}

// Connect tenta estabelecer conexão com o Redis
func (c *Client) Connect(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("cliente Redis desabilitado por configuração")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAttempt = time.Now()

	if _, err := c.client.Ping(ctx).Result(); err != nil {
		c.connected = false
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	c.connected = true
	logger.Infof("Conexão estabelecida com Redis em %s:%d", c.config.Host, c.config.Port)
	return nil
}

// IsConnected verifica se o cliente está conectado. Desconectado, tenta
// reconectar no máximo a cada reconnectInterval.
func (c *Client) IsConnected(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}

	c.mu.Lock()
	connected := c.connected
	retry := time.Since(c.lastAttempt) >= reconnectInterval
	c.mu.Unlock()

	if connected {
		return true
	}
	if !retry {
		return false
	}
	return c.Connect(ctx) == nil
}

// Connected estado da última operação, sem tentar reconectar
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// markFailed registra uma falha de escrita
func (c *Client) markFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.lastAttempt = time.Now()
}

// Close fecha a conexão com o Redis
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("erro ao fechar conexão Redis: %w", err)
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	logger.Info("Conexão com Redis fechada")
	return nil
}

// Pipeline cria uma nova pipeline de comandos Redis
func (c *Client) Pipeline() redis.Pipeliner {
	if c.client == nil {
		return nil
	}
	return c.client.Pipeline()
}

// FormatKey formata uma chave com o prefixo configurado
func (c *Client) FormatKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

// ClearPrefix remove todas as chaves do prefixo configurado
func (c *Client) ClearPrefix(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, nil
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, c.FormatKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("erro ao listar chaves de %s: %w", c.prefix, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	return c.client.Del(ctx, keys...).Result()
}
