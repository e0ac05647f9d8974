package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultFile arquivo lido quando nenhum caminho é informado
const DefaultFile = "config.json"

// Config representa a configuração completa da aplicação
type Config struct {
	Server    ServerConfig    `json:"server"`
	Peer      PeerConfig      `json:"peer"`
	Session   SessionConfig   `json:"session"`
	Redis     RedisConfig     `json:"redis"`
	PLC       PLCConfig       `json:"plc"`
	Discovery DiscoveryConfig `json:"discovery"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
	AllowedOrigins  []string      `json:"allowedOrigins"`
}

// PeerConfig contém configurações do canal de eventos com o servidor de monitoramento
type PeerConfig struct {
	// URL ws://host:porta/caminho; vazia faz a busca via mDNS
	URL               string        `json:"url"`
	Path              string        `json:"path"`
	DialTimeout       time.Duration `json:"dialTimeout"`
	ReconnectDelay    time.Duration `json:"reconnectDelay"`
	MaxReconnectDelay time.Duration `json:"maxReconnectDelay"`
	PingInterval      time.Duration `json:"pingInterval"`
	Debug             bool          `json:"debug"`
}

// SessionConfig valores padrão das sessões de monitoramento
type SessionConfig struct {
	DeviceID       string        `json:"deviceId"`
	NumSensors     int           `json:"numSensors"`
	UIVariant      string        `json:"ui"`
	TimeoutMinutes int           `json:"timeoutMinutes"`
	HistoricalMode bool          `json:"historicalMode"`
	WindowMinutes  int           `json:"windowMinutes"`
	AutoStart      bool          `json:"autoStart"`
	TickInterval   time.Duration `json:"tickInterval"`
}

// RedisConfig contém configurações do Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
	Enabled  bool   `json:"enabled"`
}

// PLCConfig contém configurações para comunicação com o PLC S7-1500
type PLCConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Rack         int           `json:"rack"`
	Slot         int           `json:"slot"`
	DBNumber     int           `json:"dbNumber"`
	UpdateRate   time.Duration `json:"updateRate"`
	ReadTimeout  time.Duration `json:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout"`
}

// DiscoveryConfig contém configurações de descoberta via mDNS
type DiscoveryConfig struct {
	Enabled       bool          `json:"enabled"`
	Instance      string        `json:"instance"`
	Service       string        `json:"service"`
	PeerService   string        `json:"peerService"`
	Domain        string        `json:"domain"`
	BrowseTimeout time.Duration `json:"browseTimeout"`
}

// LogConfig contém configurações de log
type LogConfig struct {
	Level  string `json:"level"`
	Dir    string `json:"dir"`
	Prefix string `json:"prefix"`
	File   bool   `json:"file"`
}

// Load carrega a configuração do arquivo ou usa valores padrão. Com path
// vazio o arquivo padrão é opcional; um caminho explícito precisa existir.
func Load(path string) (*Config, error) {
	config := getDefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	if _, err := os.Stat(path); err == nil {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return nil, fmt.Errorf("erro ao decodificar %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("arquivo de configuração %s: %w", path, err)
	}

	// Sobrescrever com variáveis de ambiente, se existirem
	if err := applyEnvironmentOverrides(&config, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate verifica os valores que impediriam o serviço de funcionar
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("porta do servidor inválida: %d", c.Server.Port)
	}
	if c.Session.WindowMinutes <= 0 {
		return fmt.Errorf("janela temporal inválida: %d minutos", c.Session.WindowMinutes)
	}
	if c.Session.TimeoutMinutes <= 0 {
		return fmt.Errorf("timeout inválido: %d minutos", c.Session.TimeoutMinutes)
	}
	if c.Peer.URL == "" && !c.Discovery.Enabled {
		return fmt.Errorf("peer.url vazio e descoberta desabilitada: não há como localizar o servidor de monitoramento")
	}
	if c.PLC.Enabled && c.PLC.DBNumber <= 0 {
		return fmt.Errorf("número de DB do PLC inválido: %d", c.PLC.DBNumber)
	}
	return nil
}

// applyEnvironmentOverrides sobrescreve configurações com variáveis MONITOR_*
func applyEnvironmentOverrides(config *Config, lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.setInt("MONITOR_SERVER_PORT", &config.Server.Port)

	env.setString("MONITOR_PEER_URL", &config.Peer.URL)
	env.setDuration("MONITOR_PEER_RECONNECT_DELAY", &config.Peer.ReconnectDelay)

	env.setString("MONITOR_DEVICE_ID", &config.Session.DeviceID)
	env.setInt("MONITOR_NUM_SENSORS", &config.Session.NumSensors)
	env.setString("MONITOR_UI", &config.Session.UIVariant)
	env.setInt("MONITOR_TIMEOUT", &config.Session.TimeoutMinutes)
	env.setBool("MONITOR_HISTORICAL_MODE", &config.Session.HistoricalMode)
	env.setInt("MONITOR_WINDOW_MINUTES", &config.Session.WindowMinutes)
	env.setBool("MONITOR_AUTOSTART", &config.Session.AutoStart)

	env.setBool("MONITOR_REDIS_ENABLED", &config.Redis.Enabled)
	env.setString("MONITOR_REDIS_HOST", &config.Redis.Host)
	env.setInt("MONITOR_REDIS_PORT", &config.Redis.Port)
	env.setString("MONITOR_REDIS_PASSWORD", &config.Redis.Password)
	env.setInt("MONITOR_REDIS_DB", &config.Redis.DB)

	env.setBool("MONITOR_PLC_ENABLED", &config.PLC.Enabled)
	env.setString("MONITOR_PLC_HOST", &config.PLC.Host)
	env.setInt("MONITOR_PLC_DB", &config.PLC.DBNumber)

	env.setBool("MONITOR_DISCOVERY_ENABLED", &config.Discovery.Enabled)
	env.setString("MONITOR_LOG_LEVEL", &config.Log.Level)

	return env.err
}

// envReader acumula o primeiro erro de conversão
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) value(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("variável %s=%q inválida: %w", key, value, err)
	}
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.value(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) setBool(key string, dst *bool) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}
