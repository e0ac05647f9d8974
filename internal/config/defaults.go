package config

import "time"

// Valores padrão das sessões, os mesmos aplicados aos parâmetros de URL
const (
	DefaultNumSensors     = 6
	DefaultUIVariant      = "Lazio"
	DefaultTimeoutMinutes = 120
	DefaultWindowMinutes  = 10
)

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Peer: PeerConfig{
			URL:               "ws://localhost:5000/events",
			Path:              "/events",
			DialTimeout:       10 * time.Second,
			ReconnectDelay:    2 * time.Second,
			MaxReconnectDelay: 30 * time.Second,
			PingInterval:      25 * time.Second,
		},
		Session: SessionConfig{
			NumSensors:     DefaultNumSensors,
			UIVariant:      DefaultUIVariant,
			TimeoutMinutes: DefaultTimeoutMinutes,
			WindowMinutes:  DefaultWindowMinutes,
			TickInterval:   time.Second,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			Prefix:   "digil_monitor",
			Enabled:  true,
		},
		PLC: PLCConfig{
			Enabled:      false,
			Host:         "192.168.1.100",
			Rack:         0,
			Slot:         1,
			DBNumber:     20,
			UpdateRate:   500 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled:       true,
			Instance:      "DIGIL Monitor",
			Service:       "_digil-dashboard._tcp",
			PeerService:   "_digil-monitor._tcp",
			Domain:        "local.",
			BrowseTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Dir:    "logs",
			Prefix: "monitor",
			File:   true,
		},
	}
}

// Default retorna a configuração padrão, sem arquivo nem ambiente
func Default() *Config {
	cfg := getDefaultConfig()
	return &cfg
}
