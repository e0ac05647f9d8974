package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"digil_monitor/internal/config"
	"digil_monitor/internal/server"
	"digil_monitor/pkg/logger"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "arquivo de configuração JSON (padrão: config.json, se existir)")
	logLevel := pflag.String("log-level", "", "nível de log (debug, info, warn, error)")
	deviceID := pflag.String("device-id", "", "dispositivo monitorado")
	numSensors := pflag.Int("num-sensors", 0, "número de sensores do dispositivo")
	uiVariant := pflag.String("ui", "", "variante do catálogo")
	timeout := pflag.Int("timeout", 0, "timeout da sessão em minutos")
	autoStart := pflag.Bool("autostart", false, "inicia a sessão assim que o servidor sobe")
	pflag.Parse()

	logger.Init()
	defer logger.Sync()

	displayBanner()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}

	// Flags informadas têm precedência sobre arquivo e ambiente
	flags := pflag.CommandLine
	if flags.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flags.Changed("device-id") {
		cfg.Session.DeviceID = *deviceID
	}
	if flags.Changed("num-sensors") {
		cfg.Session.NumSensors = *numSensors
	}
	if flags.Changed("ui") {
		cfg.Session.UIVariant = *uiVariant
	}
	if flags.Changed("timeout") {
		cfg.Session.TimeoutMinutes = *timeout
	}
	if flags.Changed("autostart") {
		cfg.Session.AutoStart = *autoStart
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Configuração inválida", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("Nível de log %q inválido, usando info", cfg.Log.Level)
		level = logger.INFO
	}
	logger.SetLevel(level)

	if cfg.Log.File {
		if err := logger.EnableFileLogging(cfg.Log.Dir, cfg.Log.Prefix); err != nil {
			logger.Warnf("Log em arquivo indisponível: %v", err)
		}
	}

	logger.Info("Iniciando DIGIL Monitor")
	logger.Infof("Sessão padrão: dispositivo %q, %d sensores, catálogo %s, timeout %d min",
		cfg.Session.DeviceID, cfg.Session.NumSensors, cfg.Session.UIVariant, cfg.Session.TimeoutMinutes)

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Erro ao criar servidor", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Erro ao iniciar o servidor", err)
		}
	}()

	// Configurar captura de sinais para shutdown gracioso
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Desligando servidor...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
	}

	logger.Info("Servidor encerrado com sucesso")
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
 ____ ___ ____ ___ _       __  __  ___  _   _ ___ _____ ___  ____
|  _ \_ _/ ___|_ _| |     |  \/  |/ _ \| \ | |_ _|_   _/ _ \|  _ \
| | | | | |  _ | || |     | |\/| | | | |  \| || |  | || | | | |_) |
| |_| | | |_| || || |___  | |  | | |_| | |\  || |  | || |_| |  _ <
|____/___\____|___|_____| |_|  |_|\___/|_| \_|___| |_| \___/|_| \_\
                                                   DASHBOARD RUNTIME
 `
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
