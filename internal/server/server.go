package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"digil_monitor/internal/config"
	"digil_monitor/internal/discovery"
	"digil_monitor/internal/monitor"
	"digil_monitor/internal/peer"
	"digil_monitor/internal/plc"
	"digil_monitor/internal/redis"
	"digil_monitor/internal/websocket"
	"digil_monitor/pkg/logger"
)

// Server encapsula o servidor HTTP com todos os componentes
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *http.ServeMux
	handler          http.Handler
	runner           *monitor.Runner
	peerClient       *peer.Client
	redisClient      *redis.Client
	mirror           *redis.Mirror
	plcClient        *plc.S7Client
	annunciator      *plc.Annunciator
	wsHub            *websocket.Hub
	discoveryService *discovery.DiscoveryService
	serverInfo       ServerInfo

	// Contexto dos serviços em segundo plano
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	WebSocketURL string
	APIURL       string
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		config: cfg,
		router: http.NewServeMux(),
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   "1.0.0",
			Port:      cfg.Server.Port,
		},
		ctx:    ctx,
		cancel: cancel,
	}

	ip, err := getLocalIP()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("erro ao obter IP local: %w", err)
	}
	server.serverInfo.IP = ip
	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", ip, cfg.Server.Port)

	server.initComponents()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents monta o núcleo e registra os apresentadores
func (s *Server) initComponents() {
	if s.config.Discovery.Enabled {
		s.discoveryService = discovery.NewDiscoveryService(s.config.Discovery, s.config.Server.Port)
	}

	s.peerClient = peer.NewClient(s.config.Peer, s.peerResolver())

	ctrl := monitor.NewController(s.config.Session.FilterConfig(), nil)
	s.runner = monitor.NewRunner(ctrl, s.peerClient)
	s.runner.SetTickInterval(s.config.Session.TickInterval)

	s.wsHub = websocket.NewHub(s.runner, s.config.Session)
	s.runner.AddPresenter(s.wsHub)

	s.redisClient = redis.NewClient(s.config.Redis)
	s.mirror = redis.NewMirror(s.redisClient)
	s.runner.AddPresenter(s.mirror)

	if s.config.PLC.Enabled {
		s.plcClient = plc.NewS7Client(s.config.PLC)
		s.annunciator = plc.NewAnnunciator(s.config.PLC, s.plcClient)
		s.runner.AddPresenter(s.annunciator)
	}
}

// peerResolver usa a URL configurada ou, sem ela, procura o peer via mDNS
func (s *Server) peerResolver() peer.Resolver {
	if s.config.Peer.URL != "" || s.discoveryService == nil {
		return peer.StaticURL(s.config.Peer.URL)
	}
	path := s.config.Peer.Path
	return func(ctx context.Context) (string, error) {
		return s.discoveryService.ResolvePeer(ctx, path)
	}
}

// Start inicia os serviços e bloqueia no servidor HTTP
func (s *Server) Start() error {
	s.startServices()

	if s.discoveryService != nil {
		if err := s.discoveryService.Start(); err != nil {
			logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
		}
	}

	s.logServerInfo()

	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}
	return nil
}

// startServices inicia as goroutines do núcleo e dos apresentadores
func (s *Server) startServices() {
	s.goRun(func(ctx context.Context) { s.wsHub.Run() })
	s.goRun(func(ctx context.Context) { s.runner.Run(ctx) })
	s.goRun(func(ctx context.Context) { s.peerClient.Run(ctx) })
	s.goRun(s.mirror.Run)
	if s.annunciator != nil {
		s.goRun(s.annunciator.Run)
	}

	if s.config.Session.AutoStart {
		s.autoStart()
	}
}

func (s *Server) goRun(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// autoStart inicia a sessão com os parâmetros configurados
func (s *Server) autoStart() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	params := s.config.Session.SessionParams()
	if err := s.runner.Start(ctx, params); err != nil {
		logger.Warnf("Sessão automática não iniciada: %v", err)
		return
	}
	logger.Infof("Sessão automática iniciada para %s", params.DeviceID)
}

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Iniciando shutdown do servidor")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Erro ao encerrar servidor HTTP: %v", err)
	}

	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}

	s.wsHub.Shutdown()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("Tempo de shutdown esgotado aguardando os serviços")
	}

	if err := s.redisClient.Close(); err != nil {
		logger.Errorf("Erro ao fechar conexão Redis: %v", err)
	}
	if s.plcClient != nil {
		s.plcClient.Disconnect()
	}

	logger.Info("Shutdown completo")
	return nil
}

// Handler retorna o handler HTTP completo
func (s *Server) Handler() http.Handler {
	return s.handler
}

// getLocalIP obtém o endereço IP local
func getLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "localhost", nil
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("            DIGIL Monitor Dashboard            ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	if s.config.Peer.URL != "" {
		logger.Infof("Servidor de monitoramento: %s", s.config.Peer.URL)
	} else {
		logger.Infof("Servidor de monitoramento: descoberta via %s", s.config.Discovery.PeerService)
	}
	if s.discoveryService != nil {
		logger.Infof("mDNS: %s.%s.%s",
			s.discoveryService.GetInstanceName(),
			s.config.Discovery.Service,
			s.config.Discovery.Domain)
	}
	logger.Info("===============================================")
	logger.Info("Servidor pronto para conexões!")
}
