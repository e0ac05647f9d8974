// Package discovery anuncia o painel via mDNS e localiza o servidor de
// monitoramento quando nenhuma URL é configurada.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"digil_monitor/internal/config"
	"digil_monitor/pkg/logger"
)

// ErrPeerNotFound nenhum servidor de monitoramento respondeu à busca
var ErrPeerNotFound = errors.New("servidor de monitoramento não encontrado via mDNS")

// DiscoveryService gerencia a descoberta do serviço na rede local
type DiscoveryService struct {
	server       *zeroconf.Server
	config       config.DiscoveryConfig
	mutex        sync.Mutex
	instanceName string
	port         int
	running      bool
	serverIP     string
}

// NewDiscoveryService cria um novo serviço de descoberta
func NewDiscoveryService(cfg config.DiscoveryConfig, port int) *DiscoveryService {
	instanceName := cfg.Instance
	if instanceName == "" {
		hostname, _ := os.Hostname()
		instanceName = fmt.Sprintf("%s-digil", hostname)
	}

	return &DiscoveryService{
		config:       cfg,
		port:         port,
		instanceName: instanceName,
	}
}

// Start anuncia o painel na rede local
func (s *DiscoveryService) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	ip, err := getLocalIP()
	if err != nil {
		return fmt.Errorf("erro ao obter IP local: %w", err)
	}
	s.serverIP = ip

	server, err := zeroconf.Register(
		s.instanceName,
		s.config.Service,
		s.config.Domain,
		s.port,
		[]string{
			"version=1.0",
			fmt.Sprintf("ip=%s", ip),
			"path=/ws",
			"name=DIGIL Monitor",
		},
		nil, // Interfaces de rede (todas)
	)
	if err != nil {
		return fmt.Errorf("erro ao registrar serviço de descoberta: %w", err)
	}

	s.server = server
	s.running = true

	logger.Infof("Serviço de descoberta iniciado em %s:%d (mDNS: %s.%s)",
		ip, s.port, s.instanceName, s.config.Service)

	return nil
}

// Stop para o serviço de descoberta
func (s *DiscoveryService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false

	logger.Info("Serviço de descoberta parado")
}

// ResolvePeer procura o servidor de monitoramento e devolve a URL do canal
// de eventos. path é usado quando o anúncio não traz o registro "path".
func (s *DiscoveryService) ResolvePeer(ctx context.Context, path string) (string, error) {
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return "", fmt.Errorf("erro ao criar resolvedor mDNS: %w", err)
	}

	timeout := s.config.BrowseTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, s.config.PeerService, s.config.Domain, entries); err != nil {
		return "", fmt.Errorf("erro ao procurar %s: %w", s.config.PeerService, err)
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", ErrPeerNotFound
			}
			url, err := PeerURL(entry, path)
			if err != nil {
				logger.Debugf("Anúncio mDNS ignorado: %v", err)
				continue
			}
			logger.Infof("Servidor de monitoramento encontrado: %s (%s)", entry.Instance, url)
			return url, nil

		case <-ctx.Done():
			return "", ErrPeerNotFound
		}
	}
}

// PeerURL monta a URL WebSocket a partir de um anúncio mDNS
func PeerURL(entry *zeroconf.ServiceEntry, path string) (string, error) {
	if entry == nil || entry.Port == 0 {
		return "", fmt.Errorf("anúncio sem porta")
	}

	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = "[" + entry.AddrIPv6[0].String() + "]"
	default:
		return "", fmt.Errorf("anúncio %s sem endereço", entry.Instance)
	}

	for _, txt := range entry.Text {
		if v, ok := strings.CutPrefix(txt, "path="); ok && v != "" {
			path = v
		}
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return fmt.Sprintf("ws://%s:%d%s", host, entry.Port, path), nil
}

// GetServerIP retorna o IP anunciado
func (s *DiscoveryService) GetServerIP() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serverIP
}

// GetInstanceName retorna o nome da instância do serviço
func (s *DiscoveryService) GetInstanceName() string {
	return s.instanceName
}

// IsRunning verifica se o serviço está em execução
func (s *DiscoveryService) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
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

	return "", fmt.Errorf("não foi possível determinar o endereço IP local")
}
