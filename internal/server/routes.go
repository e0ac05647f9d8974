package server

import (
	"encoding/json"
	"net/http"
	"time"

	"digil_monitor/internal/api"
	"digil_monitor/internal/metrics"
	"digil_monitor/internal/websocket"
	"digil_monitor/pkg/utils"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	wsHandler := websocket.NewHandler(s.wsHub, s.config.Server.AllowedOrigins)

	apiRouter := api.NewRouter(s.runner, s.config.Session, "/api")
	apiRouter.Setup()
	s.router.Handle("/api/", apiRouter)

	s.router.HandleFunc("/health", s.healthHandler)
	s.router.HandleFunc("/info", s.infoHandler)
	s.router.HandleFunc("/api/server-info", s.serverInfoHandler)
	s.router.Handle("/metrics", metrics.Handler())

	// WebSocket
	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	// Static assets (opcional)
	fs := http.FileServer(http.Dir("./static"))
	s.router.Handle("/", fs)

	s.handler = s.router
}

// serviceStatus resume o estado de cada dependência
func (s *Server) serviceStatus() map[string]string {
	peerStatus := "ok"
	if !s.peerClient.IsConnected() {
		peerStatus = "offline"
	}

	redisStatus := "disabled"
	if s.redisClient.Enabled() {
		redisStatus = "ok"
		if !s.redisClient.Connected() {
			redisStatus = "offline"
		}
	}

	plcStatus := "disabled"
	if s.plcClient != nil {
		plcStatus = "ok"
		if !s.plcClient.IsConnected() {
			plcStatus = "offline"
		}
	}

	discoveryStatus := "disabled"
	if s.discoveryService != nil {
		discoveryStatus = "ok"
		if !s.discoveryService.IsRunning() {
			discoveryStatus = "offline"
		}
	}

	return map[string]string{
		"peer":      peerStatus,
		"redis":     redisStatus,
		"plc":       plcStatus,
		"websocket": "ok",
		"discovery": discoveryStatus,
	}
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	services := s.serviceStatus()
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"services":  services,
	}

	// Sem o peer o painel não recebe eventos
	if services["peer"] == "offline" {
		response["status"] = "degraded"
	}

	json.NewEncoder(w).Encode(response)
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()
	uptime := utils.FormatDuration(time.Since(info.StartTime))

	json.NewEncoder(w).Encode(map[string]interface{}{
		"name":        "DIGIL Monitor Dashboard",
		"version":     info.Version,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      uptime,
		"connections": info.Connections,
	})
}

// serverInfoHandler retorna informações completas sobre o servidor
func (s *Server) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()
	uptime := utils.FormatDuration(time.Since(info.StartTime))

	discoveryInfo := map[string]interface{}{
		"enabled": s.discoveryService != nil,
		"running": s.discoveryService != nil && s.discoveryService.IsRunning(),
	}
	if s.discoveryService != nil {
		discoveryInfo["instanceName"] = s.discoveryService.GetInstanceName()
		discoveryInfo["serviceType"] = s.config.Discovery.Service
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"server": map[string]interface{}{
			"name":        "DIGIL Monitor Dashboard",
			"version":     info.Version,
			"ip":          info.IP,
			"port":        info.Port,
			"websocket":   info.WebSocketURL,
			"api":         info.APIURL,
			"startTime":   info.StartTime,
			"uptime":      uptime,
			"connections": info.Connections,
		},
		"discovery": discoveryInfo,
		"services": map[string]interface{}{
			"peer": map[string]interface{}{
				"connected": s.peerClient.IsConnected(),
				"url":       s.peerClient.URL(),
			},
			"redis": map[string]interface{}{
				"enabled":   s.config.Redis.Enabled,
				"connected": s.redisClient.Connected(),
				"host":      s.config.Redis.Host,
				"port":      s.config.Redis.Port,
			},
			"plc": map[string]interface{}{
				"enabled": s.config.PLC.Enabled,
				"running": s.plcClient != nil && s.plcClient.IsConnected(),
				"host":    s.config.PLC.Host,
			},
		},
	})
}
