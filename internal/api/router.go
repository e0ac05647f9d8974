package api

import (
	"net/http"
	"strings"

	"digil_monitor/internal/config"
	"digil_monitor/pkg/logger"
)

// Router gerencia as rotas da API
type Router struct {
	handler     *Handler
	mux         *http.ServeMux
	basePath    string
	middlewares []Middleware
}

// NewRouter cria um novo router para a API
func NewRouter(session Session, defaults config.SessionConfig, basePath string) *Router {
	// Normalizar base path
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	return &Router{
		handler:  NewHandler(session, defaults),
		mux:      http.NewServeMux(),
		basePath: basePath,
		middlewares: []Middleware{
			RecoveryMiddleware,
			CorsMiddleware,
		},
	}
}

// Setup configura todas as rotas
func (r *Router) Setup() {
	// Consultas
	r.route("/status", r.handler.GetStatus)
	r.route("/view", r.handler.GetView)
	r.route("/progress", r.handler.GetProgress)
	r.route("/history", r.handler.GetHistory)
	r.route("/other-alarms", r.handler.GetOtherAlarms)

	// Controle da sessão
	r.route("/session/start", r.handler.StartSession)
	r.route("/session/stop", r.handler.StopSession)
	r.route("/filter", r.handler.UpdateFilter)
	r.route("/filter/confirm", r.handler.ConfirmFilter)

	logger.Infof("API configurada com base path: %s", r.basePath)
}

// Mux expõe o multiplexador para rotas adicionais
func (r *Router) Mux() *http.ServeMux {
	return r.mux
}

// AddMiddleware adiciona um novo middleware
func (r *Router) AddMiddleware(middleware Middleware) {
	r.middlewares = append(r.middlewares, middleware)
}

// route registra uma rota com os middlewares e a instrumentação
func (r *Router) route(route string, fn http.HandlerFunc) {
	pattern := r.path(route)
	handler := Chain(MetricsMiddleware(pattern))(fn)
	r.mux.Handle(pattern, r.applyMiddleware(handler))
}

// path retorna o caminho completo para uma rota
func (r *Router) path(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return r.basePath + route
}

// applyMiddleware aplica todos os middlewares ao handler
func (r *Router) applyMiddleware(handler http.Handler) http.Handler {
	if len(r.middlewares) == 0 {
		return handler
	}
	return Chain(r.middlewares...)(handler)
}

// ServeHTTP implementa a interface http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	LoggingMiddleware(r.mux).ServeHTTP(w, req)
}
