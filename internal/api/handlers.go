package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"digil_monitor/internal/config"
	"digil_monitor/internal/models"
	"digil_monitor/internal/monitor"
	"digil_monitor/pkg/logger"
)

// Tempo máximo de espera pelo loop de monitoramento
const requestTimeout = 5 * time.Second

// Session operações da sessão expostas pela API
type Session interface {
	Start(ctx context.Context, params models.SessionParams) error
	Stop(ctx context.Context) error
	RequestFilterChange(ctx context.Context, cfg models.FilterConfig) (bool, error)
	ConfirmFilterChange(ctx context.Context, accept bool) error
	Status(ctx context.Context) (models.StatusView, error)
	View(ctx context.Context) (models.DashboardView, error)
	Progress(ctx context.Context) (models.ProgressSnapshot, models.ProgressSnapshot, error)
	History(ctx context.Context, kind models.Kind, id string) ([]models.HistoryEntry, error)
	OtherAlarms(ctx context.Context) ([]models.OtherAlarmView, error)
}

// Handler contém os handlers HTTP para a API
type Handler struct {
	session  Session
	defaults config.SessionConfig
}

// NewHandler cria um novo handler de API
func NewHandler(session Session, defaults config.SessionConfig) *Handler {
	return &Handler{
		session:  session,
		defaults: defaults,
	}
}

// GetStatus retorna o estado da sessão
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	status, err := h.session.Status(ctx)
	if err != nil {
		h.respondWithSessionError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, status)
}

// GetView retorna o painel completo
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.session.View(ctx)
	if err != nil {
		h.respondWithSessionError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, view)
}

// GetProgress retorna o progresso local de métricas e alarmes
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	metrics, alarms, err := h.session.Progress(ctx)
	if err != nil {
		h.respondWithSessionError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":  metrics,
		"alarms":   alarms,
		"complete": metrics.Complete() && alarms.Complete(),
	})
}

// GetHistory retorna o histórico completo de um identificador
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	kind, ok := models.ParseKind(query.Get("kind"))
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Parâmetro kind inválido. Use metric ou alarm.")
		return
	}
	id := strings.TrimSpace(query.Get("id"))
	if id == "" {
		h.respondWithError(w, http.StatusBadRequest, "Parâmetro id não fornecido")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entries, err := h.session.History(ctx, kind, id)
	if err != nil {
		h.respondWithSessionError(w, err)
		return
	}

	// Se não houver histórico, responder com array vazio
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	h.respondWithJSON(w, http.StatusOK, models.HistoryMessage{Kind: kind, ID: id, Entries: entries})
}

// GetOtherAlarms retorna os alarmes fora da lista esperada
func (h *Handler) GetOtherAlarms(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	others, err := h.session.OtherAlarms(ctx)
	if err != nil {
		h.respondWithSessionError(w, err)
		return
	}
	if others == nil {
		others = []models.OtherAlarmView{}
	}
	h.respondWithJSON(w, http.StatusOK, others)
}

// StartSession inicia uma sessão com os parâmetros da URL
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}

	params, err := config.ParseSessionQuery(r.URL.Query(), h.defaults)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.session.Start(ctx, params); err != nil {
		h.respondWithSessionError(w, err)
		return
	}
	h.respondWithStatus(ctx, w, http.StatusAccepted)
}

// StopSession interrompe a sessão em andamento
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.session.Stop(ctx); err != nil {
		h.respondWithSessionError(w, err)
		return
	}
	h.respondWithStatus(ctx, w, http.StatusOK)
}

// UpdateFilter pede a troca do filtro temporal
func (h *Handler) UpdateFilter(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}

	var cfg models.FilterConfig
	if err := decodeBody(w, r, &cfg); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	pending, err := h.session.RequestFilterChange(ctx, cfg)
	if err != nil {
		h.respondWithSessionError(w, err)
		return
	}

	status, err := h.session.Status(ctx)
	if err != nil {
		h.respondWithSessionError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"pending": pending,
		"status":  status,
	})
}

// ConfirmFilter aceita ou recusa a troca pendente
func (h *Handler) ConfirmFilter(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, http.MethodPost) {
		return
	}

	var body struct {
		Accept bool `json:"accept"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.session.ConfirmFilterChange(ctx, body.Accept); err != nil {
		h.respondWithSessionError(w, err)
		return
	}
	h.respondWithStatus(ctx, w, http.StatusOK)
}

// allow verifica o método HTTP
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return false
	}
	return true
}

func (h *Handler) respondWithStatus(ctx context.Context, w http.ResponseWriter, code int) {
	status, err := h.session.Status(ctx)
	if err != nil {
		h.respondWithSessionError(w, err)
		return
	}
	h.respondWithJSON(w, code, status)
}

// respondWithSessionError traduz erros da sessão em códigos HTTP
func (h *Handler) respondWithSessionError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, monitor.ErrMissingDeviceID), errors.Is(err, monitor.ErrInvalidWindow):
		code = http.StatusBadRequest
	case errors.Is(err, monitor.ErrSessionRunning), errors.Is(err, monitor.ErrNoPendingChange):
		code = http.StatusConflict
	case errors.Is(err, monitor.ErrRunnerStopped), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	h.respondWithError(w, code, err.Error())
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
		fmt.Fprintf(w, `{"error":"Erro interno ao processar resposta"}`)
	}
}

// decodeBody decodifica o corpo JSON rejeitando campos desconhecidos
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("corpo JSON inválido: %w", err)
	}
	return nil
}
