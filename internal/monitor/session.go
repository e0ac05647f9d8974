package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"digil_monitor/internal/catalog"
	"digil_monitor/internal/filter"
	"digil_monitor/internal/models"
	"digil_monitor/pkg/logger"
	"digil_monitor/pkg/utils"
)

// Níveis das mensagens de status exibidas ao operador
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// MaxWindowMinutes maior janela aceita no modo live (uma semana)
const MaxWindowMinutes = 7 * 24 * 60

// Controller máquina de estados da sessão de monitoramento. Todos os
// métodos retornam os efeitos a executar em vez de executá-los.
type Controller struct {
	status  models.SessionStatus
	message string
	level   string

	params    models.SessionParams
	sessionID string
	window    *filter.Window
	state     *State
	pending   *models.FilterConfig

	startedAt time.Time
	endedAt   time.Time

	now   func() time.Time
	newID func() string
	log   *logger.Scoped
}

// NewController cria um controlador ocioso com a configuração de filtro inicial
func NewController(cfg models.FilterConfig, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		status:  models.StatusIdle,
		message: "Aguardando início do monitoramento",
		level:   LevelInfo,
		window:  filter.New(cfg, now),
		now:     now,
		newID:   uuid.NewString,
		log:     logger.WithPrefix("sessão"),
	}
}

// Status retorna o estado atual
func (c *Controller) Status() models.SessionStatus {
	return c.status
}

// Running indica uma sessão em andamento
func (c *Controller) Running() bool {
	return c.status == models.StatusRunning
}

// State retorna os dados da sessão corrente, nil antes do primeiro início
func (c *Controller) State() *State {
	return c.state
}

// Filter retorna a configuração de filtro em vigor
func (c *Controller) Filter() models.FilterConfig {
	return c.window.Config()
}

// Start inicia uma nova sessão. Os dados da sessão anterior são descartados.
func (c *Controller) Start(params models.SessionParams) ([]Effect, error) {
	if c.status == models.StatusRunning {
		return nil, ErrSessionRunning
	}

	params.DeviceID = strings.TrimSpace(params.DeviceID)
	if params.DeviceID == "" {
		return nil, ErrMissingDeviceID
	}
	params.SensorCardinality = catalog.Normalize(params.SensorCardinality)

	return c.begin(params), nil
}

func (c *Controller) begin(params models.SessionParams) []Effect {
	c.params = params
	c.sessionID = c.newID()
	c.state = NewState(params, c.window)
	c.pending = nil
	c.startedAt = c.now()
	c.endedAt = time.Time{}
	c.log = logger.WithPrefix(fmt.Sprintf("%s/%.8s", params.DeviceID, c.sessionID))

	c.log.Infof("Iniciando monitoramento: %d sensores, UI %s, timeout %d min, %s",
		params.SensorCardinality, params.UIVariant, params.TimeoutMinutes, describeFilter(c.window.Config()))

	cfg := c.window.Config()
	return []Effect{
		SessionReset{SessionID: c.sessionID, Params: params, Catalog: c.state.catalogView()},
		c.transition(models.StatusRunning, "Conectando ao servidor de monitoramento...", LevelInfo),
		RenderView{View: c.View()},
		Outbound{Command: models.StartSession{
			DeviceID:          params.DeviceID,
			SensorCardinality: params.SensorCardinality,
			UIVariant:         params.UIVariant,
			TimeoutMinutes:    params.TimeoutMinutes,
			HistoricalMode:    cfg.HistoricalMode,
			WindowMinutes:     cfg.WindowMinutes,
		}},
	}
}

// Stop interrompe a sessão a pedido do operador. Os dados são mantidos.
func (c *Controller) Stop() []Effect {
	if c.status != models.StatusRunning {
		return nil
	}
	c.log.Infof("Monitoramento interrompido pelo operador")
	return []Effect{
		c.transition(models.StatusStopped, "Monitoramento interrompido pelo operador", LevelWarning),
		Outbound{Command: models.StopSession{}},
	}
}

// HandleEvent aplica um evento do peer. Observações fora de uma sessão
// ativa são ignoradas e retornam ErrNotRunning.
func (c *Controller) HandleEvent(ev models.Event) ([]Effect, error) {
	switch e := ev.(type) {
	case models.Connected:
		return c.onConnected(), nil

	case models.SessionStarted:
		if !c.Running() {
			return nil, nil
		}
		return []Effect{c.setMessage("Monitoramento iniciado - aguardando dados...", LevelInfo)}, nil

	case models.MetricFound:
		if !c.Running() {
			return nil, ErrNotRunning
		}
		effects, err := c.state.IngestMetric(e)
		if err != nil {
			return nil, err
		}
		return c.checkCompletion(effects), nil

	case models.AlarmFound:
		if !c.Running() {
			return nil, ErrNotRunning
		}
		effects, err := c.state.IngestAlarm(e)
		if err != nil {
			return nil, err
		}
		return c.checkCompletion(effects), nil

	case models.OtherAlarmFound:
		if !c.Running() {
			return nil, ErrNotRunning
		}
		return c.state.IngestOtherAlarm(e)

	case models.MetricsProgress:
		return c.onPeerProgress(models.KindMetric, e.FoundCount, e.TotalExpected), nil

	case models.AlarmsProgress:
		return c.onPeerProgress(models.KindAlarm, e.FoundCount, e.TotalExpected), nil

	case models.SessionComplete:
		if !c.Running() {
			return nil, nil
		}
		return c.complete("Monitoramento concluído! Todos os dados recebidos."), nil

	case models.SessionTimeout:
		if !c.Running() {
			return nil, nil
		}
		msg := "Tempo limite atingido. Dados parciais mantidos."
		if e.Message != "" {
			msg = e.Message
		}
		c.log.Warnf("Timeout: %s", msg)
		return []Effect{c.transition(models.StatusTimedOut, msg, LevelWarning)}, nil

	case models.SessionError:
		if !c.Running() {
			return nil, nil
		}
		msg := e.Message
		if msg == "" {
			msg = "erro desconhecido"
		}
		c.log.Warnf("Erro reportado pelo servidor: %s", msg)
		return []Effect{c.transition(models.StatusError, "Erro: "+msg, LevelError)}, nil

	case models.SessionStopped:
		if !c.Running() {
			return nil, nil
		}
		msg := "Monitoramento interrompido pelo servidor"
		if e.Message != "" {
			msg = e.Message
		}
		return []Effect{c.transition(models.StatusStopped, msg, LevelWarning)}, nil

	case models.FilterAcknowledged:
		c.log.Debugf("Servidor confirmou filtro: %s", describeFilter(e.FilterConfig))
		return nil, nil

	case models.ConfigDetected:
		if e.Message == "" {
			return nil, nil
		}
		return []Effect{c.setMessage(c.message+" - "+e.Message, c.level)}, nil
	}

	return nil, fmt.Errorf("%w: %T", models.ErrUnknownEvent, ev)
}

// onConnected reenvia o início quando o canal volta durante uma sessão
func (c *Controller) onConnected() []Effect {
	if !c.Running() {
		return []Effect{c.setMessage("Conectado ao servidor", LevelInfo)}
	}

	cfg := c.window.Config()
	return []Effect{
		c.setMessage("Conectado ao servidor", LevelInfo),
		Outbound{Command: models.StartSession{
			DeviceID:          c.params.DeviceID,
			SensorCardinality: c.params.SensorCardinality,
			UIVariant:         c.params.UIVariant,
			TimeoutMinutes:    c.params.TimeoutMinutes,
			HistoricalMode:    cfg.HistoricalMode,
			WindowMinutes:     cfg.WindowMinutes,
		}},
	}
}

// onPeerProgress apenas redesenha as contagens locais
func (c *Controller) onPeerProgress(kind models.Kind, found, total int) []Effect {
	if c.state == nil {
		return nil
	}
	local := c.state.progressEffect(kind)
	if found != local.Progress.VisibleCount || total != local.Progress.TotalExpected {
		c.log.Debugf("Contagem do servidor para %s (%d/%d) difere da local (%d/%d)",
			kind, found, total, local.Progress.VisibleCount, local.Progress.TotalExpected)
	}
	return []Effect{local}
}

func (c *Controller) checkCompletion(effects []Effect) []Effect {
	if !c.state.Complete() {
		return effects
	}
	effects = append(effects, c.complete("Monitoramento concluído! Todos os dados esperados estão visíveis.")...)
	return append(effects, Outbound{Command: models.StopSession{}})
}

func (c *Controller) complete(msg string) []Effect {
	c.log.Infof("Sessão concluída em %s", c.Elapsed())
	return []Effect{
		c.transition(models.StatusComplete, msg, LevelSuccess),
		Notify{Reason: NotifyCompletion, Pulses: CompletionPulses},
	}
}

// RequestFilterChange pede a troca da configuração do filtro. Durante uma
// sessão a troca fica pendente até o operador confirmar; fora dela é
// aplicada imediatamente sem perda de dados.
func (c *Controller) RequestFilterChange(cfg models.FilterConfig) ([]Effect, error) {
	cfg, err := c.normalizeFilter(cfg)
	if err != nil {
		return nil, err
	}

	if cfg == c.window.Config() {
		if c.pending != nil {
			c.pending = nil
			return []Effect{c.statusEffect()}, nil
		}
		return nil, nil
	}

	if c.Running() {
		c.pending = &cfg
		return []Effect{
			ConfirmationRequired{Current: c.window.Config(), Pending: cfg},
			c.statusEffect(),
		}, nil
	}

	return c.reconfigure(cfg), nil
}

// ConfirmFilterChange resolve a alteração pendente. Aceitar reinicia a
// sessão com a nova configuração; recusar não altera nada.
func (c *Controller) ConfirmFilterChange(accept bool) ([]Effect, error) {
	if c.pending == nil {
		return nil, ErrNoPendingChange
	}

	cfg := *c.pending
	c.pending = nil

	if !accept {
		c.log.Infof("Alteração de filtro recusada: %s", describeFilter(cfg))
		return []Effect{c.statusEffect()}, nil
	}

	if !c.Running() {
		return c.reconfigure(cfg), nil
	}

	c.log.Infof("Reiniciando sessão com novo filtro: %s", describeFilter(cfg))
	effects := []Effect{
		c.transition(models.StatusStopped, "Reiniciando com novo filtro temporal", LevelInfo),
		Outbound{Command: models.StopSession{}},
	}
	c.window.Reconfigure(cfg)
	return append(effects, c.begin(c.params)...), nil
}

// reconfigure aplica o filtro no lugar e reavalia todas as observações
func (c *Controller) reconfigure(cfg models.FilterConfig) []Effect {
	c.window.Reconfigure(cfg)
	c.log.Infof("Filtro atualizado: %s", describeFilter(cfg))

	return []Effect{
		RenderView{View: c.View()},
		c.statusEffect(),
		Outbound{Command: models.UpdateFilter{FilterConfig: cfg}},
	}
}

func (c *Controller) normalizeFilter(cfg models.FilterConfig) (models.FilterConfig, error) {
	if cfg.WindowMinutes <= 0 {
		if !cfg.HistoricalMode {
			return cfg, fmt.Errorf("%w: %d minutos", ErrInvalidWindow, cfg.WindowMinutes)
		}
		cfg.WindowMinutes = c.window.Config().WindowMinutes
	}
	if cfg.WindowMinutes > MaxWindowMinutes {
		return cfg, fmt.Errorf("%w: %d minutos (máximo %d)", ErrInvalidWindow, cfg.WindowMinutes, MaxWindowMinutes)
	}
	return cfg, nil
}

// Tick atualiza o tempo decorrido; só produz efeito durante a sessão
func (c *Controller) Tick() []Effect {
	if !c.Running() {
		return nil
	}
	return []Effect{TimerTick{Elapsed: c.Elapsed()}}
}

// Elapsed tempo decorrido da sessão em MM:SS, congelado ao terminar
func (c *Controller) Elapsed() string {
	if c.startedAt.IsZero() {
		return utils.FormatElapsed(0)
	}
	end := c.endedAt
	if end.IsZero() {
		end = c.now()
	}
	return utils.FormatElapsed(end.Sub(c.startedAt))
}

// StatusView retorna o estado para exibição
func (c *Controller) StatusView() models.StatusView {
	view := models.StatusView{
		Status:    c.status,
		Message:   c.message,
		Level:     c.level,
		SessionID: c.sessionID,
		Params:    c.params,
		Filter:    c.window.Config(),
		Elapsed:   c.Elapsed(),
	}
	if c.pending != nil {
		pending := *c.pending
		view.PendingFilter = &pending
	}
	return view
}

// View monta o painel completo
func (c *Controller) View() models.DashboardView {
	view := models.DashboardView{
		Status:      c.StatusView(),
		Metrics:     emptyKindView(models.KindMetric),
		Alarms:      emptyKindView(models.KindAlarm),
		OtherAlarms: []models.OtherAlarmView{},
	}
	if c.state != nil {
		view.Metrics = c.state.KindView(models.KindMetric)
		view.Alarms = c.state.KindView(models.KindAlarm)
		view.OtherAlarms = c.state.OtherAlarms()
	}
	return view
}

// Progress retorna o progresso local dos dois tipos
func (c *Controller) Progress() (metrics, alarms models.ProgressSnapshot) {
	if c.state == nil {
		return emptyKindView(models.KindMetric).Progress, emptyKindView(models.KindAlarm).Progress
	}
	return c.state.Snapshot(models.KindMetric), c.state.Snapshot(models.KindAlarm)
}

// History retorna o histórico completo de um identificador
func (c *Controller) History(kind models.Kind, id string) []models.HistoryEntry {
	if c.state == nil {
		return nil
	}
	return c.state.History(kind, id)
}

// OtherAlarms retorna a lista de outros alarmes
func (c *Controller) OtherAlarms() []models.OtherAlarmView {
	if c.state == nil {
		return []models.OtherAlarmView{}
	}
	return c.state.OtherAlarms()
}

func (c *Controller) transition(status models.SessionStatus, msg, level string) StatusChanged {
	if status.Terminal() && c.endedAt.IsZero() {
		c.endedAt = c.now()
	}
	c.log.Debugf("Estado %s -> %s", c.status, status)
	c.status = status
	return c.setMessage(msg, level)
}

func (c *Controller) setMessage(msg, level string) StatusChanged {
	c.message = msg
	c.level = level
	return c.statusEffect()
}

func (c *Controller) statusEffect() StatusChanged {
	return StatusChanged{Status: c.StatusView()}
}

func emptyKindView(kind models.Kind) models.KindView {
	return models.KindView{
		Visible:  []models.ObservationView{},
		Hidden:   []models.ObservationView{},
		Missing:  []models.MissingView{},
		Progress: models.ProgressSnapshot{Kind: kind, MissingIDs: []string{}},
	}
}

func describeFilter(cfg models.FilterConfig) string {
	if cfg.HistoricalMode {
		return "modo histórico"
	}
	return fmt.Sprintf("janela de %d min", cfg.WindowMinutes)
}
