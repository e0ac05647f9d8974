package monitor

import (
	"context"
	"errors"
	"time"

	"digil_monitor/internal/metrics"
	"digil_monitor/internal/models"
	"digil_monitor/pkg/logger"
)

// ErrRunnerStopped o loop da sessão já terminou
var ErrRunnerStopped = errors.New("loop de monitoramento encerrado")

// Transport canal de eventos com o peer de monitoramento
type Transport interface {
	Events() <-chan models.Event
	Send(cmd models.Command) error
}

// Presenter recebe os efeitos produzidos pelo núcleo. Implementações não
// podem bloquear: são chamadas de dentro do loop.
type Presenter interface {
	Present(effect Effect)
}

// PresenterFunc adapta uma função a Presenter
type PresenterFunc func(Effect)

// Present implementa Presenter
func (f PresenterFunc) Present(effect Effect) { f(effect) }

type request struct {
	fn    func(*Controller) ([]Effect, error)
	reply chan error
}

// Runner é o único dono do Controller. Eventos do peer, comandos do
// operador e o tick de um segundo são processados um de cada vez.
type Runner struct {
	ctrl       *Controller
	transport  Transport
	presenters []Presenter
	requests   chan request
	tick       time.Duration
	done       chan struct{}
}

// NewRunner cria o loop da sessão
func NewRunner(ctrl *Controller, transport Transport, presenters ...Presenter) *Runner {
	return &Runner{
		ctrl:       ctrl,
		transport:  transport,
		presenters: presenters,
		requests:   make(chan request),
		tick:       time.Second,
		done:       make(chan struct{}),
	}
}

// AddPresenter registra um apresentador; deve ser chamado antes de Run
func (r *Runner) AddPresenter(p Presenter) {
	r.presenters = append(r.presenters, p)
}

// SetTickInterval altera o período do tick; deve ser chamado antes de Run
func (r *Runner) SetTickInterval(d time.Duration) {
	if d > 0 {
		r.tick = d
	}
}

// Run executa o loop até o contexto ser cancelado
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	events := r.transport.Events()

	logger.Info("Loop de monitoramento iniciado")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Loop de monitoramento encerrado")
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				logger.Warn("Canal de eventos do peer fechado")
				events = nil
				continue
			}
			r.handleEvent(ev)

		case req := <-r.requests:
			start := time.Now()
			effects, err := req.fn(r.ctrl)
			r.dispatch(effects)
			metrics.DispatchLatency.Observe(time.Since(start).Seconds())
			req.reply <- err

		case <-ticker.C:
			r.dispatch(r.ctrl.Tick())
		}
	}
}

func (r *Runner) handleEvent(ev models.Event) {
	start := time.Now()
	metrics.EventsReceived.WithLabelValues(ev.EventName()).Inc()

	effects, err := r.ctrl.HandleEvent(ev)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotRunning):
			metrics.EventsDropped.WithLabelValues("not_running").Inc()
			logger.Debugf("Evento %s ignorado: nenhuma sessão em andamento", ev.EventName())
		case errors.Is(err, ErrMissingID):
			metrics.EventsDropped.WithLabelValues("missing_id").Inc()
			logger.Warnf("Evento %s descartado: %v", ev.EventName(), err)
		default:
			metrics.EventsDropped.WithLabelValues("error").Inc()
			logger.Error("Erro ao processar evento "+ev.EventName(), err)
		}
	}

	r.dispatch(effects)
	metrics.DispatchLatency.Observe(time.Since(start).Seconds())
}

// dispatch envia comandos ao peer e repassa cada efeito aos apresentadores
func (r *Runner) dispatch(effects []Effect) {
	for _, eff := range effects {
		r.instrument(eff)

		if out, ok := eff.(Outbound); ok {
			err := r.transport.Send(out.Command)
			metrics.CommandsSent.WithLabelValues(out.Command.CommandName(), metrics.Status(err)).Inc()
			if err != nil {
				logger.Warnf("Falha ao enviar %s ao peer: %v", out.Command.CommandName(), err)
			}
		}

		for _, p := range r.presenters {
			p.Present(eff)
		}
	}
}

func (r *Runner) instrument(eff Effect) {
	switch e := eff.(type) {
	case RenderObservation:
		metrics.ObservationsRendered.WithLabelValues(string(e.View.Kind)).Inc()
	case RenderProgress:
		recordProgress(e.Progress)
	case RenderView:
		recordProgress(e.View.Metrics.Progress)
		recordProgress(e.View.Alarms.Progress)
	case Notify:
		metrics.Notifications.WithLabelValues(string(e.Reason)).Inc()
	case StatusChanged:
		metrics.SessionTransitions.WithLabelValues(string(e.Status.Status)).Inc()
	}
}

func recordProgress(p models.ProgressSnapshot) {
	if p.Kind == "" {
		return
	}
	metrics.ProgressPercentage.WithLabelValues(string(p.Kind)).Set(p.Percentage)
	metrics.MissingCount.WithLabelValues(string(p.Kind)).Set(float64(len(p.MissingIDs)))
}

// do executa fn dentro do loop e aguarda o resultado
func (r *Runner) do(ctx context.Context, fn func(*Controller) ([]Effect, error)) error {
	req := request{fn: fn, reply: make(chan error, 1)}

	select {
	case r.requests <- req:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start inicia uma nova sessão
func (r *Runner) Start(ctx context.Context, params models.SessionParams) error {
	return r.do(ctx, func(c *Controller) ([]Effect, error) {
		return c.Start(params)
	})
}

// Stop interrompe a sessão em andamento
func (r *Runner) Stop(ctx context.Context) error {
	return r.do(ctx, func(c *Controller) ([]Effect, error) {
		return c.Stop(), nil
	})
}

// RequestFilterChange pede a troca do filtro temporal. Retorna true quando
// a troca ficou pendente de confirmação.
func (r *Runner) RequestFilterChange(ctx context.Context, cfg models.FilterConfig) (bool, error) {
	var pending bool
	err := r.do(ctx, func(c *Controller) ([]Effect, error) {
		effects, err := c.RequestFilterChange(cfg)
		pending = c.StatusView().PendingFilter != nil
		return effects, err
	})
	return pending, err
}

// ConfirmFilterChange aceita ou recusa a troca pendente
func (r *Runner) ConfirmFilterChange(ctx context.Context, accept bool) error {
	return r.do(ctx, func(c *Controller) ([]Effect, error) {
		return c.ConfirmFilterChange(accept)
	})
}

// Status retorna o estado da sessão
func (r *Runner) Status(ctx context.Context) (models.StatusView, error) {
	var view models.StatusView
	err := r.do(ctx, func(c *Controller) ([]Effect, error) {
		view = c.StatusView()
		return nil, nil
	})
	return view, err
}

// View retorna o painel completo
func (r *Runner) View(ctx context.Context) (models.DashboardView, error) {
	var view models.DashboardView
	err := r.do(ctx, func(c *Controller) ([]Effect, error) {
		view = c.View()
		return nil, nil
	})
	return view, err
}

// Progress retorna o progresso local de métricas e alarmes
func (r *Runner) Progress(ctx context.Context) (models.ProgressSnapshot, models.ProgressSnapshot, error) {
	var m, a models.ProgressSnapshot
	err := r.do(ctx, func(c *Controller) ([]Effect, error) {
		m, a = c.Progress()
		return nil, nil
	})
	return m, a, err
}

// History retorna o histórico completo de um identificador
func (r *Runner) History(ctx context.Context, kind models.Kind, id string) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := r.do(ctx, func(c *Controller) ([]Effect, error) {
		entries = c.History(kind, id)
		return nil, nil
	})
	return entries, err
}

// OtherAlarms retorna a lista de outros alarmes
func (r *Runner) OtherAlarms(ctx context.Context) ([]models.OtherAlarmView, error) {
	var views []models.OtherAlarmView
	err := r.do(ctx, func(c *Controller) ([]Effect, error) {
		views = c.OtherAlarms()
		return nil, nil
	})
	return views, err
}
