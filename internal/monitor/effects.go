package monitor

import (
	"digil_monitor/internal/models"
)

// Effect é um pedido de efeito colateral produzido pelo núcleo.
// Quem executa os efeitos são o transporte e os apresentadores.
type Effect interface {
	effect()
}

// NotifyReason motivo de um aviso
type NotifyReason string

const (
	NotifyNewAlarm   NotifyReason = "new_alarm"
	NotifyCompletion NotifyReason = "completion"
)

// CompletionPulses quantidade de pulsos do aviso de conclusão
const CompletionPulses = 3

// RenderObservation uma observação mudou
type RenderObservation struct {
	View models.ObservationView
}

// RenderProgress contagem local de um tipo recalculada
type RenderProgress struct {
	Progress models.ProgressSnapshot
	Missing  []models.MissingView
}

// RenderView o painel inteiro deve ser redesenhado
type RenderView struct {
	View models.DashboardView
}

// Notify aviso disparado uma única vez por alarme novo ou por conclusão
type Notify struct {
	Reason  NotifyReason
	AlarmID string
	Pulses  int
}

// StatusChanged estado ou mensagem da sessão mudou
type StatusChanged struct {
	Status models.StatusView
}

// SessionReset os dados da sessão anterior foram descartados
type SessionReset struct {
	SessionID string
	Params    models.SessionParams
	Catalog   CatalogView
}

// Outbound comando a enviar ao peer
type Outbound struct {
	Command models.Command
}

// ConfirmationRequired alteração de filtro aguardando o operador
type ConfirmationRequired struct {
	Current models.FilterConfig
	Pending models.FilterConfig
}

// OtherAlarmAdded nova entrada na lista de outros alarmes
type OtherAlarmAdded struct {
	View models.OtherAlarmView
}

// TimerTick tempo decorrido da sessão
type TimerTick struct {
	Elapsed string
}

// CatalogView identificadores esperados da sessão
type CatalogView struct {
	Cardinality int      `json:"num_sensors"`
	Metrics     []string `json:"metrics"`
	Alarms      []string `json:"alarms"`
}

func (RenderObservation) effect()    {}
func (RenderProgress) effect()       {}
func (RenderView) effect()           {}
func (Notify) effect()               {}
func (StatusChanged) effect()        {}
func (SessionReset) effect()         {}
func (Outbound) effect()             {}
func (ConfirmationRequired) effect() {}
func (OtherAlarmAdded) effect()      {}
func (TimerTick) effect()            {}
