package monitor

import "errors"

var (
	// ErrMissingDeviceID a sessão não pode começar sem dispositivo
	ErrMissingDeviceID = errors.New("device_id não informado")
	// ErrSessionRunning já existe uma sessão em andamento
	ErrSessionRunning = errors.New("sessão de monitoramento já em andamento")
	// ErrNoPendingChange não há alteração de filtro aguardando confirmação
	ErrNoPendingChange = errors.New("nenhuma alteração de filtro pendente")
	// ErrInvalidWindow janela temporal fora do intervalo aceito
	ErrInvalidWindow = errors.New("janela temporal inválida")
	// ErrMissingID observação sem identificador, descartada
	ErrMissingID = errors.New("observação sem identificador")
	// ErrNotRunning evento de observação fora de uma sessão ativa
	ErrNotRunning = errors.New("nenhuma sessão em andamento")
)
