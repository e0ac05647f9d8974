package utils

import (
	"fmt"
	"time"
)

// FormatDuration formata uma duração para exibição amigável
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour

	m := d / time.Minute
	d -= m * time.Minute

	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatElapsed formata o tempo decorrido da sessão como MM:SS.
// Acima de 99 minutos os minutos simplesmente crescem.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatDisplayDate formata a data exibida junto das leituras (dd/mm/yy)
func FormatDisplayDate(t time.Time) string {
	return t.Format("02/01/06")
}

// TimeAgo descreve quanto tempo passou entre t e now
func TimeAgo(t, now time.Time) string {
	duration := now.Sub(t)

	seconds := int(duration.Seconds())
	if seconds < 0 {
		return "no futuro"
	}
	if seconds < 60 {
		return fmt.Sprintf("%d segundos atrás", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%d minutos atrás", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d horas atrás", hours)
	}

	return fmt.Sprintf("%d dias atrás", hours/24)
}
