// Package notificacion implementa el sink de eventos del ciclo de vida.
// La entrega real (push, correo) es responsabilidad de otro servicio que
// consume estos eventos; este sink los publica de forma estructurada.
package notificacion

import (
	"context"

	"github.com/jhoicas/Accesos-api/internal/application/visitas"
	"github.com/jhoicas/Accesos-api/internal/domain/entity"
	"github.com/jhoicas/Accesos-api/pkg/logger"
)

var _ visitas.NotificacionSink = (*LogSink)(nil)

// LogSink publica cada notificación como evento estructurado en el log.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink construye el sink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Publicar es fire-and-forget: nunca falla hacia el llamador.
func (s *LogSink) Publicar(_ context.Context, n entity.Notificacion) {
	ev := s.log.Info().
		Str("evento", "notificacion").
		Str("tipo", n.Tipo).
		Str("visita_id", n.VisitaID)
	if n.DestinatarioID != "" {
		ev = ev.Str("destinatario_id", n.DestinatarioID)
	}
	for k, v := range n.Datos {
		ev = ev.Str(k, v)
	}
	ev.Msg("evento de visita publicado")
}
