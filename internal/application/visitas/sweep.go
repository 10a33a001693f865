package visitas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Accesos-api/internal/domain"
	"github.com/jhoicas/Accesos-api/internal/domain/entity"
	"github.com/jhoicas/Accesos-api/internal/domain/visita"
	"github.com/jhoicas/Accesos-api/pkg/logger"
)

// BarridoExpiracion expira todas las visitas no terminales cuya ventana ya
// venció y devuelve cuántas transicionó. Es re-entrante e idempotente:
// re-ejecutarlo tras una caída evalúa el mismo predicado y solo afecta
// visitas que siguen sin estado terminal. Cada expiración es una
// actualización condicionada por estado, así que un ingreso concurrente en
// portería y el barrido nunca se pisan: gana exactamente uno.
func (uc *UseCase) BarridoExpiracion(ctx context.Context, ahora time.Time) (int, error) {
	vencidas, err := uc.visitas.ListarVencidas(ctx, ahora)
	if err != nil {
		return 0, fmt.Errorf("listar visitas vencidas: %w", err)
	}

	expiradas := 0
	for _, v := range vencidas {
		anterior := v.Estado
		if err := visita.Expirar(v, ahora); err != nil {
			// El registro cambió entre la consulta y aquí (p. ej. salida
			// registrada); no es un fallo del barrido.
			continue
		}
		if err := uc.visitas.ActualizarEstadoSi(ctx, v, anterior); err != nil {
			if errors.Is(err, domain.ErrConflicto) {
				continue
			}
			return expiradas, err
		}
		uc.auditar(ctx, entity.AccionVisitaExpirada, v, "sistema",
			fmt.Sprintf("visita %s expirada por barrido", v.Codigo))
		uc.publicar(ctx, entity.NotifVisitaExpirada, v)
		expiradas++
	}

	if err := uc.notificarPorVencer(ctx, ahora); err != nil {
		// Aviso de cortesía: no invalida el barrido.
		uc.log.Warn().Err(err).Msg("notificar visitas por vencer")
	}
	return expiradas, nil
}

// notificarPorVencer publica el aviso de proximidad de vencimiento una
// sola vez por visita (la marca persiste para mantener el barrido
// idempotente).
func (uc *UseCase) notificarPorVencer(ctx context.Context, ahora time.Time) error {
	if uc.margenPorVencer <= 0 {
		return nil
	}
	proximas, err := uc.visitas.ListarPorVencer(ctx, ahora, uc.margenPorVencer)
	if err != nil {
		return err
	}
	for _, v := range proximas {
		if err := uc.visitas.MarcarNotificadaPorVencer(ctx, v.ID); err != nil {
			return err
		}
		uc.publicar(ctx, entity.NotifVisitaPorVencer, v)
	}
	return nil
}

// Sweeper ejecuta el barrido de expiración en un temporizador
// independiente, concurrente con el tráfico vivo de porterías.
type Sweeper struct {
	uc        *UseCase
	intervalo time.Duration
	log       *logger.Logger
}

// NewSweeper construye el barredor.
func NewSweeper(uc *UseCase, intervalo time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{uc: uc, intervalo: intervalo, log: log}
}

// Ejecutar corre el ciclo hasta que el contexto se cancele.
func (s *Sweeper) Ejecutar(ctx context.Context) {
	ticker := time.NewTicker(s.intervalo)
	defer ticker.Stop()

	s.log.Info().Dur("intervalo", s.intervalo).Msg("barrido de expiración iniciado")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("barrido de expiración detenido")
			return
		case <-ticker.C:
			n, err := s.uc.BarridoExpiracion(ctx, s.uc.ahora())
			if err != nil {
				s.log.Error().Err(err).Msg("barrido de expiración")
				continue
			}
			if n > 0 {
				s.log.Info().Int("expiradas", n).Msg("visitas expiradas por barrido")
			}
		}
	}
}
