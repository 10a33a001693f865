package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Accesos-api/internal/domain/entity"
)

// VisitaRepository contrato de persistencia de visitas.
//
// ActualizarEstadoSi es la primitiva de concurrencia optimista del motor:
// actualiza la visita solo si su estado actual en la base coincide con el
// esperado ("update ... where id = ? and estado = ?"). Si no afecta filas
// devuelve domain.ErrConflicto; el llamador lo reporta como rechazo de
// guarda, nunca reintenta a ciegas.
type VisitaRepository interface {
	Create(ctx context.Context, v *entity.Visita) error
	GetByID(ctx context.Context, id string) (*entity.Visita, error)
	GetByCodigo(ctx context.Context, codigo string) (*entity.Visita, error)

	ActualizarEstadoSi(ctx context.Context, v *entity.Visita, esperado entity.EstadoVisita) error

	// ListarVencidas: visitas no terminales con vence_en < corte (barrido).
	ListarVencidas(ctx context.Context, corte time.Time) ([]*entity.Visita, error)
	// ListarPorVencer: visitas PENDIENTE aún no notificadas cuyo vencimiento
	// cae dentro de [ahora, ahora+margen].
	ListarPorVencer(ctx context.Context, ahora time.Time, margen time.Duration) ([]*entity.Visita, error)
	MarcarNotificadaPorVencer(ctx context.Context, id string) error

	ListarHijas(ctx context.Context, padreID string) ([]*entity.Visita, error)

	// SiguienteConsecutivo entrega el siguiente número de la secuencia para
	// formar el código legible (VIS-000123).
	SiguienteConsecutivo(ctx context.Context) (int64, error)

	// Delete elimina físicamente una visita que nunca se activó. La
	// implementación debe re-evaluar la guarda (sin ingreso y estado
	// PENDIENTE/CANCELADA) de forma atómica con el borrado y devolver
	// domain.ErrConflicto si ya no se cumple: una visita con ingreso
	// registrado jamás se borra, aunque el ingreso gane la carrera.
	Delete(ctx context.Context, id string) error
}
