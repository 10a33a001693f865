package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Accesos-api/internal/domain/entity"
	"github.com/jhoicas/Accesos-api/internal/domain/repository"
)

var _ repository.AuditoriaRepository = (*AuditoriaRepo)(nil)

// AuditoriaRepo sink append-only de auditoría sobre PostgreSQL.
type AuditoriaRepo struct {
	q Querier
}

// NewAuditoriaRepository construye el adaptador. Pasar pool o tx.
func NewAuditoriaRepository(q Querier) *AuditoriaRepo {
	return &AuditoriaRepo{q: q}
}

// Registrar inserta el registro; nunca actualiza ni borra.
func (r *AuditoriaRepo) Registrar(ctx context.Context, reg *entity.RegistroAuditoria) error {
	query := `
		INSERT INTO auditoria (id, accion, tipo_entidad, entidad_id, descripcion, actor_id, exito, creada_en)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		reg.ID, reg.Accion, reg.TipoEntidad, reg.EntidadID,
		reg.Descripcion, reg.ActorID, reg.Exito, reg.CreadaEn,
	)
	if err != nil {
		return fmt.Errorf("insertar auditoría: %w", err)
	}
	return nil
}
