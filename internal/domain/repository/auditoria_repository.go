package repository

import (
	"context"

	"github.com/jhoicas/Accesos-api/internal/domain/entity"
)

// AuditoriaRepository sink append-only de registros de auditoría.
type AuditoriaRepository interface {
	Registrar(ctx context.Context, r *entity.RegistroAuditoria) error
}
