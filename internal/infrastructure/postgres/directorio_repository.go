package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Accesos-api/internal/infrastructure/directorio"
)

var _ directorio.Consulta = (*DirectorioRepo)(nil)

// DirectorioRepo consulta de solo lectura sobre las tablas del directorio
// corporativo (su CRUD vive en otro servicio; aquí solo se verifica que
// una referencia exista y esté activa).
type DirectorioRepo struct {
	q Querier
}

// NewDirectorioRepository construye el adaptador.
func NewDirectorioRepository(q Querier) *DirectorioRepo {
	return &DirectorioRepo{q: q}
}

// Consultas por tipo de referencia. Mapa cerrado: nunca se interpola el
// nombre de tabla desde la entrada.
var consultasActivo = map[directorio.Tipo]string{
	directorio.TipoVisitante:   `SELECT activo FROM visitantes WHERE id = $1`,
	directorio.TipoEmpresa:     `SELECT activo FROM empresas WHERE id = $1`,
	directorio.TipoSede:        `SELECT activo FROM sedes WHERE id = $1`,
	directorio.TipoZona:        `SELECT activo FROM zonas WHERE id = $1`,
	directorio.TipoColaborador: `SELECT activo FROM colaboradores WHERE id = $1`,
	directorio.TipoPuerta:      `SELECT activo FROM puertas WHERE id = $1`,
}

// Activa devuelve si la referencia existe y está activa.
func (r *DirectorioRepo) Activa(ctx context.Context, tipo directorio.Tipo, id string) (bool, error) {
	query, ok := consultasActivo[tipo]
	if !ok {
		return false, fmt.Errorf("directorio: tipo de referencia desconocido %q", tipo)
	}
	var activa bool
	err := r.q.QueryRow(ctx, query, id).Scan(&activa)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("consultar %s: %w", tipo, err)
	}
	return activa, nil
}
