package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Accesos-api/internal/domain"
	"github.com/jhoicas/Accesos-api/internal/domain/entity"
	"github.com/jhoicas/Accesos-api/internal/domain/repository"
)

var _ repository.VisitaRepository = (*VisitaRepo)(nil)

// VisitaRepo implementación de VisitaRepository sobre PostgreSQL (usable
// con pool o tx).
type VisitaRepo struct {
	q Querier
}

// NewVisitaRepository construye el adaptador de visitas. Pasar pool o tx.
func NewVisitaRepository(q Querier) *VisitaRepo {
	return &VisitaRepo{q: q}
}

const visitaColumnas = `
	id, consecutivo, codigo, visitante_id, empresa_id, sede_id, zona_id,
	anfitrion_id, puerta_sugerida, puerta_entrada, puerta_salida, padre_id,
	nombre_visitante, nombre_empresa, inicio_programado, vence_en,
	ingreso_en, salida_en, estado, hash_seguridad, notificada_por_vencer,
	creada_por, creada_en, actualizada_en`

// Create inserta la visita ya armada (código y hash asignados).
func (r *VisitaRepo) Create(ctx context.Context, v *entity.Visita) error {
	query := `
		INSERT INTO visitas (` + visitaColumnas + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`
	_, err := r.q.Exec(ctx, query,
		v.ID, v.Consecutivo, v.Codigo, v.VisitanteID, v.EmpresaID, v.SedeID, v.ZonaID,
		v.AnfitrionID, v.PuertaSugerida, v.PuertaEntrada, v.PuertaSalida, v.PadreID,
		v.NombreVisitante, v.NombreEmpresa, v.InicioProgramado, v.VenceEn,
		v.IngresoEn, v.SalidaEn, v.Estado, v.HashSeguridad, v.NotificadaPorVencer,
		v.CreadaPor, v.CreadaEn, v.ActualizadaEn,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// El código de visita es único e inmutable una vez asignado.
			return fmt.Errorf("%w: código de visita duplicado", domain.ErrConflicto)
		}
		return fmt.Errorf("insertar visita: %w", err)
	}
	return nil
}

// GetByID obtiene una visita por su UUID.
func (r *VisitaRepo) GetByID(ctx context.Context, id string) (*entity.Visita, error) {
	query := `SELECT ` + visitaColumnas + ` FROM visitas WHERE id = $1`
	return r.una(ctx, query, id)
}

// GetByCodigo obtiene una visita por su código legible (VIS-000123).
func (r *VisitaRepo) GetByCodigo(ctx context.Context, codigo string) (*entity.Visita, error) {
	query := `SELECT ` + visitaColumnas + ` FROM visitas WHERE codigo = $1`
	return r.una(ctx, query, codigo)
}

// ActualizarEstadoSi aplica la transición con concurrencia optimista:
// "update ... where id = $1 and estado = $esperado". Cero filas afectadas
// significa que otro proceso ganó la carrera; se reporta como
// domain.ErrConflicto para que el llamador lo trate como rechazo de
// guarda y no reintente a ciegas.
func (r *VisitaRepo) ActualizarEstadoSi(ctx context.Context, v *entity.Visita, esperado entity.EstadoVisita) error {
	query := `
		UPDATE visitas
		SET estado = $1, puerta_entrada = $2, puerta_salida = $3,
		    ingreso_en = $4, salida_en = $5, actualizada_en = $6
		WHERE id = $7 AND estado = $8`
	tag, err := r.q.Exec(ctx, query,
		v.Estado, v.PuertaEntrada, v.PuertaSalida,
		v.IngresoEn, v.SalidaEn, v.ActualizadaEn,
		v.ID, esperado,
	)
	if err != nil {
		return fmt.Errorf("actualizar estado de visita: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflicto
	}
	return nil
}

// ListarVencidas devuelve visitas no terminales con vence_en < corte.
func (r *VisitaRepo) ListarVencidas(ctx context.Context, corte time.Time) ([]*entity.Visita, error) {
	query := `
		SELECT ` + visitaColumnas + `
		FROM visitas
		WHERE estado IN ($1, $2) AND vence_en < $3
		ORDER BY vence_en`
	return r.varias(ctx, query, entity.EstadoPendiente, entity.EstadoEnCurso, corte)
}

// ListarPorVencer devuelve visitas pendientes no notificadas cuyo
// vencimiento cae dentro del margen.
func (r *VisitaRepo) ListarPorVencer(ctx context.Context, ahora time.Time, margen time.Duration) ([]*entity.Visita, error) {
	query := `
		SELECT ` + visitaColumnas + `
		FROM visitas
		WHERE estado = $1 AND NOT notificada_por_vencer
		  AND vence_en > $2 AND vence_en <= $3
		ORDER BY vence_en`
	return r.varias(ctx, query, entity.EstadoPendiente, ahora, ahora.Add(margen))
}

// MarcarNotificadaPorVencer fija la marca para no repetir el aviso.
func (r *VisitaRepo) MarcarNotificadaPorVencer(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE visitas SET notificada_por_vencer = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marcar notificada por vencer: %w", err)
	}
	return nil
}

// ListarHijas devuelve las visitas hijas de una visita masiva.
func (r *VisitaRepo) ListarHijas(ctx context.Context, padreID string) ([]*entity.Visita, error) {
	query := `SELECT ` + visitaColumnas + ` FROM visitas WHERE padre_id = $1 ORDER BY consecutivo`
	return r.varias(ctx, query, padreID)
}

// SiguienteConsecutivo toma el siguiente valor de la secuencia de códigos.
func (r *VisitaRepo) SiguienteConsecutivo(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT nextval('visitas_consecutivo_seq')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("siguiente consecutivo: %w", err)
	}
	return n, nil
}

// Delete elimina físicamente una visita que nunca se activó. La guarda se
// re-evalúa dentro del DELETE, igual que en ActualizarEstadoSi: un ingreso
// que se confirme entre la lectura del servicio y este statement deja la
// condición en falso y la visita queda intacta. Cero filas afectadas se
// reporta como domain.ErrConflicto.
func (r *VisitaRepo) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM visitas
		WHERE id = $1 AND ingreso_en IS NULL AND estado IN ($2, $3)`
	tag, err := r.q.Exec(ctx, query, id, entity.EstadoPendiente, entity.EstadoCancelada)
	if err != nil {
		return fmt.Errorf("eliminar visita: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflicto
	}
	return nil
}

// ── Scan helpers ──────────────────────────────────────────────────────────────

func (r *VisitaRepo) una(ctx context.Context, query string, args ...any) (*entity.Visita, error) {
	v, err := scanVisita(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("consultar visita: %w", err)
	}
	return v, nil
}

func (r *VisitaRepo) varias(ctx context.Context, query string, args ...any) ([]*entity.Visita, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("consultar visitas: %w", err)
	}
	defer rows.Close()

	var visitas []*entity.Visita
	for rows.Next() {
		v, err := scanVisita(rows)
		if err != nil {
			return nil, fmt.Errorf("leer visita: %w", err)
		}
		visitas = append(visitas, v)
	}
	return visitas, rows.Err()
}

func scanVisita(row pgx.Row) (*entity.Visita, error) {
	var v entity.Visita
	err := row.Scan(
		&v.ID, &v.Consecutivo, &v.Codigo, &v.VisitanteID, &v.EmpresaID, &v.SedeID, &v.ZonaID,
		&v.AnfitrionID, &v.PuertaSugerida, &v.PuertaEntrada, &v.PuertaSalida, &v.PadreID,
		&v.NombreVisitante, &v.NombreEmpresa, &v.InicioProgramado, &v.VenceEn,
		&v.IngresoEn, &v.SalidaEn, &v.Estado, &v.HashSeguridad, &v.NotificadaPorVencer,
		&v.CreadaPor, &v.CreadaEn, &v.ActualizadaEn,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
