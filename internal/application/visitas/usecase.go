// Package visitas implementa el servicio de ciclo de vida de visitas: es
// el único punto de entrada que el resto del sistema invoca para
// programar, registrar ingreso/salida, cancelar y expirar visitas.
//
// Toda transición pasa por la máquina de estados (internal/domain/visita)
// y se confirma con una actualización condicionada por estado en la
// persistencia, de modo que dos porterías concurrentes nunca produzcan
// dos ingresos para la misma visita.
package visitas

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Accesos-api/internal/application/dto"
	"github.com/jhoicas/Accesos-api/internal/domain"
	"github.com/jhoicas/Accesos-api/internal/domain/codigo"
	"github.com/jhoicas/Accesos-api/internal/domain/entity"
	"github.com/jhoicas/Accesos-api/internal/domain/repository"
	"github.com/jhoicas/Accesos-api/internal/domain/visita"
	"github.com/jhoicas/Accesos-api/pkg/logger"
)

// FormatoCodigo formato del código legible de visita.
const FormatoCodigo = "VIS-%06d"

// UseCase orquesta el ciclo de vida de las visitas.
type UseCase struct {
	visitas    repository.VisitaRepository
	auditoria  repository.AuditoriaRepository
	notifica   NotificacionSink
	directorio Directorio
	emisor     *codigo.Emisor
	txRunner   TxRunner
	pase       PaseRenderer
	log        *logger.Logger

	// MargenPorVencer anticipación con la que el barrido avisa que una
	// visita pendiente está por vencer.
	margenPorVencer time.Duration

	// ahora es inyectable para que los tests controlen el reloj.
	ahora func() time.Time
}

// NewUseCase construye el servicio.
func NewUseCase(
	visitas repository.VisitaRepository,
	auditoria repository.AuditoriaRepository,
	notifica NotificacionSink,
	directorio Directorio,
	emisor *codigo.Emisor,
	txRunner TxRunner,
	pase PaseRenderer,
	log *logger.Logger,
	margenPorVencer time.Duration,
) *UseCase {
	return &UseCase{
		visitas:         visitas,
		auditoria:       auditoria,
		notifica:        notifica,
		directorio:      directorio,
		emisor:          emisor,
		txRunner:        txRunner,
		pase:            pase,
		log:             log,
		margenPorVencer: margenPorVencer,
		ahora:           time.Now,
	}
}

// ConReloj reemplaza la fuente de tiempo (tests).
func (uc *UseCase) ConReloj(ahora func() time.Time) *UseCase {
	uc.ahora = ahora
	return uc
}

// ── Programar ─────────────────────────────────────────────────────────────────

// Programar valida la solicitud, asigna código y hash de forma atómica con
// la creación, y persiste la visita en PENDIENTE.
func (uc *UseCase) Programar(ctx context.Context, pr Principal, in dto.ProgramarVisitaRequest) (*entity.Visita, error) {
	if err := validarVentana(in.InicioProgramado, in.VenceEn); err != nil {
		return nil, err
	}
	if in.VisitanteID == "" || in.EmpresaID == "" || in.SedeID == "" || in.NombreVisitante == "" {
		return nil, fmt.Errorf("%w: visitante_id, empresa_id, sede_id y nombre_visitante son obligatorios", domain.ErrValidacion)
	}
	refs := Referencias{
		VisitanteID: in.VisitanteID,
		EmpresaID:   in.EmpresaID,
		SedeID:      in.SedeID,
		ZonaID:      in.ZonaID,
		AnfitrionID: in.AnfitrionID,
		PuertaID:    in.PuertaSugerida,
	}
	if err := uc.directorio.ReferenciasActivas(ctx, refs); err != nil {
		return nil, err
	}

	v, err := uc.construirVisita(ctx, uc.visitas, pr, in, nil)
	if err != nil {
		return nil, err
	}
	if err := uc.visitas.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("crear visita: %w", err)
	}

	uc.auditar(ctx, entity.AccionVisitaCreada, v, pr.UserID,
		fmt.Sprintf("visita %s programada para %s", v.Codigo, v.NombreVisitante))
	uc.publicar(ctx, entity.NotifVisitaCreada, v)
	return v, nil
}

// ProgramarMasiva crea una visita padre y una hija por visitante, todas en
// una sola transacción: o se programa el grupo completo o nada. Las hijas
// comparten la ventana del padre pero su estado transiciona por separado.
func (uc *UseCase) ProgramarMasiva(ctx context.Context, pr Principal, in dto.ProgramarMasivaRequest) (*entity.Visita, []*entity.Visita, error) {
	if err := validarVentana(in.InicioProgramado, in.VenceEn); err != nil {
		return nil, nil, err
	}
	if len(in.Visitantes) == 0 {
		return nil, nil, fmt.Errorf("%w: la visita masiva requiere al menos un visitante", domain.ErrValidacion)
	}
	if in.EmpresaID == "" || in.SedeID == "" {
		return nil, nil, fmt.Errorf("%w: empresa_id y sede_id son obligatorios", domain.ErrValidacion)
	}
	for _, vis := range in.Visitantes {
		if vis.VisitanteID == "" || vis.NombreVisitante == "" {
			return nil, nil, fmt.Errorf("%w: cada visitante requiere visitante_id y nombre_visitante", domain.ErrValidacion)
		}
	}
	refs := Referencias{
		EmpresaID:   in.EmpresaID,
		SedeID:      in.SedeID,
		ZonaID:      in.ZonaID,
		AnfitrionID: in.AnfitrionID,
		PuertaID:    in.PuertaSugerida,
	}
	if err := uc.directorio.ReferenciasActivas(ctx, refs); err != nil {
		return nil, nil, err
	}

	var padre *entity.Visita
	var hijas []*entity.Visita
	base := dto.ProgramarVisitaRequest{
		EmpresaID:        in.EmpresaID,
		NombreEmpresa:    in.NombreEmpresa,
		SedeID:           in.SedeID,
		ZonaID:           in.ZonaID,
		AnfitrionID:      in.AnfitrionID,
		PuertaSugerida:   in.PuertaSugerida,
		InicioProgramado: in.InicioProgramado,
		VenceEn:          in.VenceEn,
	}

	err := uc.txRunner.Run(ctx, func(repo repository.VisitaRepository) error {
		cabecera := base
		cabecera.NombreVisitante = fmt.Sprintf("grupo de %d visitantes", len(in.Visitantes))
		p, err := uc.construirVisita(ctx, repo, pr, cabecera, nil)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, p); err != nil {
			return fmt.Errorf("crear visita padre: %w", err)
		}
		padre = p

		for _, vis := range in.Visitantes {
			solicitud := base
			solicitud.VisitanteID = vis.VisitanteID
			solicitud.NombreVisitante = vis.NombreVisitante
			h, err := uc.construirVisita(ctx, repo, pr, solicitud, &p.ID)
			if err != nil {
				return err
			}
			if err := repo.Create(ctx, h); err != nil {
				return fmt.Errorf("crear visita hija: %w", err)
			}
			hijas = append(hijas, h)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	uc.auditar(ctx, entity.AccionVisitaCreada, padre, pr.UserID,
		fmt.Sprintf("visita masiva %s con %d visitantes", padre.Codigo, len(hijas)))
	uc.publicar(ctx, entity.NotifVisitaCreada, padre)
	for _, h := range hijas {
		uc.auditar(ctx, entity.AccionVisitaCreada, h, pr.UserID,
			fmt.Sprintf("visita %s programada para %s (grupo %s)", h.Codigo, h.NombreVisitante, padre.Codigo))
		uc.publicar(ctx, entity.NotifVisitaCreada, h)
	}
	return padre, hijas, nil
}

// construirVisita arma la entidad completa: consecutivo, código, ventana y
// hash de seguridad quedan asignados antes del Create.
func (uc *UseCase) construirVisita(ctx context.Context, repo repository.VisitaRepository, pr Principal, in dto.ProgramarVisitaRequest, padreID *string) (*entity.Visita, error) {
	consecutivo, err := repo.SiguienteConsecutivo(ctx)
	if err != nil {
		return nil, fmt.Errorf("asignar consecutivo: %w", err)
	}
	ahora := uc.ahora()
	v := &entity.Visita{
		ID:               uuid.New().String(),
		Consecutivo:      consecutivo,
		Codigo:           fmt.Sprintf(FormatoCodigo, consecutivo),
		VisitanteID:      in.VisitanteID,
		EmpresaID:        in.EmpresaID,
		SedeID:           in.SedeID,
		ZonaID:           in.ZonaID,
		AnfitrionID:      in.AnfitrionID,
		PuertaSugerida:   in.PuertaSugerida,
		PadreID:          padreID,
		NombreVisitante:  in.NombreVisitante,
		NombreEmpresa:    in.NombreEmpresa,
		InicioProgramado: in.InicioProgramado,
		VenceEn:          in.VenceEn,
		Estado:           entity.EstadoPendiente,
		CreadaPor:        pr.UserID,
		CreadaEn:         ahora,
		ActualizadaEn:    ahora,
	}
	_, hash, err := uc.emisor.Emitir(codigo.PayloadDeVisita(v))
	if err != nil {
		return nil, fmt.Errorf("emitir código: %w", err)
	}
	v.HashSeguridad = hash
	return v, nil
}

// ── Verificación e ingreso ────────────────────────────────────────────────────

// VerificarCodigo comprueba un código presentado sin mutar estado: hash en
// tiempo constante, correspondencia con los campos vigentes de la visita,
// estado no terminal y ventana vigente. Nunca falla con pánico ante
// entrada malformada; siempre devuelve una razón tipada.
func (uc *UseCase) VerificarCodigo(ctx context.Context, cadena, hash string) (codigo.Resultado, *entity.Visita, error) {
	if !uc.emisor.VerificarHash(cadena, hash) {
		return codigo.ResultadoHashInvalido, nil, nil
	}
	payload, err := codigo.ParseCadena(cadena)
	if err != nil {
		return codigo.ResultadoNoEncontrada, nil, nil
	}
	v, err := uc.visitas.GetByCodigo(ctx, payload.CodigoVisita)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return codigo.ResultadoNoEncontrada, nil, nil
		}
		return "", nil, err
	}
	// Un pase firmado con campos ya modificados (reventana, cambio de
	// visitante) deja de corresponder a la visita vigente. Se responde
	// igual que ante un hash ajeno: el portador de un pase superado no
	// recibe los datos actuales de la visita.
	if codigo.PayloadDeVisita(v).Cadena() != cadena {
		return codigo.ResultadoHashInvalido, nil, nil
	}
	if v.Estado.EsTerminal() {
		return codigo.ResultadoYaProcesada, v, nil
	}
	if v.Vencida(uc.ahora()) {
		return codigo.ResultadoExpirado, v, nil
	}
	return codigo.ResultadoValido, v, nil
}

// Ingresar registra el ingreso de una visita en portería: verifica el
// código, aplica la transición PENDIENTE → EN_CURSO y la confirma con la
// actualización condicionada por estado. Dos ingresos simultáneos para la
// misma visita producen exactamente un éxito; el perdedor recibe
// domain.ErrConflicto sin efectos secundarios.
func (uc *UseCase) Ingresar(ctx context.Context, pr Principal, in dto.IngresoRequest) (*entity.Visita, codigo.Resultado, error) {
	if in.PuertaID == "" {
		return nil, "", fmt.Errorf("%w: puerta_id es obligatorio", domain.ErrValidacion)
	}
	res, v, err := uc.VerificarCodigo(ctx, in.Payload, in.Hash)
	if err != nil {
		return nil, "", err
	}
	if res != codigo.ResultadoValido {
		// Rechazo tipado: sin mutación, sin auditoría, sin notificación.
		return v, res, nil
	}

	anterior := v.Estado
	ahora := uc.ahora()
	if err := visita.Ingresar(v, in.PuertaID, ahora); err != nil {
		return v, "", err
	}
	if err := uc.visitas.ActualizarEstadoSi(ctx, v, anterior); err != nil {
		return v, "", err
	}

	uc.auditar(ctx, entity.AccionVisitaIngreso, v, pr.UserID,
		fmt.Sprintf("ingreso de %s por portería %s", v.Codigo, in.PuertaID))
	uc.publicar(ctx, entity.NotifVisitaIngreso, v)
	return v, codigo.ResultadoValido, nil
}

// Salir registra la salida: EN_CURSO → COMPLETADA.
func (uc *UseCase) Salir(ctx context.Context, pr Principal, idOCodigo, puertaID string) (*entity.Visita, error) {
	if puertaID == "" {
		return nil, fmt.Errorf("%w: puerta_id es obligatorio", domain.ErrValidacion)
	}
	v, err := uc.buscar(ctx, idOCodigo)
	if err != nil {
		return nil, err
	}

	anterior := v.Estado
	if err := visita.Salir(v, puertaID, uc.ahora()); err != nil {
		return v, err
	}
	if err := uc.visitas.ActualizarEstadoSi(ctx, v, anterior); err != nil {
		return v, err
	}

	uc.auditar(ctx, entity.AccionVisitaSalida, v, pr.UserID,
		fmt.Sprintf("salida de %s por portería %s", v.Codigo, puertaID))
	uc.publicar(ctx, entity.NotifVisitaSalida, v)
	return v, nil
}

// ── Cancelación y eliminación ─────────────────────────────────────────────────

// Cancelar transiciona PENDIENTE → CANCELADA. Solo el creador de la
// visita o un principal administrativo pueden cancelarla.
func (uc *UseCase) Cancelar(ctx context.Context, pr Principal, id string) (*entity.Visita, error) {
	v, err := uc.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pr.EsAdmin() && pr.UserID != v.CreadaPor {
		return nil, domain.ErrForbidden
	}

	anterior := v.Estado
	if err := visita.Cancelar(v, uc.ahora()); err != nil {
		return v, err
	}
	if err := uc.visitas.ActualizarEstadoSi(ctx, v, anterior); err != nil {
		return v, err
	}

	uc.auditar(ctx, entity.AccionVisitaCancelada, v, pr.UserID,
		fmt.Sprintf("visita %s cancelada", v.Codigo))
	uc.publicar(ctx, entity.NotifVisitaCancelada, v)
	return v, nil
}

// Eliminar borra físicamente una visita que nunca se activó (PENDIENTE o
// CANCELADA sin ingreso). Una visita con ingreso registrado es permanente.
func (uc *UseCase) Eliminar(ctx context.Context, pr Principal, id string) error {
	v, err := uc.buscar(ctx, id)
	if err != nil {
		return err
	}
	if !pr.EsAdmin() && pr.UserID != v.CreadaPor {
		return domain.ErrForbidden
	}
	if v.TieneIngreso() {
		return domain.ErrYaIngresada
	}
	if v.Estado != entity.EstadoPendiente && v.Estado != entity.EstadoCancelada {
		return domain.ErrTransicionInvalida
	}
	if err := uc.visitas.Delete(ctx, v.ID); err != nil {
		return err
	}
	uc.auditar(ctx, entity.AccionVisitaEliminada, v, pr.UserID,
		fmt.Sprintf("visita %s eliminada sin activarse", v.Codigo))
	return nil
}

// ── Consultas y pase ──────────────────────────────────────────────────────────

// Obtener devuelve una visita por ID o código legible.
func (uc *UseCase) Obtener(ctx context.Context, idOCodigo string) (*entity.Visita, error) {
	return uc.buscar(ctx, idOCodigo)
}

// Hijas lista las visitas hijas de una visita masiva.
func (uc *UseCase) Hijas(ctx context.Context, idOCodigo string) ([]*entity.Visita, error) {
	v, err := uc.buscar(ctx, idOCodigo)
	if err != nil {
		return nil, err
	}
	return uc.visitas.ListarHijas(ctx, v.ID)
}

// EmitirPase reemite la credencial de una visita. Determinista: mientras
// los campos ligados no cambien, payload y hash son idénticos byte a byte.
func (uc *UseCase) EmitirPase(ctx context.Context, idOCodigo string) (*entity.Visita, dto.PaseResponse, error) {
	v, err := uc.buscar(ctx, idOCodigo)
	if err != nil {
		return nil, dto.PaseResponse{}, err
	}
	cadena, hash, err := uc.emisor.Emitir(codigo.PayloadDeVisita(v))
	if err != nil {
		return nil, dto.PaseResponse{}, err
	}
	return v, dto.PaseResponse{Payload: cadena, Hash: hash}, nil
}

// PasePDF genera el pase impreso de la visita. La reimpresión reutiliza la
// emisión determinista, así que el QR del PDF siempre coincide con el
// último pase entregado.
func (uc *UseCase) PasePDF(ctx context.Context, idOCodigo string) ([]byte, error) {
	if uc.pase == nil {
		return nil, fmt.Errorf("pase: generador no configurado")
	}
	v, pase, err := uc.EmitirPase(ctx, idOCodigo)
	if err != nil {
		return nil, err
	}
	return uc.pase.Render(ctx, v, pase.Payload, pase.Hash)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func validarVentana(inicio, vence time.Time) error {
	if inicio.IsZero() || vence.IsZero() {
		return fmt.Errorf("%w: inicio_programado y vence_en son obligatorios", domain.ErrValidacion)
	}
	if !inicio.Before(vence) {
		return fmt.Errorf("%w: inicio_programado debe ser anterior a vence_en", domain.ErrValidacion)
	}
	return nil
}

func (uc *UseCase) buscar(ctx context.Context, idOCodigo string) (*entity.Visita, error) {
	if idOCodigo == "" {
		return nil, fmt.Errorf("%w: identificador de visita vacío", domain.ErrValidacion)
	}
	if strings.HasPrefix(idOCodigo, "VIS-") {
		return uc.visitas.GetByCodigo(ctx, idOCodigo)
	}
	return uc.visitas.GetByID(ctx, idOCodigo)
}

// auditar emite exactamente un registro por transición confirmada. La
// transición ya está en la base: si el sink falla se registra en el log y
// la operación no se revierte.
func (uc *UseCase) auditar(ctx context.Context, accion string, v *entity.Visita, actorID, descripcion string) {
	r := &entity.RegistroAuditoria{
		ID:          uuid.New().String(),
		Accion:      accion,
		TipoEntidad: "Visita",
		EntidadID:   v.ID,
		Descripcion: descripcion,
		ActorID:     actorID,
		Exito:       true,
		CreadaEn:    uc.ahora(),
	}
	if err := uc.auditoria.Registrar(ctx, r); err != nil {
		uc.log.Error().Err(err).Str("accion", accion).Str("visita", v.ID).Msg("registrar auditoría")
	}
}

func (uc *UseCase) publicar(ctx context.Context, tipo string, v *entity.Visita) {
	uc.notifica.Publicar(ctx, entity.Notificacion{
		Tipo:           tipo,
		VisitaID:       v.ID,
		DestinatarioID: v.AnfitrionID,
		Datos: map[string]string{
			"codigo":    v.Codigo,
			"visitante": v.NombreVisitante,
			"estado":    string(v.Estado),
		},
		CreadaEn: uc.ahora(),
	})
}
