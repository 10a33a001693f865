package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Accesos-api/internal/application/dto"
	"github.com/jhoicas/Accesos-api/internal/application/visitas"
	"github.com/jhoicas/Accesos-api/internal/domain"
	"github.com/jhoicas/Accesos-api/internal/domain/codigo"
)

// VisitaHandler maneja las peticiones HTTP del ciclo de vida de visitas.
type VisitaHandler struct {
	uc *visitas.UseCase
}

// NewVisitaHandler construye el handler.
func NewVisitaHandler(uc *visitas.UseCase) *VisitaHandler {
	return &VisitaHandler{uc: uc}
}

// Programar godoc
// @Summary      Programar una visita
// @Tags         visitas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProgramarVisitaRequest  true  "visitante, empresa, sede, ventana [inicio_programado, vence_en)"
// @Success      201   {object}  dto.VisitaResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/visitas [post]
func (h *VisitaHandler) Programar(c *fiber.Ctx) error {
	var in dto.ProgramarVisitaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	v, err := h.uc.Programar(c.Context(), GetPrincipal(c), in)
	if err != nil {
		return respuestaError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.VisitaToResponse(v))
}

// ProgramarMasiva godoc
// @Summary      Programar una visita masiva (padre + una hija por visitante)
// @Tags         visitas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProgramarMasivaRequest  true  "ventana compartida y lista de visitantes"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/visitas/masiva [post]
func (h *VisitaHandler) ProgramarMasiva(c *fiber.Ctx) error {
	var in dto.ProgramarMasivaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	padre, hijas, err := h.uc.ProgramarMasiva(c.Context(), GetPrincipal(c), in)
	if err != nil {
		return respuestaError(c, err)
	}
	respuesta := make([]*dto.VisitaResponse, 0, len(hijas))
	for _, hija := range hijas {
		respuesta = append(respuesta, dto.VisitaToResponse(hija))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"padre": dto.VisitaToResponse(padre),
		"hijas": respuesta,
	})
}

// Obtener godoc
// @Summary      Consultar una visita por ID o código
// @Tags         visitas
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "UUID o código VIS-000123"
// @Success      200  {object}  dto.VisitaResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/visitas/{id} [get]
func (h *VisitaHandler) Obtener(c *fiber.Ctx) error {
	v, err := h.uc.Obtener(c.Context(), c.Params("id"))
	if err != nil {
		return respuestaError(c, err)
	}
	return c.JSON(dto.VisitaToResponse(v))
}

// Hijas godoc
// @Summary      Listar las visitas hijas de una visita masiva
// @Tags         visitas
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "UUID o código de la visita padre"
// @Success      200  {array}  dto.VisitaResponse
// @Router       /api/visitas/{id}/hijas [get]
func (h *VisitaHandler) Hijas(c *fiber.Ctx) error {
	hijas, err := h.uc.Hijas(c.Context(), c.Params("id"))
	if err != nil {
		return respuestaError(c, err)
	}
	respuesta := make([]*dto.VisitaResponse, 0, len(hijas))
	for _, hija := range hijas {
		respuesta = append(respuesta, dto.VisitaToResponse(hija))
	}
	return c.JSON(respuesta)
}

// Ingresar godoc
// @Summary      Registrar ingreso presentando el código en portería
// @Description  Verifica el código (hash, ventana, estado) y aplica la
//
//	transición PENDIENTE → EN_CURSO. El rechazo siempre trae la razón
//	exacta para mostrarla en el puesto de control.
//
// @Tags         visitas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IngresoRequest  true  "payload escaneado, hash y portería"
// @Success      200   {object}  dto.VisitaResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/visitas/ingreso [post]
func (h *VisitaHandler) Ingresar(c *fiber.Ctx) error {
	var in dto.IngresoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	v, res, err := h.uc.Ingresar(c.Context(), GetPrincipal(c), in)
	if err != nil {
		return respuestaError(c, err)
	}
	if res != codigo.ResultadoValido {
		return respuestaVerificacion(c, res)
	}
	return c.JSON(dto.VisitaToResponse(v))
}

// Salir godoc
// @Summary      Registrar salida de una visita en curso
// @Tags         visitas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SalidaRequest  true  "visita (id o código) y portería"
// @Success      200   {object}  dto.VisitaResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/visitas/salida [post]
func (h *VisitaHandler) Salir(c *fiber.Ctx) error {
	var in dto.SalidaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	v, err := h.uc.Salir(c.Context(), GetPrincipal(c), in.Visita, in.PuertaID)
	if err != nil {
		return respuestaError(c, err)
	}
	return c.JSON(dto.VisitaToResponse(v))
}

// Cancelar godoc
// @Summary      Cancelar una visita pendiente
// @Description  Solo el creador de la visita o un administrador.
// @Tags         visitas
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "UUID o código"
// @Success      200  {object}  dto.VisitaResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/visitas/{id}/cancelar [post]
func (h *VisitaHandler) Cancelar(c *fiber.Ctx) error {
	v, err := h.uc.Cancelar(c.Context(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respuestaError(c, err)
	}
	return c.JSON(dto.VisitaToResponse(v))
}

// Eliminar godoc
// @Summary      Eliminar una visita nunca activada
// @Description  Permitido solo para visitas PENDIENTE o CANCELADA sin
//
//	ingreso registrado; una visita con ingreso es permanente.
//
// @Tags         visitas
// @Security     Bearer
// @Param        id  path  string  true  "UUID o código"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/visitas/{id} [delete]
func (h *VisitaHandler) Eliminar(c *fiber.Ctx) error {
	if err := h.uc.Eliminar(c.Context(), GetPrincipal(c), c.Params("id")); err != nil {
		return respuestaError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Pase godoc
// @Summary      Reemitir la credencial (payload + hash) de una visita
// @Description  Emisión determinista: reimprimir una visita sin cambios
//
//	devuelve exactamente el mismo payload y hash.
//
// @Tags         visitas
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "UUID o código"
// @Success      200  {object}  dto.PaseResponse
// @Router       /api/visitas/{id}/pase [get]
func (h *VisitaHandler) Pase(c *fiber.Ctx) error {
	_, pase, err := h.uc.EmitirPase(c.Context(), c.Params("id"))
	if err != nil {
		return respuestaError(c, err)
	}
	return c.JSON(pase)
}

// PasePDF godoc
// @Summary      Descargar el pase imprimible (PDF con QR)
// @Tags         visitas
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "UUID o código"
// @Success      200  {file}  binary
// @Router       /api/visitas/{id}/pase.pdf [get]
func (h *VisitaHandler) PasePDF(c *fiber.Ctx) error {
	pdfBytes, err := h.uc.PasePDF(c.Context(), c.Params("id"))
	if err != nil {
		return respuestaError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="pase.pdf"`)
	return c.Send(pdfBytes)
}

// Verificar godoc
// @Summary      Verificar un código sin mutar estado (dispositivos de portería)
// @Tags         visitas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.VerificarRequest  true  "payload y hash presentados"
// @Success      200   {object}  dto.VerificacionResponse
// @Router       /api/visitas/verificar [post]
func (h *VisitaHandler) Verificar(c *fiber.Ctx) error {
	var in dto.VerificarRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, v, err := h.uc.VerificarCodigo(c.Context(), in.Payload, in.Hash)
	if err != nil {
		return respuestaError(c, err)
	}
	return c.JSON(dto.VerificacionResponse{
		Resultado: string(res),
		Visita:    dto.VisitaToResponse(v),
	})
}

// ── Mapeo de errores ──────────────────────────────────────────────────────────

// respuestaError traduce los errores de dominio a códigos HTTP. Cada
// rechazo de negocio viaja con su razón específica: el puesto de control
// debe poder mostrar exactamente por qué se negó la operación.
func respuestaError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidacion):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "visita no encontrada"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado a la visita"})
	case errors.Is(err, domain.ErrYaIngresada):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "YA_INGRESADA", Message: err.Error()})
	case errors.Is(err, domain.ErrSinIngreso):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "SIN_INGRESO", Message: err.Error()})
	case errors.Is(err, domain.ErrVentanaExpirada):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "VENTANA_EXPIRADA", Message: err.Error()})
	case errors.Is(err, domain.ErrConflicto), errors.Is(err, domain.ErrTransicionInvalida):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "TRANSICION_INVALIDA", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// respuestaVerificacion traduce un resultado de verificación rechazado.
func respuestaVerificacion(c *fiber.Ctx, res codigo.Resultado) error {
	switch res {
	case codigo.ResultadoHashInvalido:
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: string(res), Message: "código alterado o ajeno"})
	case codigo.ResultadoNoEncontrada:
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: string(res), Message: "visita no encontrada"})
	case codigo.ResultadoExpirado:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: string(res), Message: "la ventana de la visita ya venció"})
	case codigo.ResultadoYaProcesada:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: string(res), Message: "la visita ya está en estado terminal"})
	default:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: string(res), Message: "código rechazado"})
	}
}
