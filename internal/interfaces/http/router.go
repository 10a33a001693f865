package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Accesos-api/internal/application/visitas"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	VisitasUC *visitas.UseCase
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Todas las rutas de visitas requieren Bearer Token.
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	grupo := protected.Group("/visitas")
	handler := NewVisitaHandler(deps.VisitasUC)

	// Programación (recepción o admin)
	programa := RequireRol(visitas.RolAdmin, visitas.RolRecepcion)
	grupo.Post("/", programa, handler.Programar)
	grupo.Post("/masiva", programa, handler.ProgramarMasiva)

	// Portería (vigilante, recepción o admin)
	porteria := RequireRol(visitas.RolAdmin, visitas.RolRecepcion, visitas.RolVigilante)
	grupo.Post("/ingreso", porteria, handler.Ingresar)
	grupo.Post("/salida", porteria, handler.Salir)
	grupo.Post("/verificar", porteria, handler.Verificar)

	// Consulta y credenciales (cualquier rol autenticado)
	grupo.Get("/:id", handler.Obtener)
	grupo.Get("/:id/hijas", handler.Hijas)
	grupo.Get("/:id/pase", handler.Pase)
	grupo.Get("/:id/pase.pdf", handler.PasePDF)

	// Cancelación: el creador o un admin (la regla fina vive en el caso de uso)
	grupo.Post("/:id/cancelar", programa, handler.Cancelar)
	grupo.Delete("/:id", programa, handler.Eliminar)
}
