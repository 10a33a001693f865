package visitas

import (
	"context"

	"github.com/jhoicas/Accesos-api/internal/domain/entity"
	"github.com/jhoicas/Accesos-api/internal/domain/repository"
)

// Roles que reconoce el servicio de visitas.
const (
	RolAdmin     = "admin"
	RolRecepcion = "recepcion"
	RolVigilante = "vigilante"
)

// Principal actor autenticado que invoca una operación. Llega ya validado
// por la capa HTTP (el middleware JWT solo lo consume, no lo emite).
type Principal struct {
	UserID    string
	EmpresaID string
	Rol       string
}

// EsAdmin indica si el principal tiene rol administrativo.
func (p Principal) EsAdmin() bool { return p.Rol == RolAdmin }

// TxRunner ejecuta una función dentro de una transacción de BD, pasando un
// repositorio de visitas atado a esa tx. Garantiza atomicidad para la
// creación de visitas masivas (padre + hijas).
type TxRunner interface {
	Run(ctx context.Context, fn func(visitaRepo repository.VisitaRepository) error) error
}

// Referencias identificadores que una visita debe resolver en el
// directorio corporativo (CRUD externo a este servicio).
type Referencias struct {
	VisitanteID string
	EmpresaID   string
	SedeID      string
	ZonaID      string
	AnfitrionID string
	PuertaID    string
}

// Directorio colaborador externo que valida que las referencias existan y
// estén activas. Debe devolver un error envuelto en domain.ErrValidacion
// nombrando la referencia que falla.
type Directorio interface {
	ReferenciasActivas(ctx context.Context, ref Referencias) error
}

// NotificacionSink destino fire-and-forget de eventos del ciclo de vida.
// Un fallo del sink no revierte la transición ya confirmada.
type NotificacionSink interface {
	Publicar(ctx context.Context, n entity.Notificacion)
}

// PaseRenderer genera el pase impreso (PDF con el QR) de una visita.
type PaseRenderer interface {
	Render(ctx context.Context, v *entity.Visita, payload, hash string) ([]byte, error)
}
