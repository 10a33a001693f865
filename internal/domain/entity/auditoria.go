package entity

import "time"

// Acciones de auditoría del ciclo de vida de visitas.
const (
	AccionVisitaCreada    = "visita_creada"
	AccionVisitaIngreso   = "visita_ingreso"
	AccionVisitaSalida    = "visita_salida"
	AccionVisitaCancelada = "visita_cancelada"
	AccionVisitaExpirada  = "visita_expirada"
	AccionVisitaEliminada = "visita_eliminada"
)

// RegistroAuditoria es una entrada append-only del sink de auditoría.
// El servicio de ciclo de vida emite exactamente un registro por transición
// confirmada; las llamadas rechazadas no emiten nada.
type RegistroAuditoria struct {
	ID          string
	Accion      string
	TipoEntidad string // Siempre "Visita" en este servicio
	EntidadID   string
	Descripcion string
	ActorID     string
	Exito       bool
	CreadaEn    time.Time
}
