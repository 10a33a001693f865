package entity

import "time"

// Tipos de notificación del ciclo de vida.
const (
	NotifVisitaCreada    = "visita_creada"
	NotifVisitaIngreso   = "visita_ingreso"
	NotifVisitaSalida    = "visita_salida"
	NotifVisitaCancelada = "visita_cancelada"
	NotifVisitaExpirada  = "visita_expirada"
	NotifVisitaPorVencer = "visita_por_vencer"
)

// Notificacion es un evento fire-and-forget hacia el sink de notificaciones.
// La entrega (push, correo, etc.) está fuera del alcance de este servicio.
type Notificacion struct {
	Tipo           string
	VisitaID       string
	DestinatarioID string // Normalmente el anfitrión; vacío si no aplica
	Datos          map[string]string
	CreadaEn       time.Time
}
