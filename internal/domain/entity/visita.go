package entity

import "time"

// Estados del ciclo de vida de una visita. Enumeración cerrada: ningún
// componente fuera de la máquina de estados (internal/domain/visita) debe
// mutar el estado directamente.
type EstadoVisita string

const (
	EstadoPendiente  EstadoVisita = "PENDIENTE"  // Programada, sin ingreso
	EstadoEnCurso    EstadoVisita = "EN_CURSO"   // Ingreso registrado en portería
	EstadoCompletada EstadoVisita = "COMPLETADA" // Salida registrada (terminal)
	EstadoCancelada  EstadoVisita = "CANCELADA"  // Cancelada antes del ingreso (terminal)
	EstadoExpirada   EstadoVisita = "EXPIRADA"   // Vencida por el barrido (terminal)
)

// EsTerminal indica si el estado no admite más transiciones.
func (e EstadoVisita) EsTerminal() bool {
	switch e {
	case EstadoCompletada, EstadoCancelada, EstadoExpirada:
		return true
	}
	return false
}

// Visita representa una autorización programada y acotada en el tiempo para
// que un visitante ingrese a una sede por una portería.
//
// Invariantes (se verifican en los tests de la máquina de estados):
//   - IngresoEn asignado  ⇒ Estado ∈ {EN_CURSO, COMPLETADA}
//   - SalidaEn asignado   ⇒ Estado == COMPLETADA
//   - InicioProgramado < VenceEn (validado al programar)
//   - Codigo es único e inmutable una vez asignado
type Visita struct {
	ID          string // UUID
	Consecutivo int64  // Secuencia para el código legible
	Codigo      string // Único, formato VIS-000123

	// Referencias por identificador (el CRUD de estas entidades vive fuera
	// de este servicio; se validan contra el directorio al programar).
	VisitanteID    string
	EmpresaID      string
	SedeID         string
	ZonaID         string
	AnfitrionID    string // Colaborador que recibe la visita
	PuertaSugerida string // Portería indicada al visitante (viaja en el pase)
	PuertaEntrada  string // Portería usada en el ingreso (vacío hasta EN_CURSO)
	PuertaSalida   string // Portería usada en la salida (vacío hasta COMPLETADA)

	// Visita masiva: una visita puede ser hija de una visita "padre" que
	// cubre varios visitantes. Las hijas comparten la ventana del padre pero
	// transicionan de forma independiente.
	PadreID *string

	// Datos denormalizados para el pase impreso (quedan ligados al hash).
	NombreVisitante string
	NombreEmpresa   string

	InicioProgramado time.Time
	VenceEn          time.Time
	IngresoEn        *time.Time
	SalidaEn         *time.Time

	Estado EstadoVisita

	// HashSeguridad es re-derivable desde los campos inmutables vía el
	// emisor de códigos; se guarda solo como conveniencia de reimpresión,
	// nunca como fuente de verdad para autorizar.
	HashSeguridad string

	// NotificadaPorVencer marca que ya se publicó la notificación de
	// proximidad de vencimiento (el barrido la emite una sola vez).
	NotificadaPorVencer bool

	CreadaPor     string // Principal que programó la visita
	CreadaEn      time.Time
	ActualizadaEn time.Time
}

// TieneIngreso indica si la visita ya registró ingreso.
func (v *Visita) TieneIngreso() bool { return v.IngresoEn != nil }

// Vencida indica si la ventana de la visita ya pasó en el instante dado.
func (v *Visita) Vencida(ahora time.Time) bool { return ahora.After(v.VenceEn) }
