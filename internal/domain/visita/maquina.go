// Package visita implementa la máquina de estados del ciclo de vida de una
// visita. Es el único componente que muta el estado de una entity.Visita;
// la serialización por visita la garantiza la actualización condicionada
// por estado en la capa de persistencia (ActualizarEstadoSi).
package visita

import (
	"time"

	"github.com/jhoicas/Accesos-api/internal/domain"
	"github.com/jhoicas/Accesos-api/internal/domain/entity"
)

// Evento es un disparador de transición de la máquina de estados.
type Evento string

const (
	EventoIngreso  Evento = "INGRESO"
	EventoSalida   Evento = "SALIDA"
	EventoCancelar Evento = "CANCELAR"
	EventoExpirar  Evento = "EXPIRAR" // Solo lo dispara el barrido
)

// Transicion es una arista permitida de la máquina de estados.
type Transicion struct {
	Desde  entity.EstadoVisita
	Evento Evento
	Hacia  entity.EstadoVisita
}

// Tabla de transiciones. Ningún estado terminal aparece como origen: todo
// intento sobre una visita terminal se rechaza, nunca se ignora en
// silencio, para que el llamador distinga "ya procesada" de "exitosa".
var tabla = []Transicion{
	{Desde: entity.EstadoPendiente, Evento: EventoIngreso, Hacia: entity.EstadoEnCurso},
	{Desde: entity.EstadoEnCurso, Evento: EventoSalida, Hacia: entity.EstadoCompletada},
	{Desde: entity.EstadoPendiente, Evento: EventoCancelar, Hacia: entity.EstadoCancelada},
	{Desde: entity.EstadoPendiente, Evento: EventoExpirar, Hacia: entity.EstadoExpirada},
	{Desde: entity.EstadoEnCurso, Evento: EventoExpirar, Hacia: entity.EstadoExpirada},
}

// Destino devuelve el estado destino para un estado+evento, si la
// transición está permitida.
func Destino(desde entity.EstadoVisita, evento Evento) (entity.EstadoVisita, bool) {
	for _, t := range tabla {
		if t.Desde == desde && t.Evento == evento {
			return t.Hacia, true
		}
	}
	return "", false
}

// Ingresar aplica el evento INGRESO: Pendiente → EnCurso.
// Guardas: sin ingreso previo y ventana vigente. La verificación del
// código presentado es responsabilidad del llamador (servicio de ciclo de
// vida); aquí solo se protege el estado.
func Ingresar(v *entity.Visita, puertaID string, ahora time.Time) error {
	if v.Estado == entity.EstadoEnCurso || v.Estado == entity.EstadoCompletada {
		return domain.ErrYaIngresada
	}
	if _, ok := Destino(v.Estado, EventoIngreso); !ok {
		return domain.ErrTransicionInvalida
	}
	if v.Vencida(ahora) {
		return domain.ErrVentanaExpirada
	}
	ingreso := ahora
	v.Estado = entity.EstadoEnCurso
	v.IngresoEn = &ingreso
	v.PuertaEntrada = puertaID
	v.ActualizadaEn = ahora
	return nil
}

// Salir aplica el evento SALIDA: EnCurso → Completada.
// Guarda: el ingreso debe estar registrado.
func Salir(v *entity.Visita, puertaID string, ahora time.Time) error {
	if v.Estado == entity.EstadoPendiente || !v.TieneIngreso() {
		return domain.ErrSinIngreso
	}
	if _, ok := Destino(v.Estado, EventoSalida); !ok {
		return domain.ErrTransicionInvalida
	}
	salida := ahora
	v.Estado = entity.EstadoCompletada
	v.SalidaEn = &salida
	v.PuertaSalida = puertaID
	v.ActualizadaEn = ahora
	return nil
}

// Cancelar aplica el evento CANCELAR: Pendiente → Cancelada.
// Guarda: sin ingreso registrado.
func Cancelar(v *entity.Visita, ahora time.Time) error {
	if v.TieneIngreso() {
		return domain.ErrYaIngresada
	}
	if _, ok := Destino(v.Estado, EventoCancelar); !ok {
		return domain.ErrTransicionInvalida
	}
	v.Estado = entity.EstadoCancelada
	v.ActualizadaEn = ahora
	return nil
}

// Expirar aplica el evento EXPIRAR: Pendiente/EnCurso → Expirada.
// Guarda: la ventana debe haber vencido al momento del barrido.
func Expirar(v *entity.Visita, ahora time.Time) error {
	if _, ok := Destino(v.Estado, EventoExpirar); !ok {
		return domain.ErrTransicionInvalida
	}
	if !v.Vencida(ahora) {
		return domain.ErrTransicionInvalida
	}
	v.Estado = entity.EstadoExpirada
	v.ActualizadaEn = ahora
	return nil
}
