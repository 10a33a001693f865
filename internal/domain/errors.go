package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound   = errors.New("recurso no encontrado")
	ErrValidacion = errors.New("entrada inválida")
	ErrForbidden  = errors.New("acceso denegado")

	// Rechazos de la máquina de estados. Siempre se devuelven con la razón
	// específica: el personal de portería debe saber exactamente por qué se
	// negó un ingreso o una salida.
	ErrTransicionInvalida = errors.New("transición de estado no permitida")
	ErrYaIngresada        = errors.New("la visita ya registró su ingreso")
	ErrSinIngreso         = errors.New("la visita no ha registrado ingreso")
	ErrVentanaExpirada    = errors.New("la ventana de la visita ya venció")

	// ErrConflicto: la actualización condicionada por estado no afectó filas
	// (otro proceso transicionó la visita primero). No se reintenta a ciegas.
	ErrConflicto = errors.New("conflicto con el estado actual de la visita")
)
