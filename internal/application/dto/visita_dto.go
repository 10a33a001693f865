package dto

import (
	"time"

	"github.com/jhoicas/Accesos-api/internal/domain/entity"
)

// ProgramarVisitaRequest solicitud para programar una visita individual.
type ProgramarVisitaRequest struct {
	VisitanteID      string    `json:"visitante_id"`
	NombreVisitante  string    `json:"nombre_visitante"`
	EmpresaID        string    `json:"empresa_id"`
	NombreEmpresa    string    `json:"nombre_empresa"`
	SedeID           string    `json:"sede_id"`
	ZonaID           string    `json:"zona_id"`
	AnfitrionID      string    `json:"anfitrion_id"`
	PuertaSugerida   string    `json:"puerta_sugerida"`
	InicioProgramado time.Time `json:"inicio_programado"`
	VenceEn          time.Time `json:"vence_en"`
}

// VisitanteMasivo un visitante dentro de una visita masiva.
type VisitanteMasivo struct {
	VisitanteID     string `json:"visitante_id"`
	NombreVisitante string `json:"nombre_visitante"`
}

// ProgramarMasivaRequest solicitud para una visita masiva: un padre que
// cubre la ventana y una hija por visitante.
type ProgramarMasivaRequest struct {
	EmpresaID        string            `json:"empresa_id"`
	NombreEmpresa    string            `json:"nombre_empresa"`
	SedeID           string            `json:"sede_id"`
	ZonaID           string            `json:"zona_id"`
	AnfitrionID      string            `json:"anfitrion_id"`
	PuertaSugerida   string            `json:"puerta_sugerida"`
	InicioProgramado time.Time         `json:"inicio_programado"`
	VenceEn          time.Time         `json:"vence_en"`
	Visitantes       []VisitanteMasivo `json:"visitantes"`
}

// IngresoRequest código presentado en portería para registrar ingreso.
type IngresoRequest struct {
	Payload  string `json:"payload"` // Cadena escaneada del QR
	Hash     string `json:"hash"`
	PuertaID string `json:"puerta_id"`
}

// VerificarRequest verificación en seco (sin mutar estado) para los
// dispositivos de portería.
type VerificarRequest struct {
	Payload string `json:"payload"`
	Hash    string `json:"hash"`
}

// SalidaRequest registro de salida. Visita acepta el ID o el código legible.
type SalidaRequest struct {
	Visita   string `json:"visita"`
	PuertaID string `json:"puerta_id"`
}

// VisitaResponse proyección de la visita para la API.
type VisitaResponse struct {
	ID               string     `json:"id"`
	Codigo           string     `json:"codigo"`
	Estado           string     `json:"estado"`
	VisitanteID      string     `json:"visitante_id"`
	NombreVisitante  string     `json:"nombre_visitante"`
	EmpresaID        string     `json:"empresa_id"`
	NombreEmpresa    string     `json:"nombre_empresa"`
	SedeID           string     `json:"sede_id"`
	ZonaID           string     `json:"zona_id,omitempty"`
	AnfitrionID      string     `json:"anfitrion_id,omitempty"`
	PuertaSugerida   string     `json:"puerta_sugerida,omitempty"`
	PuertaEntrada    string     `json:"puerta_entrada,omitempty"`
	PuertaSalida     string     `json:"puerta_salida,omitempty"`
	PadreID          *string    `json:"padre_id,omitempty"`
	InicioProgramado time.Time  `json:"inicio_programado"`
	VenceEn          time.Time  `json:"vence_en"`
	IngresoEn        *time.Time `json:"ingreso_en,omitempty"`
	SalidaEn         *time.Time `json:"salida_en,omitempty"`
	CreadaEn         time.Time  `json:"creada_en"`
}

// PaseResponse credencial emitida (reimprimible de forma idempotente).
type PaseResponse struct {
	Payload string `json:"payload"`
	Hash    string `json:"hash"`
}

// VerificacionResponse resultado de verificar un código.
type VerificacionResponse struct {
	Resultado string          `json:"resultado"`
	Visita    *VisitaResponse `json:"visita,omitempty"`
}

// VisitaToResponse mapea la entidad a la proyección de la API.
func VisitaToResponse(v *entity.Visita) *VisitaResponse {
	if v == nil {
		return nil
	}
	return &VisitaResponse{
		ID:               v.ID,
		Codigo:           v.Codigo,
		Estado:           string(v.Estado),
		VisitanteID:      v.VisitanteID,
		NombreVisitante:  v.NombreVisitante,
		EmpresaID:        v.EmpresaID,
		NombreEmpresa:    v.NombreEmpresa,
		SedeID:           v.SedeID,
		ZonaID:           v.ZonaID,
		AnfitrionID:      v.AnfitrionID,
		PuertaSugerida:   v.PuertaSugerida,
		PuertaEntrada:    v.PuertaEntrada,
		PuertaSalida:     v.PuertaSalida,
		PadreID:          v.PadreID,
		InicioProgramado: v.InicioProgramado,
		VenceEn:          v.VenceEn,
		IngresoEn:        v.IngresoEn,
		SalidaEn:         v.SalidaEn,
		CreadaEn:         v.CreadaEn,
	}
}
