// Package codigo: emisión y verificación de la credencial escaneable (QR)
// que se presenta en portería. El payload es una cadena versionada con
// separador '|' en orden estricto, y el hash de seguridad es un
// HMAC-SHA256 del payload con un secreto del servidor.
//
// La emisión es determinista: reemitir el pase de una visita sin cambios
// produce exactamente el mismo payload y el mismo hash, lo que permite
// reimpresiones idempotentes sin debilitar la seguridad.
package codigo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jhoicas/Accesos-api/internal/domain/entity"
)

// Version actual del formato del payload.
const Version = "v1"

const separador = "|"

// Resultado de la verificación de un código presentado en portería.
// Se devuelve siempre tipado para que el puesto de control pueda mostrar
// la negación exacta ("código ajeno" vs "fuera de tiempo" vs "ya usado").
type Resultado string

const (
	ResultadoValido       Resultado = "VALIDO"
	ResultadoHashInvalido Resultado = "HASH_INVALIDO" // Alterado o firmado con otro secreto
	ResultadoExpirado     Resultado = "EXPIRADO"
	ResultadoYaProcesada  Resultado = "YA_PROCESADA" // Visita en estado terminal
	ResultadoNoEncontrada Resultado = "NO_ENCONTRADA"
)

// Payload contenido estructurado del código en orden estricto.
type Payload struct {
	Version         string
	CodigoVisita    string
	NombreVisitante string
	NombreEmpresa   string
	FechaProgramada string // YYYY-MM-DD
	PuertaSugerida  string
}

// PayloadDeVisita arma el payload desde los campos inmutables de la visita.
func PayloadDeVisita(v *entity.Visita) Payload {
	return Payload{
		Version:         Version,
		CodigoVisita:    v.Codigo,
		NombreVisitante: v.NombreVisitante,
		NombreEmpresa:   v.NombreEmpresa,
		FechaProgramada: v.InicioProgramado.Format("2006-01-02"),
		PuertaSugerida:  v.PuertaSugerida,
	}
}

// Cadena serializa el payload en el orden estricto del formato v1
// (sin separadores dentro de los campos: se sanean al serializar).
func (p Payload) Cadena() string {
	campos := []string{
		p.Version,
		sanear(p.CodigoVisita),
		sanear(p.NombreVisitante),
		sanear(p.NombreEmpresa),
		sanear(p.FechaProgramada),
		sanear(p.PuertaSugerida),
	}
	return strings.Join(campos, separador)
}

// ParseCadena reconstruye el payload desde la cadena presentada.
// Nunca entra en pánico con entrada malformada: devuelve error tipado.
func ParseCadena(s string) (Payload, error) {
	partes := strings.Split(s, separador)
	if len(partes) != 6 {
		return Payload{}, fmt.Errorf("codigo: payload malformado (%d campos)", len(partes))
	}
	if partes[0] != Version {
		return Payload{}, fmt.Errorf("codigo: versión de payload no soportada: %q", partes[0])
	}
	if partes[1] == "" {
		return Payload{}, fmt.Errorf("codigo: payload sin código de visita")
	}
	return Payload{
		Version:         partes[0],
		CodigoVisita:    partes[1],
		NombreVisitante: partes[2],
		NombreEmpresa:   partes[3],
		FechaProgramada: partes[4],
		PuertaSugerida:  partes[5],
	}, nil
}

// Emisor calcula y verifica el hash de seguridad de los códigos.
// Mantiene el secreto vigente y, opcionalmente, el anterior para la
// ventana de rotación: la emisión usa siempre el vigente, la verificación
// acepta cualquiera de los dos.
type Emisor struct {
	secreto  []byte
	anterior []byte
}

// NewEmisor construye el emisor. El secreto vigente es obligatorio; el
// anterior puede ser vacío si no hay rotación en curso.
func NewEmisor(secreto, secretoAnterior string) (*Emisor, error) {
	if secreto == "" {
		return nil, fmt.Errorf("codigo: secreto vacío")
	}
	e := &Emisor{secreto: []byte(secreto)}
	if secretoAnterior != "" {
		e.anterior = []byte(secretoAnterior)
	}
	return e, nil
}

// Emitir devuelve la cadena del payload y su hash HMAC-SHA256 en hex.
// Determinista para el mismo payload y secreto.
func (e *Emisor) Emitir(p Payload) (cadena, hash string, err error) {
	if p.CodigoVisita == "" {
		return "", "", fmt.Errorf("codigo: CodigoVisita es obligatorio")
	}
	if p.FechaProgramada == "" {
		return "", "", fmt.Errorf("codigo: FechaProgramada es obligatoria (YYYY-MM-DD)")
	}
	if p.Version == "" {
		p.Version = Version
	}
	cadena = p.Cadena()
	return cadena, e.firmar(cadena, e.secreto), nil
}

// VerificarHash recomputa el HMAC sobre la cadena presentada y compara en
// tiempo constante contra el hash presentado. Acepta el secreto vigente o
// el anterior (ventana de rotación). Cómputo puro: el estado y la ventana
// de la visita se validan aparte, con el registro actual.
func (e *Emisor) VerificarHash(cadena, hashPresentado string) bool {
	if cadena == "" || hashPresentado == "" {
		return false
	}
	if hmac.Equal([]byte(e.firmar(cadena, e.secreto)), []byte(hashPresentado)) {
		return true
	}
	if len(e.anterior) > 0 {
		return hmac.Equal([]byte(e.firmar(cadena, e.anterior)), []byte(hashPresentado))
	}
	return false
}

func (e *Emisor) firmar(cadena string, secreto []byte) string {
	mac := hmac.New(sha256.New, secreto)
	mac.Write([]byte(cadena))
	return hex.EncodeToString(mac.Sum(nil))
}

// sanear elimina el separador del contenido de un campo para que la
// serialización canónica sea inequívoca.
func sanear(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), separador, " ")
}
