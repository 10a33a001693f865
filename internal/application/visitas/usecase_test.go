package visitas_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Accesos-api/internal/application/dto"
	"github.com/jhoicas/Accesos-api/internal/application/visitas"
	"github.com/jhoicas/Accesos-api/internal/domain"
	"github.com/jhoicas/Accesos-api/internal/domain/codigo"
	"github.com/jhoicas/Accesos-api/internal/domain/entity"
	"github.com/jhoicas/Accesos-api/pkg/logger"
)

var (
	relojBase = time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC)

	principalRecepcion = visitas.Principal{UserID: "user-recepcion", EmpresaID: "emp-1", Rol: visitas.RolRecepcion}
	principalVigilante = visitas.Principal{UserID: "user-vigilante", EmpresaID: "emp-1", Rol: visitas.RolVigilante}
	principalAdmin     = visitas.Principal{UserID: "user-admin", EmpresaID: "emp-1", Rol: visitas.RolAdmin}
)

// entorno agrupa el servicio bajo prueba y sus colaboradores falsos.
type entorno struct {
	uc         *visitas.UseCase
	repo       *repoEnMemoria
	auditoria  *auditoriaEnMemoria
	sink       *sinkEnMemoria
	directorio *directorioEnMemoria

	// reloj mutable que controla uc.ahora
	mu    sync.Mutex
	reloj time.Time
}

func (e *entorno) ahora() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reloj
}

func (e *entorno) avanzar(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reloj = e.reloj.Add(d)
}

func nuevoEntorno(t *testing.T, margenPorVencer time.Duration) *entorno {
	t.Helper()
	e := &entorno{
		repo:       nuevoRepoEnMemoria(),
		auditoria:  &auditoriaEnMemoria{},
		sink:       &sinkEnMemoria{},
		directorio: &directorioEnMemoria{inactivas: map[string]bool{}},
		reloj:      relojBase,
	}
	emisor, err := codigo.NewEmisor("secreto-de-prueba", "")
	require.NoError(t, err)

	e.uc = visitas.NewUseCase(
		e.repo, e.auditoria, e.sink, e.directorio,
		emisor, &txRunnerEnMemoria{repo: e.repo}, paseEnMemoria{},
		logger.NewNop(), margenPorVencer,
	).ConReloj(e.ahora)
	return e
}

func solicitudDePrueba() dto.ProgramarVisitaRequest {
	return dto.ProgramarVisitaRequest{
		VisitanteID:      "vis-1",
		NombreVisitante:  "Ana Gomez",
		EmpresaID:        "emp-1",
		NombreEmpresa:    "Acme S.A.S",
		SedeID:           "sede-1",
		ZonaID:           "zona-1",
		AnfitrionID:      "colab-1",
		PuertaSugerida:   "PUERTA-NORTE",
		InicioProgramado: relojBase.Add(-time.Hour),
		VenceEn:          relojBase.Add(8 * time.Hour),
	}
}

// programar es un atajo para los tests que necesitan una visita existente.
func (e *entorno) programar(t *testing.T) *entity.Visita {
	t.Helper()
	v, err := e.uc.Programar(context.Background(), principalRecepcion, solicitudDePrueba())
	require.NoError(t, err)
	return v
}

// ── Programar ─────────────────────────────────────────────────────────────────

func TestProgramar(t *testing.T) {
	e := nuevoEntorno(t, 0)

	v, err := e.uc.Programar(context.Background(), principalRecepcion, solicitudDePrueba())
	require.NoError(t, err)

	assert.Equal(t, entity.EstadoPendiente, v.Estado)
	assert.Equal(t, "VIS-000001", v.Codigo, "el código legible sale del consecutivo")
	assert.NotEmpty(t, v.ID)
	assert.NotEmpty(t, v.HashSeguridad, "el hash queda asignado junto con la creación")
	assert.Equal(t, principalRecepcion.UserID, v.CreadaPor)

	guardada, err := e.repo.GetByCodigo(context.Background(), "VIS-000001")
	require.NoError(t, err)
	assert.Equal(t, v.HashSeguridad, guardada.HashSeguridad)

	assert.Equal(t, 1, e.auditoria.porAccion(entity.AccionVisitaCreada))
	assert.Equal(t, 1, e.sink.porTipo(entity.NotifVisitaCreada))
}

func TestProgramar_VentanaInvalida(t *testing.T) {
	e := nuevoEntorno(t, 0)

	casos := []struct {
		nombre string
		mutar  func(*dto.ProgramarVisitaRequest)
	}{
		{"inicio posterior al vencimiento", func(in *dto.ProgramarVisitaRequest) {
			in.InicioProgramado, in.VenceEn = in.VenceEn, in.InicioProgramado
		}},
		{"inicio igual al vencimiento", func(in *dto.ProgramarVisitaRequest) {
			in.VenceEn = in.InicioProgramado
		}},
		{"sin ventana", func(in *dto.ProgramarVisitaRequest) {
			in.InicioProgramado = time.Time{}
			in.VenceEn = time.Time{}
		}},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			in := solicitudDePrueba()
			c.mutar(&in)
			_, err := e.uc.Programar(context.Background(), principalRecepcion, in)
			assert.ErrorIs(t, err, domain.ErrValidacion)
		})
	}
	assert.Equal(t, 0, e.repo.total(), "ninguna solicitud inválida debe persistir")
}

func TestProgramar_ReferenciaInactiva(t *testing.T) {
	e := nuevoEntorno(t, 0)
	e.directorio.inactivas["sede-1"] = true

	_, err := e.uc.Programar(context.Background(), principalRecepcion, solicitudDePrueba())
	assert.ErrorIs(t, err, domain.ErrValidacion)
	assert.Contains(t, err.Error(), "sede-1", "el rechazo debe nombrar la referencia que falla")
	assert.Equal(t, 0, e.repo.total())
}

// ── Visita masiva ─────────────────────────────────────────────────────────────

func TestProgramarMasiva(t *testing.T) {
	e := nuevoEntorno(t, 0)

	in := dto.ProgramarMasivaRequest{
		EmpresaID:        "emp-1",
		NombreEmpresa:    "Acme S.A.S",
		SedeID:           "sede-1",
		InicioProgramado: relojBase.Add(-time.Hour),
		VenceEn:          relojBase.Add(8 * time.Hour),
		Visitantes: []dto.VisitanteMasivo{
			{VisitanteID: "vis-1", NombreVisitante: "Ana Gomez"},
			{VisitanteID: "vis-2", NombreVisitante: "Luis Rojas"},
			{VisitanteID: "vis-3", NombreVisitante: "Marta Paz"},
		},
	}
	padre, hijas, err := e.uc.ProgramarMasiva(context.Background(), principalRecepcion, in)
	require.NoError(t, err)
	require.Len(t, hijas, 3)

	assert.Nil(t, padre.PadreID)
	for _, h := range hijas {
		require.NotNil(t, h.PadreID)
		assert.Equal(t, padre.ID, *h.PadreID)
		assert.Equal(t, padre.VenceEn, h.VenceEn, "las hijas comparten la ventana del padre")
		assert.Equal(t, entity.EstadoPendiente, h.Estado)
		assert.NotEqual(t, padre.Codigo, h.Codigo, "cada hija tiene su propio código")
	}

	listadas, err := e.uc.Hijas(context.Background(), padre.Codigo)
	require.NoError(t, err)
	assert.Len(t, listadas, 3)

	assert.Equal(t, 4, e.auditoria.porAccion(entity.AccionVisitaCreada), "padre + una por hija")
}

// TestProgramarMasiva_Atomica verifica que si falla la creación de una hija
// no queda ni el padre ni ninguna hija parcial.
func TestProgramarMasiva_Atomica(t *testing.T) {
	e := nuevoEntorno(t, 0)
	e.repo.errCreate = errors.New("disco lleno")
	e.repo.fallarEnCreate = 3 // padre, hija 1 y al crear la hija 2 falla

	in := dto.ProgramarMasivaRequest{
		EmpresaID:        "emp-1",
		SedeID:           "sede-1",
		InicioProgramado: relojBase.Add(-time.Hour),
		VenceEn:          relojBase.Add(8 * time.Hour),
		Visitantes: []dto.VisitanteMasivo{
			{VisitanteID: "vis-1", NombreVisitante: "Ana Gomez"},
			{VisitanteID: "vis-2", NombreVisitante: "Luis Rojas"},
		},
	}
	_, _, err := e.uc.ProgramarMasiva(context.Background(), principalRecepcion, in)
	require.Error(t, err)
	assert.Equal(t, 0, e.repo.total(), "la visita masiva es todo o nada")
	assert.Equal(t, 0, e.auditoria.porAccion(entity.AccionVisitaCreada))
}

func TestProgramarMasiva_SinVisitantes(t *testing.T) {
	e := nuevoEntorno(t, 0)

	_, _, err := e.uc.ProgramarMasiva(context.Background(), principalRecepcion, dto.ProgramarMasivaRequest{
		EmpresaID:        "emp-1",
		SedeID:           "sede-1",
		InicioProgramado: relojBase.Add(-time.Hour),
		VenceEn:          relojBase.Add(8 * time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrValidacion)
}

// ── Ingreso ───────────────────────────────────────────────────────────────────

func TestIngresar(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	actualizada, res, err := e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoValido, res)
	assert.Equal(t, entity.EstadoEnCurso, actualizada.Estado)
	require.NotNil(t, actualizada.IngresoEn)
	assert.Equal(t, relojBase, *actualizada.IngresoEn)
	assert.Equal(t, "PUERTA-SUR", actualizada.PuertaEntrada)

	assert.Equal(t, 1, e.auditoria.porAccion(entity.AccionVisitaIngreso))
	assert.Equal(t, 1, e.sink.porTipo(entity.NotifVisitaIngreso))
}

func TestIngresar_HashAlterado(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	_, res, err := e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: pase.Payload, Hash: "0" + pase.Hash[1:], PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoHashInvalido, res)

	guardada, err := e.repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoPendiente, guardada.Estado, "un rechazo no muta estado")
	assert.Equal(t, 0, e.auditoria.porAccion(entity.AccionVisitaIngreso), "un rechazo no audita")
}

// TestIngresar_PayloadDesligado verifica que un pase firmado antes de que
// cambiaran los campos de la visita deja de corresponder y se rechaza.
func TestIngresar_PayloadDesligado(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	// Se reasigna la portería sugerida después de emitido el pase.
	e.repo.mu.Lock()
	e.repo.porID[v.ID].PuertaSugerida = "PUERTA-OCCIDENTE"
	e.repo.mu.Unlock()

	_, res, err := e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoHashInvalido, res)
}

func TestIngresar_CodigoDesconocido(t *testing.T) {
	e := nuevoEntorno(t, 0)
	emisor, err := codigo.NewEmisor("secreto-de-prueba", "")
	require.NoError(t, err)
	// Firma válida pero de una visita que no existe en este sistema.
	cadena, hash, err := emisor.Emitir(codigo.Payload{
		CodigoVisita: "VIS-999999", NombreVisitante: "Nadie",
		NombreEmpresa: "Ninguna", FechaProgramada: "2026-09-15", PuertaSugerida: "P1",
	})
	require.NoError(t, err)

	_, res, err := e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: cadena, Hash: hash, PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoNoEncontrada, res)
}

func TestIngresar_VentanaVencida(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	e.avanzar(10 * time.Hour) // más allá de vence_en

	_, res, err := e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoExpirado, res)
}

func TestIngresar_Repetido(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	in := dto.IngresoRequest{Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR"}
	_, res, err := e.uc.Ingresar(context.Background(), principalVigilante, in)
	require.NoError(t, err)
	require.Equal(t, codigo.ResultadoValido, res)

	_, _, err = e.uc.Ingresar(context.Background(), principalVigilante, in)
	assert.ErrorIs(t, err, domain.ErrYaIngresada)
	assert.Equal(t, 1, e.auditoria.porAccion(entity.AccionVisitaIngreso),
		"un solo registro de auditoría por transición confirmada")
}

// TestIngresar_Concurrente lanza varios ingresos simultáneos para la misma
// visita: la actualización condicionada por estado garantiza exactamente un
// ganador; los demás reciben un rechazo, nunca un segundo ingreso.
func TestIngresar_Concurrente(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	const porterias = 16
	var wg sync.WaitGroup
	resultados := make(chan error, porterias)

	for i := 0; i < porterias; i++ {
		wg.Add(1)
		go func(puerta int) {
			defer wg.Done()
			_, res, err := e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
				Payload: pase.Payload, Hash: pase.Hash,
				PuertaID: fmt.Sprintf("PUERTA-%d", puerta),
			})
			if err == nil && res == codigo.ResultadoValido {
				resultados <- nil
				return
			}
			resultados <- err
		}(i)
	}
	wg.Wait()
	close(resultados)

	exitos := 0
	for err := range resultados {
		if err == nil {
			exitos++
			continue
		}
		assert.True(t,
			errors.Is(err, domain.ErrConflicto) || errors.Is(err, domain.ErrYaIngresada),
			"el perdedor recibe un rechazo tipado, no %v", err)
	}
	assert.Equal(t, 1, exitos, "exactamente un ingreso debe ganar")
	assert.Equal(t, 1, e.auditoria.porAccion(entity.AccionVisitaIngreso))

	guardada, err := e.repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoEnCurso, guardada.Estado)
}

// ── Verificación en seco ──────────────────────────────────────────────────────

func TestVerificarCodigo_NoMuta(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	res, encontrada, err := e.uc.VerificarCodigo(context.Background(), pase.Payload, pase.Hash)
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoValido, res)
	require.NotNil(t, encontrada)
	assert.Equal(t, v.ID, encontrada.ID)

	guardada, err := e.repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoPendiente, guardada.Estado, "verificar no registra ingreso")
	assert.Equal(t, 0, e.auditoria.porAccion(entity.AccionVisitaIngreso))
}

func TestVerificarCodigo_YaProcesada(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	_, err = e.uc.Cancelar(context.Background(), principalRecepcion, v.ID)
	require.NoError(t, err)

	res, _, err := e.uc.VerificarCodigo(context.Background(), pase.Payload, pase.Hash)
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoYaProcesada, res)
}

// TestVerificarCodigo_PayloadDesligadoSinVisita verifica que un pase
// firmado pero ya superado (los campos de la visita cambiaron después de
// emitirlo) se rechaza sin devolver la visita vigente: el portador de un
// pase viejo no obtiene los datos actuales.
func TestVerificarCodigo_PayloadDesligadoSinVisita(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	e.repo.mu.Lock()
	e.repo.porID[v.ID].PuertaSugerida = "PUERTA-OCCIDENTE"
	e.repo.mu.Unlock()

	res, encontrada, err := e.uc.VerificarCodigo(context.Background(), pase.Payload, pase.Hash)
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoHashInvalido, res)
	assert.Nil(t, encontrada, "el rechazo no expone la visita vigente")
}

func TestVerificarCodigo_Malformado(t *testing.T) {
	e := nuevoEntorno(t, 0)

	res, _, err := e.uc.VerificarCodigo(context.Background(), "basura sin formato", "tampoco-hash")
	require.NoError(t, err, "la entrada malformada se rechaza, nunca con pánico ni error interno")
	assert.Equal(t, codigo.ResultadoHashInvalido, res)
}

// ── Salida ────────────────────────────────────────────────────────────────────

func TestSalir(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)
	_, _, err = e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)

	e.avanzar(2 * time.Hour)
	salida, err := e.uc.Salir(context.Background(), principalVigilante, v.Codigo, "PUERTA-NORTE")
	require.NoError(t, err)

	assert.Equal(t, entity.EstadoCompletada, salida.Estado)
	require.NotNil(t, salida.SalidaEn)
	assert.Equal(t, relojBase.Add(2*time.Hour), *salida.SalidaEn)
	assert.Equal(t, "PUERTA-NORTE", salida.PuertaSalida)
	assert.Equal(t, 1, e.auditoria.porAccion(entity.AccionVisitaSalida))
}

func TestSalir_SinIngreso(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	_, err := e.uc.Salir(context.Background(), principalVigilante, v.ID, "PUERTA-NORTE")
	assert.ErrorIs(t, err, domain.ErrSinIngreso)

	guardada, err := e.repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoPendiente, guardada.Estado)
}

// ── Cancelación ───────────────────────────────────────────────────────────────

func TestCancelar_PorCreador(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	cancelada, err := e.uc.Cancelar(context.Background(), principalRecepcion, v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoCancelada, cancelada.Estado)
	assert.Equal(t, 1, e.auditoria.porAccion(entity.AccionVisitaCancelada))
}

func TestCancelar_PorAdmin(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	_, err := e.uc.Cancelar(context.Background(), principalAdmin, v.ID)
	assert.NoError(t, err, "un admin cancela visitas ajenas")
}

func TestCancelar_AjenaSinAdmin(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	_, err := e.uc.Cancelar(context.Background(), principalVigilante, v.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	guardada, err := e.repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoPendiente, guardada.Estado)
}

func TestCancelar_ConIngreso(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)
	_, _, err = e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)

	_, err = e.uc.Cancelar(context.Background(), principalAdmin, v.ID)
	assert.ErrorIs(t, err, domain.ErrYaIngresada)
}

// ── Eliminación ───────────────────────────────────────────────────────────────

func TestEliminar_NuncaActivada(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	require.NoError(t, e.uc.Eliminar(context.Background(), principalRecepcion, v.ID))
	_, err := e.repo.GetByID(context.Background(), v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, e.auditoria.porAccion(entity.AccionVisitaEliminada))
}

func TestEliminar_Cancelada(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, err := e.uc.Cancelar(context.Background(), principalRecepcion, v.ID)
	require.NoError(t, err)

	assert.NoError(t, e.uc.Eliminar(context.Background(), principalRecepcion, v.ID))
}

// TestEliminar_ConIngreso verifica que una visita con ingreso registrado es
// permanente: jamás se borra.
func TestEliminar_ConIngreso(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)
	_, _, err = e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)

	err = e.uc.Eliminar(context.Background(), principalAdmin, v.ID)
	assert.ErrorIs(t, err, domain.ErrYaIngresada)
	assert.Equal(t, 1, e.repo.total())
}

// TestEliminar_CarreraConIngreso verifica que un ingreso que se confirma
// entre la lectura de Eliminar y el borrado deja la visita intacta: la
// guarda se re-evalúa de forma atómica con el DELETE, igual que las demás
// transiciones condicionadas por estado.
func TestEliminar_CarreraConIngreso(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	// El ingreso gana la carrera justo antes de que el borrado llegue a
	// la persistencia.
	e.repo.antesDeDelete = func() {
		e.repo.antesDeDelete = nil
		_, res, err := e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
			Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR",
		})
		require.NoError(t, err)
		require.Equal(t, codigo.ResultadoValido, res)
	}

	err = e.uc.Eliminar(context.Background(), principalRecepcion, v.ID)
	assert.ErrorIs(t, err, domain.ErrConflicto, "el perdedor recibe un rechazo tipado")

	guardada, err := e.repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err, "la visita activada jamás se borra")
	assert.Equal(t, entity.EstadoEnCurso, guardada.Estado)
	assert.NotNil(t, guardada.IngresoEn)
	assert.Equal(t, 0, e.auditoria.porAccion(entity.AccionVisitaEliminada),
		"un borrado rechazado no audita")
}

// ── Pase ──────────────────────────────────────────────────────────────────────

// TestEmitirPase_Determinista verifica que reimprimir el pase de una visita
// sin cambios devuelve exactamente el mismo payload y hash.
func TestEmitirPase_Determinista(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	_, pase1, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)
	_, pase2, err := e.uc.EmitirPase(context.Background(), v.Codigo)
	require.NoError(t, err)

	assert.Equal(t, pase1, pase2)
	assert.Equal(t, v.HashSeguridad, pase1.Hash,
		"la reemisión coincide con el hash persistido en la creación")
}

func TestPasePDF(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	pdf, err := e.uc.PasePDF(context.Background(), v.Codigo)
	require.NoError(t, err)
	assert.Contains(t, string(pdf), v.Codigo)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func TestObtener_PorIDYPorCodigo(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)

	porID, err := e.uc.Obtener(context.Background(), v.ID)
	require.NoError(t, err)
	porCodigo, err := e.uc.Obtener(context.Background(), v.Codigo)
	require.NoError(t, err)
	assert.Equal(t, porID.ID, porCodigo.ID)

	_, err = e.uc.Obtener(context.Background(), "VIS-424242")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ── Auditoría ─────────────────────────────────────────────────────────────────

// TestAuditoria_FalloNoRevierte verifica que un fallo del sink de auditoría
// no revierte la transición ya confirmada.
func TestAuditoria_FalloNoRevierte(t *testing.T) {
	e := nuevoEntorno(t, 0)
	v := e.programar(t)
	_, pase, err := e.uc.EmitirPase(context.Background(), v.ID)
	require.NoError(t, err)

	e.auditoria.errForzado = errors.New("sink caído")
	_, res, err := e.uc.Ingresar(context.Background(), principalVigilante, dto.IngresoRequest{
		Payload: pase.Payload, Hash: pase.Hash, PuertaID: "PUERTA-SUR",
	})
	require.NoError(t, err)
	assert.Equal(t, codigo.ResultadoValido, res)

	guardada, err := e.repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoEnCurso, guardada.Estado)
}
