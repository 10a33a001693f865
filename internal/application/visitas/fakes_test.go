package visitas_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/Accesos-api/internal/application/visitas"
	"github.com/jhoicas/Accesos-api/internal/domain"
	"github.com/jhoicas/Accesos-api/internal/domain/entity"
	"github.com/jhoicas/Accesos-api/internal/domain/repository"
)

// repoEnMemoria implementa repository.VisitaRepository sobre un mapa con
// mutex. ActualizarEstadoSi replica la semántica de la actualización
// condicionada por estado de PostgreSQL: compara y escribe bajo el mismo
// lock, así que dos llamadores concurrentes con el mismo estado esperado
// producen exactamente un éxito.
type repoEnMemoria struct {
	mu          sync.Mutex
	porID       map[string]*entity.Visita
	consecutivo int64

	// fallos inyectables: si fallarEnCreate > 0, la n-ésima llamada a
	// Create devuelve errCreate.
	errCreate      error
	fallarEnCreate int
	creates        int

	// antesDeDelete se invoca antes de tomar el lock en Delete; permite
	// intercalar otra operación en la ventana entre la lectura del
	// servicio y el borrado.
	antesDeDelete func()
}

func nuevoRepoEnMemoria() *repoEnMemoria {
	return &repoEnMemoria{porID: map[string]*entity.Visita{}}
}

func clonar(v *entity.Visita) *entity.Visita {
	c := *v
	if v.IngresoEn != nil {
		t := *v.IngresoEn
		c.IngresoEn = &t
	}
	if v.SalidaEn != nil {
		t := *v.SalidaEn
		c.SalidaEn = &t
	}
	if v.PadreID != nil {
		p := *v.PadreID
		c.PadreID = &p
	}
	return &c
}

func (r *repoEnMemoria) Create(_ context.Context, v *entity.Visita) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.fallarEnCreate > 0 && r.creates == r.fallarEnCreate {
		return r.errCreate
	}
	if _, existe := r.porID[v.ID]; existe {
		return domain.ErrConflicto
	}
	r.porID[v.ID] = clonar(v)
	return nil
}

func (r *repoEnMemoria) GetByID(_ context.Context, id string) (*entity.Visita, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.porID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonar(v), nil
}

func (r *repoEnMemoria) GetByCodigo(_ context.Context, codigo string) (*entity.Visita, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.porID {
		if v.Codigo == codigo {
			return clonar(v), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *repoEnMemoria) ActualizarEstadoSi(_ context.Context, v *entity.Visita, esperado entity.EstadoVisita) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	actual, ok := r.porID[v.ID]
	if !ok || actual.Estado != esperado {
		return domain.ErrConflicto
	}
	r.porID[v.ID] = clonar(v)
	return nil
}

func (r *repoEnMemoria) ListarVencidas(_ context.Context, corte time.Time) ([]*entity.Visita, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Visita
	for _, v := range r.porID {
		if !v.Estado.EsTerminal() && corte.After(v.VenceEn) {
			out = append(out, clonar(v))
		}
	}
	return out, nil
}

func (r *repoEnMemoria) ListarPorVencer(_ context.Context, ahora time.Time, margen time.Duration) ([]*entity.Visita, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	limite := ahora.Add(margen)
	var out []*entity.Visita
	for _, v := range r.porID {
		if v.Estado != entity.EstadoPendiente || v.NotificadaPorVencer {
			continue
		}
		if !v.VenceEn.Before(ahora) && !v.VenceEn.After(limite) {
			out = append(out, clonar(v))
		}
	}
	return out, nil
}

func (r *repoEnMemoria) MarcarNotificadaPorVencer(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.porID[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.NotificadaPorVencer = true
	return nil
}

func (r *repoEnMemoria) ListarHijas(_ context.Context, padreID string) ([]*entity.Visita, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Visita
	for _, v := range r.porID {
		if v.PadreID != nil && *v.PadreID == padreID {
			out = append(out, clonar(v))
		}
	}
	return out, nil
}

func (r *repoEnMemoria) SiguienteConsecutivo(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consecutivo++
	return r.consecutivo, nil
}

// Delete replica la guarda atómica del DELETE condicionado: solo cae una
// visita sin ingreso y en PENDIENTE/CANCELADA.
func (r *repoEnMemoria) Delete(_ context.Context, id string) error {
	if r.antesDeDelete != nil {
		r.antesDeDelete()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.porID[id]
	if !ok {
		return domain.ErrConflicto
	}
	if v.TieneIngreso() || (v.Estado != entity.EstadoPendiente && v.Estado != entity.EstadoCancelada) {
		return domain.ErrConflicto
	}
	delete(r.porID, id)
	return nil
}

// total devuelve cuántas visitas hay persistidas.
func (r *repoEnMemoria) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.porID)
}

// txRunnerEnMemoria simula la transacción: pasa el mismo repo y, si la
// función falla, revierte el estado restaurando la copia previa.
type txRunnerEnMemoria struct {
	repo *repoEnMemoria
}

func (t *txRunnerEnMemoria) Run(ctx context.Context, fn func(repository.VisitaRepository) error) error {
	t.repo.mu.Lock()
	respaldo := make(map[string]*entity.Visita, len(t.repo.porID))
	for id, v := range t.repo.porID {
		respaldo[id] = clonar(v)
	}
	consecutivoRespaldo := t.repo.consecutivo
	t.repo.mu.Unlock()

	if err := fn(t.repo); err != nil {
		t.repo.mu.Lock()
		t.repo.porID = respaldo
		t.repo.consecutivo = consecutivoRespaldo
		t.repo.mu.Unlock()
		return err
	}
	return nil
}

// auditoriaEnMemoria acumula los registros emitidos.
type auditoriaEnMemoria struct {
	mu         sync.Mutex
	registros  []*entity.RegistroAuditoria
	errForzado error
}

func (a *auditoriaEnMemoria) Registrar(_ context.Context, r *entity.RegistroAuditoria) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.errForzado != nil {
		return a.errForzado
	}
	a.registros = append(a.registros, r)
	return nil
}

// porAccion devuelve cuántos registros hay de una acción dada.
func (a *auditoriaEnMemoria) porAccion(accion string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.registros {
		if r.Accion == accion {
			n++
		}
	}
	return n
}

// sinkEnMemoria acumula las notificaciones publicadas.
type sinkEnMemoria struct {
	mu      sync.Mutex
	eventos []entity.Notificacion
}

func (s *sinkEnMemoria) Publicar(_ context.Context, n entity.Notificacion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventos = append(s.eventos, n)
}

func (s *sinkEnMemoria) porTipo(tipo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.eventos {
		if e.Tipo == tipo {
			n++
		}
	}
	return n
}

// directorioEnMemoria valida referencias contra un conjunto de inactivas.
type directorioEnMemoria struct {
	inactivas map[string]bool
}

func (d *directorioEnMemoria) ReferenciasActivas(_ context.Context, ref Referencias) error {
	for _, id := range []string{ref.VisitanteID, ref.EmpresaID, ref.SedeID, ref.ZonaID, ref.AnfitrionID, ref.PuertaID} {
		if id != "" && d.inactivas[id] {
			return fmt.Errorf("%w: referencia inactiva: %s", domain.ErrValidacion, id)
		}
	}
	return nil
}

// Referencias alias local para no calificar el tipo en el fake.
type Referencias = visitas.Referencias

// paseEnMemoria devuelve un PDF sintético para verificar el cableado.
type paseEnMemoria struct{}

func (paseEnMemoria) Render(_ context.Context, v *entity.Visita, payload, hash string) ([]byte, error) {
	return []byte("PDF:" + v.Codigo + ":" + payload + ":" + hash), nil
}
