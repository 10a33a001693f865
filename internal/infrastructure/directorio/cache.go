// Package directorio valida referencias contra el directorio corporativo
// (visitantes, empresas, sedes, zonas, colaboradores, puertas). El CRUD de
// esas entidades vive en otro servicio; aquí solo se resuelve "existe y
// está activa", con un cache TTL para no golpear la base en cada
// programación de visita.
package directorio

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jhoicas/Accesos-api/internal/application/visitas"
	"github.com/jhoicas/Accesos-api/internal/domain"
)

// Tipo de referencia del directorio.
type Tipo string

const (
	TipoVisitante   Tipo = "visitante"
	TipoEmpresa     Tipo = "empresa"
	TipoSede        Tipo = "sede"
	TipoZona        Tipo = "zona"
	TipoColaborador Tipo = "colaborador"
	TipoPuerta      Tipo = "puerta"
)

// Consulta resuelve si una referencia existe y está activa.
type Consulta interface {
	Activa(ctx context.Context, tipo Tipo, id string) (bool, error)
}

var _ visitas.Directorio = (*Cache)(nil)

// Cache implementa visitas.Directorio con un cache TTL por referencia.
// Solo se cachean respuestas positivas: una referencia desactivada debe
// rechazarse tan pronto la base lo diga.
type Cache struct {
	consulta Consulta
	cache    *gocache.Cache
}

// NewCache construye el directorio con TTL dado.
func NewCache(consulta Consulta, ttl time.Duration) *Cache {
	return &Cache{
		consulta: consulta,
		cache:    gocache.New(ttl, 2*ttl),
	}
}

// ReferenciasActivas verifica cada referencia no vacía de la visita.
// Devuelve un error envuelto en domain.ErrValidacion nombrando la primera
// referencia inexistente o inactiva.
func (c *Cache) ReferenciasActivas(ctx context.Context, ref visitas.Referencias) error {
	pares := []struct {
		tipo Tipo
		id   string
	}{
		{TipoVisitante, ref.VisitanteID},
		{TipoEmpresa, ref.EmpresaID},
		{TipoSede, ref.SedeID},
		{TipoZona, ref.ZonaID},
		{TipoColaborador, ref.AnfitrionID},
		{TipoPuerta, ref.PuertaID},
	}
	for _, p := range pares {
		if p.id == "" {
			continue // Referencia opcional
		}
		activa, err := c.activa(ctx, p.tipo, p.id)
		if err != nil {
			return err
		}
		if !activa {
			return fmt.Errorf("%w: %s %s inexistente o inactivo", domain.ErrValidacion, p.tipo, p.id)
		}
	}
	return nil
}

func (c *Cache) activa(ctx context.Context, tipo Tipo, id string) (bool, error) {
	clave := string(tipo) + ":" + id
	if _, ok := c.cache.Get(clave); ok {
		return true, nil
	}
	activa, err := c.consulta.Activa(ctx, tipo, id)
	if err != nil {
		return false, err
	}
	if activa {
		c.cache.SetDefault(clave, struct{}{})
	}
	return activa, nil
}
