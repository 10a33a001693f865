// Package pdf implementa la generación del pase de visita imprimible.
//
// Layout de la página A5:
//
//	┌────────────────────────────────────────────┐
//	│  HEADER: Empresa anfitriona │ Código visita │
//	│  ────────────────────────────────────────── │
//	│  VISITANTE: Nombre + empresa de origen      │
//	│  VENTANA: inicio programado → vencimiento   │
//	│  PORTERÍA sugerida                          │
//	│  ────────────────────────────────────────── │
//	│  QR (payload firmado)  │  Instrucciones     │
//	│  Hash de seguridad                          │
//	└────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Accesos-api/internal/application/visitas"
	"github.com/jhoicas/Accesos-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ visitas.PaseRenderer = (*MarotoPaseGenerator)(nil)

// MarotoPaseGenerator implementa visitas.PaseRenderer usando Maroto v2.
type MarotoPaseGenerator struct{}

// NewMarotoPaseGenerator construye el generador.
func NewMarotoPaseGenerator() *MarotoPaseGenerator { return &MarotoPaseGenerator{} }

// Render genera el PDF del pase y devuelve sus bytes.
func (g *MarotoPaseGenerator) Render(_ context.Context, v *entity.Visita, payload, hash string) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A5).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Pase de Visita "+v.Codigo, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(v))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(visitanteRow(v))
	m.AddRows(ventanaRow(v))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(qrRow(payload))
	for _, r := range hashRows(hash) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar pase: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: leyenda del pase (izq) y código de visita (der).
func headerRow(v *entity.Visita) core.Row {
	return row.New(16).Add(
		col.New(7).Add(
			text.New("PASE DE VISITA", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Presente este pase en portería", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(v.Codigo, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 3,
			}),
			text.New("Fecha: "+v.InicioProgramado.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 11, Color: colorGray,
			}),
		),
	)
}

// visitanteRow: datos del visitante y su empresa de origen.
func visitanteRow(v *entity.Visita) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("VISITANTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(v.NombreVisitante, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New("Empresa: "+nonEmpty(v.NombreEmpresa, "—"), props.Text{
				Size: 8, Top: 12, Color: colorGray,
			}),
		),
	)
}

// ventanaRow: ventana autorizada y portería sugerida.
func ventanaRow(v *entity.Visita) core.Row {
	const formato = "02/01/2006 15:04"
	return row.New(12).Add(
		col.New(12).Add(
			text.New("VENTANA AUTORIZADA", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Desde: %s   |   Hasta: %s   |   Portería: %s",
				v.InicioProgramado.Format(formato),
				v.VenceEn.Format(formato),
				nonEmpty(v.PuertaSugerida, "cualquiera"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// qrRow: QR con el payload firmado + instrucciones.
func qrRow(payload string) core.Row {
	return row.New(46).Add(
		col.New(5).Add(code.NewQr(payload, props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(7).Add(
			text.New("Acerque el código QR al lector\nde la portería para registrar\nsu ingreso.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("El pase vence al terminar\nla ventana autorizada.", props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 24, Left: 3, Color: colorPrimary,
			}),
		),
	)
}

// hashRows: hash de seguridad partido en fragmentos legibles.
func hashRows(hash string) []core.Row {
	rows := []core.Row{
		row.New(5).Add(col.New(12).Add(
			text.New("Hash de seguridad:", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
		)),
	}
	for _, chunk := range splitEvery(hash, 64) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}
	return rows
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
