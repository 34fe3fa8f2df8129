// Package diagram draws a relationship graph as a PNG image. Nodes are placed
// with a deterministic force directed layout so the same graph always renders
// the same picture.
package diagram

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"

	"dbrest/internal/models"
)

const (
	DPI           = 100
	DefaultInches = 12.0
	MaxInches     = 50.0

	nodeRadius = 40.0
	margin     = nodeRadius + 20
	iterations = 200
)

var ErrInvalidSize = errors.New("diagram size must be between 1 and 50 inches")

// Options sizes the image in inches at DPI.
type Options struct {
	Width  float64
	Height float64
}

func (o Options) pixels() (int, int, error) {
	if o.Width == 0 {
		o.Width = DefaultInches
	}
	if o.Height == 0 {
		o.Height = DefaultInches
	}
	if o.Width < 1 || o.Width > MaxInches || o.Height < 1 || o.Height > MaxInches {
		return 0, 0, fmt.Errorf("%w: got %gx%g", ErrInvalidSize, o.Width, o.Height)
	}
	return int(o.Width * DPI), int(o.Height * DPI), nil
}

// Point is a node centre in pixels.
type Point struct{ X, Y float64 }

// Render writes g to w as a PNG.
func Render(w io.Writer, g models.RelationshipGraph, opts Options) error {
	width, height, err := opts.pixels()
	if err != nil {
		return err
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	pad, boxW, boxH := layoutBox(width, height)
	pos := Layout(g, boxW, boxH)
	for name, p := range pos {
		pos[name] = Point{p.X + pad, p.Y + pad}
	}

	for _, e := range g.Edges {
		drawEdge(dc, pos[e.FromTable], pos[e.ToTable], e.Label())
	}
	for _, n := range g.Nodes {
		drawNode(dc, pos[n], n)
	}

	return dc.EncodePNG(w)
}

func drawNode(dc *gg.Context, p Point, label string) {
	dc.DrawCircle(p.X, p.Y, nodeRadius)
	dc.SetRGB255(173, 216, 230)
	dc.FillPreserve()
	dc.SetRGB255(70, 110, 140)
	dc.SetLineWidth(1.5)
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(label, p.X, p.Y, 0.5, 0.35)
}

func drawEdge(dc *gg.Context, from, to Point, label string) {
	dc.SetRGB255(90, 90, 90)
	dc.SetLineWidth(1.2)

	if from == to {
		dc.DrawCircle(from.X, from.Y-nodeRadius, nodeRadius/2)
		dc.Stroke()
		drawLabel(dc, label, from.X, from.Y-2*nodeRadius)
		return
	}

	dx, dy := to.X-from.X, to.Y-from.Y
	d := math.Hypot(dx, dy)
	if d < 2*nodeRadius {
		return
	}
	ux, uy := dx/d, dy/d
	sx, sy := from.X+ux*nodeRadius, from.Y+uy*nodeRadius
	tx, ty := to.X-ux*nodeRadius, to.Y-uy*nodeRadius
	dc.DrawLine(sx, sy, tx, ty)
	dc.Stroke()

	// arrow head at the referenced table
	const size = 10.0
	angle := math.Atan2(uy, ux)
	dc.MoveTo(tx, ty)
	dc.LineTo(tx-size*math.Cos(angle-math.Pi/7), ty-size*math.Sin(angle-math.Pi/7))
	dc.LineTo(tx-size*math.Cos(angle+math.Pi/7), ty-size*math.Sin(angle+math.Pi/7))
	dc.ClosePath()
	dc.Fill()

	drawLabel(dc, label, (sx+tx)/2, (sy+ty)/2)
}

func drawLabel(dc *gg.Context, label string, x, y float64) {
	w, h := dc.MeasureString(label)
	dc.SetRGBA(1, 1, 1, 0.85)
	dc.DrawRectangle(x-w/2-2, y-h/2-2, w+4, h+4)
	dc.Fill()
	dc.SetRGB(0.8, 0, 0)
	dc.DrawStringAnchored(label, x, y, 0.5, 0.35)
}

// layoutBox returns the padding around the layout area and the area's size.
// Small images shrink the padding so at least half of each side is left.
func layoutBox(width, height int) (float64, float64, float64) {
	w, h := float64(width), float64(height)
	pad := math.Min(margin, math.Min(w, h)/4)
	return pad, w - 2*pad, h - 2*pad
}

// Layout places the nodes of g inside a width x height box using the
// Fruchterman-Reingold algorithm. Nodes start evenly spaced on a circle, so
// the result depends only on the graph.
func Layout(g models.RelationshipGraph, width, height float64) map[string]Point {
	n := len(g.Nodes)
	pos := make(map[string]Point, n)
	if n == 0 {
		return pos
	}
	if n == 1 {
		pos[g.Nodes[0]] = Point{width / 2, height / 2}
		return pos
	}

	cx, cy := width/2, height/2
	radius := math.Min(width, height) / 2
	for i, name := range g.Nodes {
		a := 2 * math.Pi * float64(i) / float64(n)
		pos[name] = Point{cx + radius*math.Cos(a), cy + radius*math.Sin(a)}
	}

	k := math.Sqrt(width * height / float64(n))
	temp := width / 10
	cooling := temp / float64(iterations+1)

	for it := 0; it < iterations; it++ {
		disp := make(map[string]Point, n)

		for i, a := range g.Nodes {
			for _, b := range g.Nodes[i+1:] {
				dx, dy, d := delta(pos[a], pos[b])
				f := k * k / d
				disp[a] = Point{disp[a].X + dx/d*f, disp[a].Y + dy/d*f}
				disp[b] = Point{disp[b].X - dx/d*f, disp[b].Y - dy/d*f}
			}
		}

		for _, e := range g.Edges {
			if e.FromTable == e.ToTable {
				continue
			}
			dx, dy, d := delta(pos[e.FromTable], pos[e.ToTable])
			f := d * d / k
			disp[e.FromTable] = Point{disp[e.FromTable].X - dx/d*f, disp[e.FromTable].Y - dy/d*f}
			disp[e.ToTable] = Point{disp[e.ToTable].X + dx/d*f, disp[e.ToTable].Y + dy/d*f}
		}

		for _, name := range g.Nodes {
			dp := disp[name]
			l := math.Hypot(dp.X, dp.Y)
			if l == 0 {
				continue
			}
			step := math.Min(l, temp)
			p := pos[name]
			p.X = clamp(p.X+dp.X/l*step, 0, width)
			p.Y = clamp(p.Y+dp.Y/l*step, 0, height)
			pos[name] = p
		}
		temp -= cooling
	}
	return pos
}

// delta returns the vector from b to a and its length, never zero.
func delta(a, b Point) (float64, float64, float64) {
	dx, dy := a.X-b.X, a.Y-b.Y
	d := math.Hypot(dx, dy)
	if d < 0.01 {
		return 0.01, 0, 0.01
	}
	return dx, dy, d
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
