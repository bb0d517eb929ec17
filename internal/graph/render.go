package graph

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"doc-distill/internal/fonts"
)

// RenderOptions controls the output image.
type RenderOptions struct {
	Width      int
	Height     int
	NodeRadius float64
	Title      string
	Layout     LayoutOptions
	// FontPath is a TrueType font for labels. Empty tries fonts.Candidates and
	// falls back to gg's built-in ASCII face when none is installed.
	FontPath string
	FontSize float64
}

// DefaultRenderOptions matches a 12x6 inch figure at 100 dpi.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Width:      1200,
		Height:     600,
		NodeRadius: 28,
		Title:      "Knowledge Graph",
		Layout:     DefaultLayoutOptions(),
		FontSize:   12,
	}
}

// Draw renders the graph with node and edge labels onto a new canvas.
func Draw(kg *KnowledgeGraph, opts RenderOptions) (*gg.Context, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultRenderOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	if opts.NodeRadius <= 0 {
		opts.NodeRadius = DefaultRenderOptions().NodeRadius
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultRenderOptions().FontSize
	}
	font, err := fonts.Resolve(opts.FontPath)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	if font != "" {
		if err := dc.LoadFontFace(font, opts.FontSize); err != nil {
			return nil, fmt.Errorf("load label font %s: %w", font, err)
		}
	}
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	w, h := float64(opts.Width), float64(opts.Height)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(opts.Title, w/2, 20, 0.5, 0.5)

	margin := opts.NodeRadius + 40
	pos := Layout(kg, opts.Layout)
	point := func(id int64) (float64, float64) {
		p := pos[id]
		return margin + p.X*(w-2*margin), margin + p.Y*(h-2*margin)
	}

	// Parallel edges between the same pair get stacked labels.
	seen := make(map[[2]int64]int)
	for _, e := range kg.Edges {
		x1, y1 := point(e.From)
		x2, y2 := point(e.To)
		pair := [2]int64{e.From, e.To}
		n := seen[pair]
		seen[pair] = n + 1

		dc.SetHexColor("#808080")
		dc.SetLineWidth(1.5)
		if e.From == e.To {
			dc.DrawCircle(x1, y1-opts.NodeRadius, opts.NodeRadius*0.6)
			dc.Stroke()
			dc.SetRGB(0.2, 0.2, 0.2)
			dc.DrawStringAnchored(e.Label, x1, y1-2*opts.NodeRadius-8-float64(n*14), 0.5, 0.5)
			continue
		}
		drawArrow(dc, x1, y1, x2, y2, opts.NodeRadius)
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(e.Label, (x1+x2)/2, (y1+y2)/2-float64(n*14), 0.5, 0.5)
	}

	for _, node := range kg.Nodes {
		x, y := point(node.ID)
		dc.SetHexColor("#add8e6")
		dc.DrawCircle(x, y, opts.NodeRadius)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(node.Label, x, y, 0.5, 0.5)
	}
	return dc, nil
}

// RenderPNG draws the graph and writes it to path.
func RenderPNG(kg *KnowledgeGraph, path string, opts RenderOptions) error {
	dc, err := Draw(kg, opts)
	if err != nil {
		return err
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save graph image: %w", err)
	}
	return nil
}

// drawArrow strokes a line between two node centres, trimmed to the node circles,
// and fills an arrowhead at the target end.
func drawArrow(dc *gg.Context, x1, y1, x2, y2, r float64) {
	dx, dy := x2-x1, y2-y1
	dist := math.Hypot(dx, dy)
	if dist <= 2*r {
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		return
	}
	ux, uy := dx/dist, dy/dist
	sx, sy := x1+ux*r, y1+uy*r
	ex, ey := x2-ux*r, y2-uy*r
	dc.DrawLine(sx, sy, ex, ey)
	dc.Stroke()

	const head = 10.0
	angle := math.Atan2(uy, ux)
	dc.MoveTo(ex, ey)
	dc.LineTo(ex-head*math.Cos(angle-math.Pi/7), ey-head*math.Sin(angle-math.Pi/7))
	dc.LineTo(ex-head*math.Cos(angle+math.Pi/7), ey-head*math.Sin(angle+math.Pi/7))
	dc.ClosePath()
	dc.Fill()
}
