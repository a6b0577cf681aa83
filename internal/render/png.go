// Package render rasterises chart geometry. It makes no layout decisions:
// every coordinate comes from chart.Geometry.Commands.
package render

import (
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"agile-live/internal/chart"
)

type Stroke struct {
	Color color.Color
	Width float64
}

// Style maps command roles to colours.
type Style struct {
	Background color.Color
	Axis       Stroke
	Price      Stroke
	Zero       Stroke
	Peak       Stroke
	Average    Stroke
	Text       color.Color
	AvgText    color.Color
	TextSize   float64
	AvgSize    float64
}

func DefaultStyle() Style {
	return Style{
		Background: color.NRGBA{0x18, 0x00, 0x48, 0xff},
		Axis:       Stroke{Color: color.NRGBA{0xff, 0xff, 0xff, 77}, Width: 2},
		Price:      Stroke{Color: color.NRGBA{0x00, 0xff, 0xff, 0xff}, Width: 4},
		Zero:       Stroke{Color: color.NRGBA{0xff, 0xff, 0xff, 77}, Width: 1},
		Peak:       Stroke{Color: color.NRGBA{0xff, 0x55, 0x55, 230}, Width: 1},
		Average:    Stroke{Color: color.NRGBA{0xff, 0xa5, 0x00, 179}, Width: 1},
		Text:       color.White,
		AvgText:    color.NRGBA{0xff, 0xa5, 0x00, 0xff},
		TextSize:   18,
		AvgSize:    16,
	}
}

// Renderer draws geometry to PNG. It is safe for concurrent use; font faces
// hold scratch buffers, so each draw builds its own.
type Renderer struct {
	style   Style
	regular *opentype.Font
	bold    *opentype.Font
}

func New(style Style) *Renderer {
	r := &Renderer{style: style}
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		r.regular = f
	}
	if f, err := opentype.Parse(gobold.TTF); err == nil {
		r.bold = f
	}
	return r
}

type faces struct {
	text font.Face
	avg  font.Face
}

func (r *Renderer) faces() faces {
	return faces{
		text: newFace(r.regular, r.style.TextSize),
		avg:  newFace(r.bold, r.style.AvgSize),
	}
}

// newFace falls back to the built-in bitmap face when no TTF is available.
func newFace(f *opentype.Font, size float64) font.Face {
	if f == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

func (r *Renderer) stroke(role string) Stroke {
	switch role {
	case chart.RoleAxis:
		return r.style.Axis
	case chart.RolePrice:
		return r.style.Price
	case chart.RoleZero:
		return r.style.Zero
	case chart.RolePeak:
		return r.style.Peak
	case chart.RoleAverage:
		return r.style.Average
	default:
		return Stroke{Color: r.style.Text, Width: 1}
	}
}

// Draw rasterises g.
func (r *Renderer) Draw(g chart.Geometry) image.Image {
	dc := gg.NewContext(int(g.Canvas.Width), int(g.Canvas.Height))
	dc.SetColor(r.style.Background)
	dc.Clear()

	ff := r.faces()
	for _, cmd := range g.Commands() {
		switch cmd.Kind {
		case chart.KindLine, chart.KindPolyline:
			s := r.stroke(cmd.Role)
			dc.SetColor(s.Color)
			dc.SetLineWidth(s.Width)
			dc.SetLineJoin(gg.LineJoinRound)
			dc.NewSubPath()
			for i, p := range cmd.Points {
				if i == 0 {
					dc.MoveTo(p.X, p.Y)
				} else {
					dc.LineTo(p.X, p.Y)
				}
			}
			dc.Stroke()
		case chart.KindDashed:
			s := r.stroke(cmd.Role)
			dc.SetColor(s.Color)
			dc.SetLineWidth(s.Width)
			for i := 0; i+1 < len(cmd.Points); i += 2 {
				dc.DrawLine(cmd.Points[i].X, cmd.Points[i].Y, cmd.Points[i+1].X, cmd.Points[i+1].Y)
			}
			dc.Stroke()
		case chart.KindLabel:
			r.drawLabel(dc, ff, cmd)
		}
	}
	return dc.Image()
}

func (r *Renderer) drawLabel(dc *gg.Context, ff faces, cmd chart.Command) {
	if len(cmd.Points) == 0 {
		return
	}
	switch cmd.Label {
	case chart.LabelAvgCaption, chart.LabelAvgValue:
		dc.SetColor(r.style.AvgText)
		dc.SetFontFace(ff.avg)
	default:
		dc.SetColor(r.style.Text)
		dc.SetFontFace(ff.text)
	}
	p := cmd.Points[0]
	// Label anchors are the top-left corner of the text box.
	dc.DrawStringAnchored(cmd.Text, p.X, p.Y, 0, 1)
}

// EncodePNG draws g and writes it as PNG.
func (r *Renderer) EncodePNG(w io.Writer, g chart.Geometry) error {
	dc := gg.NewContextForImage(r.Draw(g))
	return dc.EncodePNG(w)
}

// NoData writes a placeholder image with msg centred on the background.
func (r *Renderer) NoData(w io.Writer, width, height int, msg string) error {
	dc := gg.NewContext(width, height)
	dc.SetColor(r.style.Background)
	dc.Clear()
	dc.SetColor(r.style.Text)
	dc.SetFontFace(r.faces().text)
	dc.DrawStringAnchored(msg, float64(width)/2, float64(height)/2, 0.5, 0.5)
	return dc.EncodePNG(w)
}
