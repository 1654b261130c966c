package view

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"netvis/pkg/types"
)

// screenSurface draws onto an ebiten image. It is only valid for the Draw
// call that created it.
type screenSurface struct {
	dst  *ebiten.Image
	face *text.GoTextFace
}

func (s *screenSurface) Clear(bg color.RGBA) {
	s.dst.Fill(bg)
}

func (s *screenSurface) FillCircle(c types.Point, r float64, col color.RGBA) {
	vector.DrawFilledCircle(s.dst, float32(c.X), float32(c.Y), float32(r), col, true)
}

func (s *screenSurface) StrokeCircle(c types.Point, r, width float64, col color.RGBA) {
	vector.StrokeCircle(s.dst, float32(c.X), float32(c.Y), float32(r), float32(width), col, true)
}

func (s *screenSurface) StrokeLine(a, b types.Point, width float64, col color.RGBA) {
	vector.StrokeLine(s.dst, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), float32(width), col, true)
}

func (s *screenSurface) Text(at types.Point, str string, col color.RGBA) {
	w, h := text.Measure(str, s.face, 0)
	op := &text.DrawOptions{}
	op.GeoM.Translate(at.X-w/2, at.Y-h/2)
	op.ColorScale.ScaleWithColor(col)
	text.Draw(s.dst, str, s.face, op)
}
