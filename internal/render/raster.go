package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"netvis/pkg/types"
)

// kappa places cubic control points so four segments approximate a circle.
const kappa = 0.5522847498

// Raster is a Surface backed by an in-memory RGBA image. It is used for
// headless snapshots.
type Raster struct {
	img  *image.RGBA
	z    *vector.Rasterizer
	face font.Face
}

// NewRaster creates a w by h raster surface.
func NewRaster(w, h int) *Raster {
	return &Raster{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		z:    vector.NewRasterizer(w, h),
		face: basicfont.Face7x13,
	}
}

// Image returns the backing image.
func (r *Raster) Image() *image.RGBA { return r.img }

func (r *Raster) Clear(bg color.RGBA) {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

func (r *Raster) FillCircle(c types.Point, radius float64, col color.RGBA) {
	if radius <= 0 {
		return
	}
	r.begin()
	r.circle(c, radius, true)
	r.fill(col)
}

// StrokeCircle draws a ring centered on the circle of the given radius.
func (r *Raster) StrokeCircle(c types.Point, radius, width float64, col color.RGBA) {
	outer := radius + width/2
	inner := radius - width/2
	if outer <= 0 {
		return
	}
	r.begin()
	r.circle(c, outer, true)
	if inner > 0 {
		r.circle(c, inner, false)
	}
	r.fill(col)
}

func (r *Raster) StrokeLine(a, b types.Point, width float64, col color.RGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 || width <= 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2

	r.begin()
	r.z.MoveTo(f32(a.X+nx), f32(a.Y+ny))
	r.z.LineTo(f32(b.X+nx), f32(b.Y+ny))
	r.z.LineTo(f32(b.X-nx), f32(b.Y-ny))
	r.z.LineTo(f32(a.X-nx), f32(a.Y-ny))
	r.z.ClosePath()
	r.fill(col)
}

func (r *Raster) Text(at types.Point, s string, col color.RGBA) {
	if s == "" {
		return
	}
	m := r.face.Metrics()
	w := font.MeasureString(r.face, s)
	x := fixed.I(int(math.Round(at.X))) - w/2
	y := fixed.I(int(math.Round(at.Y))) + (m.Ascent-m.Descent)/2

	d := font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(col),
		Face: r.face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(s)
}

// EncodePNG writes the current image as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, r.img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func (r *Raster) begin() {
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.z.DrawOp = draw.Over
}

func (r *Raster) fill(col color.RGBA) {
	r.z.Draw(r.img, r.img.Bounds(), image.NewUniform(col), image.Point{})
}

// circle appends a closed circular path. The winding direction decides
// whether an enclosed circle adds or cuts area.
func (r *Raster) circle(c types.Point, radius float64, clockwise bool) {
	step := math.Pi / 2
	if !clockwise {
		step = -step
	}
	k := kappa * radius
	sign := 1.0
	if !clockwise {
		sign = -1
	}

	r.z.MoveTo(f32(c.X+radius), f32(c.Y))
	for i := 0; i < 4; i++ {
		a0 := float64(i) * step
		a1 := a0 + step
		p0x, p0y := c.X+radius*math.Cos(a0), c.Y+radius*math.Sin(a0)
		p3x, p3y := c.X+radius*math.Cos(a1), c.Y+radius*math.Sin(a1)
		c1x, c1y := p0x-sign*k*math.Sin(a0), p0y+sign*k*math.Cos(a0)
		c2x, c2y := p3x+sign*k*math.Sin(a1), p3y-sign*k*math.Cos(a1)
		r.z.CubeTo(f32(c1x), f32(c1y), f32(c2x), f32(c2y), f32(p3x), f32(p3y))
	}
	r.z.ClosePath()
}

func f32(v float64) float32 { return float32(v) }
