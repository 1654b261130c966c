package render

import (
	"image/color"

	"netvis/pkg/types"
)

// Surface is a 2D drawing target in canvas coordinates.
type Surface interface {
	Clear(bg color.RGBA)
	FillCircle(c types.Point, r float64, col color.RGBA)
	StrokeCircle(c types.Point, r, width float64, col color.RGBA)
	StrokeLine(a, b types.Point, width float64, col color.RGBA)
	// Text draws s centered on at.
	Text(at types.Point, s string, col color.RGBA)
}

// OpKind is the type of a recorded drawing operation.
type OpKind uint8

const (
	OpClear OpKind = iota
	OpFillCircle
	OpStrokeCircle
	OpStrokeLine
	OpText
)

// Op is one recorded drawing operation.
type Op struct {
	Kind  OpKind
	A     types.Point
	B     types.Point
	R     float64
	Width float64
	Color color.RGBA
	Text  string
}

// DisplayList is a Surface that records operations for later replay. A Clear
// discards everything recorded before it.
type DisplayList struct {
	Ops []Op
}

func (d *DisplayList) Clear(bg color.RGBA) {
	d.Ops = append(d.Ops[:0], Op{Kind: OpClear, Color: bg})
}

func (d *DisplayList) FillCircle(c types.Point, r float64, col color.RGBA) {
	d.Ops = append(d.Ops, Op{Kind: OpFillCircle, A: c, R: r, Color: col})
}

func (d *DisplayList) StrokeCircle(c types.Point, r, width float64, col color.RGBA) {
	d.Ops = append(d.Ops, Op{Kind: OpStrokeCircle, A: c, R: r, Width: width, Color: col})
}

func (d *DisplayList) StrokeLine(a, b types.Point, width float64, col color.RGBA) {
	d.Ops = append(d.Ops, Op{Kind: OpStrokeLine, A: a, B: b, Width: width, Color: col})
}

func (d *DisplayList) Text(at types.Point, s string, col color.RGBA) {
	d.Ops = append(d.Ops, Op{Kind: OpText, A: at, Text: s, Color: col})
}

// Replay draws the recorded operations onto s in order.
func (d *DisplayList) Replay(s Surface) {
	for _, op := range d.Ops {
		switch op.Kind {
		case OpClear:
			s.Clear(op.Color)
		case OpFillCircle:
			s.FillCircle(op.A, op.R, op.Color)
		case OpStrokeCircle:
			s.StrokeCircle(op.A, op.R, op.Width, op.Color)
		case OpStrokeLine:
			s.StrokeLine(op.A, op.B, op.Width, op.Color)
		case OpText:
			s.Text(op.A, op.Text, op.Color)
		}
	}
}

// Snapshot returns a copy that later recording does not affect.
func (d *DisplayList) Snapshot() *DisplayList {
	ops := make([]Op, len(d.Ops))
	copy(ops, d.Ops)
	return &DisplayList{Ops: ops}
}

// Count returns how many operations of a kind were recorded.
func (d *DisplayList) Count(kind OpKind) int {
	n := 0
	for _, op := range d.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}
