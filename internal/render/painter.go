// Package render paints a catalog onto a 2D surface.
package render

import (
	"image/color"
	"strconv"

	"netvis/internal/catalog"
	"netvis/pkg/types"
)

// Style holds the sizes used when painting.
type Style struct {
	NodeRadius      float64
	FrameRadius     float64
	PacketRadius    float64
	LinkWidth       float64
	SelectionWidth  float64
	SelectionMargin float64
	Labels          bool
	Background      color.RGBA
}

// DefaultStyle returns the style used by the window and snapshot commands.
func DefaultStyle() Style {
	return Style{
		NodeRadius:      12,
		FrameRadius:     5,
		PacketRadius:    8,
		LinkWidth:       2,
		SelectionWidth:  2,
		SelectionMargin: 4,
		Labels:          true,
		Background:      ColorBackground,
	}
}

// Painter draws catalogs with a fixed style.
type Painter struct {
	style Style
}

// NewPainter creates a painter.
func NewPainter(style Style) *Painter {
	return &Painter{style: style}
}

// Style returns the painter's style.
func (p *Painter) Style() Style { return p.style }

// Paint clears s and draws cat: links first, then nodes, frames and packets,
// then the outline of the selected entity if it is still in the catalog.
// A nil catalog only clears the surface.
func (p *Painter) Paint(s Surface, cat *catalog.Catalog, sel *types.Selection) {
	st := p.style
	s.Clear(st.Background)
	if cat == nil {
		return
	}

	for _, l := range cat.Links {
		s.StrokeLine(l.A, l.B, st.LinkWidth, ColorLink)
	}
	for _, n := range cat.Nodes {
		s.FillCircle(n.Pos(), st.NodeRadius, NodeColor(n.Kind))
		if st.Labels {
			s.Text(n.Pos(), strconv.FormatUint(uint64(n.ID), 10), ColorLabel)
		}
	}
	for _, f := range cat.Frames {
		s.FillCircle(f.Pos, st.FrameRadius, ColorFrame)
	}
	for _, pk := range cat.Packets {
		s.FillCircle(pk.Pos(), st.PacketRadius, StateColor(pk.State))
	}

	if sel != nil {
		p.outline(s, cat, sel.Ref)
	}
}

func (p *Painter) outline(s Surface, cat *catalog.Catalog, ref types.EntityRef) {
	st := p.style
	switch ref.Kind {
	case types.KindNode:
		if n, ok := cat.Node(ref.ID); ok {
			s.StrokeCircle(n.Pos(), st.NodeRadius+st.SelectionMargin, st.SelectionWidth, ColorSelection)
		}
	case types.KindLink:
		if l, ok := cat.Link(ref.ID); ok {
			s.StrokeLine(l.A, l.B, st.LinkWidth+2*st.SelectionWidth, ColorSelection)
		}
	case types.KindFrame:
		if f, ok := cat.Frame(ref.ID); ok {
			s.StrokeCircle(f.Pos, st.FrameRadius+st.SelectionMargin, st.SelectionWidth, ColorSelection)
		}
	case types.KindPacket:
		if pk, ok := cat.Packet(ref.ID); ok {
			s.StrokeCircle(pk.Pos(), st.PacketRadius+st.SelectionMargin, st.SelectionWidth, ColorSelection)
		}
	}
}
