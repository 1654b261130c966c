// Package hittest resolves a pointer position to the entity drawn under it.
package hittest

import (
	"netvis/internal/catalog"
	"netvis/pkg/types"
)

// Radius is the pick distance in display units. A hit needs a distance strictly below it.
const Radius = 15.0

// Priority is the order in which entity kinds are tested. Within a kind,
// entities are tested in ascending id order and the first one in range wins.
var Priority = []types.EntityKind{types.KindNode, types.KindFrame, types.KindPacket, types.KindLink}

// HitTest returns the entity nearest in priority order to (x, y), if any lies
// within Radius. A nil catalog never hits.
func HitTest(x, y float64, cat *catalog.Catalog) (types.EntityRef, bool) {
	if cat == nil {
		return types.EntityRef{}, false
	}
	p := types.Point{X: x, Y: y}

	for _, kind := range Priority {
		switch kind {
		case types.KindNode:
			for _, n := range cat.Nodes {
				if within(p, n.Pos()) {
					return types.EntityRef{Kind: kind, ID: n.ID}, true
				}
			}
		case types.KindFrame:
			for _, f := range cat.Frames {
				if within(p, f.Pos) {
					return types.EntityRef{Kind: kind, ID: f.ID}, true
				}
			}
		case types.KindPacket:
			for _, pk := range cat.Packets {
				if within(p, pk.Pos()) {
					return types.EntityRef{Kind: kind, ID: pk.ID}, true
				}
			}
		case types.KindLink:
			for _, l := range cat.Links {
				if within(p, l.Mid()) {
					return types.EntityRef{Kind: kind, ID: l.ID}, true
				}
			}
		}
	}
	return types.EntityRef{}, false
}

// Select runs HitTest and, on a hit, returns a selection holding a copy of the
// entity's raw record. A miss returns nil, which clears the selection.
func Select(x, y float64, cat *catalog.Catalog) *types.Selection {
	ref, ok := HitTest(x, y, cat)
	if !ok {
		return nil
	}
	raw, ok := cat.Raw(ref)
	if !ok {
		return nil
	}
	b := make([]byte, len(raw))
	copy(b, raw)
	return &types.Selection{Ref: ref, Bytes: b}
}

func within(a, b types.Point) bool {
	return catalog.Distance(a, b) < Radius
}
