package record

import (
	"fmt"
	"strings"

	"netvis/pkg/types"
)

// Model is the entity model an engine build exposes. A build exposes exactly one.
type Model uint8

const (
	ModelGraph Model = iota + 1
	ModelPacket
)

func (m Model) String() string {
	switch m {
	case ModelGraph:
		return "graph"
	case ModelPacket:
		return "packet"
	default:
		return fmt.Sprintf("model(%d)", uint8(m))
	}
}

// ParseModel parses a model name from configuration.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(s) {
	case "graph":
		return ModelGraph, nil
	case "packet":
		return ModelPacket, nil
	default:
		return 0, fmt.Errorf("unknown model %q (valid: graph, packet)", s)
	}
}

// Node v1: id u32 | kind u8 | pad | x f64 | y f64
var NodeV1 = MustSchema(types.KindNode, 1, 24,
	F("id", 0, U32),
	F("kind", 4, U8),
	F("x", 8, F64),
	F("y", 16, F64),
)

// Link v1: id u32 | node_a u32 | node_b u32 | pad | length f64
var LinkV1 = MustSchema(types.KindLink, 1, 24,
	F("id", 0, U32),
	F("node_a", 4, U32),
	F("node_b", 8, U32),
	F("length", 16, F64),
)

// Frame v1: id u32 | link_id u32 | from_node u32 | src u32 | progress f64 | speed f64 | dst u32 | pad
var FrameV1 = MustSchema(types.KindFrame, 1, 40,
	F("id", 0, U32),
	F("link_id", 4, U32),
	F("from_node", 8, U32),
	F("src", 12, U32),
	F("progress", 16, F64),
	F("speed", 24, F64),
	F("dst", 32, U32),
)

// Packet v1: id u32 | kind u8 | state u8 | pad | x f64 | y f64
var PacketV1 = MustSchema(types.KindPacket, 1, 24,
	F("id", 0, U32),
	F("kind", 4, U8),
	F("state", 5, U8),
	F("x", 8, F64),
	F("y", 16, F64),
)

// Packet v2 moves kind and state behind the coordinates: id u32 | pad | x f64 | y f64 | kind u8 | state u8 | pad
var PacketV2 = MustSchema(types.KindPacket, 2, 32,
	F("id", 0, U32),
	F("x", 8, F64),
	F("y", 16, F64),
	F("kind", 24, U8),
	F("state", 25, U8),
)

// SchemaSet binds one schema per entity kind of a model.
type SchemaSet struct {
	Name   string
	Model  Model
	Node   *Schema
	Link   *Schema
	Frame  *Schema
	Packet *Schema
}

var (
	GraphSetV1  = SchemaSet{Name: "graph/v1", Model: ModelGraph, Node: NodeV1, Link: LinkV1, Frame: FrameV1}
	PacketSetV1 = SchemaSet{Name: "packet/v1", Model: ModelPacket, Packet: PacketV1}
	PacketSetV2 = SchemaSet{Name: "packet/v2", Model: ModelPacket, Packet: PacketV2}
)

// Kinds returns the entity kinds of the set in decode dependency order.
func (s SchemaSet) Kinds() []types.EntityKind {
	switch s.Model {
	case ModelGraph:
		return []types.EntityKind{types.KindNode, types.KindLink, types.KindFrame}
	case ModelPacket:
		return []types.EntityKind{types.KindPacket}
	default:
		return nil
	}
}

// For returns the schema of an entity kind, or nil if the set has none.
func (s SchemaSet) For(kind types.EntityKind) *Schema {
	switch kind {
	case types.KindNode:
		return s.Node
	case types.KindLink:
		return s.Link
	case types.KindFrame:
		return s.Frame
	case types.KindPacket:
		return s.Packet
	default:
		return nil
	}
}

// Validate checks that every kind of the model has a schema of the matching entity.
func (s SchemaSet) Validate() error {
	kinds := s.Kinds()
	if len(kinds) == 0 {
		return fmt.Errorf("schema set %q has unknown model %s", s.Name, s.Model)
	}
	for _, k := range kinds {
		sc := s.For(k)
		if sc == nil {
			return fmt.Errorf("schema set %q has no %s schema", s.Name, k)
		}
		if sc.Entity != k {
			return fmt.Errorf("schema set %q binds %s schema to %s", s.Name, sc.Entity, k)
		}
	}
	return nil
}

// Lookup returns the built-in schema set for a model and version.
func Lookup(model Model, version int) (SchemaSet, error) {
	switch {
	case model == ModelGraph && version == 1:
		return GraphSetV1, nil
	case model == ModelPacket && version == 1:
		return PacketSetV1, nil
	case model == ModelPacket && version == 2:
		return PacketSetV2, nil
	default:
		return SchemaSet{}, fmt.Errorf("no schema set for model %s version %d", model, version)
	}
}
