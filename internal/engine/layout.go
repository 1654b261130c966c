package engine

import (
	"encoding/binary"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"netvis/internal/record"
	"netvis/pkg/types"
)

// arenaMagic opens the arena header, followed by the layout generation.
var arenaMagic = [4]byte{'N', 'V', 'I', 'S'}

// layout writes every region into the arena, growing it when the records no
// longer fit. Growth allocates a new arena, so earlier Memory slices go stale.
func (e *Engine) layout() error {
	kinds := e.set.Kinds()

	need := headerSize
	for _, k := range kinds {
		need = align(need) + e.count(k)*e.set.For(k).Stride
	}
	if need > len(e.mem) {
		size := max(len(e.mem), minArena)
		for size < need {
			size *= 2
		}
		e.mem = make([]byte, size)
		e.counters.Relocations++
		log.WithFields(log.Fields{
			"size":        size,
			"relocations": e.counters.Relocations,
		}).Debug("Engine arena relocated")
	}

	e.generation++
	clear(e.mem)
	copy(e.mem, arenaMagic[:])
	binary.LittleEndian.PutUint64(e.mem[8:], e.generation)

	off := headerSize
	for _, k := range kinds {
		off = align(off)
		s := e.set.For(k)
		n := e.count(k)
		e.regions[k] = region{ptr: uint32(off), count: uint32(n)}
		for i := 0; i < n; i++ {
			if err := record.Encode(e.mem, off, s, e.values(k, i)); err != nil {
				return fmt.Errorf("failed to lay out %s %d: %w", k, i, err)
			}
			off += s.Stride
		}
	}
	return nil
}

func (e *Engine) count(k types.EntityKind) int {
	switch k {
	case types.KindNode:
		return len(e.nodes)
	case types.KindLink:
		return len(e.links)
	case types.KindFrame:
		return len(e.frames)
	case types.KindPacket:
		return len(e.packets)
	default:
		return 0
	}
}

func (e *Engine) values(k types.EntityKind, i int) record.Values {
	switch k {
	case types.KindNode:
		return record.NodeValues(e.nodes[i])
	case types.KindLink:
		return record.LinkValues(e.links[i])
	case types.KindFrame:
		return record.FrameValues(e.frames[i])
	default:
		return record.PacketValues(e.packets[i])
	}
}

func align(n int) int {
	return (n + regionAlign - 1) &^ (regionAlign - 1)
}

func distance(a, b types.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
