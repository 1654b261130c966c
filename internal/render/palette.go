package render

import (
	"image/color"

	"netvis/pkg/types"
)

var (
	ColorBackground = color.RGBA{0xF0, 0xF0, 0xF0, 0xFF}
	ColorHost       = color.RGBA{0x3B, 0x82, 0xF6, 0xFF}
	ColorSwitch     = color.RGBA{0x10, 0xB9, 0x81, 0xFF}
	ColorLink       = color.RGBA{0x9C, 0xA3, 0xAF, 0xFF}
	ColorFrame      = color.RGBA{0xEF, 0x44, 0x44, 0xFF}
	ColorLabel      = color.RGBA{0x11, 0x18, 0x27, 0xFF}
	ColorSelection  = color.RGBA{0xD9, 0x46, 0xEF, 0xFF}

	ColorClosed      = color.RGBA{0x80, 0x80, 0x80, 0xFF} // gray
	ColorSynSent     = color.RGBA{0xFF, 0xA5, 0x00, 0xFF} // orange
	ColorSynReceived = color.RGBA{0xFF, 0xD7, 0x00, 0xFF} // gold
	ColorEstablished = color.RGBA{0x00, 0x80, 0x00, 0xFF} // green
	ColorOtherState  = color.RGBA{0x00, 0x00, 0xFF, 0xFF} // blue
)

// StateColor maps a packet's TCP state to its fill color. Codes without an
// explicit case share ColorOtherState.
func StateColor(s types.TCPState) color.RGBA {
	switch s {
	case types.StateClosed:
		return ColorClosed
	case types.StateSynSent:
		return ColorSynSent
	case types.StateSynReceived:
		return ColorSynReceived
	case types.StateEstablished:
		return ColorEstablished
	default:
		return ColorOtherState
	}
}

// NodeColor maps a node kind to its fill color.
func NodeColor(k types.NodeKind) color.RGBA {
	switch k {
	case types.NodeSwitch:
		return ColorSwitch
	default:
		return ColorHost
	}
}
