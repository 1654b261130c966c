// Package view hosts the render loop in an ebiten window. Each ebiten update
// is one display frame: it advances the frame scheduler, which runs the
// loop's pending step, then routes mouse and keyboard input to the session.
package view

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font/gofont/gomono"

	"netvis/internal/config"
	"netvis/internal/controls"
	"netvis/internal/loop"
	"netvis/internal/render"
	"netvis/internal/session"
)

const (
	// PanelWidth is the width of the inspector panel right of the canvas.
	PanelWidth = 360

	panelMargin   = 12.0
	panelFontSize = 12.0
	labelFontSize = 11.0
	historyRows   = 16
)

var (
	panelBackground = color.RGBA{0x1E, 0x1E, 0x2E, 0xFF}
	panelText       = color.RGBA{0xCD, 0xD6, 0xF4, 0xFF}
	statusText      = color.RGBA{0xB9, 0x1C, 0x1C, 0xFF}
	helpText        = color.RGBA{0x6B, 0x72, 0x80, 0xFF}
)

var keyCommands = map[ebiten.Key]controls.Command{
	ebiten.KeyH:      controls.AddHost,
	ebiten.KeyS:      controls.AddSwitch,
	ebiten.KeyL:      controls.LinkNodes,
	ebiten.KeyF:      controls.SendFrames,
	ebiten.KeyT:      controls.AddTCP,
	ebiten.KeyU:      controls.AddUDP,
	ebiten.KeyEscape: controls.ClearSelection,
}

// Game is the ebiten game driving one session.
type Game struct {
	mgr    *session.Manager
	sched  *loop.FrameScheduler
	canvas *render.DisplayList

	width  int
	height int

	labelFace *text.GoTextFace
	panelFace *text.GoTextFace
	status    controls.Status
}

// New creates the game. canvas must be the surface the session's loop paints
// into, and sched the scheduler it was created with.
func New(mgr *session.Manager, sched *loop.FrameScheduler, canvas *render.DisplayList, display config.DisplayConfig) (*Game, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	return &Game{
		mgr:       mgr,
		sched:     sched,
		canvas:    canvas,
		width:     display.Width,
		height:    display.Height,
		labelFace: &text.GoTextFace{Source: src, Size: labelFontSize},
		panelFace: &text.GoTextFace{Source: src, Size: panelFontSize},
	}, nil
}

// Run opens the window and blocks until it is closed.
func Run(g *Game, display config.DisplayConfig) error {
	ebiten.SetWindowSize(display.Width+PanelWidth, display.Height)
	ebiten.SetWindowTitle(display.Title)
	ebiten.SetTPS(display.FPS)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("window closed with error: %w", err)
	}
	return nil
}

func (g *Game) Update() error {
	g.sched.Advance()

	cx, cy := ebiten.CursorPosition()
	x, y := float64(cx), float64(cy)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && cx < g.width {
		if sel := g.mgr.Select(x, y); sel != nil {
			log.WithField("entity", sel.Ref.String()).Info("Selected")
		}
	}

	for key, cmd := range keyCommands {
		if !inpututil.IsKeyJustPressed(key) {
			continue
		}
		g.status.Command(controls.Dispatch(g.mgr, cmd, x, y))
	}
	g.status.Loop(g.mgr.Loop().Err())
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	canvas := screen.SubImage(image.Rect(0, 0, g.width, g.height)).(*ebiten.Image)
	g.canvas.Replay(&screenSurface{dst: canvas, face: g.labelFace})

	g.drawLine(screen, controls.Help(), panelMargin, float64(g.height)-2*panelFontSize, helpText)
	if status := g.status.String(); status != "" {
		g.drawLine(screen, status, panelMargin, panelMargin, statusText)
	}

	px := float32(g.width)
	vector.DrawFilledRect(screen, px, 0, PanelWidth, float32(g.height), panelBackground, false)

	lines := controls.Panel(g.mgr.Loop().Selection(), g.mgr.History().Entries(), historyRows)
	for i, line := range lines {
		g.drawLine(screen, line, float64(g.width)+panelMargin, panelMargin+float64(i)*panelFontSize*1.4, panelText)
	}
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.width + PanelWidth, g.height
}

func (g *Game) drawLine(dst *ebiten.Image, s string, x, y float64, col color.RGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(col)
	text.Draw(dst, s, g.panelFace, op)
}
