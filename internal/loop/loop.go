// Package loop drives an engine one display frame at a time: tick, rebuild
// the catalog, paint, reschedule.
package loop

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"netvis/internal/catalog"
	"netvis/internal/history"
	"netvis/internal/hittest"
	"netvis/internal/observability"
	"netvis/internal/record"
	"netvis/internal/render"
	"netvis/internal/stats"
	"netvis/pkg/types"
)

var (
	ErrNoEngine = errors.New("no engine attached")
	ErrNotIdle  = errors.New("loop is not idle")
	ErrStopped  = errors.New("loop is stopped")
)

// State is the lifecycle state of a Loop.
type State int

const (
	// Idle loops have no engine and do nothing.
	Idle State = iota
	// Running loops step once per scheduled frame.
	Running
	// Stopped is terminal; no step runs after Stop returns.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine is what the loop needs from a simulation: a tick and a fresh view of
// its memory regions after every tick.
type Engine interface {
	catalog.Source
	Tick() error
}

// schemaSource is implemented by engines that know their own record layout.
type schemaSource interface {
	SchemaSet() record.SchemaSet
}

// Options configures a Loop. Nil collaborators are skipped.
type Options struct {
	// Schemas decodes engine memory. When empty, the engine's own set is
	// used if it exposes one, else the graph v1 set.
	Schemas record.SchemaSet
	Painter *render.Painter
	Surface render.Surface
	// TicksPerStep is the number of engine ticks per frame (default 1).
	TicksPerStep int
	// LiveSelection refreshes the selected entity's bytes on every pass.
	LiveSelection bool

	Stats   *stats.Collector
	Metrics *observability.RenderCollector
	History *history.Log
}

// Loop is the render loop. All methods are safe for concurrent use; steps,
// clicks and engine mutations are serialized.
type Loop struct {
	sched Scheduler
	opts  Options

	mu      sync.Mutex
	state   State
	engine  Engine
	handle  Handle
	gen     uint64
	tick    uint64
	cat     *catalog.Catalog
	sel     *types.Selection
	lastErr error
}

// New creates an idle loop.
func New(sched Scheduler, opts Options) *Loop {
	if opts.TicksPerStep <= 0 {
		opts.TicksPerStep = 1
	}
	if opts.Painter == nil {
		opts.Painter = render.NewPainter(render.DefaultStyle())
	}
	return &Loop{sched: sched, opts: opts}
}

// Attach hands the loop its engine and schedules the first step.
func (l *Loop) Attach(e Engine) error {
	if e == nil {
		return ErrNoEngine
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Idle {
		return fmt.Errorf("attach: %w (state %s)", ErrNotIdle, l.state)
	}
	if l.opts.Schemas.Name == "" {
		l.opts.Schemas = record.GraphSetV1
		if s, ok := e.(schemaSource); ok {
			l.opts.Schemas = s.SchemaSet()
		}
	}
	if err := l.opts.Schemas.Validate(); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	l.engine = e
	l.state = Running
	l.scheduleLocked()

	log.WithField("schemas", l.opts.Schemas.Name).Info("Render loop running")
	return nil
}

// Stop cancels the pending step and detaches the engine. It is idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Stopped {
		return
	}
	if l.state == Running {
		l.sched.Cancel(l.handle)
	}
	l.gen++
	l.state = Stopped
	l.engine = nil
	log.WithField("tick", l.tick).Info("Render loop stopped")
}

// State returns the lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Tick returns the number of engine ticks driven so far.
func (l *Loop) Tick() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tick
}

// Catalog returns the most recent successfully built catalog, or nil.
func (l *Loop) Catalog() *catalog.Catalog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cat
}

// Selection returns the current selection, or nil.
func (l *Loop) Selection() *types.Selection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sel
}

// Err returns the error of the last pass, nil if it succeeded.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Click hit-tests (x, y) against the most recent catalog. A hit replaces the
// selection, a miss clears it.
func (l *Loop) Click(x, y float64) *types.Selection {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sel = hittest.Select(x, y, l.cat)
	if l.sel == nil {
		if l.opts.Stats != nil {
			l.opts.Stats.RecordMiss()
		}
		l.opts.Metrics.ObserveClick("")
		return nil
	}

	kind := l.sel.Ref.Kind.String()
	if l.opts.Stats != nil {
		l.opts.Stats.RecordHit(kind)
	}
	l.opts.Metrics.ObserveClick(kind)
	log.WithFields(log.Fields{
		"entity": l.sel.Ref.String(),
		"bytes":  len(l.sel.Bytes),
	}).Debug("Entity selected")
	return l.sel
}

// ClearSelection drops the current selection.
func (l *Loop) ClearSelection() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sel = nil
}

// Mutate runs fn between steps, for engine commands issued by the host.
// After Stop the engine is detached and fn is not run.
func (l *Loop) Mutate(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Stopped {
		return ErrStopped
	}
	return fn()
}

func (l *Loop) scheduleLocked() {
	l.gen++
	gen := l.gen
	l.handle = l.sched.Schedule(func() { l.step(gen) })
}

func (l *Loop) step(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Running || gen != l.gen {
		return
	}
	l.passLocked()
	l.scheduleLocked()
}

func (l *Loop) passLocked() {
	start := time.Now()

	for i := 0; i < l.opts.TicksPerStep; i++ {
		if err := l.engine.Tick(); err != nil {
			l.failLocked(fmt.Errorf("engine tick failed: %w", err))
			return
		}
		l.tick++
		if l.opts.Stats != nil {
			l.opts.Stats.RecordTick()
		}
		l.opts.Metrics.ObserveTick()
	}

	cat, err := catalog.Build(l.engine, l.opts.Schemas, l.tick)
	if err != nil {
		l.failLocked(err)
		return
	}
	if l.lastErr != nil {
		log.WithField("tick", l.tick).Info("Render pass recovered")
	}
	l.cat = cat
	l.lastErr = nil

	l.recordCatalogLocked(cat)
	if l.opts.LiveSelection && l.sel != nil {
		if raw, ok := cat.Raw(l.sel.Ref); ok {
			l.sel = &types.Selection{Ref: l.sel.Ref, Bytes: append([]byte(nil), raw...)}
		}
	}
	if l.opts.History != nil {
		l.opts.History.Observe(cat)
	}
	if l.opts.Surface != nil {
		l.opts.Painter.Paint(l.opts.Surface, cat, l.sel)
	}

	elapsed := time.Since(start)
	if l.opts.Stats != nil {
		l.opts.Stats.RecordPass(elapsed)
	}
	l.opts.Metrics.ObservePass(elapsed, true)
}

// failLocked ends a pass without painting. The previous catalog stays current.
func (l *Loop) failLocked(err error) {
	entry := log.WithError(err).WithField("tick", l.tick)
	if l.lastErr == nil {
		entry.Warn("Render pass failed, skipping paint")
	} else {
		entry.Debug("Render pass failed, skipping paint")
	}
	l.lastErr = err
	if l.opts.Stats != nil {
		l.opts.Stats.RecordFailedPass()
	}
	l.opts.Metrics.ObservePass(0, false)
}

func (l *Loop) recordCatalogLocked(cat *catalog.Catalog) {
	counts := map[types.EntityKind]int{
		types.KindNode:   len(cat.Nodes),
		types.KindLink:   len(cat.Links),
		types.KindFrame:  len(cat.Frames),
		types.KindPacket: len(cat.Packets),
	}
	for _, kind := range l.opts.Schemas.Kinds() {
		if l.opts.Stats != nil {
			l.opts.Stats.RecordDecoded(kind.String(), counts[kind])
		}
		l.opts.Metrics.SetEntityCount(kind.String(), counts[kind])
	}

	for _, is := range cat.Issues {
		log.WithFields(log.Fields{
			"tick":   cat.Tick,
			"kind":   is.Kind.String(),
			"id":     is.ID,
			"reason": string(is.Reason),
			"detail": is.Detail,
		}).Debug("Catalog entry dropped or replaced")

		if l.opts.Stats != nil {
			if is.Reason == catalog.IssueDuplicateID {
				l.opts.Stats.RecordDuplicate(is.Kind.String())
			} else {
				l.opts.Stats.RecordDropped(is.Kind.String())
			}
		}
		l.opts.Metrics.ObserveIssue(is.Kind.String(), string(is.Reason))
	}
}
