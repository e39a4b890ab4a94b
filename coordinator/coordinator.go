// Package coordinator implements the render coordinator (spec §4.9): it
// owns the list of backends and the current frame number, sequencing
// DoAdvance/Render/RecordFrame each frame. Adapted from engine/engine.go's
// tick/render loop structure (functional-options builder, registered
// callbacks, single background goroutine pair) but replacing its
// window-driven frame loop and per-scene worker-pool dispatch
// (engine/scene/scene.go) with the single-threaded, backend-registry model
// spec §4.9 and §5 describe: one thread drives DoAdvance/Render/RecordFrame
// directly, with no internal goroutines of its own.
package coordinator

import (
	"fmt"
	"log/slog"

	"github.com/brightloom/corerender/scene"
)

// Backend is one render backend the coordinator can drive (the rasterizer
// or the path tracer), unified behind the StartRender/Render/EndRender
// contract spec §4.9 names.
type Backend interface {
	// StartRender prepares this frame's resources (resolves dirty sort-core
	// state, uploads pool changes).
	StartRender(w, h int) error

	// Render performs one unit of work for this frame — a full rasterized
	// frame, or one progressive path-trace sample — and reports whether
	// the frame is now complete (spec §4.8 "Render → returns bool
	// 'complete'").
	Render() (complete bool, err error)

	// EndRender finalizes this frame (MSAA resolve, compositing, present).
	EndRender() error

	// SaveFrame writes the current resolved image to outPath, used by
	// recording (spec §4.9 RecordFrame, §6.4 "24-bit PNG / 48-bit TIFF").
	SaveFrame(outPath string) error

	// Progressive reports whether this backend accumulates across frames
	// (the path tracer) rather than completing every Render call (the
	// rasterizer).
	Progressive() bool
}

// registration pairs a Backend with the output texture id spec §4.9 says
// each backend is registered under.
type registration struct {
	backend   Backend
	outputTex uint32
}

// Coordinator sequences backends against a scene graph each frame.
type Coordinator struct {
	backends map[string]registration
	current  string

	scn *scene.Scene

	frame         int // frames actually recorded, advanced only by RecordFrame
	tick          int // DoAdvance calls so far, advances every frame regardless of recording
	currentTick   int // tick's value as of the most recent DoAdvance call
	recording     bool
	recordStart   int
	recordBackend string
	prevComplete  bool
	outPathFormat string // e.g. "out%05d.png"

	animating bool

	log *slog.Logger
}

// New creates a Coordinator bound to a scene graph.
func New(scn *scene.Scene) *Coordinator {
	return &Coordinator{
		backends:      make(map[string]registration),
		scn:           scn,
		outPathFormat: "out%05d.png",
		log:           slog.Default().With("component", "coordinator.Coordinator"),
	}
}

// RegisterBackend adds a backend under a name, with its output texture id
// (spec §4.9 "Each backend is registered with its output texture id").
func (c *Coordinator) RegisterBackend(name string, b Backend, outputTex uint32) {
	c.backends[name] = registration{backend: b, outputTex: outputTex}
	if c.current == "" {
		c.current = name
	}
}

// SetRenderer switches the active backend, forcing a full scene-graph
// dirty mark so the incoming backend rebuilds its caches from scratch
// (spec §4.9 "SetRenderer(id) forces a full scene-graph dirty mark").
func (c *Coordinator) SetRenderer(name string) error {
	if _, ok := c.backends[name]; !ok {
		return fmt.Errorf("coordinator: unknown backend %q", name)
	}
	c.current = name
	for _, id := range c.scn.List() {
		if obj := c.scn.Registry().GetObj(id); obj != nil {
			obj.MarkDirty()
		}
	}
	return nil
}

// SetAnimating toggles whether the scene advances every frame.
func (c *Coordinator) SetAnimating(on bool) { c.animating = on }

// SetOutputFormat overrides the Printf-style path format RecordFrame saves
// each frame under (default "out%05d.png"), letting a caller anchor
// recorded frames next to its own input rather than the working directory.
func (c *Coordinator) SetOutputFormat(format string) { c.outPathFormat = format }

// EnableRecording arms recording starting at startFrame, writing to a
// backend named by RegisterBackend (spec §4.9 step 1). The switch to
// backendName itself is deferred to DoAdvance, once its call counter
// (c.tick) reaches startFrame — EnableRecording only configures what will happen, matching
// spec §4.9's "switches to the recording backend at the configured start
// frame" rather than switching immediately.
func (c *Coordinator) EnableRecording(backendName string, startFrame int) error {
	if _, ok := c.backends[backendName]; !ok {
		return fmt.Errorf("coordinator: unknown recording backend %q", backendName)
	}
	c.recording = true
	c.recordStart = startFrame
	c.recordBackend = backendName
	return nil
}

func (c *Coordinator) activeBackend() (Backend, error) {
	reg, ok := c.backends[c.current]
	if !ok {
		return nil, fmt.Errorf("coordinator: no active backend")
	}
	return reg.backend, nil
}

// DoAdvance implements spec §4.9 step 1: switches to the recording backend
// at the configured start frame, triggers a scene update, and starts a new
// progressive frame once the previous one has converged (or immediately,
// for a non-progressive backend). tick — not frame, which only counts
// frames RecordFrame has actually saved — is what's compared against
// recordStart: frame never advances before recording starts, so gating the
// switch on frame itself would make any recordStart > 0 unreachable.
// currentTick latches this call's tick value so RecordFrame, called right
// after Render in the same cycle, gates on the same frame index the switch
// decision above used.
func (c *Coordinator) DoAdvance(t, dt float32) error {
	c.currentTick = c.tick
	if c.recording && c.currentTick == c.recordStart {
		c.current = c.recordBackend
		c.log.Info("recording started", "tick", c.currentTick)
	}

	if err := c.scn.Execute(c.animating, t, dt, false); err != nil {
		return fmt.Errorf("coordinator: scene advance: %w", err)
	}

	b, err := c.activeBackend()
	if err != nil {
		return err
	}

	if c.animating && (c.prevComplete || !b.Progressive()) {
		type starter interface{ StartNewFrame() }
		if s, ok := b.(starter); ok {
			s.StartNewFrame()
		}
	}
	c.tick++
	return nil
}

// Render delegates StartRender/Render/EndRender to the current backend
// (spec §4.9 step 2). The picking pass named in that step is a
// half-resolution, non-MSAA re-render of the active backend driven by the
// caller with w,h halved; this method performs the primary pass only.
func (c *Coordinator) Render(w, h int) error {
	b, err := c.activeBackend()
	if err != nil {
		return err
	}
	if err := b.StartRender(w, h); err != nil {
		return fmt.Errorf("coordinator: start render: %w", err)
	}
	complete, err := b.Render()
	if err != nil {
		return fmt.Errorf("coordinator: render: %w", err)
	}
	if err := b.EndRender(); err != nil {
		return fmt.Errorf("coordinator: end render: %w", err)
	}
	c.prevComplete = complete
	return nil
}

// RecordFrame implements spec §4.9 step 3: if the previous frame completed,
// recording is active, and the configured start frame has been reached,
// saves the resolved frame and advances the counter.
func (c *Coordinator) RecordFrame() error {
	if !c.recording || !c.prevComplete || c.currentTick < c.recordStart {
		return nil
	}
	b, err := c.activeBackend()
	if err != nil {
		return err
	}
	path := fmt.Sprintf(c.outPathFormat, c.frame)
	if err := b.SaveFrame(path); err != nil {
		return fmt.Errorf("coordinator: save frame %d: %w", c.frame, err)
	}
	c.frame++
	return nil
}

// Frame returns the current frame counter.
func (c *Coordinator) Frame() int { return c.frame }
