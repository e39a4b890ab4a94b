// Command coreview is the thin CLI named in spec §6.5: it accepts a single
// positional scene-file argument and exits non-zero on load failure.
// Grounded on the structure of the deleted examples/scene.go entry point
// (a bare func main() constructing a registry/scene and loading one file),
// adapted to the scene text format (package sceneformat/sceneload) instead
// of the teacher's programmatic Go scene construction. After loading, it
// drives one real frame through package coordinator (spec §4.9) against a
// raster.Backend, the same StartRender/Render/EndRender/SaveFrame sequence
// the interactive path would use, and saves the result next to the input
// scene file.
//
// Neither real output here is wired to a window: the wgpu device
// (engine/renderer/wgpu_renderer_backend.go) needs a live surface, which
// this headless CLI never creates, so the backend runs against
// softwareDevice (device.go), a minimal CPU framebuffer. And the scene
// graph is not yet reduced to sort-core groups anywhere in this module (no
// shape.Container is ever built from a loaded scene.Scene) — see
// DESIGN.md — so the frame coreview renders has no geometry in it. What
// this does prove end to end is the coordinator/backend contract itself:
// registration, StartRender/Render/EndRender, and a real SaveFrame to
// disk.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/brightloom/corerender/asset"
	"github.com/brightloom/corerender/coordinator"
	"github.com/brightloom/corerender/object"
	"github.com/brightloom/corerender/raster"
	"github.com/brightloom/corerender/scene"
	"github.com/brightloom/corerender/sceneformat"
	"github.com/brightloom/corerender/sceneload"
)

// defaultWidth/defaultHeight back a scene whose globals never set a
// resolution (package sceneload has no KindGlobals wiring for it yet).
const (
	defaultWidth  = 1920
	defaultHeight = 1080
	shadowMapSize = 2048
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: coreview <scene-file>")
		os.Exit(1)
	}
	if err := run(os.Args[1]); err != nil {
		slog.Error("load failed", "err", err)
		os.Exit(1)
	}
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("coreview: %w", err)
	}
	defer f.Close()

	doc, err := sceneformat.Parse(f)
	if err != nil {
		return fmt.Errorf("coreview: %w", err)
	}

	reg := asset.NewRegistry(defaultFactories())
	scn := scene.New(path, reg)

	count, err := sceneload.Build(reg, scn, doc)
	if err != nil {
		return fmt.Errorf("coreview: %w", err)
	}
	slog.Info("scene loaded", "objects", count, "path", path)

	if scn.Width <= 0 || scn.Height <= 0 {
		scn.Width, scn.Height = defaultWidth, defaultHeight
	}

	coord := coordinator.New(scn)
	dev := newSoftwareDevice(scn.Width, scn.Height)
	backend := raster.NewBackend(dev, nil, raster.DefaultCascadeSplits, shadowMapSize)
	coord.RegisterBackend("raster", backend, 0)

	coord.SetOutputFormat(outputPathFor(path))
	if err := coord.EnableRecording("raster", 0); err != nil {
		return fmt.Errorf("coreview: %w", err)
	}

	if err := coord.DoAdvance(scn.Time, 0); err != nil {
		return fmt.Errorf("coreview: %w", err)
	}
	if err := coord.Render(scn.Width, scn.Height); err != nil {
		return fmt.Errorf("coreview: %w", err)
	}
	if err := coord.RecordFrame(); err != nil {
		return fmt.Errorf("coreview: %w", err)
	}
	slog.Info("frame rendered", "frame", coord.Frame())
	return nil
}

// outputPathFor turns path into a Printf frame-number format next to the
// scene file, matching the coordinator's own "out%05d.png" default
// convention (RecordFrame does a bare fmt.Sprintf(format, frame), so the
// %05d verb must stay intact). The raster backend is not progressive
// (Progressive() == false), so RecordFrame's prevComplete gate always
// passes on the first frame.
func outputPathFor(path string) string {
	base := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		base = path[:i]
	}
	return base + "-%05d.png"
}

// noopBehavior is the placeholder Behavior every kind gets when the CLI
// loads a scene with no renderer attached: Define/Generate/Run are no-ops,
// since evaluating shapes and uploading them to a backend is the
// coordinator's job (package coordinator), not the scene loader's.
type noopBehavior struct{}

func (noopBehavior) Define(obj *object.Object, width, height int)   {}
func (noopBehavior) Generate(obj *object.Object, width, height int) {}
func (noopBehavior) Run(obj *object.Object, t float32) error        { return nil }

func defaultFactories() map[object.Kind]asset.Factory {
	factory := func() object.Behavior { return noopBehavior{} }
	kinds := []object.Kind{
		object.KindGlobals, object.KindModule, object.KindScatter, object.KindInstance,
		object.KindLights, object.KindCamera, object.KindMesh, object.KindLoft,
		object.KindHeightfield, object.KindDisplace, object.KindPointsys, object.KindCharacter,
		object.KindMotion, object.KindParts, object.KindMuscles, object.KindVolume,
		object.KindMaterial, object.KindShapes, object.KindImage, object.KindShader,
		object.KindPoints, object.KindParams,
	}
	out := make(map[object.Kind]asset.Factory, len(kinds))
	for _, k := range kinds {
		out[k] = factory
	}
	return out
}
