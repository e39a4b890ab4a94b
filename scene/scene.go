// Package scene implements the scene and evaluation kernel (spec §4.4):
// time, scheduler, dirty propagation and graph regeneration. It keeps the
// teacher's Scene surface (engine/scene/scene.go: Name/Active/Camera/
// Renderer/Add/Get/Remove/Clear) but replaces its per-frame
// worker.DynamicWorkerPool fan-out with the single-threaded fixed-point
// evaluator spec §5 mandates — see DESIGN.md for the dropped-dependency
// rationale.
package scene

import (
	"log/slog"
	"strconv"

	"github.com/brightloom/corerender/asset"
	"github.com/brightloom/corerender/object"
)

// Scene holds render resolution, time, a random seed, and the ordered scene
// list (spec §4.4).
type Scene struct {
	Name     string
	Width    int
	Height   int
	Time     float32
	Seed     int64
	CameraID object.ID

	registry  *asset.Registry
	sceneList []object.ID
	inScene   map[object.ID]bool

	log *slog.Logger
}

// New returns an empty scene backed by the given registry.
func New(name string, registry *asset.Registry) *Scene {
	return &Scene{
		Name:     name,
		CameraID: object.Null,
		registry: registry,
		inScene:  make(map[object.ID]bool),
		log:      slog.Default().With("scene", name),
	}
}

// Registry returns the asset registry backing this scene's objects.
func (s *Scene) Registry() *asset.Registry { return s.registry }

// Add appends an object id to the scene list if not already present.
func (s *Scene) Add(id object.ID) {
	if s.inScene[id] {
		return
	}
	s.sceneList = append(s.sceneList, id)
	s.inScene[id] = true
}

// Remove deletes an object id from the scene list (order of the remainder
// is not preserved — the scene list has no positional meaning).
func (s *Scene) Remove(id object.ID) {
	if !s.inScene[id] {
		return
	}
	for i, v := range s.sceneList {
		if v == id {
			last := len(s.sceneList) - 1
			s.sceneList[i] = s.sceneList[last]
			s.sceneList = s.sceneList[:last]
			break
		}
	}
	delete(s.inScene, id)
}

// Clear empties the scene list.
func (s *Scene) Clear() {
	s.sceneList = s.sceneList[:0]
	s.inScene = make(map[object.ID]bool)
}

// List returns the scene's object ids in insertion order.
func (s *Scene) List() []object.ID { return s.sceneList }

// Execute is the fixed-point evaluator (spec §4.4).
//
// If advance is true, time is set to t and every visible, time-dependent
// object in the scene list is marked dirty when t falls within its
// TimeRange, clean otherwise. The stabilization loop then repeatedly scans
// the scene list running every dirty object, counting how many ran; it
// exits when that count reaches zero or — the self-dirtying fixed point
// from spec §9 — fails to decrease from the previous iteration. Asset
// objects are not told apart: both passes treat every object in the scene
// list alike.
func (s *Scene) Execute(advance bool, t, dt float32, debug bool) error {
	if advance {
		s.Time = t
		for _, id := range s.sceneList {
			obj := s.registry.GetObj(id)
			if obj == nil || !obj.Visible || !obj.IsTimeDependent() {
				continue
			}
			if t >= obj.TimeRange.Start && t <= obj.TimeRange.End {
				obj.MarkDirty()
			} else {
				obj.MarkClean()
			}
		}
	}

	prevDirty := -1
	for {
		dirtyCount := 0
		for _, id := range s.sceneList {
			obj := s.registry.GetObj(id)
			if obj == nil || !obj.IsDirty() {
				continue
			}
			dirtyCount++
			if err := obj.Behavior.Run(obj, t); err != nil {
				return err
			}
		}
		if dirtyCount == 0 {
			return nil
		}
		if prevDirty >= 0 && dirtyCount >= prevDirty {
			if debug {
				s.log.Warn("evaluation fixed point reached without full stabilization",
					"dirtyCount", dirtyCount, "sceneSize", len(s.sceneList))
			}
			return nil
		}
		prevDirty = dirtyCount
	}
}

// RegenerateSubgraph clears each node's output, seeds its "seed" parameter
// if declared, invokes Generate then Run, and re-adds the (possibly new)
// output to the scene (spec §4.4).
func (s *Scene) RegenerateSubgraph(ids []object.ID, seed int64, t float32) error {
	for _, id := range ids {
		obj := s.registry.GetObj(id)
		if obj == nil {
			continue
		}
		if obj.Output != object.Null {
			s.registry.DeleteObject(s.registry.GetObj(obj.Output))
			obj.Output = object.Null
		}
		if _, ok := obj.Params.Get("seed"); ok {
			_ = obj.Params.SetParam("seed", strconv.FormatInt(seed, 10))
		}
		obj.Behavior.Generate(obj, s.Width, s.Height)
		if err := obj.Behavior.Run(obj, t); err != nil {
			return err
		}
		obj.MarkClean()
		s.AddOutputToScene(obj)
	}
	return nil
}

// RebuildSubgraph repeats RegenerateSubgraph until every node reports
// complete — used when an object's completeness depends on newly-generated
// siblings (spec §4.4).
func (s *Scene) RebuildSubgraph(ids []object.ID, seed int64, t float32) error {
	for {
		if err := s.RegenerateSubgraph(ids, seed, t); err != nil {
			return err
		}
		allComplete := true
		for _, id := range ids {
			obj := s.registry.GetObj(id)
			if obj != nil && !obj.IsComplete() {
				allComplete = false
				break
			}
		}
		if allComplete {
			return nil
		}
	}
}

// AddOutputToScene propagates the local transform to the output object and
// inserts it into the scene list if not already present, so downstream
// consumers can find it by walking the scene (spec §4.4).
func (s *Scene) AddOutputToScene(obj *object.Object) {
	if obj.Output == object.Null {
		return
	}
	out := s.registry.GetObj(obj.Output)
	if out == nil {
		return
	}
	out.Transform = obj.Transform
	s.Add(obj.Output)
}
