// Package asset implements the stable name→object registry (spec §4.1),
// modeled on engine/loader/loader.go's "sync.RWMutex guarding a
// map[string]model.Model cache" shape, generalized from a single
// model-object cache keyed by path into the dense id/name registry that
// owns every Object in the graph (spec §9 "Registry exclusively owns all
// Objects; every other handle is a back-reference by id").
package asset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/brightloom/corerender/object"
)

// Factory builds the Behavior implementation for a Kind. Registered once per
// kind at process start, mirroring the teacher's loader-backend-type switch
// (engine/loader/loader.go's LoaderBackendType) generalized to an open map.
type Factory func() object.Behavior

// fileTypeMap dispatches a lower-cased file extension to the Kind an
// AddAssetPath scan should create for it (spec §4.1: "jpg/png/tga/tif →
// image, obj/ply → mesh, frag.glsl → shader, etc.").
var fileTypeMap = map[string]object.Kind{
	".jpg":  object.KindImage,
	".jpeg": object.KindImage,
	".png":  object.KindImage,
	".tga":  object.KindImage,
	".tif":  object.KindImage,
	".tiff": object.KindImage,
	".obj":  object.KindMesh,
	".ply":  object.KindMesh,
	".gltf": object.KindMesh,
	".glb":  object.KindMesh,
	".glsl": object.KindShader,
}

// assetFile is a recorded-but-not-yet-loaded asset path (spec §4.1
// AddAssetPath: "scans a directory, recording (path, name, extension)
// tuples without loading").
type assetFile struct {
	path string
	name string
	kind object.Kind
}

// Registry is the process-lifetime (or scene-lifetime) owner of every
// Object. Per spec §9's "Global state" note it is modeled as an explicit
// Context rather than a package-level singleton.
type Registry struct {
	mu sync.RWMutex

	byID   []*object.Object // dense; deleted slots are nil, never compacted
	byName map[string]object.ID

	factories map[object.Kind]Factory

	files      []assetFile
	filesByKey map[string]int // base filename (no ext) -> index into files

	log *slog.Logger
}

// NewRegistry returns an empty registry with the given kind factories
// registered (spec §9's 20-25 kind table).
func NewRegistry(factories map[object.Kind]Factory) *Registry {
	return &Registry{
		byName:     make(map[string]object.ID),
		factories:  factories,
		filesByKey: make(map[string]int),
		log:        slog.Default().With("component", "asset.Registry"),
	}
}

// AddObject creates a new object of the given kind and name and calls its
// Define hook once. Unknown kinds fail loudly (spec §4.1: "fails loudly on
// creation of an unknown type").
func (r *Registry) AddObject(kind object.Kind, name string) (*object.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addObjectLocked(kind, name)
}

func (r *Registry) addObjectLocked(kind object.Kind, name string) (*object.Object, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("asset: unknown object kind %q", kind)
	}
	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("asset: name %q already registered", name)
	}
	id := object.ID(len(r.byID))
	obj := object.New(id, name, kind, factory())
	r.byID = append(r.byID, obj)
	r.byName[name] = id
	obj.Behavior.Define(obj, 0, 0)
	return obj, nil
}

// LoadObjectFromFile creates an object of the given kind and name and marks
// it as file-backed by recording the path as a parameter; actual file
// parsing is left to the kind-specific loader (gltfload, image decode,
// etc.) invoked by the caller, matching the teacher's loader/registry split.
func (r *Registry) LoadObjectFromFile(kind object.Kind, name, path string) (*object.Object, error) {
	obj, err := r.AddObject(kind, name)
	if err != nil {
		return nil, err
	}
	if err := obj.Params.SetParam("sourcePath", path); err != nil {
		return nil, err
	}
	return obj, nil
}

// FindObj looks up an object by name. Per spec §4.1/§7 a lookup miss is
// non-fatal: it returns nil, false rather than an error.
func (r *Registry) FindObj(name string) (*object.Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// GetObj resolves an id to its Object, or nil if the slot was deleted or the
// id is out of range.
func (r *Registry) GetObj(id object.ID) *object.Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || int(id) >= len(r.byID) {
		return nil
	}
	return r.byID[id]
}

// DeleteObject nulls the object's slot. Per spec §4.1 deletion does not
// compact the dense id array, and per spec §9 every cached handle elsewhere
// in the engine must be treated as invalid and re-resolved.
func (r *Registry) DeleteObject(obj *object.Object) {
	if obj == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(obj.ID) < len(r.byID) && r.byID[obj.ID] == obj {
		r.byID[obj.ID] = nil
	}
	delete(r.byName, obj.Name)
	if obj.Output != object.Null {
		if out := r.byID[obj.Output]; out != nil {
			r.deleteByIDLocked(obj.Output)
		}
	}
}

func (r *Registry) deleteByIDLocked(id object.ID) {
	if int(id) >= len(r.byID) || r.byID[id] == nil {
		return
	}
	victim := r.byID[id]
	r.byID[id] = nil
	delete(r.byName, victim.Name)
}

// AddAssetPath scans a directory non-recursively, recording (path, name,
// extension) tuples without loading (spec §4.1).
func (r *Registry) AddAssetPath(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("asset: scan %s: %w", dir, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		kind, ok := fileTypeMap[ext]
		if !ok {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		af := assetFile{path: filepath.Join(dir, e.Name()), name: base, kind: kind}
		r.filesByKey[base] = len(r.files)
		r.files = append(r.files, af)
	}
	return nil
}

// FindOrLoadObject performs lazy materialization: a name lookup first, then
// a scan of recorded asset files matching by base name (spec §4.1).
func (r *Registry) FindOrLoadObject(name string) (*object.Object, error) {
	if obj, ok := r.FindObj(name); ok {
		return obj, nil
	}
	r.mu.RLock()
	idx, ok := r.filesByKey[name]
	r.mu.RUnlock()
	if !ok {
		r.log.Warn("asset not found", "name", name)
		return nil, nil
	}
	af := r.files[idx]
	return r.LoadObjectFromFile(af.kind, af.name, af.path)
}

// Count returns the number of live (non-deleted) objects.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, o := range r.byID {
		if o != nil {
			n++
		}
	}
	return n
}
