package asset

import (
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Prefetch warms the OS file cache for every asset AddAssetPath has
// recorded but not yet loaded, using a bounded worker pool. This is the one
// place in the core that keeps the teacher's goroutine worker pool (spec
// §5's single-threaded scheduling model excludes it from the frame-critical
// path entirely): prefetching runs once, off the frame loop, and its
// failures are logged, never propagated — a cold file is simply loaded
// synchronously later by FindOrLoadObject. Grounded on
// engine/scene/scene.go's compute-pool usage (worker.NewDynamicWorkerPool,
// worker.Task{ID, Do}), generalized from per-frame animator prep tasks to a
// one-shot directory warm-up.
func (r *Registry) Prefetch(workers int) {
	r.mu.RLock()
	files := make([]assetFile, len(r.files))
	copy(files, r.files)
	r.mu.RUnlock()

	if len(files) == 0 {
		return
	}
	if workers <= 0 {
		workers = 4
	}

	pool := worker.NewDynamicWorkerPool(workers, len(files), time.Second)
	var wg sync.WaitGroup
	for i, af := range files {
		wg.Add(1)
		path := af.path
		taskID := i
		pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				f, err := os.Open(path)
				if err != nil {
					r.log.Warn("prefetch: open failed", "path", path, "err", err)
					return nil, err
				}
				defer f.Close()
				buf := make([]byte, 64*1024)
				for {
					if _, err := f.Read(buf); err != nil {
						break
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}
