package daemon

import (
	"time"

	"github.com/1broseidon/winplace/internal/platform"
)

// DefaultReconcileInterval is how often the dispatched set is checked
// against the live window list.
const DefaultReconcileInterval = 30 * time.Second

// reconcileLoop prunes dispatched ids until the dispatcher shuts down.
func (d *Dispatcher) reconcileLoop(interval time.Duration) {
	defer d.inflight.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.quit:
			return
		case <-ticker.C:
			d.reconcile()
		}
	}
}

// reconcile forgets dispatched windows that no longer exist. A missed close
// notification would otherwise suppress a window that reuses the id.
// Only ids claimed before the listing are candidates, so a window claimed
// concurrently is never pruned.
func (d *Dispatcher) reconcile() int {
	defer func() {
		if r := recover(); r != nil {
			d.sink.Logger().Error().Interface("panic", r).Msg("reconcile panic recovered")
		}
	}()

	d.mu.Lock()
	candidates := make([]platform.WindowID, 0, len(d.dispatched))
	for id := range d.dispatched {
		candidates = append(candidates, id)
	}
	d.mu.Unlock()
	if len(candidates) == 0 {
		return 0
	}

	live, err := d.backend.TopLevelWindows()
	if err != nil {
		d.sink.Error("reconcile: failed to list windows", err)
		return 0
	}
	alive := make(map[platform.WindowID]struct{}, len(live))
	for _, id := range live {
		alive[id] = struct{}{}
	}

	pruned := 0
	for _, id := range candidates {
		if _, ok := alive[id]; !ok {
			d.forget(id)
			pruned++
		}
	}
	if pruned > 0 {
		d.sink.Logger().Debug().Int("pruned", pruned).Msg("reconciled dispatched windows")
	}
	return pruned
}
