package uploader

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry keeps one Widget per browser session.
type Registry struct {
	newWidget func() *Widget
	idle      time.Duration
	now       func() time.Time

	mu      sync.Mutex
	widgets map[string]*Widget
}

// NewRegistry returns a Registry that creates widgets with newWidget and
// evicts them after idle without activity.
func NewRegistry(newWidget func() *Widget, idle time.Duration) *Registry {
	return &Registry{
		newWidget: newWidget,
		idle:      idle,
		now:       time.Now,
		widgets:   make(map[string]*Widget),
	}
}

// Get returns the widget for session id, creating it on first use. The
// lookup counts as activity; it happens under the same lock Sweep holds, so
// a widget returned here is never evicted before the next idle period.
func (r *Registry) Get(id string) *Widget {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.widgets[id]
	if !ok {
		w = r.newWidget()
		r.widgets[id] = w
	}
	w.touch()
	return w
}

// Len reports the number of live widgets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

// Sweep evicts idle widgets and returns how many were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, w := range r.widgets {
		if w.expire(cutoff) {
			delete(r.widgets, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.DebugContext(ctx, "evicted idle upload sessions", "count", n)
			}
		}
	}
}
