package listview

import (
	"log/slog"
	"sync"
)

type viewKey struct {
	session  string
	resource string
}

// Registry holds the mounted views, one per session and resource.
type Registry struct {
	mu    sync.Mutex
	views map[viewKey]*View
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[viewKey]*View)}
}

// Put registers v for session, closing any view it replaces.
// POST: Get(session, v.Resource()) returns v
func (r *Registry) Put(session string, v *View) {
	k := viewKey{session: session, resource: v.Resource()}
	r.mu.Lock()
	old := r.views[k]
	r.views[k] = v
	r.mu.Unlock()
	if old != nil && old != v {
		old.Close()
	}
}

// Get returns the view session has mounted for resource.
func (r *Registry) Get(session, resource string) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[viewKey{session: session, resource: resource}]
	return v, ok
}

// Remove unmounts the view for session and resource.
// It reports whether one was mounted.
func (r *Registry) Remove(session, resource string) bool {
	k := viewKey{session: session, resource: resource}
	r.mu.Lock()
	v, ok := r.views[k]
	delete(r.views, k)
	r.mu.Unlock()
	if ok {
		v.Close()
	}
	return ok
}

// DropSession unmounts every view of session and returns how many there were.
func (r *Registry) DropSession(session string) int {
	var dropped []*View
	r.mu.Lock()
	for k, v := range r.views {
		if k.session == session {
			dropped = append(dropped, v)
			delete(r.views, k)
		}
	}
	r.mu.Unlock()
	for _, v := range dropped {
		v.Close()
	}
	if len(dropped) > 0 {
		slog.Debug("view_event", "event", "session_dropped", "views", len(dropped))
	}
	return len(dropped)
}

// Len returns the number of mounted views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close unmounts every view.
func (r *Registry) Close() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[viewKey]*View)
	r.mu.Unlock()
	for _, v := range views {
		v.Close()
	}
}
