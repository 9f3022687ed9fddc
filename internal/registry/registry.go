// Package registry keeps the resolved templates of a loader and notifies
// watchers when entries change.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/xtpl/internal/resolved"
)

// TemplateRegistry stores resolved templates by id. Entries are never
// evicted.
type TemplateRegistry struct {
	templates map[string]*Entry
	mutex     sync.RWMutex
	watchers  []chan TemplateEvent
}

// Entry is a stored template and the time it was resolved.
type Entry struct {
	Template   *resolved.Template
	ResolvedAt time.Time
}

// TemplateEvent represents a change in the registry.
type TemplateEvent struct {
	Type      EventType
	ID        string
	Template  *resolved.Template
	Timestamp time.Time
}

// EventType represents the type of template event.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
)

func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// New creates an empty registry.
func New() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]*Entry),
		watchers:  make([]chan TemplateEvent, 0),
	}
}

// Store adds or replaces the template stored under t.ID.
func (r *TemplateRegistry) Store(t *resolved.Template) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := r.templates[t.ID]; exists {
		eventType = EventTypeUpdated
	}
	now := time.Now()
	r.templates[t.ID] = &Entry{Template: t, ResolvedAt: now}

	r.notify(TemplateEvent{Type: eventType, ID: t.ID, Template: t, Timestamp: now})
}

// Load returns the template stored under id.
func (r *TemplateRegistry) Load(id string) (*resolved.Template, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.templates[id]
	if !exists {
		return nil, false
	}
	return entry.Template, true
}

// Entry returns the entry stored under id.
func (r *TemplateRegistry) Entry(id string) (Entry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.templates[id]
	if !exists {
		return Entry{}, false
	}
	return *entry, true
}

// IDs returns the stored ids, sorted.
func (r *TemplateRegistry) IDs() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Watch returns a channel that receives template events.
func (r *TemplateRegistry) Watch() <-chan TemplateEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan TemplateEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *TemplateRegistry) UnWatch(ch <-chan TemplateEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of stored templates.
func (r *TemplateRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.templates)
}

// notify must be called with the mutex held.
func (r *TemplateRegistry) notify(event TemplateEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
