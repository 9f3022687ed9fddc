package resolved

import "sort"

// Layer is a map that falls back to a parent layer on a miss. Writes only
// touch the layer itself, so a parent shared by several children never
// changes underneath them.
type Layer[V any] struct {
	own    map[string]V
	parent *Layer[V]
}

// NewLayer creates an empty layer on top of parent, which may be nil.
func NewLayer[V any](parent *Layer[V]) *Layer[V] {
	return &Layer[V]{own: make(map[string]V), parent: parent}
}

// Get looks key up in this layer and then in each ancestor.
func (l *Layer[V]) Get(key string) (V, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if v, ok := cur.own[key]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Has reports whether key is defined in this layer or an ancestor.
func (l *Layer[V]) Has(key string) bool {
	_, ok := l.Get(key)
	return ok
}

// Set defines key in this layer, shadowing any inherited value.
func (l *Layer[V]) Set(key string, v V) {
	l.own[key] = v
}

// Owns reports whether key is defined in this layer itself.
func (l *Layer[V]) Owns(key string) bool {
	_, ok := l.own[key]
	return ok
}

// Keys returns the merged key set, sorted.
func (l *Layer[V]) Keys() []string {
	seen := make(map[string]struct{})
	for cur := l; cur != nil; cur = cur.parent {
		for k := range cur.own {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the size of the merged key set.
func (l *Layer[V]) Len() int {
	return len(l.Keys())
}

// Parent returns the layer this one falls back to.
func (l *Layer[V]) Parent() *Layer[V] {
	return l.parent
}
