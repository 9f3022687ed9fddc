package registry

import (
	"sort"

	"github.com/conneroisu/xtpl/internal/resolved"
)

// Dependencies returns the ids of the files t includes or extends, sorted.
func Dependencies(t *resolved.Template) []string {
	seen := make(map[string]bool)
	for _, alias := range t.Includes.Keys() {
		if dep, ok := t.Includes.Get(alias); ok && dep.ID != t.ID {
			seen[dep.ID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DependencyGraph maps every stored id to the ids it depends on.
func (r *TemplateRegistry) DependencyGraph() map[string][]string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	graph := make(map[string][]string, len(r.templates))
	for id, entry := range r.templates {
		graph[id] = Dependencies(entry.Template)
	}
	return graph
}

// Dependents returns the stored ids that depend on id, directly or
// transitively, sorted.
func (r *TemplateRegistry) Dependents(id string) []string {
	reverse := make(map[string][]string)
	for from, deps := range r.DependencyGraph() {
		for _, dep := range deps {
			reverse[dep] = append(reverse[dep], from)
		}
	}

	seen := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range reverse[current] {
			if !seen[dependent] && dependent != id {
				seen[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}

	result := make([]string, 0, len(seen))
	for dependent := range seen {
		result = append(result, dependent)
	}
	sort.Strings(result)
	return result
}
