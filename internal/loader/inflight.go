package loader

import (
	"fmt"
	"sync"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/resolved"
)

// call is one in-flight resolution. template and err are set before done is
// closed.
type call struct {
	id       string
	done     chan struct{}
	template *resolved.Template
	err      error
}

// waitGraph holds the in-flight calls and, for each, the calls it currently
// waits on.
type waitGraph struct {
	mu       sync.Mutex
	inflight map[string]*call
	edges    map[*call]map[*call]int
}

func newWaitGraph() *waitGraph {
	return &waitGraph{
		inflight: make(map[string]*call),
		edges:    make(map[*call]map[*call]int),
	}
}

// join returns the in-flight call for id, creating it when none exists, and
// records that from waits on it. started reports whether the caller created
// the call and must run it. A nil call means id completed in the meantime.
func (g *waitGraph) join(store Store, from *call, id string) (c *call, started bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := store.Load(id); ok {
		return nil, false, nil
	}

	c, ok := g.inflight[id]
	if !ok {
		c = &call{id: id, done: make(chan struct{})}
		g.inflight[id] = c
		started = true
	} else if from != nil && g.reaches(c, from) {
		fromID := from.id
		return nil, false, xterrors.NewDependencyError(xterrors.ErrCodeDependencyCycle, fromID, id,
			fmt.Errorf("%s depends on itself through %s", fromID, id))
	}

	if from != nil {
		if g.edges[from] == nil {
			g.edges[from] = make(map[*call]int)
		}
		g.edges[from][c]++
	}
	return c, started, nil
}

// leave removes one wait of from on c.
func (g *waitGraph) leave(from, c *call) {
	g.mu.Lock()
	defer g.mu.Unlock()

	waits, ok := g.edges[from]
	if !ok {
		return
	}
	if waits[c]--; waits[c] <= 0 {
		delete(waits, c)
	}
	if len(waits) == 0 {
		delete(g.edges, from)
	}
}

// finish settles c and clears its in-flight slot. The caller stores a
// successful template before calling finish so that no request sees neither.
func (g *waitGraph) finish(c *call, t *resolved.Template, err error) {
	g.mu.Lock()
	delete(g.inflight, c.id)
	delete(g.edges, c)
	g.mu.Unlock()

	c.template, c.err = t, err
	close(c.done)
}

// reaches reports whether from is target or waits on it, directly or
// transitively. Must be called with mu held.
func (g *waitGraph) reaches(from, target *call) bool {
	seen := make(map[*call]bool)
	stack := []*call{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == target {
			return true
		}
		if seen[current] {
			continue
		}
		seen[current] = true
		for next := range g.edges[current] {
			stack = append(stack, next)
		}
	}
	return false
}

// pending returns the number of in-flight calls.
func (g *waitGraph) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
