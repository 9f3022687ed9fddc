package compiler

import (
	"sort"
	"sync"

	"github.com/conneroisu/xtpl/internal/resolved"
)

// Source is the composed text of one partial as it was handed to the
// compiler.
type Source struct {
	ID      string `json:"id"`
	Partial string `json:"partial"`
	Text    string `json:"text"`
}

// Recorder keeps the composed source of everything compiled through it, for
// ahead-of-time packaging by the build command.
type Recorder struct {
	mu      sync.Mutex
	sources map[string]Source
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{sources: make(map[string]Source)}
}

// Wrap returns a compiler that records its input before delegating to next.
func (r *Recorder) Wrap(next Func) Func {
	return func(text, name string, t *resolved.Template) (resolved.Artifact, error) {
		id := ""
		if t != nil {
			id = t.ID
		}
		r.mu.Lock()
		r.sources[id+"\x00"+name] = Source{ID: id, Partial: name, Text: text}
		r.mu.Unlock()
		return next(text, name, t)
	}
}

// Sources returns the recorded sources ordered by id and partial.
func (r *Recorder) Sources() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Partial < out[j].Partial
	})
	return out
}
