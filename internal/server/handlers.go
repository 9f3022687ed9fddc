package server

import (
	"bytes"
	"encoding/json"
	"html"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conneroisu/xtpl/internal/compiler"
	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/registry"
	"github.com/conneroisu/xtpl/internal/version"
)

const reloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onmessage = function (event) {
      var message = JSON.parse(event.data);
      if (message.type === "reload") { location.reload(); }
    };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }
  connect();
})();
</script>`

// TemplateInfo describes one resolved template in /api/templates.
type TemplateInfo struct {
	ID           string   `json:"id"`
	Partials     []string `json:"partials"`
	Dependencies []string `json:"dependencies,omitempty"`
	Extends      string   `json:"extends,omitempty"`
	// ResolvedAt is zero when the loader store does not record it.
	ResolvedAt time.Time `json:"resolved_at"`
}

type entryStore interface {
	Entry(id string) (registry.Entry, bool)
}

// handleRender renders one partial. Query parameters other than partial and
// raw are passed to the artifact as data.
func (s *PreviewServer) handleRender(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if !fs.ValidPath(path) || path == "." {
		http.Error(w, "Invalid template path", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	partial := query.Get("partial")
	data := make(map[string]any)
	for key, values := range query {
		if key == "partial" || key == "raw" || len(values) == 0 {
			continue
		}
		data[key] = values[0]
	}

	artifact, err := s.Loader().Fetch(r.Context(), path, partial)
	if err != nil {
		s.errorHandler.Handle(r.Context(), err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := compiler.Component(artifact, data).Render(r.Context(), &buf); err != nil {
		s.errorHandler.Handle(r.Context(), err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body := buf.String()
	if s.config.Development.HotReload && !query.Has("raw") {
		body = injectReloadScript(body)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func injectReloadScript(body string) string {
	if i := strings.LastIndex(strings.ToLower(body), "</body>"); i >= 0 {
		return body[:i] + reloadScript + body[i:]
	}
	return body + reloadScript
}

func statusFor(err error) int {
	switch {
	case xterrors.IsTransport(err):
		return http.StatusNotFound
	case xterrors.IsParseReference(err):
		return http.StatusUnprocessableEntity
	case xterrors.IsDependency(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *PreviewServer) templateInfos() []TemplateInfo {
	l := s.Loader()
	entries, _ := l.Store().(entryStore)
	ids := l.IDs()
	infos := make([]TemplateInfo, 0, len(ids))
	for _, id := range ids {
		t, ok := l.Template(id)
		if !ok {
			continue
		}
		info := TemplateInfo{
			ID:           t.ID,
			Partials:     t.Names(),
			Dependencies: registry.Dependencies(t),
		}
		if t.Inherits != nil {
			info.Extends = t.Inherits.ParentID
		}
		if entries != nil {
			if entry, ok := entries.Entry(id); ok {
				info.ResolvedAt = entry.ResolvedAt
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func (s *PreviewServer) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.templateInfos())
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>xtpl preview</title></head><body>\n<h1>Resolved templates</h1>\n<ul>\n")
	for _, info := range s.templateInfos() {
		for _, partial := range info.Partials {
			link := "/render/" + info.ID + "?partial=" + url.QueryEscape(partial)
			b.WriteString(`<li><a href="` + html.EscapeString(link) + `">` +
				html.EscapeString(info.ID+":"+partial) + "</a></li>\n")
		}
	}
	b.WriteString("</ul>\n</body></html>\n")

	body := b.String()
	if s.config.Development.HotReload {
		body = injectReloadScript(body)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"templates": len(s.Loader().IDs()),
		"clients":   s.clientCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
