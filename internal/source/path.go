package source

import (
	"path"
	"strings"
)

// Options holds the naming conventions of the file format. The zero value is
// not usable; start from DefaultOptions.
type Options struct {
	// Extension is appended to include paths that have none.
	Extension string
	// DefaultPartial names untitled templates and untagged files.
	DefaultPartial string
	// SuperAlias is the alias bound by an extend tag without one.
	SuperAlias string
	// ModuleID identifies this engine in the module attribute of require.
	ModuleID string
}

// DefaultOptions returns the conventional settings.
func DefaultOptions() Options {
	return Options{
		Extension:      "html",
		DefaultPartial: "main",
		SuperAlias:     "super",
		ModuleID:       "xt",
	}
}

// AddExtension appends the default extension when p has none, that is when
// no '.' occurs after the last '/'.
func (o Options) AddExtension(p string) string {
	if o.Extension == "" || strings.LastIndex(p, ".") > strings.LastIndex(p, "/") {
		return p
	}
	return p + "." + o.Extension
}

// NormalizeID turns a requested path into a template id.
func (o Options) NormalizeID(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return o.AddExtension(path.Clean(p))
}

// ParseName splits a request of the form "<path>:<partial>" into a template
// id and a partial name; the partial defaults to DefaultPartial.
func (o Options) ParseName(name string) (id, partial string) {
	p := name
	if i := strings.LastIndex(name, ":"); i >= 0 {
		p, partial = name[:i], name[i+1:]
	}
	if partial == "" {
		partial = o.DefaultPartial
	}
	return o.NormalizeID(p), partial
}

// IsRelative reports whether p is relative to the file that references it.
func IsRelative(p string) bool {
	return p == "." || p == ".." || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../")
}

// ResolvePath resolves p against the directory of parentID when p is
// relative. Any other p is returned unchanged.
func ResolvePath(parentID, p string) string {
	if IsRelative(p) {
		return path.Join(path.Dir(parentID), p)
	}
	return p
}
