package source

import (
	"strings"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
)

// Tag is one `<x-NAME attrs>` opening tag found in a piece of text.
type Tag struct {
	Name  string
	Attrs Attrs
	// Start and End delimit the opening tag in the scanned text.
	Start int
	End   int
}

// Attrs holds the attributes of a tag.
type Attrs map[string]string

// Get returns the value of key, or def when it is absent or empty.
func (a Attrs) Get(key, def string) string {
	if v := a[key]; v != "" {
		return v
	}
	return def
}

const tagPrefix = "<x-"

// ScanTags returns every opening tag whose name is in names, in document
// order. Tags with other names are skipped. An opening tag without its
// closing '>' is an error.
func ScanTags(text string, names ...string) ([]Tag, error) {
	var tags []Tag
	for pos := 0; ; {
		tag, ok, err := nextTag(text, pos, names)
		if err != nil {
			return nil, err
		}
		if !ok {
			return tags, nil
		}
		tags = append(tags, tag)
		pos = tag.End
	}
}

// nextTag finds the first wanted tag at or after pos.
func nextTag(text string, pos int, names []string) (Tag, bool, error) {
	for {
		i := strings.Index(text[pos:], tagPrefix)
		if i < 0 {
			return Tag{}, false, nil
		}
		start := pos + i
		nameStart := start + len(tagPrefix)
		nameEnd := nameStart
		for nameEnd < len(text) && isNameByte(text[nameEnd]) {
			nameEnd++
		}
		name := text[nameStart:nameEnd]
		if !wanted(name, names) || (nameEnd < len(text) && !isTagBoundary(text[nameEnd])) {
			pos = nameStart
			continue
		}

		end, ok := closeBracket(text, nameEnd)
		if !ok {
			return Tag{}, false, xterrors.NewParseReferenceError(xterrors.ErrCodeUnterminatedTag, "", name,
				"unterminated <x-"+name+"> tag").WithContext("offset", start)
		}
		body := strings.TrimSpace(text[nameEnd : end-1])
		body = strings.TrimSpace(strings.TrimSuffix(body, "/"))

		return Tag{
			Name:  name,
			Attrs: ParseAttrs(body),
			Start: start,
			End:   end,
		}, true, nil
	}
}

// closeBracket returns the offset just past the '>' ending a tag whose
// attributes begin at from, skipping '>' inside quoted values.
func closeBracket(text string, from int) (int, bool) {
	var quote byte
	for i := from; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i + 1, true
		}
	}
	return 0, false
}

// findClose returns the offsets of the first `</x-NAME>` at or after from.
func findClose(text, name string, from int) (int, int, bool) {
	closing := "</x-" + name + ">"
	i := strings.Index(text[from:], closing)
	if i < 0 {
		return 0, 0, false
	}
	return from + i, from + i + len(closing), true
}

// ParseAttrs splits whitespace-separated key=value pairs. Values may be
// single or double quoted; quotes are stripped and values trimmed. A key
// without '=' has the empty value. Later duplicates win.
func ParseAttrs(s string) Attrs {
	attrs := Attrs{}
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}

		keyStart := i
		for i < len(s) && !isSpace(s[i]) && s[i] != '=' {
			i++
		}
		key := s[keyStart:i]

		if i >= len(s) || s[i] != '=' {
			attrs[key] = ""
			continue
		}
		i++ // '='

		var value string
		if i < len(s) && (s[i] == '"' || s[i] == '\'') {
			quote := s[i]
			i++
			valueStart := i
			for i < len(s) && s[i] != quote {
				i++
			}
			value = s[valueStart:i]
			if i < len(s) {
				i++ // closing quote
			}
		} else {
			valueStart := i
			for i < len(s) && !isSpace(s[i]) {
				i++
			}
			value = strings.Trim(s[valueStart:i], `"'`)
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs
}

func wanted(name string, names []string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

func isTagBoundary(c byte) bool {
	return isSpace(c) || c == '>' || c == '/'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
