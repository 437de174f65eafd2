// Package render substitutes {{NAME}} placeholders in HTML documents.
//
// SUBSTITUTION RULES:
//   - Every occurrence of {{NAME}} whose NAME is a key of vars is replaced.
//   - Placeholders with no entry in vars are written back verbatim.
//   - An unterminated "{{" is written back verbatim.
//   - Values are inserted as literal text. Nothing is HTML-escaped.
//
// KNOWN LIMITATION:
// Because values are not escaped, this renderer is unsafe for any value an
// end user controls (display names, usernames, emails coming from an identity
// provider). A value containing markup is injected into the page as markup.
// Callers that need untrusted values in a page must escape them first, or use
// html/template instead.
package render

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Vars maps placeholder names (without braces) to replacement text.
type Vars map[string]string

// Render substitutes vars into doc.
func Render(doc string, vars Vars) string {
	return fasttemplate.ExecuteFuncString(doc, startTag, endTag, tagFunc(vars))
}

// tagFunc writes the value for a known tag and echoes unknown tags back with
// their delimiters.
//
// fasttemplate reads from the first "{{" to the next "}}", so a stray "{{"
// before a placeholder arrives inside the tag ("{{A" for "{{{{A}}"). Only the
// text after the last "{{" is the name; everything before it is literal.
func tagFunc(vars Vars) fasttemplate.TagFunc {
	return func(w io.Writer, tag string) (int, error) {
		prefix := ""
		if i := strings.LastIndex(tag, startTag); i >= 0 {
			prefix = startTag + tag[:i]
			tag = tag[i+len(startTag):]
		}

		if v, ok := vars[tag]; ok {
			return io.WriteString(w, prefix+v)
		}
		return io.WriteString(w, prefix+startTag+tag+endTag)
	}
}

// Set holds named documents read once at startup.
//
// Documents are kept as raw strings: fasttemplate.NewTemplate rejects an
// unterminated start tag, which must pass through here.
type Set struct {
	docs map[string]string
}

// NewSet builds a Set from in-memory documents keyed by name.
func NewSet(docs map[string]string) *Set {
	s := &Set{docs: make(map[string]string, len(docs))}
	for name, doc := range docs {
		s.docs[name] = doc
	}
	return s
}

// LoadFS reads every *.html file at the root of fsys. Documents are keyed by
// file name without the extension ("dashboard.html" → "dashboard").
func LoadFS(fsys fs.FS) (*Set, error) {
	matches, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("render: listing templates: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("render: no *.html templates found")
	}

	docs := make(map[string]string, len(matches))
	for _, m := range matches {
		b, err := fs.ReadFile(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("render: reading %s: %w", m, err)
		}
		docs[strings.TrimSuffix(m, path.Ext(m))] = string(b)
	}
	return NewSet(docs), nil
}

// Has reports whether a document named name was loaded.
func (s *Set) Has(name string) bool {
	_, ok := s.docs[name]
	return ok
}

// Render substitutes vars into the named document.
func (s *Set) Render(name string, vars Vars) (string, error) {
	doc, ok := s.docs[name]
	if !ok {
		return "", fmt.Errorf("render: unknown template %q", name)
	}
	return Render(doc, vars), nil
}
