package icons

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Source is a remote icon set addressed by service name
type Source struct {
	Name    string
	BaseURL string
	Suffix  string
	// Escape percent-encodes the slug before it is joined to BaseURL.
	Escape bool
}

var (
	// FontAwesome serves the solid icon set of Font Awesome 5 from cdnjs
	FontAwesome = Source{
		Name:    "fontawesome",
		BaseURL: "https://cdnjs.cloudflare.com/ajax/libs/font-awesome/5.15.4/svgs/solid/",
		Suffix:  ".svg",
	}

	// SimpleIcons serves brand icons from the simple-icons repository
	SimpleIcons = Source{
		Name:    "simpleicons",
		BaseURL: "https://github.com/simple-icons/simple-icons/raw/refs/heads/develop/icons/",
		Suffix:  ".svg",
	}
)

var builtinSources = map[string]Source{
	FontAwesome.Name: FontAwesome,
	SimpleIcons.Name: SimpleIcons,
}

// LookupSource returns a built-in source by name
func LookupSource(name string) (Source, error) {
	src, ok := builtinSources[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		known := make([]string, 0, len(builtinSources))
		for k := range builtinSources {
			known = append(known, k)
		}
		sort.Strings(known)
		return Source{}, fmt.Errorf("unknown icon source %q (known: %s)", name, strings.Join(known, ", "))
	}
	return src, nil
}

// isSpace reports whether r is whitespace in the sense of JavaScript's \s and
// trim(): Unicode spaces and line terminators plus U+FEFF, but not U+0085.
func isSpace(r rune) bool {
	if r == '\u0085' {
		return false
	}
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// TrimName strips leading and trailing whitespace from a service name
func TrimName(name string) string {
	return strings.TrimFunc(name, isSpace)
}

// Slug lowercases name and collapses every run of whitespace into a single hyphen.
// Leading and trailing runs are kept as hyphens; callers pass trimmed names.
func Slug(name string) string {
	lower := cases.Lower(language.Und).String(name)

	var b strings.Builder
	b.Grow(len(lower))
	inSpace := false
	for _, r := range lower {
		if isSpace(r) {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// CandidateURL returns the address the icon for name is expected at
func (s Source) CandidateURL(name string) string {
	slug := Slug(name)
	if s.Escape {
		slug = url.PathEscape(slug)
	}
	return s.BaseURL + slug + s.Suffix
}
