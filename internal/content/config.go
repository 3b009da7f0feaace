// Package content scans, reads and writes the site's content collections:
// Markdown/MDX files under <root>/<collection>/... that open with a YAML
// frontmatter block.
package content

import (
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Config describes how files under the content root map to entries.
type Config struct {
	// Extensions are tried in order when resolving an id to a file.
	Extensions  []string
	Languages   []string
	DefaultLang string
	// Ignore holds doublestar patterns matched against root-relative paths.
	Ignore []string
}

// DefaultConfig matches the site's Astro layout.
func DefaultConfig() Config {
	return Config{
		Extensions:  []string{".md", ".mdx"},
		Languages:   []string{"en", "fa"},
		DefaultLang: "en",
	}
}

// contentExt returns the configured extension of name, if any.
func (c Config) contentExt(name string) (string, bool) {
	ext := path.Ext(name)
	if ext == "" || !slices.Contains(c.Extensions, ext) {
		return "", false
	}
	return ext, true
}

func (c Config) isLanguage(s string) bool {
	return s != "" && slices.Contains(c.Languages, s)
}

func (c Config) ignored(rel string) bool {
	for _, pattern := range c.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
