// Package taxonomy derives cross-cutting views over the content catalog
// (tag usage, translation-key parity) and edits the category registry.
package taxonomy

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/starford/sitedesk/internal/content"
)

// TagStat is the usage of one tag across the catalog.
type TagStat struct {
	Name        string   `json:"name"`
	Count       int      `json:"count"`
	Collections []string `json:"collections"`
}

// Tags counts, for every tag, the documents that carry it. The result is
// ordered by descending count; equal counts keep first-encountered order.
// Names are trimmed and NFC-normalised so visually identical tags merge.
func Tags(entries []content.Entry) []TagStat {
	var out []TagStat
	pos := map[string]int{}
	for _, e := range entries {
		seen := map[string]bool{}
		for _, raw := range e.Tags {
			name := NormalizeTag(raw)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			i, ok := pos[name]
			if !ok {
				i = len(out)
				pos[name] = i
				out = append(out, TagStat{Name: name, Collections: []string{}})
			}
			out[i].Count++
			if !slices.Contains(out[i].Collections, e.Collection) {
				out[i].Collections = append(out[i].Collections, e.Collection)
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	if out == nil {
		out = []TagStat{}
	}
	return out
}

// NormalizeTag is the canonical form tags are counted and matched under.
func NormalizeTag(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
