package kfc

import (
	"regexp"
	"sort"
)

// metadataLeakPatterns matches the four categories of internal metadata
// keywords that occasionally leak into a kfc_reply's prose content when a
// model folds its whole JSON object into the "content" field instead of
// structuring it properly. Each pattern requires the keyword to be
// immediately followed by a colon (half- or full-width).
var metadataLeakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(thought|内心想法|想法|思考)\s*[:：]`),
	regexp.MustCompile(`(?i)(expected_reaction|预计反应|预期反应)\s*[:：]`),
	regexp.MustCompile(`(?i)(max_wait_seconds|最大等待秒数)\s*[:：]`),
	regexp.MustCompile(`(?i)(mood|心情|情绪)\s*[:：]`),
}

// SanitizeReplyContent truncates content at the earliest match of any
// metadata-leak category, once at least two distinct categories match, on
// the theory
// that a single incidental match (e.g. a user literally discussing "mood:")
// is plausible content but two or more is a structural leak. Returns content
// unchanged if fewer than two categories match.
func SanitizeReplyContent(content string) string {
	type hit struct {
		category int
		index    int
	}
	var hits []hit
	for i, p := range metadataLeakPatterns {
		if loc := p.FindStringIndex(content); loc != nil {
			hits = append(hits, hit{category: i, index: loc[0]})
		}
	}
	seen := map[int]bool{}
	for _, h := range hits {
		seen[h.category] = true
	}
	if len(seen) < 2 {
		return content
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })
	return content[:hits[0].index]
}
