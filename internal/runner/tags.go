package runner

import (
	"strings"

	"sea-intercept/internal/ir"
)

// FilterByTags keeps scenarios carrying any include tag (when given) and
// none of the exclude tags. Tags compare case-insensitively.
func FilterByTags(in []ir.Scenario, include, exclude []string) []ir.Scenario {
	if len(include) == 0 && len(exclude) == 0 {
		return in
	}
	toSet := func(ss []string) map[string]bool {
		m := map[string]bool{}
		for _, s := range ss {
			m[strings.ToLower(s)] = true
		}
		return m
	}
	inc, exc := toSet(include), toSet(exclude)
	hasAny := func(tags []string, m map[string]bool) bool {
		for _, t := range tags {
			if m[strings.ToLower(t)] {
				return true
			}
		}
		return false
	}
	out := make([]ir.Scenario, 0, len(in))
	for _, sc := range in {
		if len(inc) > 0 && !hasAny(sc.Tags, inc) {
			continue
		}
		if len(exc) > 0 && hasAny(sc.Tags, exc) {
			continue
		}
		out = append(out, sc)
	}
	return out
}
