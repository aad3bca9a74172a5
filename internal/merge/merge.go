package merge

import (
	"sort"

	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// Result is the outcome of merging record snapshots.
type Result struct {
	Decisions  []*model.Decision
	Collisions []model.Key
}

// Merge unifies snapshots from multiple sources into one dataset. Records
// dedup on (source, id); identifiers are only unique within a source, so
// no cross-source identity matching is attempted. On a same-source
// collision the first record wins and the key is reported. Output is
// sorted by (source, id) so repeated merges of the same inputs produce
// byte-identical files.
func Merge(snapshots ...[]*model.Decision) *Result {
	seen := make(map[model.Key]bool)
	res := &Result{}

	for _, snapshot := range snapshots {
		for _, d := range snapshot {
			key := d.Key()
			if seen[key] {
				res.Collisions = append(res.Collisions, key)
				continue
			}
			seen[key] = true
			res.Decisions = append(res.Decisions, d.Clone())
		}
	}

	sort.Slice(res.Decisions, func(i, j int) bool {
		a, b := res.Decisions[i], res.Decisions[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})

	if len(res.Collisions) > 0 {
		zap.L().Warn("merge found duplicate identifiers",
			zap.Int("collisions", len(res.Collisions)),
		)
	}
	return res
}
