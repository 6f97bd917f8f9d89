package recognizer

import (
	"math"
	"sort"
	"strings"

	"github.com/MeKo-Tech/holdscan/internal/utils"
)

// mergeFragments fuses runs of adjacent name fragments into single regions.
// Inputs are never modified; merged regions are new values that take the
// place of their sources. Regions without a nearby fragment pass through.
func (c classifier) mergeFragments(regions []ClassifiedRegion) []ClassifiedRegion {
	ordered := append([]ClassifiedRegion(nil), regions...)
	sortReadingOrder(ordered)

	isFragment := make([]bool, len(ordered))
	for i, r := range ordered {
		isFragment[i] = r.Kind == KindContent && c.vocab.IsNameFragment(r.Text)
	}

	consumed := make([]bool, len(ordered))
	out := make([]ClassifiedRegion, 0, len(ordered))
	for i, r := range ordered {
		if consumed[i] {
			continue
		}
		if !isFragment[i] {
			out = append(out, r)
			continue
		}

		group := []ClassifiedRegion{r}
		groupBox := r.Region.Box
		for j := i + 1; j < len(ordered); j++ {
			if consumed[j] || !isFragment[j] {
				continue
			}
			if !c.adjacent(groupBox, ordered[j].Region.Box) {
				continue
			}
			group = append(group, ordered[j])
			groupBox = utils.Union(groupBox, ordered[j].Region.Box)
			consumed[j] = true
		}
		consumed[i] = true

		if len(group) == 1 {
			out = append(out, r)
			continue
		}
		out = append(out, c.fuse(group))
	}

	for i := range out {
		out[i].ID = i
	}
	return out
}

// adjacent reports whether candidate b continues the fragment group in a.
func (c classifier) adjacent(a, b utils.Box) bool {
	if math.Abs(a.Center().Y-b.Center().Y) > c.cfg.MergeVerticalDistance {
		return false
	}
	return utils.HorizontalOverlapRatio(a, b) > c.cfg.MergeOverlapRatio ||
		utils.HorizontalGap(a, b) <= c.cfg.MergeAdjacencyGap
}

// fuse builds one region out of a fragment group.
func (c classifier) fuse(group []ClassifiedRegion) ClassifiedRegion {
	sortReadingOrder(group)

	boxes := make([]utils.Box, len(group))
	var text strings.Builder
	var conf float64
	for i, g := range group {
		boxes[i] = g.Region.Box
		text.WriteString(g.Text)
		conf += g.Region.Confidence
	}
	box := utils.UnionAll(boxes)
	merged := TextRegion{
		Text:       text.String(),
		Confidence: conf / float64(len(group)),
		Box:        box,
		Center:     box.Center(),
	}
	return c.classify(group[0].ID, merged)
}

// sortReadingOrder orders regions top-to-bottom and left-to-right. Regions
// whose vertical centers lie within half the line's height of the first
// region on that line are treated as one line.
func sortReadingOrder(regions []ClassifiedRegion) {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i].Region, regions[j].Region
		if a.Center.Y != b.Center.Y {
			return a.Center.Y < b.Center.Y
		}
		return a.Box.Left < b.Box.Left
	})

	for start := 0; start < len(regions); {
		anchor := regions[start].Region
		tol := anchor.Box.Height() / 2
		end := start + 1
		for end < len(regions) && regions[end].Region.Center.Y-anchor.Center.Y <= tol {
			end++
		}
		line := regions[start:end]
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Region.Box.Left < line[j].Region.Box.Left
		})
		start = end
	}
}
