package recognizer

import "sort"

// rowProcessor pairs each standalone product name with the nearest unused
// amount inside a vertical window. Pages without a recognizable name fall
// back to an amount-driven scan.
func rowProcessor(b candidateBuilder) Processor {
	return func(page PageLayout) []ProductCandidate {
		var names []ClassifiedRegion
		for _, r := range page.Contents() {
			if b.looksLikeProductName(r) {
				names = append(names, r)
			}
		}
		if len(names) == 0 {
			return amountDrivenRows(b, page)
		}

		amounts := page.Amounts()
		used := make(map[int]bool, len(amounts))
		var out []ProductCandidate
		for _, name := range names {
			best, bestDist := -1, 0.0
			for i, a := range amounts {
				if used[a.ID] {
					continue
				}
				dy := a.Region.Center.Y - name.Region.Center.Y
				if dy < -b.cfg.RowWindowAbove || dy > b.cfg.RowWindowBelow {
					continue
				}
				d := abs(dy) + b.cfg.HorizontalWeight*abs(a.Region.Center.X-name.Region.Center.X)
				if best < 0 || d < bestDist {
					best, bestDist = i, d
				}
			}
			if best < 0 {
				continue
			}
			used[amounts[best].ID] = true
			out = append(out, b.build(amounts[best], []ClassifiedRegion{name}, len(out)))
		}
		return out
	}
}

// amountDrivenRows collects up to MaxNameParts nearby name parts for every
// amount, looking at the amount's own line and the window above it.
func amountDrivenRows(b candidateBuilder, page PageLayout) []ProductCandidate {
	type neighbour struct {
		region ClassifiedRegion
		dist   float64
	}

	contents := page.Contents()
	usedContent := make(map[int]bool, len(contents))
	var out []ProductCandidate
	for _, a := range page.Amounts() {
		var near []neighbour
		for _, c := range contents {
			if usedContent[c.ID] || !isNamePart(c) {
				continue
			}
			dy := c.Region.Center.Y - a.Region.Center.Y
			if dy < -b.cfg.RowWindowBelow || dy > b.cfg.RowWindowAbove {
				continue
			}
			d := abs(dy) + b.cfg.HorizontalWeight*abs(c.Region.Center.X-a.Region.Center.X)
			near = append(near, neighbour{region: c, dist: d})
		}
		sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })
		if len(near) > b.cfg.MaxNameParts {
			near = near[:b.cfg.MaxNameParts]
		}

		parts := make([]ClassifiedRegion, len(near))
		for i, n := range near {
			parts[i] = n.region
			usedContent[n.region.ID] = true
		}
		out = append(out, b.build(a, parts, len(out)))
	}
	return out
}
