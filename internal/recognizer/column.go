package recognizer

import "sort"

// columnProcessor splits the page at a boundary between the name column
// and the amount column, then gathers names on the amount's row.
func columnProcessor(b candidateBuilder) Processor {
	return func(page PageLayout) []ProductCandidate {
		amounts := page.Amounts()
		var contents []ClassifiedRegion
		for _, c := range page.Contents() {
			if isNamePart(c) {
				contents = append(contents, c)
			}
		}

		boundary, namesLeft := columnBoundary(page, amounts, contents)
		var side []ClassifiedRegion
		for _, c := range contents {
			if (c.Region.Box.Left < boundary) == namesLeft {
				side = append(side, c)
			}
		}

		sorted := append([]ClassifiedRegion(nil), amounts...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Region.Center.Y < sorted[j].Region.Center.Y
		})

		out := make([]ProductCandidate, 0, len(sorted))
		for _, a := range sorted {
			names := nearestInRow(a, side, b.cfg.SameRowTolerance, b.cfg.MaxNameParts)
			if len(names) == 0 {
				names = nearestInRow(a, side, b.cfg.NearRowTolerance, b.cfg.MaxNameParts)
			}
			out = append(out, b.build(a, names, len(out)))
		}
		return out
	}
}

// columnBoundary returns the midpoint between the mean left edges of the
// amount and content regions, and whether names sit left of it. One empty
// side puts the boundary at half the page width.
func columnBoundary(page PageLayout, amounts, contents []ClassifiedRegion) (float64, bool) {
	if len(amounts) == 0 || len(contents) == 0 {
		return page.Width / 2, true
	}
	meanA := meanLeft(amounts)
	meanC := meanLeft(contents)
	return (meanA + meanC) / 2, meanC <= meanA
}

func meanLeft(regions []ClassifiedRegion) float64 {
	var sum float64
	for _, r := range regions {
		sum += r.Region.Box.Left
	}
	return sum / float64(len(regions))
}

// nearestInRow returns up to limit regions within tol of the amount's
// vertical center, closest first.
func nearestInRow(a ClassifiedRegion, pool []ClassifiedRegion, tol float64, limit int) []ClassifiedRegion {
	var hits []ClassifiedRegion
	for _, c := range pool {
		if abs(c.Region.Center.Y-a.Region.Center.Y) <= tol {
			hits = append(hits, c)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		di := abs(hits[i].Region.Center.Y - a.Region.Center.Y)
		dj := abs(hits[j].Region.Center.Y - a.Region.Center.Y)
		if di != dj {
			return di < dj
		}
		return abs(hits[i].Region.Center.X-a.Region.Center.X) < abs(hits[j].Region.Center.X-a.Region.Center.X)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
