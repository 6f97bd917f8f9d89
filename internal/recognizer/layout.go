package recognizer

import "math"

// buildPage snapshots the valid regions of a page. hasTotal is computed by
// the caller over every region, including metadata ones.
func buildPage(regions []ClassifiedRegion, hasTotal bool) PageLayout {
	page := PageLayout{HasTotalMarker: hasTotal}
	for _, r := range regions {
		if r.Kind == KindIrrelevant {
			continue
		}
		page.Regions = append(page.Regions, r)
		page.Width = math.Max(page.Width, r.Region.Box.Right)
		page.Height = math.Max(page.Height, r.Region.Box.Bottom)
	}
	sortReadingOrder(page.Regions)
	page.LeftBoundary = page.Width * 0.4
	page.RightBoundary = page.Width * 0.6
	return page
}

// detectLayout combines the amount-distribution and density-variance
// signals. The more confident one wins; ties go to the amount signal.
func detectLayout(page PageLayout, cfg Config) LayoutDecision {
	if len(page.Regions) < cfg.MinLayoutRegions {
		return LayoutDecision{Type: RowOriented, Confidence: cfg.DefaultConfidence, Signal: "default"}
	}
	amount := amountSignal(page, cfg)
	density := densitySignal(page, cfg)
	if density.Confidence > amount.Confidence {
		return density
	}
	return amount
}

func amountSignal(page PageLayout, cfg Config) LayoutDecision {
	amounts := page.Amounts()
	if len(amounts) == 0 || page.Width <= 0 {
		return LayoutDecision{Type: RowOriented, Confidence: cfg.DefaultConfidence, Signal: "amount"}
	}
	right := 0
	edge := page.Width * cfg.AmountRightEdgeRatio
	for _, a := range amounts {
		if a.Region.Box.Left > edge {
			right++
		}
	}
	ratio := float64(right) / float64(len(amounts))

	threshold := cfg.ColumnAmountRatio
	if page.HasTotalMarker {
		threshold = cfg.ColumnAmountRatioTotal
	}
	if ratio >= threshold {
		return LayoutDecision{Type: ColumnOriented, Confidence: 0.6 + ratio*0.3, Signal: "amount"}
	}
	return LayoutDecision{Type: RowOriented, Confidence: 0.6 + (1-ratio)*0.3, Signal: "amount"}
}

func densitySignal(page PageLayout, cfg Config) LayoutDecision {
	rowBins := int(page.Height/cfg.DensityRowBand) + 1
	rows := make([]float64, rowBins)
	cols := make([]float64, cfg.DensityColumnBands)
	colWidth := page.Width / float64(cfg.DensityColumnBands)

	for _, r := range page.Regions {
		ri := clampIndex(int(r.Region.Center.Y/cfg.DensityRowBand), rowBins)
		rows[ri]++
		ci := 0
		if colWidth > 0 {
			ci = clampIndex(int(r.Region.Center.X/colWidth), cfg.DensityColumnBands)
		}
		cols[ci]++
	}

	if variance(cols) > variance(rows) {
		return LayoutDecision{Type: ColumnOriented, Confidence: cfg.DensityConfidence, Signal: "density"}
	}
	return LayoutDecision{Type: RowOriented, Confidence: cfg.DensityConfidence, Signal: "density"}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var acc float64
	for _, x := range xs {
		acc += (x - mean) * (x - mean)
	}
	return acc / float64(len(xs))
}
