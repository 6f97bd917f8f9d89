package recognizer

import (
	"unicode/utf8"
)

// repair returns a validated copy of c, or false when its name or amount
// cannot be recovered. c itself is left untouched.
func (b candidateBuilder) repair(c ProductCandidate, page PageLayout) (ProductCandidate, bool) {
	if b.needsName(c.CleanedName) {
		c = b.repairName(c, page)
	}
	if !c.Amount.IsPositive() {
		c = b.repairAmount(c)
	}
	if utf8.RuneCountInString(c.CleanedName) < b.cfg.MinNameLength || !c.Amount.IsPositive() {
		return c, false
	}
	return c, true
}

func (b candidateBuilder) needsName(name string) bool {
	return name == "" ||
		b.vocab.IsDefaultName(name) ||
		utf8.RuneCountInString(name) < b.cfg.MinNameLength
}

// repairName re-derives the name from the candidate's own regions filtered
// to product-name shape, then from text just above the amount.
func (b candidateBuilder) repairName(c ProductCandidate, page PageLayout) ProductCandidate {
	var shaped []ClassifiedRegion
	for _, r := range c.NameRegions {
		if b.looksLikeProductName(r) {
			shaped = append(shaped, r)
		}
	}
	if len(shaped) > 0 {
		if out := b.withNames(c, shaped); !b.needsName(out.CleanedName) {
			return out
		}
	}

	amountY := c.AmountRegion.Region.Center.Y
	best, bestDist := -1, 0.0
	contents := page.Contents()
	for i, r := range contents {
		if !isNamePart(r) {
			continue
		}
		dy := amountY - r.Region.Center.Y
		if dy < 0 || dy > b.cfg.RepairWindowAbove {
			continue
		}
		if b.needsName(b.cleanName(r.Text)) {
			continue
		}
		if best < 0 || dy < bestDist {
			best, bestDist = i, dy
		}
	}
	if best < 0 {
		return c
	}
	return b.withNames(c, []ClassifiedRegion{contents[best]})
}

// withNames returns c rebuilt around a different set of name regions.
func (b candidateBuilder) withNames(c ProductCandidate, names []ClassifiedRegion) ProductCandidate {
	out := b.build(c.AmountRegion, names, c.SequenceIndex)
	out.Amount = c.Amount
	return out
}

// repairAmount looks for an amount embedded in the related texts. The
// amount region itself was parsed, decimal-defect repair included, when it
// was classified.
func (b candidateBuilder) repairAmount(c ProductCandidate) ProductCandidate {
	for _, r := range c.NameRegions {
		if d, ok := findEmbeddedAmount(r.Region.Text, b.cfg); ok {
			c.Amount = d
			return c
		}
	}
	return c
}
