package recognizer

// selection is the outcome of running the layout processors.
type selection struct {
	candidates    []ProductCandidate
	processor     LayoutType
	fallbackTried bool
	fallbackUsed  bool
}

// selectCandidates runs the processor for the decided layout. When that
// yields too few named candidates and the decision was not confident, the
// alternate processor runs too and the one with more named candidates wins.
// Ties keep the primary. Nameless candidates are kept for repair but never
// count toward the comparison.
func selectCandidates(page PageLayout, decision LayoutDecision, procs map[LayoutType]Processor, cfg Config) selection {
	primary := procs[decision.Type](page)
	sel := selection{candidates: primary, processor: decision.Type}
	primaryNamed := countNamed(primary)
	if primaryNamed >= cfg.FallbackMinCandidates || decision.Confidence >= cfg.FallbackConfidence {
		return sel
	}

	alt := decision.Type.Alternate()
	sel.fallbackTried = true
	if secondary := procs[alt](page); countNamed(secondary) > primaryNamed {
		sel.candidates = secondary
		sel.processor = alt
		sel.fallbackUsed = true
	}
	return sel
}

// countNamed counts the candidates that gathered a non-empty name.
func countNamed(cands []ProductCandidate) int {
	n := 0
	for _, c := range cands {
		if c.CleanedName != "" {
			n++
		}
	}
	return n
}
