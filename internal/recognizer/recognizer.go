// Package recognizer reconstructs (product name, amount) pairs from the OCR
// regions of a holdings page and reconciles them against a user's catalog.
//
// The stages run in order: classification, fragment merging, layout
// detection, row or column pairing, validation with repair, and matching.
// An Engine holds only immutable configuration and is safe for concurrent
// use; every call owns its working set.
package recognizer

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/MeKo-Tech/holdscan/internal/utils"
	"github.com/MeKo-Tech/holdscan/internal/vocab"
)

// Engine runs the recognition pipeline.
type Engine struct {
	cfg     Config
	policy  matcher.Policy
	vocab   *vocab.Vocabulary
	matcher *matcher.Matcher
	logger  *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithConfig sets the geometric tunables.
func WithConfig(cfg Config) Option { return func(e *Engine) { e.cfg = cfg } }

// WithPolicy sets the match thresholds.
func WithPolicy(p matcher.Policy) Option { return func(e *Engine) { e.policy = p } }

// WithVocabulary sets the domain vocabulary.
func WithVocabulary(v *vocab.Vocabulary) Option {
	return func(e *Engine) {
		if v != nil {
			e.vocab = v
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine with defaults overridden by opts. An invalid config
// or policy is replaced by its default and logged as a warning.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:    DefaultConfig(),
		policy: matcher.DefaultPolicy(),
		vocab:  vocab.Default(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if err := e.cfg.Validate(); err != nil {
		e.logger.Warn("Invalid recognition config, using defaults", "error", err)
		e.cfg = DefaultConfig()
	}
	if err := e.policy.Validate(); err != nil {
		e.logger.Warn("Invalid match policy, using defaults", "error", err)
		e.policy = matcher.DefaultPolicy()
	}
	e.matcher = matcher.New(e.policy, e.vocab)
	return e
}

// WithPolicy returns a copy of the engine using different thresholds. An
// invalid policy keeps the current one and is logged as a warning.
func (e *Engine) WithPolicy(p matcher.Policy) *Engine {
	if err := p.Validate(); err != nil {
		e.logger.Warn("Invalid match policy, keeping current", "error", err)
		return e
	}
	out := *e
	out.policy = p
	out.matcher = matcher.New(p, e.vocab)
	return &out
}

// Config returns the geometric tunables in use.
func (e *Engine) Config() Config { return e.cfg }

// Policy returns the match thresholds in use.
func (e *Engine) Policy() matcher.Policy { return e.policy }

// Recognize returns the visible match results for one page. It never fails:
// empty or unusable input yields an empty list.
func (e *Engine) Recognize(regions []TextRegion, assets []catalog.Asset) []MatchResult {
	return e.Analyze(regions, assets).Results
}

// Analyze runs the pipeline and reports every intermediate decision. Panics
// inside the pipeline are logged and turned into an empty report.
func (e *Engine) Analyze(regions []TextRegion, assets []catalog.Asset) (rep Report) {
	rep = Report{Results: []MatchResult{}}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recognition failed",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			rep = Report{Results: []MatchResult{}}
		}
	}()

	if len(regions) == 0 || len(assets) == 0 {
		return rep
	}

	cls := newClassifier(e.cfg, e.vocab)
	builder := newCandidateBuilder(e.cfg, e.vocab)

	classified := cls.classifyAll(normalizeRegions(regions))
	hasTotal := false
	var working []ClassifiedRegion
	for _, r := range classified {
		if e.vocab.IsTotalMarker(r.Text) {
			hasTotal = true
		}
		if r.Kind != KindIrrelevant {
			working = append(working, r)
		}
	}

	page := buildPage(cls.mergeFragments(working), hasTotal)
	rep.AmountRegions = len(page.Amounts())

	decision := detectLayout(page, e.cfg)
	rep.Layout = decision
	e.logger.Debug("layout detected",
		"type", decision.Type.String(),
		"confidence", decision.Confidence,
		"signal", decision.Signal,
		"regions", len(page.Regions))

	sel := selectCandidates(page, decision, map[LayoutType]Processor{
		RowOriented:    rowProcessor(builder),
		ColumnOriented: columnProcessor(builder),
	}, e.cfg)
	rep.Processor = sel.processor
	rep.FallbackTried = sel.fallbackTried
	rep.FallbackUsed = sel.fallbackUsed
	rep.Candidates = len(sel.candidates)
	if sel.fallbackUsed {
		e.logger.Debug("fallback processor used", "processor", sel.processor.String())
	}

	valid := e.validate(builder, sel.candidates, page)
	rep.Dropped = len(sel.candidates) - len(valid)

	rep.Results, rep.Suppressed = e.match(valid, assets)
	return rep
}

// normalizeRegions drops empty fragments, clamps confidences and derives
// missing centers. The input slice is not modified.
func normalizeRegions(regions []TextRegion) []TextRegion {
	out := make([]TextRegion, 0, len(regions))
	for _, r := range regions {
		if r.Text == "" {
			continue
		}
		r.Box = utils.NewBox(r.Box.Left, r.Box.Top, r.Box.Right, r.Box.Bottom)
		if r.Center.X == 0 && r.Center.Y == 0 {
			r.Center = r.Box.Center()
		}
		r.Confidence = min(max(r.Confidence, 0), 1)
		out = append(out, r)
	}
	return out
}

// validate repairs candidates and drops the unrecoverable ones. Each amount
// region backs at most one candidate.
func (e *Engine) validate(b candidateBuilder, candidates []ProductCandidate, page PageLayout) []ProductCandidate {
	seen := make(map[int]bool, len(candidates))
	out := make([]ProductCandidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.AmountRegion.ID] {
			e.logger.Debug("candidate dropped", "reason", "amount reused", "amount_region", c.AmountRegion.ID)
			continue
		}
		fixed, ok := b.repair(c, page)
		if !ok {
			e.logger.Debug("candidate dropped",
				"reason", "unrepairable",
				"name", fixed.CleanedName,
				"amount", fixed.Amount.String())
			continue
		}
		seen[c.AmountRegion.ID] = true
		out = append(out, fixed)
	}
	return out
}

// match scores every candidate and applies the threshold policy. Scores
// are computed fresh against the given snapshot.
func (e *Engine) match(candidates []ProductCandidate, assets []catalog.Asset) (visible, hidden []MatchResult) {
	visible = []MatchResult{}
	for _, c := range candidates {
		m := e.matcher.Best(c.CleanedName, assets)
		res := MatchResult{
			Candidate:    c,
			OriginalName: c.CleanedName,
			Amount:       c.Amount,
			Method:       m.Method,
		}
		if !m.Found() {
			visible = append(visible, res)
			continue
		}
		id, name := m.Asset.ID, m.Asset.Name
		res.AssetID = &id
		res.AssetName = &name
		res.Score = m.Score
		res.Confirmed = e.policy.Confirmed(m.Score)

		if e.policy.Tier(m.Score) == matcher.TierHidden {
			hidden = append(hidden, res)
			continue
		}
		visible = append(visible, res)
	}

	rank(visible)
	rank(hidden)
	if len(visible) > e.policy.MaxResults {
		visible = visible[:e.policy.MaxResults]
	}
	return visible, hidden
}

// rank orders results by score, then page position, then production order.
func rank(results []MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Candidate.PagePosition != b.Candidate.PagePosition {
			return a.Candidate.PagePosition < b.Candidate.PagePosition
		}
		return a.Candidate.SequenceIndex < b.Candidate.SequenceIndex
	})
}
