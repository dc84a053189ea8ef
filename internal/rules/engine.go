package rules

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"plainview/internal/logging"
	"plainview/internal/model"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t]{2,}`)
	spacePunct = regexp.MustCompile(` +([.,;:!?])`)
)

// Engine is the single owner of pattern matching. Every transformation
// and classification decision in the pipeline goes through it; no other
// package keeps a private keyword list. The engine is immutable after
// load and safe for concurrent use.
type Engine struct {
	version    string
	rules      []*compiledRule
	byCategory map[string][]*compiledRule
	log        *slog.Logger
}

// newEngine compiles and indexes a composed rule list. Rules within a
// category are ordered by (priority, load order).
func newEngine(version string, ruleList []*Rule, file string) (*Engine, error) {
	e := &Engine{
		version:    version,
		byCategory: make(map[string][]*compiledRule),
		log:        logging.New("rules"),
	}
	for i, r := range ruleList {
		c, err := compile(r, i, file)
		if err != nil {
			return nil, err
		}
		e.rules = append(e.rules, c)
		e.byCategory[r.Category] = append(e.byCategory[r.Category], c)
	}
	for _, cat := range e.byCategory {
		sort.SliceStable(cat, func(i, j int) bool {
			if cat[i].rule.Priority != cat[j].rule.Priority {
				return cat[i].rule.Priority < cat[j].rule.Priority
			}
			return cat[i].seq < cat[j].seq
		})
	}
	// Context gates must point at a category that actually has CONTEXT
	// rules, otherwise the gated rule could never fire.
	for _, c := range e.rules {
		req := c.rule.Match.ContextRequired
		if req == "" {
			continue
		}
		if !e.hasContextRules(req) {
			return nil, loadErrf(file, c.rule.ID, "context_required %q names a category with no CONTEXT rules", req)
		}
	}
	e.log.Debug("ruleset compiled", "version", version, "rules", len(e.rules), "categories", len(e.byCategory))
	return e, nil
}

func (e *Engine) hasContextRules(category string) bool {
	for _, c := range e.byCategory[category] {
		if c.rule.Action == ActionContext {
			return true
		}
	}
	return false
}

// Version identifies the loaded ruleset, e.g. "default/v3".
func (e *Engine) Version() string { return e.version }

// Len is the number of loaded rules.
func (e *Engine) Len() int { return len(e.rules) }

// Categories returns every rule category, sorted.
func (e *Engine) Categories() []string {
	cats := make([]string, 0, len(e.byCategory))
	for c := range e.byCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Rules returns copies of the loaded rules in category evaluation order,
// for listing and validation tooling.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, 0, len(e.rules))
	for _, cat := range e.Categories() {
		for _, c := range e.byCategory[cat] {
			out = append(out, *c.rule)
		}
	}
	return out
}

// contextSatisfied checks a rule's context gate against the text and,
// when provided, the atom's window.
func (e *Engine) contextSatisfied(r *Rule, text string, ctx *EvalContext) bool {
	if r.Match.ContextRequired == "" {
		return true
	}
	if e.HasContext(r.Match.ContextRequired, text) {
		return true
	}
	return ctx != nil && ctx.Window != "" && e.HasContext(r.Match.ContextRequired, ctx.Window)
}

// HasContext reports whether any CONTEXT rule of the category matches
// the text.
func (e *Engine) HasContext(category, text string) bool {
	for _, c := range e.byCategory[category] {
		if c.rule.Action != ActionContext || !c.rule.IsEnabled() {
			continue
		}
		if _, ok := c.firstMatch(text); ok {
			return true
		}
	}
	return false
}

// Application records one transformation applied to a text.
type Application struct {
	RuleID      string     `json:"rule_id"`
	Action      Action     `json:"action"`
	Span        model.Span `json:"span"`
	Original    string     `json:"original"`
	Replacement string     `json:"replacement"`
}

// Transform applies the category's transformation rules to text and
// returns the rewritten text plus the applications made.
//
// All matches are located against the original text, then spans are
// consumed first-match-wins in (priority, position) order: once any rule
// has claimed a span, no other rule may rewrite inside it. This is what
// keeps a second rule from chewing on the remains of a first rule's
// match. PRESERVE claims its span and changes nothing, which is how
// quoted speech is locked against the other transforms.
func (e *Engine) Transform(category, text string) (string, []Application) {
	type candidate struct {
		c    *compiledRule
		span model.Span
	}
	var cands []candidate
	for _, c := range e.byCategory[category] {
		if !c.rule.Action.Transforms() || !c.rule.IsEnabled() {
			continue
		}
		if !e.contextSatisfied(c.rule, text, nil) {
			continue
		}
		for _, sp := range c.allMatches(text) {
			cands = append(cands, candidate{c: c, span: sp})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].c.rule.Priority != cands[j].c.rule.Priority {
			return cands[i].c.rule.Priority < cands[j].c.rule.Priority
		}
		if cands[i].c.seq != cands[j].c.seq {
			return cands[i].c.seq < cands[j].c.seq
		}
		return cands[i].span.Start < cands[j].span.Start
	})

	var apps []Application
	var consumed []model.Span
	for _, cand := range cands {
		if overlapsAny(cand.span, consumed) {
			continue
		}
		consumed = append(consumed, cand.span)
		repl := ""
		switch cand.c.rule.Action {
		case ActionReplace, ActionReframe:
			repl = cand.c.rule.Replacement
		case ActionPreserve:
			repl = text[cand.span.Start:cand.span.End]
		}
		apps = append(apps, Application{
			RuleID:      cand.c.rule.ID,
			Action:      cand.c.rule.Action,
			Span:        cand.span,
			Original:    text[cand.span.Start:cand.span.End],
			Replacement: repl,
		})
	}
	if len(apps) == 0 {
		return text, nil
	}
	return splice(text, apps), apps
}

// splice rebuilds the text with every application in place, then fixes
// article agreement and whitespace around the edit sites.
func splice(text string, apps []Application) string {
	sort.Slice(apps, func(i, j int) bool { return apps[i].Span.Start < apps[j].Span.Start })

	var b strings.Builder
	var sites []int
	prev := 0
	for _, app := range apps {
		b.WriteString(text[prev:app.Span.Start])
		sites = append(sites, b.Len())
		b.WriteString(app.Replacement)
		prev = app.Span.End
	}
	b.WriteString(text[prev:])
	out := b.String()

	for i := len(sites) - 1; i >= 0; i-- {
		out = fixArticle(out, sites[i])
	}
	return tidy(out)
}

// fixArticle adjusts a/an immediately before the splice site to agree
// with whatever word now follows it.
func fixArticle(s string, pos int) string {
	if pos > len(s) {
		return s
	}
	i := pos
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	j := i
	for j > 0 && isLetter(s[j-1]) {
		j--
	}
	if j > 0 && s[j-1] != ' ' && s[j-1] != '\n' && s[j-1] != '\t' {
		return s
	}
	article := s[j:i]
	low := strings.ToLower(article)
	if low != "a" && low != "an" {
		return s
	}
	k := pos
	for k < len(s) && s[k] == ' ' {
		k++
	}
	if k >= len(s) || !isLetter(s[k]) {
		return s
	}
	vowel := strings.ContainsRune("aeiouAEIOU", rune(s[k]))
	want := article[:1]
	if vowel {
		want = article[:1] + "n"
	}
	if want == article {
		return s
	}
	return s[:j] + want + s[i:]
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// tidy collapses whitespace damage left by removals: doubled spaces,
// space before punctuation, leading or trailing gaps.
func tidy(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = spacePunct.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// Verdict is the outcome of a classification evaluation: which rule
// decided, what it decided, and why.
type Verdict struct {
	RuleID       string  `json:"rule_id"`
	Field        string  `json:"field"`
	Value        string  `json:"value"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
	Disqualified bool    `json:"disqualified"`
}

// Classify evaluates the category's classification rules against the
// text and returns the winning verdict, if any rule fired.
//
// A DISQUALIFY match always wins over every CLASSIFY vote, regardless
// of priority; among DISQUALIFY matches, and separately among CLASSIFY
// votes, the lowest priority number wins. Rules whose evaluation errors
// are skipped and reported, never fatal.
func (e *Engine) Classify(category, text string, ctx *EvalContext) (Verdict, bool, []*EvalError) {
	var errs []*EvalError

	for _, pass := range []Action{ActionDisqualify, ActionClassify} {
		for _, c := range e.byCategory[category] {
			if c.rule.Action != pass || !c.rule.IsEnabled() {
				continue
			}
			span, ok, err := e.evalRule(c, text, ctx)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if !ok {
				continue
			}
			matched := ""
			if span.End > span.Start && span.End <= len(text) {
				matched = text[span.Start:span.End]
			}
			cl := c.rule.Classification
			return Verdict{
				RuleID:       c.rule.ID,
				Field:        cl.Field,
				Value:        cl.Value,
				Confidence:   cl.Confidence,
				Reason:       expandReason(cl.ReasonTemplate, c.rule.ID, matched),
				Disqualified: pass == ActionDisqualify,
			}, true, errs
		}
	}
	return Verdict{}, false, errs
}

// evalRule runs one rule against one text, honoring the context gate
// and the metadata match types.
func (e *Engine) evalRule(c *compiledRule, text string, ctx *EvalContext) (model.Span, bool, *EvalError) {
	if !e.contextSatisfied(c.rule, text, ctx) {
		return model.Span{}, false, nil
	}
	switch c.rule.Match.Type {
	case MatchEntityRole, MatchEntityType, MatchEventType:
		return model.Span{}, c.metaMatch(ctx), nil
	}
	atomID := ""
	if ctx != nil {
		atomID = ctx.AtomID
	}
	spans, err := safeMatch(c, text, atomID)
	if err != nil {
		ee, okErr := err.(*EvalError)
		if !okErr {
			ee = &EvalError{RuleID: c.rule.ID, AtomID: atomID, Err: err}
		}
		return model.Span{}, false, ee
	}
	if len(spans) == 0 {
		return model.Span{}, false, nil
	}
	return spans[0], true, nil
}

// Detection is one DETECT-rule firing, with the term that fired it.
type Detection struct {
	RuleID     string  `json:"rule_id"`
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Term       string  `json:"term"`
	Confidence float64 `json:"confidence"`
}

// Detect runs every DETECT rule in the category and returns one
// detection per matched term. Detection is non-consuming: the same text
// can fire any number of detections.
func (e *Engine) Detect(category, text string, ctx *EvalContext) ([]Detection, []*EvalError) {
	var out []Detection
	var errs []*EvalError
	for _, c := range e.byCategory[category] {
		if c.rule.Action != ActionDetect || !c.rule.IsEnabled() {
			continue
		}
		spans, ok, err := e.evalAll(c, text, ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		cl := c.rule.Classification
		if len(spans) == 0 {
			out = append(out, Detection{RuleID: c.rule.ID, Field: cl.Field, Value: cl.Value, Confidence: cl.Confidence})
			continue
		}
		for _, sp := range spans {
			out = append(out, Detection{
				RuleID:     c.rule.ID,
				Field:      cl.Field,
				Value:      cl.Value,
				Term:       strings.ToLower(text[sp.Start:sp.End]),
				Confidence: cl.Confidence,
			})
		}
	}
	return out, errs
}

// evalAll is evalRule returning every span rather than the first.
func (e *Engine) evalAll(c *compiledRule, text string, ctx *EvalContext) ([]model.Span, bool, *EvalError) {
	if !e.contextSatisfied(c.rule, text, ctx) {
		return nil, false, nil
	}
	switch c.rule.Match.Type {
	case MatchEntityRole, MatchEntityType, MatchEventType:
		return nil, c.metaMatch(ctx), nil
	}
	atomID := ""
	if ctx != nil {
		atomID = ctx.AtomID
	}
	spans, err := safeMatch(c, text, atomID)
	if err != nil {
		ee, okErr := err.(*EvalError)
		if !okErr {
			ee = &EvalError{RuleID: c.rule.ID, AtomID: atomID, Err: err}
		}
		return nil, false, ee
	}
	return spans, len(spans) > 0, nil
}

// Extraction is one EXTRACT-rule capture. Span covers the full match,
// ValueSpan just the capture group.
type Extraction struct {
	RuleID    string     `json:"rule_id"`
	Field     string     `json:"field"`
	Value     string     `json:"value"`
	Span      model.Span `json:"span"`
	ValueSpan model.Span `json:"value_span"`
}

// Extract runs the category's EXTRACT rules in priority order and
// returns their first captures.
func (e *Engine) Extract(category, text string) []Extraction {
	var out []Extraction
	for _, c := range e.byCategory[category] {
		if c.rule.Action != ActionExtract || !c.rule.IsEnabled() {
			continue
		}
		if !e.contextSatisfied(c.rule, text, nil) {
			continue
		}
		if v, sp, ok := c.firstCapture(text); ok {
			out = append(out, Extraction{RuleID: c.rule.ID, Field: c.rule.Classification.Field, Value: v, Span: sp})
		}
	}
	return out
}

// ExtractAll returns every capture of every EXTRACT rule in the
// category, ordered by position. Decomposition uses this to pull all
// entity labels and quoted segments out of a narrative in one sweep.
func (e *Engine) ExtractAll(category, text string) []Extraction {
	var out []Extraction
	for _, c := range e.byCategory[category] {
		if c.rule.Action != ActionExtract || !c.rule.IsEnabled() {
			continue
		}
		if !e.contextSatisfied(c.rule, text, nil) {
			continue
		}
		for _, gc := range c.captureAll(text) {
			out = append(out, Extraction{
				RuleID:    c.rule.ID,
				Field:     c.rule.Classification.Field,
				Value:     gc.value,
				Span:      gc.span,
				ValueSpan: gc.valueSpan,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	return out
}

// Matches returns every match of every enabled rule in the category,
// ordered by position.
func (e *Engine) Matches(category, text string) []MatchResult {
	var out []MatchResult
	for _, c := range e.byCategory[category] {
		if !c.rule.IsEnabled() || c.res == nil {
			continue
		}
		if !e.contextSatisfied(c.rule, text, nil) {
			continue
		}
		for _, sp := range c.allMatches(text) {
			out = append(out, MatchResult{Rule: c.rule, Span: sp, Text: text[sp.Start:sp.End]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	return out
}

// Terms returns the combined vocabulary contributed by the category's
// GROUP rules. Callers use it for lookups, never for matching; matching
// stays inside the engine.
func (e *Engine) Terms(category string) []string {
	var out []string
	for _, c := range e.byCategory[category] {
		if c.rule.Action != ActionGroup || !c.rule.IsEnabled() {
			continue
		}
		out = append(out, c.rule.Match.Patterns...)
	}
	return out
}

// MatchesAny reports whether any enabled rule of the category matches
// the text, regardless of action.
func (e *Engine) MatchesAny(category, text string) bool {
	for _, c := range e.byCategory[category] {
		if !c.rule.IsEnabled() || c.res == nil {
			continue
		}
		if !e.contextSatisfied(c.rule, text, nil) {
			continue
		}
		if _, ok := c.firstMatch(text); ok {
			return true
		}
	}
	return false
}

// FirstMatch returns the earliest-priority match in the category.
func (e *Engine) FirstMatch(category, text string) (MatchResult, bool) {
	for _, c := range e.byCategory[category] {
		if !c.rule.IsEnabled() || c.res == nil {
			continue
		}
		if !e.contextSatisfied(c.rule, text, nil) {
			continue
		}
		if sp, ok := c.firstMatch(text); ok {
			return MatchResult{Rule: c.rule, Span: sp, Text: text[sp.Start:sp.End]}, true
		}
	}
	return MatchResult{}, false
}

// expandReason fills the {match} placeholder; an empty template falls
// back to the rule ID so a verdict always carries a reason.
func expandReason(template, ruleID, matched string) string {
	if template == "" {
		return ruleID
	}
	return strings.ReplaceAll(template, "{match}", strings.ToLower(matched))
}

func overlapsAny(s model.Span, spans []model.Span) bool {
	for _, t := range spans {
		if s.Start < t.End && t.Start < s.End {
			return true
		}
	}
	return false
}
