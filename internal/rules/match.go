package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"plainview/internal/model"
)

// EvalContext carries the non-text attributes a metadata match type
// (entity_role, entity_type, event_type) evaluates against, plus the
// surrounding-text window that context_required gates may search beyond
// the atom itself.
type EvalContext struct {
	AtomID     string
	EntityRole string
	EntityType string
	EventType  string

	// Window is the atom's neighborhood in the source narrative.
	// Context gates check it after the atom text, so a provider
	// mentioned one sentence earlier still satisfies a provider gate.
	Window string
}

// MatchResult is one rule firing at one location.
type MatchResult struct {
	Rule *Rule
	Span model.Span
	Text string
}

// compiledRule pairs a rule with its compiled patterns. Compilation
// happens once at load; evaluation never compiles.
type compiledRule struct {
	rule *Rule
	seq  int // load order, tie-break after priority

	// res is nil for metadata match types.
	res []*regexp.Regexp
}

// compile builds the rule's matchers. Keyword patterns match whole
// words only, so "cop" can never fire inside "cope". Phrase patterns
// tolerate flexible whitespace between words. Regex patterns are taken
// as written.
func compile(r *Rule, seq int, file string) (*compiledRule, error) {
	c := &compiledRule{rule: r, seq: seq}

	switch r.Match.Type {
	case MatchEntityRole, MatchEntityType, MatchEventType:
		return c, nil
	}

	for _, p := range r.Match.Patterns {
		var expr string
		switch r.Match.Type {
		case MatchKeyword:
			expr = `\b` + regexp.QuoteMeta(p) + `\b`
		case MatchPhrase:
			words := strings.Fields(p)
			for i, w := range words {
				words[i] = regexp.QuoteMeta(w)
			}
			expr = `\b` + strings.Join(words, `\s+`) + `\b`
		case MatchRegex:
			expr = p
		}
		if !r.Match.CaseSensitive {
			expr = `(?i)` + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, loadErrf(file, r.ID, "invalid pattern %q: %v", p, err)
		}
		if r.Action == ActionExtract && re.NumSubexp() < 1 {
			return nil, loadErrf(file, r.ID, "EXTRACT pattern %q has no capture group", p)
		}
		c.res = append(c.res, re)
	}
	return c, nil
}

// metaMatch evaluates the metadata match types against the context.
func (c *compiledRule) metaMatch(ctx *EvalContext) bool {
	if ctx == nil {
		return false
	}
	var subject string
	switch c.rule.Match.Type {
	case MatchEntityRole:
		subject = ctx.EntityRole
	case MatchEntityType:
		subject = ctx.EntityType
	case MatchEventType:
		subject = ctx.EventType
	default:
		return false
	}
	for _, p := range c.rule.Match.Patterns {
		if c.rule.Match.CaseSensitive {
			if subject == p {
				return true
			}
		} else if strings.EqualFold(subject, p) {
			return true
		}
	}
	return false
}

// firstMatch returns the earliest match of any pattern in text.
func (c *compiledRule) firstMatch(text string) (model.Span, bool) {
	best := model.Span{Start: -1}
	for _, re := range c.res {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best.Start < 0 || loc[0] < best.Start {
			best = model.Span{Start: loc[0], End: loc[1]}
		}
	}
	return best, best.Start >= 0
}

// allMatches returns every match of every pattern, ordered by position.
func (c *compiledRule) allMatches(text string) []model.Span {
	var spans []model.Span
	for _, re := range c.res {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, model.Span{Start: loc[0], End: loc[1]})
		}
	}
	sortSpans(spans)
	return spans
}

// firstCapture returns the first capture group of the earliest matching
// pattern, for EXTRACT rules.
func (c *compiledRule) firstCapture(text string) (value string, span model.Span, ok bool) {
	bestStart := -1
	for _, re := range c.res {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil || len(loc) < 4 || loc[2] < 0 {
			continue
		}
		if bestStart < 0 || loc[0] < bestStart {
			bestStart = loc[0]
			value = text[loc[2]:loc[3]]
			span = model.Span{Start: loc[0], End: loc[1]}
		}
	}
	return value, span, bestStart >= 0
}

// capture pairs one extraction with both spans: the full match and the
// capture group inside it.
type capture struct {
	value     string
	span      model.Span // full match
	valueSpan model.Span // capture group only
}

// captureAll returns every capture of every pattern, ordered by position.
func (c *compiledRule) captureAll(text string) []capture {
	var out []capture
	for _, re := range c.res {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			if len(loc) < 4 || loc[2] < 0 {
				continue
			}
			out = append(out, capture{
				value:     text[loc[2]:loc[3]],
				span:      model.Span{Start: loc[0], End: loc[1]},
				valueSpan: model.Span{Start: loc[2], End: loc[3]},
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].span.Start < out[j].span.Start })
	return out
}

// safeMatch wraps a single rule evaluation so a pathological pattern can
// never take down the whole pass; the caller records the error as a
// diagnostic and keeps the atom's pre-rule default.
func safeMatch(c *compiledRule, text string, atomID string) (spans []model.Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EvalError{RuleID: c.rule.ID, AtomID: atomID, Err: fmt.Errorf("match panic: %v", r)}
		}
	}()
	return c.allMatches(text), nil
}

func sortSpans(spans []model.Span) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
}
