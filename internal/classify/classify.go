package classify

import (
	"log/slog"
	"strings"

	"plainview/internal/logging"
	"plainview/internal/model"
	"plainview/internal/rules"
)

// contextRadius is how far around an atom's span the classification
// window reaches. Wide enough to include the neighboring sentence, so a
// provider mentioned just before "She documented bruises" still
// satisfies the medical context gate.
const contextRadius = 150

// attributionRadius bounds the speaker search window around a quote.
// Attribution syntax sits in the same sentence as the quote; anything
// further away is resolved through the entity registry instead.
const attributionRadius = 100

// Classifier runs the classification pass: camera verdicts and display
// flags for events, epistemic types for statements, roles for entities,
// speaker resolution for quotes, and timeline anchoring. It writes each
// classification field exactly once and never moves or removes an atom;
// routing is the selection layer's job.
type Classifier struct {
	eng *rules.Engine
	cfg *model.Config
	log *slog.Logger

	pronouns    map[string]bool
	firstPerson map[string]bool
	determiners map[string]bool
	actionVerbs map[string]bool
	bareRoles   map[string]bool
	stopwords   map[string]bool
}

// New creates a Classifier bound to a loaded ruleset. A nil config gets
// the built-in defaults.
func New(eng *rules.Engine, cfg *model.Config) *Classifier {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	return &Classifier{
		eng:         eng,
		cfg:         cfg,
		log:         logging.New("classify"),
		pronouns:    termSet(eng, "pronouns"),
		firstPerson: termSet(eng, "first_person"),
		determiners: termSet(eng, "determiners"),
		actionVerbs: termSet(eng, "action_verbs"),
		bareRoles:   termSet(eng, "bare_roles"),
		stopwords:   termSet(eng, "label_stopwords"),
	}
}

// Run classifies every atom in the store. Rule evaluation failures are
// recovered per atom and returned as diagnostics; the atom keeps its
// pre-rule default and the pass continues.
func (c *Classifier) Run(store *model.Store, narrative string) []model.Diagnostic {
	var diags []model.Diagnostic

	// 1. Statements: epistemic type, subtype, attribution
	for _, st := range store.Statements {
		diags = appendEvalDiags(diags, c.classifyStatement(st, narrative))
	}

	// 2. Events: camera battery, detect flags, neutralization
	for _, ev := range store.Events {
		diags = appendEvalDiags(diags, c.classifyEvent(ev))
	}

	// 3. Entities: domain role, participation, actor validity
	for _, en := range store.Entities {
		diags = appendEvalDiags(diags, c.classifyEntity(en))
	}

	// 4. Quotes: speaker resolution against the registry
	for _, q := range store.Quotes {
		diags = appendEvalDiags(diags, c.resolveSpeaker(q, store, narrative))
	}

	// 5. Timeline: day offsets, ordering, times, gaps, pronouns
	diags = appendEvalDiags(diags, c.enrichTimeline(store, narrative))

	c.log.Debug("classification complete",
		"statements", len(store.Statements),
		"events", len(store.Events),
		"entities", len(store.Entities),
		"quotes", len(store.Quotes),
		"timeline", len(store.Timeline),
		"diagnostics", len(diags))
	return diags
}

// window slices the narrative around a span, clipped to bounds.
func window(narrative string, sp model.Span, radius int) string {
	lo := sp.Start - radius
	if lo < 0 {
		lo = 0
	}
	hi := sp.End + radius
	if hi > len(narrative) {
		hi = len(narrative)
	}
	if lo >= hi {
		return ""
	}
	return narrative[lo:hi]
}

// termSet snapshots a GROUP vocabulary for word lookups.
func termSet(eng *rules.Engine, category string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range eng.Terms(category) {
		set[strings.ToLower(t)] = true
	}
	return set
}

// firstWord returns the lowercased first token, trimmed of punctuation.
func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(fields[0], `.,;:!?"'`))
}

// lastWord returns the lowercased last token, trimmed of punctuation.
func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(fields[len(fields)-1], `.,;:!?"'`))
}

// possessive reports whether the word is a possessive pronoun. The
// vocabulary places those in both the pronoun and determiner groups.
func (c *Classifier) possessive(word string) bool {
	return c.pronouns[word] && c.determiners[word]
}

// nearestNamedBefore finds the named entity whose mention ends closest
// before pos, for contextual speaker and pronoun resolution.
func nearestNamedBefore(store *model.Store, pos int) (*model.Entity, bool) {
	var best *model.Entity
	bestEnd := -1
	for _, en := range store.Entities {
		if !en.IsNamed {
			continue
		}
		for _, m := range en.Mentions {
			if m.End <= pos && m.End > bestEnd {
				best = en
				bestEnd = m.End
			}
		}
	}
	return best, best != nil
}

// findEntity looks up a label in the registry, tolerating partial
// mentions ("Maria" for "Maria Santos").
func findEntity(store *model.Store, label string) *model.Entity {
	for _, en := range store.Entities {
		if strings.EqualFold(en.Label, label) {
			return en
		}
	}
	lower := strings.ToLower(label)
	for _, en := range store.Entities {
		if !en.IsNamed {
			continue
		}
		for _, word := range strings.Fields(strings.ToLower(en.Label)) {
			if word == lower {
				return en
			}
		}
	}
	return nil
}

// appendEvalDiags converts recovered rule failures into diagnostics.
func appendEvalDiags(diags []model.Diagnostic, errs []*rules.EvalError) []model.Diagnostic {
	for _, e := range errs {
		diags = append(diags, model.Diagnostic{
			Stage:   "classify",
			AtomID:  e.AtomID,
			RuleID:  e.RuleID,
			Message: e.Err.Error(),
		})
	}
	return diags
}
