package decompose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"plainview/internal/logging"
	"plainview/internal/model"
	"plainview/internal/oracle"
	"plainview/internal/rules"
)

// Decomposer turns one narrative into the atom store: statements,
// events, entities, quotes and timeline entries, every one carrying an
// immutable span back into the source text. It owns no patterns; all
// vocabulary comes through the rule engine.
type Decomposer struct {
	eng *rules.Engine
	orc oracle.Oracle
	log *slog.Logger

	actionVerbs map[string]bool
	determiners map[string]bool
	pronouns    map[string]bool
	firstPerson map[string]bool
	trailing    map[string]bool
	stopwords   map[string]bool
}

// New creates a Decomposer bound to a loaded ruleset and an oracle.
func New(eng *rules.Engine, orc oracle.Oracle) *Decomposer {
	return &Decomposer{
		eng:         eng,
		orc:         orc,
		log:         logging.New("decompose"),
		actionVerbs: termSet(eng, "action_verbs"),
		determiners: termSet(eng, "determiners"),
		pronouns:    termSet(eng, "pronouns"),
		firstPerson: termSet(eng, "first_person"),
		trailing:    termSet(eng, "trailing_clause"),
		stopwords:   termSet(eng, "label_stopwords"),
	}
}

// termSet snapshots a GROUP vocabulary for word lookups. Matching stays
// in the engine; these sets only answer "is this token in the list".
func termSet(eng *rules.Engine, category string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range eng.Terms(category) {
		set[strings.ToLower(t)] = true
	}
	return set
}

// Run decomposes the narrative. Oracle contract violations reject the
// offending atom and continue; only an oracle transport failure aborts.
func (d *Decomposer) Run(ctx context.Context, narrative string) (*model.Store, []model.Diagnostic, error) {
	// 1. Ask the oracle for segmentation proposals
	prop, err := d.orc.Decompose(ctx, narrative)
	if err != nil {
		return nil, nil, fmt.Errorf("oracle decompose: %w", err)
	}

	// 2. Vet every proposal against the contract
	accepted, contractErrs := oracle.Vet(narrative, prop)
	var diags []model.Diagnostic
	for _, ce := range contractErrs {
		diags = append(diags, model.Diagnostic{Stage: "decompose", Message: ce.Error()})
		d.log.Warn("oracle atom rejected", "index", ce.Index, "reason", ce.Reason)
	}

	// 3. Place each accepted atom into the store
	store := &model.Store{}
	ids := newCounter()
	for _, atom := range accepted {
		d.place(store, ids, narrative, atom)
	}

	// 4. Build the entity registry from the whole narrative
	d.buildEntities(store, ids, narrative)

	d.log.Debug("decomposed",
		"statements", len(store.Statements),
		"events", len(store.Events),
		"entities", len(store.Entities),
		"quotes", len(store.Quotes),
		"timeline", len(store.Timeline),
		"rejected", len(contractErrs))
	return store, diags, nil
}

// place routes one vetted atom: quoted speech becomes a SpeechAct (plus
// a split-off trailing statement when present), everything else becomes
// an AtomicStatement and, when an action verb anchors it, an Event.
// Every atom also lands on the timeline.
func (d *Decomposer) place(store *model.Store, ids *counter, narrative string, atom oracle.ProposedAtom) {
	quotes := d.eng.ExtractAll("quote_content", atom.Text)
	if len(quotes) > 0 {
		d.placeQuoted(store, ids, narrative, atom, quotes)
		return
	}

	st := &model.AtomicStatement{
		ID:          ids.next("ST"),
		Text:        atom.Text,
		Span:        atom.Span,
		Type:        model.TypeUnknown,
		Attribution: model.AttrReporter,
	}
	store.Statements = append(store.Statements, st)

	if ev, ok := d.parseEvent(ids, atom.Text, atom.Span); ok {
		store.Events = append(store.Events, ev)
	}

	store.Timeline = append(store.Timeline, &model.TimelineEntry{
		ID:          ids.next("TL"),
		Description: atom.Text,
		Span:        atom.Span,
		Quality:     model.QualityNormal,
	})
}

// counter hands out deterministic sequential atom IDs ("EV-003") so the
// same narrative always yields the same report.
type counter struct {
	n map[string]int
}

func newCounter() *counter {
	return &counter{n: make(map[string]int)}
}

func (c *counter) next(prefix string) string {
	c.n[prefix]++
	return fmt.Sprintf("%s-%03d", prefix, c.n[prefix])
}

// firstWord returns the leading token lowercased, trimmed of
// punctuation.
func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(fields[0], ".,;:!?\"'"))
}
