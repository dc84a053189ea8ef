package decompose

import (
	"strings"

	"plainview/internal/model"
	"plainview/internal/oracle"
	"plainview/internal/rules"
)

// placeQuoted turns a quote-bearing atom into speech acts plus, when a
// commentary clause trails the final quote, a split-off statement that
// classifies on its own. The attribution syntax around the quote ("he
// yelled") stays with the speech act as resolution context; it never
// becomes a statement.
func (d *Decomposer) placeQuoted(store *model.Store, ids *counter, narrative string, atom oracle.ProposedAtom, quotes []rules.Extraction) {
	for _, q := range quotes {
		sp := model.Span{Start: atom.Span.Start + q.Span.Start, End: atom.Span.Start + q.Span.End}
		// The single-quote pattern anchors on preceding whitespace; keep
		// the span on the marks themselves.
		for sp.Start < sp.End && (narrative[sp.Start] == ' ' || narrative[sp.Start] == '\t') {
			sp.Start++
		}
		store.Quotes = append(store.Quotes, &model.SpeechAct{
			ID:                ids.next("QU"),
			Content:           q.Value,
			Span:              sp,
			SpeakerValidation: model.SpeakerUnknown,
		})
	}

	// A relative clause after the closing mark is the narrator's own
	// commentary, never part of the utterance. Split it off so the quote
	// stays clean and the commentary is classified separately.
	last := quotes[len(quotes)-1]
	rest := atom.Text[last.Span.End:]
	if w := firstWord(rest); d.trailing[w] && len(strings.Fields(rest)) >= 2 {
		off := len(rest) - len(strings.TrimLeft(rest, " \t,"))
		relStart := last.Span.End + off
		st := &model.AtomicStatement{
			ID:          ids.next("ST"),
			Text:        atom.Text[relStart:],
			Span:        model.Span{Start: atom.Span.Start + relStart, End: atom.Span.End},
			Type:        model.TypeUnknown,
			Attribution: model.AttrReporter,
		}
		store.Statements = append(store.Statements, st)
	}

	store.Timeline = append(store.Timeline, &model.TimelineEntry{
		ID:          ids.next("TL"),
		Description: atom.Text,
		Span:        atom.Span,
		Quality:     model.QualityNormal,
	})
}
