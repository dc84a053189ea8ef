// Package render turns a selection result and its atom store into the
// final report, as prose text and as JSON mirroring the same buckets.
// Rendering is formatting only: it reads any atom field but never sets
// classification or selection fields and never runs pattern matching.
package render

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"plainview/internal/logging"
	"plainview/internal/model"
)

// Renderer produces the text and JSON forms of a report.
type Renderer struct {
	includeFooter bool
	log           *slog.Logger
}

// New returns a Renderer. The footer carries run totals and can be
// switched off for clean piping.
func New(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, log: logging.New("render")}
}

// Document is the renderer's view of one selection result: ordered
// sections of display lines plus the exclusion listing. Both output
// forms are emitted from the same Document, so they can never drift.
type Document struct {
	Version  string     `json:"version"`
	Mode     model.Mode `json:"mode"`
	Sections []Section  `json:"sections"`
	Excluded []Excluded `json:"excluded,omitempty"`
}

// Section is one rendered bucket.
type Section struct {
	Title   string  `json:"title"`
	Bucket  string  `json:"bucket"`
	Entries []Entry `json:"entries"`
}

// Entry is one display line with the atom it came from.
type Entry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Excluded is one left-out atom with its reason, kept visible so no atom
// ever disappears without a trace.
type Excluded struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Reason   string `json:"reason"`
}

// Build assembles the Document for a selection result. A nil selection
// is a caller error, never worked around with inline re-selection.
func (r *Renderer) Build(store *model.Store, sel *model.SelectionResult) (*Document, error) {
	if sel == nil {
		return nil, fmt.Errorf("render: nil selection result")
	}
	if store == nil {
		return nil, fmt.Errorf("render: nil store")
	}

	doc := &Document{Version: reportVersion, Mode: sel.Mode}

	// One emitted set across every section: an atom ID renders at most
	// once no matter how the buckets are arranged.
	emitted := map[string]bool{}
	for _, spec := range sectionSpecs {
		ids := bucketIDs(sel, spec)
		if len(ids) == 0 {
			continue
		}
		sec := Section{Title: spec.title, Bucket: spec.bucket}
		for _, id := range ids {
			if emitted[id] {
				r.log.Warn("duplicate atom in selection buckets", "id", id, "bucket", spec.bucket)
				continue
			}
			line, ok := r.line(store, spec, id)
			if !ok {
				continue
			}
			emitted[id] = true
			sec.Entries = append(sec.Entries, Entry{ID: id, Text: line})
		}
		if len(sec.Entries) > 0 {
			doc.Sections = append(doc.Sections, sec)
		}
	}

	for _, cat := range excludedOrder {
		for _, ex := range exclusions(sel, cat) {
			doc.Excluded = append(doc.Excluded, Excluded{Category: cat, ID: ex.ID, Reason: ex.Reason})
		}
	}
	return doc, nil
}

// Text renders the prose report.
func (r *Renderer) Text(store *model.Store, sel *model.SelectionResult) (string, error) {
	doc, err := r.Build(store, sel)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(ReportTitle + "\n")
	b.WriteString("mode: " + string(doc.Mode) + "\n")
	for _, sec := range doc.Sections {
		b.WriteString("\n" + sec.Title + "\n")
		for _, e := range sec.Entries {
			b.WriteString("  - " + e.Text + "\n")
		}
	}
	if len(doc.Excluded) > 0 {
		b.WriteString("\n" + TitleExclusions + "\n")
		for _, ex := range doc.Excluded {
			fmt.Fprintf(&b, "  - %s (%s): %s\n", ex.ID, ex.Category, ex.Reason)
		}
	}
	if r.includeFooter {
		fmt.Fprintf(&b, "\ngenerated by plainview (%d atoms, %d included, %d excluded)\n",
			store.Len(), sel.IncludedCount(), sel.ExcludedCount())
	}
	return b.String(), nil
}

// JSON renders the machine-readable report from the same Document the
// text form uses.
func (r *Renderer) JSON(store *model.Store, sel *model.SelectionResult) ([]byte, error) {
	doc, err := r.Build(store, sel)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: marshal document: %w", err)
	}
	return out, nil
}

// Summary is the one-screen run overview printed on verbose transforms.
func (r *Renderer) Summary(rep *model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (mode %s, ruleset %s, oracle %s)\n",
		rep.RunID, rep.Mode, rep.RulesetVersion, rep.OracleProvider)
	fmt.Fprintf(&b, "atoms: %d total, %d included, %d excluded\n",
		rep.Counts.Atoms, rep.Counts.Included, rep.Counts.Excluded)
	fmt.Fprintf(&b, "statements %d, events %d, entities %d, quotes %d, timeline %d\n",
		rep.Counts.Statements, rep.Counts.Events, rep.Counts.Entities, rep.Counts.Quotes, rep.Counts.Timeline)
	if len(rep.Diagnostics) > 0 {
		fmt.Fprintf(&b, "diagnostics: %d\n", len(rep.Diagnostics))
	}
	return b.String()
}

func (r *Renderer) line(store *model.Store, spec sectionSpec, id string) (string, bool) {
	switch spec.category {
	case catEvents:
		if ev := store.EventByID(id); ev != nil {
			return eventLine(ev, spec.bucket), true
		}
	case catEntities:
		if en := store.EntityByID(id); en != nil {
			return entityLine(en), true
		}
	case catQuotes:
		if q := store.QuoteByID(id); q != nil {
			return quoteLine(q), true
		}
	case catTimeline:
		if te := store.TimelineByID(id); te != nil {
			return timelineLine(te), true
		}
	case catStatements:
		if st := store.StatementByID(id); st != nil {
			return statementLine(st), true
		}
	}
	r.log.Warn("selected atom missing from store", "id", id, "bucket", spec.bucket)
	return "", false
}

func bucketIDs(sel *model.SelectionResult, spec sectionSpec) []string {
	switch spec.category {
	case catEvents:
		return sel.Events.Buckets[spec.bucket]
	case catEntities:
		return sel.Entities.Buckets[spec.bucket]
	case catQuotes:
		return sel.Quotes.Buckets[spec.bucket]
	case catTimeline:
		return sel.Timeline.Buckets[spec.bucket]
	case catStatements:
		return sel.Statements.Buckets[spec.bucket]
	}
	return nil
}

func exclusions(sel *model.SelectionResult, category string) []model.Exclusion {
	switch category {
	case catEvents:
		return sel.Events.Excluded
	case catEntities:
		return sel.Entities.Excluded
	case catQuotes:
		return sel.Quotes.Excluded
	case catTimeline:
		return sel.Timeline.Excluded
	case catStatements:
		return sel.Statements.Excluded
	}
	return nil
}
