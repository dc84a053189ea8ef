package model

import "time"

// Counts summarizes a selection result for listings and the audit ledger.
type Counts struct {
	Atoms    int `json:"atoms"`
	Included int `json:"included"`
	Excluded int `json:"excluded"`

	Statements int `json:"statements"`
	Events     int `json:"events"`
	Entities   int `json:"entities"`
	Quotes     int `json:"quotes"`
	Timeline   int `json:"timeline"`
}

// Report is the structured output of one transform run: the fully
// annotated store, the selection partition, and every diagnostic raised
// along the way. The prose rendering is produced separately from the
// same SelectionResult and is never embedded here; the two outputs share
// no mutable field.
type Report struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`

	Mode           Mode   `json:"mode"`
	RulesetVersion string `json:"ruleset_version"`
	OracleProvider string `json:"oracle_provider"`

	Store     *Store           `json:"store"`
	Selection *SelectionResult `json:"selection"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Counts      Counts       `json:"counts"`
}

// Summarize recomputes Counts from the store and selection.
func (r *Report) Summarize() {
	r.Counts = Counts{
		Atoms:      r.Store.Len(),
		Included:   r.Selection.IncludedCount(),
		Excluded:   r.Selection.ExcludedCount(),
		Statements: len(r.Store.Statements),
		Events:     len(r.Store.Events),
		Entities:   len(r.Store.Entities),
		Quotes:     len(r.Store.Quotes),
		Timeline:   len(r.Store.Timeline),
	}
}
