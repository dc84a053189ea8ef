package oracle

import (
	"context"
	"fmt"
	"sort"

	"plainview/internal/model"
)

// Oracle proposes atomic statement boundaries for a narrative. That is
// the only job it has: segmentation. All typing, camera evaluation and
// selection happen downstream in deterministic rule passes, so two runs
// over the same proposal always classify identically regardless of
// which oracle produced it.
type Oracle interface {
	// Name identifies the provider in reports and cache keys.
	Name() string

	// Decompose splits the narrative into proposed atoms. Spans index
	// into the narrative exactly as given.
	Decompose(ctx context.Context, narrative string) (*Proposal, error)

	// IsAvailable checks that the provider is configured and reachable.
	IsAvailable(ctx context.Context) bool
}

// ProposedAtom is one segmentation proposal: a text slice and where it
// came from. Kind is a hint only ("sentence", "quote", "clause");
// downstream passes are free to ignore it.
type ProposedAtom struct {
	Text string     `json:"text"`
	Span model.Span `json:"span"`
	Kind string     `json:"kind,omitempty"`
}

// Proposal is an oracle's full segmentation of one narrative.
type Proposal struct {
	Atoms []ProposedAtom `json:"atoms"`
}

// ContractError reports a proposed atom that violates the oracle
// contract. The atom is rejected and the rest of the proposal stands;
// a sloppy oracle degrades coverage, never correctness.
type ContractError struct {
	Index  int
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("oracle contract: atom %d: %s", e.Index, e.Reason)
}

// Vet checks every proposed atom against the contract and returns the
// accepted atoms plus one error per rejection. The contract:
//
//   - the span must lie inside the narrative
//   - the text must be exactly what the span points at
//   - atoms must not overlap an earlier accepted atom
//
// Accepted atoms come back ordered by span start.
func Vet(narrative string, p *Proposal) ([]ProposedAtom, []*ContractError) {
	var accepted []ProposedAtom
	var errs []*ContractError

	for i, atom := range p.Atoms {
		if !atom.Span.Valid(len(narrative)) {
			errs = append(errs, &ContractError{Index: i, Reason: fmt.Sprintf("span [%d,%d) outside narrative of length %d", atom.Span.Start, atom.Span.End, len(narrative))})
			continue
		}
		if atom.Span.End == atom.Span.Start {
			errs = append(errs, &ContractError{Index: i, Reason: "empty span"})
			continue
		}
		if got := narrative[atom.Span.Start:atom.Span.End]; got != atom.Text {
			errs = append(errs, &ContractError{Index: i, Reason: fmt.Sprintf("text %q does not match span content %q", atom.Text, got)})
			continue
		}
		overlap := false
		for _, a := range accepted {
			if atom.Span.Start < a.Span.End && a.Span.Start < atom.Span.End {
				overlap = true
				break
			}
		}
		if overlap {
			errs = append(errs, &ContractError{Index: i, Reason: "span overlaps an earlier atom"})
			continue
		}
		accepted = append(accepted, atom)
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Span.Start < accepted[j].Span.Start })
	return accepted, errs
}
