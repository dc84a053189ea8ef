package oracle

import (
	"context"
	"strings"
	"testing"
	"time"

	"plainview/internal/cache"
	"plainview/internal/model"
)

func decompose(t *testing.T, narrative string) *Proposal {
	t.Helper()
	p, err := NewHeuristic().Decompose(context.Background(), narrative)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return p
}

func texts(p *Proposal) []string {
	out := make([]string, len(p.Atoms))
	for i, a := range p.Atoms {
		out[i] = a.Text
	}
	return out
}

func TestHeuristicSplitsSentences(t *testing.T) {
	narrative := "Officer Jenkins grabbed my arm. 'Stop!' he yelled. I was terrified."
	p := decompose(t, narrative)

	want := []string{
		"Officer Jenkins grabbed my arm.",
		"'Stop!' he yelled.",
		"I was terrified.",
	}
	got := texts(p)
	if len(got) != len(want) {
		t.Fatalf("Expected %d atoms, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Atom %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if p.Atoms[1].Kind != "quote" {
		t.Errorf("Expected quoted atom to carry kind quote, got %q", p.Atoms[1].Kind)
	}
}

func TestHeuristicSpansSliceNarrative(t *testing.T) {
	narratives := []string{
		"Officer Jenkins grabbed my arm. 'Stop!' he yelled. I was terrified.",
		"He said, “Get out of the car.” Then he opened the door.",
		"Sgt. Miller arrived at 3 p.m. that day. He wrote down badge no. 4471.",
		"He grabbed my arm, and he twisted it behind my back.",
	}
	for _, narrative := range narratives {
		p := decompose(t, narrative)
		if len(p.Atoms) == 0 {
			t.Fatalf("Expected atoms for %q", narrative)
		}
		for i, a := range p.Atoms {
			if !a.Span.Valid(len(narrative)) {
				t.Fatalf("Atom %d span [%d,%d) out of bounds for %q", i, a.Span.Start, a.Span.End, narrative)
			}
			if got := narrative[a.Span.Start:a.Span.End]; got != a.Text {
				t.Errorf("Atom %d: span slices to %q, text says %q", i, got, a.Text)
			}
		}
	}
}

func TestHeuristicDoesNotSplitAbbreviations(t *testing.T) {
	tests := []struct {
		narrative string
		count     int
	}{
		{"Sgt. Miller arrived at 3 p.m. that day. He left.", 2},
		{"Det. J. Rodriguez took my statement. I went home.", 2},
		{"The car stopped 3.5 feet away. I ran.", 2},
		{"Dr. Okafor examined me at the E.R. desk.", 1},
	}
	for _, tt := range tests {
		p := decompose(t, tt.narrative)
		if len(p.Atoms) != tt.count {
			t.Errorf("%q: expected %d atoms, got %d: %q", tt.narrative, tt.count, len(p.Atoms), texts(p))
		}
	}
}

func TestHeuristicQuoteHoldsSentenceOpen(t *testing.T) {
	narrative := "He said, “Get out of the car.” Then he opened the door."
	p := decompose(t, narrative)
	if len(p.Atoms) != 2 {
		t.Fatalf("Expected 2 atoms, got %d: %q", len(p.Atoms), texts(p))
	}
	if !strings.Contains(p.Atoms[0].Text, "Get out of the car") {
		t.Errorf("Expected the quote to stay inside the first atom, got %q", p.Atoms[0].Text)
	}
	if p.Atoms[1].Text != "Then he opened the door." {
		t.Errorf("Expected second sentence intact, got %q", p.Atoms[1].Text)
	}
}

func TestHeuristicSplitsClausesKeepingConjunction(t *testing.T) {
	narrative := "He grabbed my arm, and he twisted it behind my back."
	p := decompose(t, narrative)
	if len(p.Atoms) != 2 {
		t.Fatalf("Expected 2 atoms, got %d: %q", len(p.Atoms), texts(p))
	}
	if p.Atoms[0].Text != "He grabbed my arm" {
		t.Errorf("Expected first clause without trailing comma, got %q", p.Atoms[0].Text)
	}
	if !strings.HasPrefix(p.Atoms[1].Text, "and ") {
		t.Errorf("Expected second clause to keep its conjunction, got %q", p.Atoms[1].Text)
	}
	for i, a := range p.Atoms {
		if a.Kind != "clause" {
			t.Errorf("Atom %d: expected kind clause, got %q", i, a.Kind)
		}
	}
}

func TestHeuristicDoesNotSplitShortClauses(t *testing.T) {
	// Both sides must clear the minimum clause length before a comma
	// boundary becomes a cut.
	p := decompose(t, "He ran, and fell.")
	if len(p.Atoms) != 1 {
		t.Fatalf("Expected 1 atom, got %d: %q", len(p.Atoms), texts(p))
	}
}

func TestHeuristicClauseSplitIgnoresQuotedCommas(t *testing.T) {
	narrative := "He shouted “stay down, and don't move a muscle” at my brother."
	p := decompose(t, narrative)
	if len(p.Atoms) != 1 {
		t.Fatalf("Expected quoted comma to stay uncut, got %d atoms: %q", len(p.Atoms), texts(p))
	}
}

func TestHeuristicSplitsSemicolons(t *testing.T) {
	narrative := "The officer searched the trunk; my wallet was on the seat."
	p := decompose(t, narrative)
	if len(p.Atoms) != 2 {
		t.Fatalf("Expected 2 atoms, got %d: %q", len(p.Atoms), texts(p))
	}
	if strings.HasSuffix(p.Atoms[0].Text, ";") {
		t.Errorf("Expected dangling semicolon dropped, got %q", p.Atoms[0].Text)
	}
}

func TestVetAcceptsExactProposal(t *testing.T) {
	narrative := "He ran. She stayed."
	p := &Proposal{Atoms: []ProposedAtom{
		{Text: "She stayed.", Span: model.Span{Start: 8, End: 19}},
		{Text: "He ran.", Span: model.Span{Start: 0, End: 7}},
	}}
	accepted, errs := Vet(narrative, p)
	if len(errs) != 0 {
		t.Fatalf("Expected no contract errors, got %v", errs)
	}
	if len(accepted) != 2 {
		t.Fatalf("Expected 2 accepted atoms, got %d", len(accepted))
	}
	if accepted[0].Text != "He ran." {
		t.Errorf("Expected atoms ordered by span start, got %q first", accepted[0].Text)
	}
}

func TestVetRejectsContractViolations(t *testing.T) {
	narrative := "He ran. She stayed."
	tests := []struct {
		name   string
		atom   ProposedAtom
		reason string
	}{
		{"out of bounds", ProposedAtom{Text: "x", Span: model.Span{Start: 10, End: 99}}, "outside narrative"},
		{"empty span", ProposedAtom{Text: "", Span: model.Span{Start: 3, End: 3}}, "empty span"},
		{"text mismatch", ProposedAtom{Text: "He walked.", Span: model.Span{Start: 0, End: 7}}, "does not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Proposal{Atoms: []ProposedAtom{
				tt.atom,
				{Text: "She stayed.", Span: model.Span{Start: 8, End: 19}},
			}}
			accepted, errs := Vet(narrative, p)
			if len(errs) != 1 {
				t.Fatalf("Expected 1 contract error, got %d", len(errs))
			}
			if !strings.Contains(errs[0].Reason, tt.reason) {
				t.Errorf("Expected reason to mention %q, got %q", tt.reason, errs[0].Reason)
			}
			if errs[0].Index != 0 {
				t.Errorf("Expected the error to name atom 0, got %d", errs[0].Index)
			}
			// The rest of the proposal survives the rejection.
			if len(accepted) != 1 || accepted[0].Text != "She stayed." {
				t.Errorf("Expected the valid atom to be kept, got %v", accepted)
			}
		})
	}
}

func TestVetRejectsOverlap(t *testing.T) {
	narrative := "He ran away fast."
	p := &Proposal{Atoms: []ProposedAtom{
		{Text: "He ran away", Span: model.Span{Start: 0, End: 11}},
		{Text: "away fast.", Span: model.Span{Start: 7, End: 17}},
	}}
	accepted, errs := Vet(narrative, p)
	if len(accepted) != 1 {
		t.Fatalf("Expected 1 accepted atom, got %d", len(accepted))
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Reason, "overlaps") {
		t.Fatalf("Expected an overlap rejection, got %v", errs)
	}
}

type countingOracle struct {
	calls int
}

func (c *countingOracle) Name() string { return "counting" }

func (c *countingOracle) IsAvailable(ctx context.Context) bool { return true }

func (c *countingOracle) Decompose(ctx context.Context, narrative string) (*Proposal, error) {
	c.calls++
	return &Proposal{Atoms: []ProposedAtom{
		{Text: narrative, Span: model.Span{Start: 0, End: len(narrative)}, Kind: "sentence"},
	}}, nil
}

func TestCachedDecomposeReadsThrough(t *testing.T) {
	inner := &countingOracle{}
	c := WithCache(inner, cache.NewMemory(time.Minute, 0), time.Minute, "test-model")

	first, err := c.Decompose(context.Background(), "He ran.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := c.Decompose(context.Background(), "He ran.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("Expected the second call to hit the cache, inner saw %d calls", inner.calls)
	}
	if len(second.Atoms) != len(first.Atoms) || second.Atoms[0].Text != first.Atoms[0].Text {
		t.Errorf("Expected cached proposal to match original: %v vs %v", second.Atoms, first.Atoms)
	}

	// A different narrative is a different key.
	if _, err := c.Decompose(context.Background(), "She stayed."); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("Expected a miss for a new narrative, inner saw %d calls", inner.calls)
	}
}
