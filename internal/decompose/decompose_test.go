package decompose

import (
	"context"
	"strings"
	"testing"

	"plainview/internal/model"
	"plainview/internal/oracle"
	"plainview/internal/rules"
)

func testDecomposer(t *testing.T) *Decomposer {
	t.Helper()
	eng, err := rules.Default()
	if err != nil {
		t.Fatalf("Expected no error loading default ruleset, got %v", err)
	}
	return New(eng, oracle.NewHeuristic())
}

func run(t *testing.T, narrative string) *model.Store {
	t.Helper()
	store, diags, err := testDecomposer(t).Run(context.Background(), narrative)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("Expected no diagnostics, got %v", diags)
	}
	return store
}

func TestRunPlacesAllAtomCategories(t *testing.T) {
	store := run(t, "Officer Jenkins grabbed my arm. 'Stop!' he yelled. I was terrified.")

	if len(store.Statements) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(store.Statements))
	}
	if store.Statements[0].Text != "Officer Jenkins grabbed my arm." {
		t.Errorf("Unexpected first statement %q", store.Statements[0].Text)
	}
	if store.Statements[1].Text != "I was terrified." {
		t.Errorf("Unexpected second statement %q", store.Statements[1].Text)
	}
	if store.Statements[0].ID != "ST-001" || store.Statements[1].ID != "ST-002" {
		t.Errorf("Expected sequential statement IDs, got %s, %s", store.Statements[0].ID, store.Statements[1].ID)
	}

	if len(store.Events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(store.Events))
	}
	ev := store.Events[0]
	if ev.ActorLabel != "Officer Jenkins" || !ev.ActorResolved {
		t.Errorf("Expected resolved actor Officer Jenkins, got %q resolved=%v", ev.ActorLabel, ev.ActorResolved)
	}
	if ev.ActionVerb != "grabbed" {
		t.Errorf("Expected action verb grabbed, got %q", ev.ActionVerb)
	}
	if ev.TargetLabel != "my arm" {
		t.Errorf("Expected target my arm, got %q", ev.TargetLabel)
	}
	if ev.Camera.Friendly || ev.Camera.Reason != "unclassified" {
		t.Errorf("Expected the conservative default verdict, got %+v", ev.Camera)
	}

	if len(store.Quotes) != 1 {
		t.Fatalf("Expected 1 quote, got %d", len(store.Quotes))
	}
	if store.Quotes[0].Content != "Stop!" {
		t.Errorf("Expected quote content Stop!, got %q", store.Quotes[0].Content)
	}
	if store.Quotes[0].SpeakerResolved {
		t.Error("Expected speaker unresolved before classification")
	}

	if len(store.Timeline) != 3 {
		t.Fatalf("Expected 3 timeline entries, got %d", len(store.Timeline))
	}
}

func TestRunSplitsTrailingClauseOffQuote(t *testing.T) {
	store := run(t, `He said "Not today" which was clearly a threat.`)

	if len(store.Quotes) != 1 {
		t.Fatalf("Expected 1 quote, got %d", len(store.Quotes))
	}
	q := store.Quotes[0]
	if q.Content != "Not today" {
		t.Errorf("Expected clean quote content, got %q", q.Content)
	}
	if strings.Contains(q.Content, "threat") {
		t.Errorf("Quote content must never absorb the trailing clause: %q", q.Content)
	}

	// Exactly one statement: the commentary clause. The attribution
	// fragment "He said" stays with the quote as context.
	if len(store.Statements) != 1 {
		t.Fatalf("Expected 1 statement, got %d: %+v", len(store.Statements), store.Statements)
	}
	st := store.Statements[0]
	if st.Text != "which was clearly a threat." {
		t.Errorf("Unexpected trailing statement %q", st.Text)
	}
	if got := `He said "Not today" which was clearly a threat.`[st.Span.Start:st.Span.End]; got != st.Text {
		t.Errorf("Trailing statement span slices to %q", got)
	}
}

func TestRunRecordsContractViolations(t *testing.T) {
	eng, err := rules.Default()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	d := New(eng, badSpanOracle{})
	store, diags, err := d.Run(context.Background(), "He ran.")
	if err != nil {
		t.Fatalf("Expected a per-atom rejection, not a run failure: %v", err)
	}
	if len(diags) != 1 || diags[0].Stage != "decompose" {
		t.Fatalf("Expected 1 decompose diagnostic, got %v", diags)
	}
	if len(store.Statements) != 1 || store.Statements[0].Text != "He ran." {
		t.Fatalf("Expected the valid atom to survive, got %+v", store.Statements)
	}
}

type badSpanOracle struct{}

func (badSpanOracle) Name() string { return "bad" }

func (badSpanOracle) IsAvailable(ctx context.Context) bool { return true }

func (badSpanOracle) Decompose(ctx context.Context, narrative string) (*oracle.Proposal, error) {
	return &oracle.Proposal{Atoms: []oracle.ProposedAtom{
		{Text: "He ran.", Span: model.Span{Start: 0, End: 7}},
		{Text: "bogus", Span: model.Span{Start: 99, End: 104}},
	}}, nil
}

func TestBuildEntitiesRegistry(t *testing.T) {
	store := run(t, "Sergeant Miller told the nurse to examine my wrist. Maria Santos watched from the sidewalk.")

	want := []string{"Reporter", "Sergeant Miller", "the nurse", "Maria Santos"}
	if len(store.Entities) != len(want) {
		labels := make([]string, len(store.Entities))
		for i, en := range store.Entities {
			labels[i] = en.Label
		}
		t.Fatalf("Expected entities %v, got %v", want, labels)
	}
	for i, label := range want {
		if store.Entities[i].Label != label {
			t.Errorf("Entity %d: expected %q, got %q", i, label, store.Entities[i].Label)
		}
	}

	miller := store.EntityByLabel("Sergeant Miller")
	if !miller.IsNamed || miller.NamedSource != "titled_name" {
		t.Errorf("Expected Sergeant Miller named via titled_name, got %+v", miller)
	}
	nurse := store.EntityByLabel("the nurse")
	if nurse.IsNamed {
		t.Error("Expected a bare role noun to stay unnamed")
	}
	santos := store.EntityByLabel("Maria Santos")
	if !santos.IsNamed || santos.NamedSource != "proper_pair" {
		t.Errorf("Expected Maria Santos named via proper_pair, got %+v", santos)
	}
}

func TestBuildEntitiesMergesRepeatMentions(t *testing.T) {
	store := run(t, "Officer Jenkins stopped my car. Officer Jenkins searched the trunk.")

	jenkins := store.EntityByLabel("Officer Jenkins")
	if jenkins == nil {
		t.Fatal("Expected an Officer Jenkins entity")
	}
	if len(jenkins.Mentions) != 2 {
		t.Fatalf("Expected 2 merged mentions, got %d", len(jenkins.Mentions))
	}
	count := 0
	for _, en := range store.Entities {
		if strings.EqualFold(en.Label, "Officer Jenkins") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected one entity for a repeated name, got %d", count)
	}
}

func TestParseEventDeterminerActor(t *testing.T) {
	store := run(t, "The officer shoved me toward the wall.")

	if len(store.Events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(store.Events))
	}
	ev := store.Events[0]
	if ev.ActorLabel != "The officer" || ev.ActorResolved {
		t.Errorf("Expected unresolved determiner actor, got %q resolved=%v", ev.ActorLabel, ev.ActorResolved)
	}
	if ev.ActionVerb != "shoved" {
		t.Errorf("Expected verb shoved, got %q", ev.ActionVerb)
	}
}

func TestParseEventSkipsStatementsWithoutAction(t *testing.T) {
	store := run(t, "I was terrified. My hands would not stop shaking.")
	if len(store.Events) != 0 {
		t.Fatalf("Expected no events for state descriptions, got %d", len(store.Events))
	}
}
