package render

import (
	"encoding/json"
	"strings"
	"testing"

	"plainview/internal/model"
)

// renderFixture mirrors the transform of "Officer Jenkins grabbed my
// arm. 'Stop!' he yelled. I was terrified." after classification and
// strict selection.
func renderFixture() (*model.Store, *model.SelectionResult) {
	store := &model.Store{
		Statements: []*model.AtomicStatement{
			{ID: "ST-001", Text: "I was terrified.", Type: model.TypeSelfReport,
				Subtype: model.SubtypeAcute, Confidence: 0.85, Attribution: model.AttrReporter},
		},
		Events: []*model.Event{
			{ID: "EV-001", Text: "Officer Jenkins grabbed my arm.",
				ActorLabel: "Officer Jenkins", ActionVerb: "grabbed",
				Camera: model.CameraVerdict{Friendly: true, Confidence: 0.9, Reason: "passed_all_rules", Source: "classification_pass"}},
		},
		Entities: []*model.Entity{
			{ID: "EN-001", Label: "Officer Jenkins", Role: model.RoleSubjectOfficer,
				Participation: model.ParticipationIncident, IsValidActor: true, IsNamed: true},
		},
		Quotes: []*model.SpeechAct{
			{ID: "QT-001", Content: "Stop!", SpeakerLabel: "Officer Jenkins",
				SpeakerResolved: true, SpeakerMethod: model.MethodContext, SpeechVerb: "yelled"},
		},
		Timeline: []*model.TimelineEntry{
			{ID: "TL-001", Description: "Officer Jenkins grabbed my arm.",
				ResolvedDescription: "Officer Jenkins grabbed my arm.",
				DayOffset:           0, SequenceOrder: 1, PronounsResolved: true, Quality: model.QualityNormal},
		},
	}

	sel := model.NewSelectionResult(model.ModeStrict)
	sel.Events.Add(model.BucketObservedEvents, "EV-001")
	sel.Entities.Add(model.BucketIncidentParticipants, "EN-001")
	sel.Quotes.Add(model.BucketPreservedQuotes, "QT-001")
	sel.Timeline.Add(model.BucketTimelineEntries, "TL-001")
	sel.Statements.Add(model.BucketAcuteState, "ST-001")
	return store, sel
}

func TestTextReportEndToEndShape(t *testing.T) {
	store, sel := renderFixture()
	out, err := New(false).Text(store, sel)
	if err != nil {
		t.Fatalf("Expected render to succeed, got %v", err)
	}

	for _, want := range []string{
		ReportTitle,
		"mode: strict",
		TitleObservedEvents,
		"Officer Jenkins grabbed reporter's arm.",
		TitlePreservedQuotes,
		`"Stop!" (speaker: Officer Jenkins, context)`,
		TitleAcuteState,
		"Reporter was terrified.",
		TitleParticipants,
		"Officer Jenkins (subject_officer, incident)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "grabbed my arm") {
		t.Errorf("Expected first-person possessive substituted, got:\n%s", out)
	}
}

func TestTextReportSectionOrder(t *testing.T) {
	store, sel := renderFixture()
	out, err := New(false).Text(store, sel)
	if err != nil {
		t.Fatalf("Expected render to succeed, got %v", err)
	}

	events := strings.Index(out, TitleObservedEvents)
	timeline := strings.Index(out, TitleTimeline)
	quotes := strings.Index(out, TitlePreservedQuotes)
	acute := strings.Index(out, TitleAcuteState)
	participants := strings.Index(out, TitleParticipants)
	if events < 0 || timeline < 0 || quotes < 0 || acute < 0 || participants < 0 {
		t.Fatalf("Expected all sections present, got:\n%s", out)
	}
	if !(events < timeline && timeline < quotes && quotes < acute && acute < participants) {
		t.Errorf("Expected section order events < timeline < quotes < statements < entities, got:\n%s", out)
	}
}

func TestRenderRejectsNilSelection(t *testing.T) {
	store, _ := renderFixture()
	if _, err := New(false).Text(store, nil); err == nil {
		t.Fatal("Expected error for nil selection result, got nil")
	}
	if _, err := New(false).JSON(store, nil); err == nil {
		t.Fatal("Expected error for nil selection result, got nil")
	}
}

func TestRenderDeduplicatesAcrossSections(t *testing.T) {
	store, sel := renderFixture()
	// The same statement routed into a second bucket must still render
	// exactly once.
	sel.Statements.Add(model.BucketGeneralSelfReport, "ST-001")

	out, err := New(false).Text(store, sel)
	if err != nil {
		t.Fatalf("Expected render to succeed, got %v", err)
	}
	if got := strings.Count(out, "Reporter was terrified."); got != 1 {
		t.Errorf("Expected statement rendered once, got %d occurrences:\n%s", got, out)
	}
	if strings.Contains(out, TitleGeneralSelfReport) {
		t.Errorf("Expected empty duplicate section suppressed, got:\n%s", out)
	}
}

func TestNarrativeExcerptCarriesReason(t *testing.T) {
	store := &model.Store{Events: []*model.Event{
		{ID: "EV-001", Text: "He deliberately twisted my arm.",
			Camera: model.CameraVerdict{Friendly: false, Confidence: 0.85,
				Reason: "interpretive_language: deliberately", Source: "cam-interp-030"},
			ContainsInterpretive: true, InterpretiveTerms: []string{"deliberately"},
			Neutralized:          "He twisted my arm.", NeutralizationApplied: true},
	}}
	sel := model.NewSelectionResult(model.ModeStrict)
	sel.Events.Add(model.BucketNarrativeExcerpts, "EV-001")

	out, err := New(false).Text(store, sel)
	if err != nil {
		t.Fatalf("Expected render to succeed, got %v", err)
	}
	if !strings.Contains(out, "He twisted reporter's arm. (reason: interpretive_language: deliberately)") {
		t.Errorf("Expected neutralized excerpt with reason tag, got:\n%s", out)
	}
}

func TestTimelineLineFormatting(t *testing.T) {
	gap := 600
	store := &model.Store{Timeline: []*model.TimelineEntry{
		{ID: "TL-001", Description: "The reporter was booked.", ResolvedDescription: "The reporter was booked.",
			DayOffset: 0, SequenceOrder: 1, AbsoluteTime: "10:00 p.m.", TimeConfidence: 0.9,
			PronounsResolved: true, Quality: model.QualityHigh},
		{ID: "TL-002", Description: "Officers released the reporter.", ResolvedDescription: "Officers released the reporter.",
			DayOffset: 1, SequenceOrder: 1, AbsoluteTime: "8:00 a.m.", TimeConfidence: 0.9,
			PronounsResolved: true, Quality: model.QualityHigh,
			GapBeforeMinutes: &gap, Gap: model.GapExplained},
	}}
	sel := model.NewSelectionResult(model.ModeTimeline)
	sel.Timeline.Add(model.BucketTimelineEntries, "TL-001")
	sel.Timeline.Add(model.BucketTimelineEntries, "TL-002")

	out, err := New(false).Text(store, sel)
	if err != nil {
		t.Fatalf("Expected render to succeed, got %v", err)
	}
	if !strings.Contains(out, "day 0, 10:00 p.m.: The reporter was booked.") {
		t.Errorf("Expected timed entry line, got:\n%s", out)
	}
	if !strings.Contains(out, "day 1, 8:00 a.m.: Officers released the reporter. (gap 600 min, explained)") {
		t.Errorf("Expected gap annotation, got:\n%s", out)
	}
}

func TestExclusionsAlwaysListed(t *testing.T) {
	store, sel := renderFixture()
	sel.Timeline.Exclude("TL-099", "unresolved_pronouns")
	sel.Statements.Exclude("ST-099", "unclassified")

	out, err := New(false).Text(store, sel)
	if err != nil {
		t.Fatalf("Expected render to succeed, got %v", err)
	}
	if !strings.Contains(out, TitleExclusions) {
		t.Errorf("Expected exclusions section, got:\n%s", out)
	}
	if !strings.Contains(out, "TL-099 (timeline): unresolved_pronouns") {
		t.Errorf("Expected timeline exclusion line, got:\n%s", out)
	}
	if !strings.Contains(out, "ST-099 (statements): unclassified") {
		t.Errorf("Expected statement exclusion line, got:\n%s", out)
	}
}

func TestJSONMirrorsTextSections(t *testing.T) {
	store, sel := renderFixture()
	r := New(false)

	raw, err := r.JSON(store, sel)
	if err != nil {
		t.Fatalf("Expected JSON render to succeed, got %v", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Expected valid JSON document, got %v", err)
	}
	if doc.Version != "v1" || doc.Mode != model.ModeStrict {
		t.Errorf("Expected v1 strict document, got %s %s", doc.Version, doc.Mode)
	}
	if len(doc.Sections) != 5 {
		t.Fatalf("Expected 5 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Title != TitleObservedEvents || doc.Sections[0].Entries[0].ID != "EV-001" {
		t.Errorf("Expected observed events first, got %+v", doc.Sections[0])
	}
	if doc.Sections[0].Entries[0].Text != "Officer Jenkins grabbed reporter's arm." {
		t.Errorf("Expected substituted event text in JSON, got %q", doc.Sections[0].Entries[0].Text)
	}
}

func TestFooterToggle(t *testing.T) {
	store, sel := renderFixture()

	with, err := New(true).Text(store, sel)
	if err != nil {
		t.Fatalf("Expected render to succeed, got %v", err)
	}
	if !strings.Contains(with, "generated by plainview (5 atoms, 5 included, 0 excluded)") {
		t.Errorf("Expected footer with totals, got:\n%s", with)
	}

	without, err := New(false).Text(store, sel)
	if err != nil {
		t.Fatalf("Expected render to succeed, got %v", err)
	}
	if strings.Contains(without, "generated by plainview") {
		t.Errorf("Expected no footer, got:\n%s", without)
	}
}

func TestSubstituteFirstPerson(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"I was terrified.", "Reporter was terrified."},
		{"Officer Jenkins grabbed my arm.", "Officer Jenkins grabbed reporter's arm."},
		{"He shoved me against the car.", "He shoved the reporter against the car."},
		{"My wrist was bleeding.", "Reporter's wrist was bleeding."},
		{"They ignored me, then laughed.", "They ignored the reporter, then laughed."},
		{"The sergeant reviewed the footage.", "The sergeant reviewed the footage."},
		{"Miami is humid.", "Miami is humid."},
	}
	for _, tt := range tests {
		if got := substituteFirstPerson(tt.in); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestTruncateCutsAtWordBoundary(t *testing.T) {
	in := strings.Repeat("officers watched ", 20)
	out := truncate(in, 50)
	if !strings.HasSuffix(out, "...") {
		t.Errorf("Expected ellipsis suffix, got %q", out)
	}
	if len(out) > 54 {
		t.Errorf("Expected truncation near limit, got %d bytes", len(out))
	}
	if strings.Contains(out, "officers w...") {
		t.Errorf("Expected cut at word boundary, got %q", out)
	}
	if short := truncate("short line", 50); short != "short line" {
		t.Errorf("Expected short input unchanged, got %q", short)
	}
}
