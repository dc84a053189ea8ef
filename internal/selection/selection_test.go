package selection

import (
	"errors"
	"strings"
	"testing"

	"plainview/internal/model"
)

// fixtureStore covers every routing branch: four events spanning the
// camera outcomes, four entities spanning the participation buckets plus
// a bare role, a resolved and an unresolved quote, and timeline entries
// stored out of canonical order.
func fixtureStore() *model.Store {
	store := &model.Store{}

	store.Events = []*model.Event{
		{ID: "EV-001", Text: "Officer Jenkins grabbed my arm.",
			Camera: model.CameraVerdict{Friendly: true, Confidence: 0.9, Reason: "passed_all_rules", Source: "classification_pass"}},
		{ID: "EV-002", Text: "Sergeant Miller reviewed the footage two days later.",
			Camera:     model.CameraVerdict{Friendly: true, Confidence: 0.9, Reason: "passed_all_rules", Source: "classification_pass"},
			IsFollowUp: true},
		{ID: "EV-003", Text: "He deliberately twisted my arm.",
			Camera: model.CameraVerdict{Friendly: false, Confidence: 0.85, Reason: "interpretive_language: deliberately", Source: "cam-interp-030"}},
		{ID: "EV-004", Text: "Maria Santos waved from the sidewalk.",
			Camera: model.CameraVerdict{Friendly: true, Confidence: 0.5, Reason: "passed_all_rules", Source: "classification_pass"}},
	}

	store.Entities = []*model.Entity{
		{ID: "EN-001", Label: "Officer Jenkins", Role: model.RoleSubjectOfficer,
			Participation: model.ParticipationIncident, IsValidActor: true, IsNamed: true},
		{ID: "EN-002", Label: "the nurse", Role: model.RoleMedicalProvider,
			Participation: model.ParticipationPostIncident, IsValidActor: true},
		{ID: "EN-003", Label: "Maria Santos", Role: model.RoleWitnessCivilian,
			Participation: model.ParticipationMentioned, IsValidActor: true, IsNamed: true},
		{ID: "EN-004", Label: "his partner", Role: model.RoleWitnessCivilian,
			Participation: model.ParticipationIncident, IsValidActor: false},
	}

	store.Quotes = []*model.SpeechAct{
		{ID: "QT-001", Content: "Stop resisting.", SpeakerLabel: "Officer Jenkins", SpeakerResolved: true},
		{ID: "QT-002", Content: "Back up.", IsQuarantined: true, QuarantineReason: "no_speaker_attribution"},
	}

	store.Timeline = []*model.TimelineEntry{
		{ID: "TL-001", Description: "The reporter was booked.", DayOffset: 1, SequenceOrder: 1, PronounsResolved: true},
		{ID: "TL-002", Description: "Officer Jenkins searched the trunk.", DayOffset: 0, SequenceOrder: 2, PronounsResolved: true},
		{ID: "TL-003", Description: "They laughed about it.", DayOffset: 0, SequenceOrder: 1, PronounsResolved: false},
	}

	store.Statements = []*model.AtomicStatement{
		{ID: "ST-001", Text: "My wrist was bleeding.", Type: model.TypeSelfReport, Subtype: model.SubtypeInjury, Confidence: 0.85},
		{ID: "ST-002", Text: "This was clearly retaliation.", Type: model.TypeInference, Confidence: 0.8},
		{ID: "ST-003", Text: "Something about harassment.", Type: model.TypeUnknown},
		{ID: "ST-004", Text: "Officer Jenkins grabbed my arm.", Type: model.TypeDirectEvent, Confidence: 0.9},
	}

	return store
}

func bucketIDs(t *testing.T, cr model.CategoryResult, bucket string) []string {
	t.Helper()
	return cr.Buckets[bucket]
}

func hasExclusion(cr model.CategoryResult, id, reason string) bool {
	for _, ex := range cr.Excluded {
		if ex.ID == id && ex.Reason == reason {
			return true
		}
	}
	return false
}

func TestStrictEventRouting(t *testing.T) {
	sel := New(nil)
	res, err := sel.Run(fixtureStore(), model.ModeStrict)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	observed := bucketIDs(t, res.Events, model.BucketObservedEvents)
	if len(observed) != 1 || observed[0] != "EV-001" {
		t.Errorf("Expected observed_events [EV-001], got %v", observed)
	}
	followUp := bucketIDs(t, res.Events, model.BucketFollowUpEvents)
	if len(followUp) != 1 || followUp[0] != "EV-002" {
		t.Errorf("Expected follow_up_events [EV-002], got %v", followUp)
	}
	// EV-003 failed the camera, EV-004 passed below threshold. Both read
	// as narrative, not as observed fact.
	narrative := bucketIDs(t, res.Events, model.BucketNarrativeExcerpts)
	if len(narrative) != 2 || narrative[0] != "EV-003" || narrative[1] != "EV-004" {
		t.Errorf("Expected narrative_excerpts [EV-003 EV-004], got %v", narrative)
	}
	if len(res.Events.Excluded) != 0 {
		t.Errorf("Expected no excluded events in strict mode, got %v", res.Events.Excluded)
	}
}

func TestStrictEntityRouting(t *testing.T) {
	sel := New(nil)
	res, err := sel.Run(fixtureStore(), model.ModeStrict)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	if got := bucketIDs(t, res.Entities, model.BucketIncidentParticipants); len(got) != 1 || got[0] != "EN-001" {
		t.Errorf("Expected incident_participants [EN-001], got %v", got)
	}
	if got := bucketIDs(t, res.Entities, model.BucketPostIncidentPros); len(got) != 1 || got[0] != "EN-002" {
		t.Errorf("Expected post_incident_professionals [EN-002], got %v", got)
	}
	if got := bucketIDs(t, res.Entities, model.BucketMentionedContacts); len(got) != 1 || got[0] != "EN-003" {
		t.Errorf("Expected mentioned_contacts [EN-003], got %v", got)
	}
	if !hasExclusion(res.Entities, "EN-004", ReasonBareRole) {
		t.Errorf("Expected EN-004 excluded as bare role, got %v", res.Entities.Excluded)
	}
}

func TestStrictQuoteRouting(t *testing.T) {
	sel := New(nil)
	res, err := sel.Run(fixtureStore(), model.ModeStrict)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	if got := bucketIDs(t, res.Quotes, model.BucketPreservedQuotes); len(got) != 1 || got[0] != "QT-001" {
		t.Errorf("Expected preserved_quotes [QT-001], got %v", got)
	}
	// Quarantine is a bucket, not an exclusion: the quote stays visible
	// with its reason attached.
	if got := bucketIDs(t, res.Quotes, model.BucketQuarantinedQuotes); len(got) != 1 || got[0] != "QT-002" {
		t.Errorf("Expected quarantined_quotes [QT-002], got %v", got)
	}
	if len(res.Quotes.Excluded) != 0 {
		t.Errorf("Expected no excluded quotes, got %v", res.Quotes.Excluded)
	}
}

func TestStrictTimelineOrderingAndExclusion(t *testing.T) {
	sel := New(nil)
	res, err := sel.Run(fixtureStore(), model.ModeStrict)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	// TL-002 is day 0, TL-001 day 1; store order is reversed.
	entries := bucketIDs(t, res.Timeline, model.BucketTimelineEntries)
	if len(entries) != 2 || entries[0] != "TL-002" || entries[1] != "TL-001" {
		t.Errorf("Expected timeline_entries [TL-002 TL-001], got %v", entries)
	}
	if !hasExclusion(res.Timeline, "TL-003", ReasonUnresolvedPronouns) {
		t.Errorf("Expected TL-003 excluded for unresolved pronouns, got %v", res.Timeline.Excluded)
	}
}

func TestStrictStatementRouting(t *testing.T) {
	sel := New(nil)
	res, err := sel.Run(fixtureStore(), model.ModeStrict)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	if got := bucketIDs(t, res.Statements, model.BucketInjuryState); len(got) != 1 || got[0] != "ST-001" {
		t.Errorf("Expected injury_state [ST-001], got %v", got)
	}
	if got := bucketIDs(t, res.Statements, model.BucketInferences); len(got) != 1 || got[0] != "ST-002" {
		t.Errorf("Expected inferences [ST-002], got %v", got)
	}
	if !hasExclusion(res.Statements, "ST-003", ReasonUnclassified) {
		t.Errorf("Expected ST-003 excluded as unclassified, got %v", res.Statements.Excluded)
	}
	// The direct-event statement surfaces through its Event; routing the
	// text twice would duplicate it in the report.
	if !hasExclusion(res.Statements, "ST-004", ReasonRoutedAsEvent) {
		t.Errorf("Expected ST-004 excluded as routed_as_event, got %v", res.Statements.Excluded)
	}
}

func TestStatementBucketTable(t *testing.T) {
	tests := []struct {
		stype   model.EpistemicType
		subtype model.Subtype
		bucket  string
	}{
		{model.TypeSelfReport, model.SubtypeAcute, model.BucketAcuteState},
		{model.TypeSelfReport, model.SubtypeInjury, model.BucketInjuryState},
		{model.TypeSelfReport, model.SubtypePsychological, model.BucketPsychologicalState},
		{model.TypeSelfReport, model.SubtypeSocioeconomic, model.BucketSocioeconomicImpact},
		{model.TypeSelfReport, model.SubtypeGeneral, model.BucketGeneralSelfReport},
		{model.TypeSelfReport, model.SubtypeNone, model.BucketGeneralSelfReport},
		{model.TypeLegalClaim, model.SubtypeLegalDirect, model.BucketLegalDirect},
		{model.TypeLegalClaim, model.SubtypeLegalAdmin, model.BucketLegalAdmin},
		{model.TypeLegalClaim, model.SubtypeLegalCausation, model.BucketLegalCausation},
		{model.TypeLegalClaim, model.SubtypeLegalAttorney, model.BucketLegalAttorney},
		{model.TypeLegalClaim, model.SubtypeNone, model.BucketLegalDirect},
		{model.TypeCharacterization, model.SubtypeNone, model.BucketCharacterizations},
		{model.TypeInterpretation, model.SubtypeNone, model.BucketInterpretations},
		{model.TypeInference, model.SubtypeNone, model.BucketInferences},
		{model.TypeConspiracyClaim, model.SubtypeNone, model.BucketContestedAllegation},
		{model.TypeMedicalFinding, model.SubtypeNone, model.BucketMedicalFindings},
		{model.TypeAdminAction, model.SubtypeNone, model.BucketAdminActions},
		{model.TypeSourceDerived, model.SubtypeNone, model.BucketSourceDerived},
	}

	for _, tt := range tests {
		st := &model.AtomicStatement{ID: "ST-001", Type: tt.stype, Subtype: tt.subtype}
		bucket, reason := statementBucket(st, false)
		if reason != "" {
			t.Errorf("Expected %s/%s to route, got exclusion %q", tt.stype, tt.subtype, reason)
			continue
		}
		if bucket != tt.bucket {
			t.Errorf("Expected %s/%s in bucket %s, got %s", tt.stype, tt.subtype, tt.bucket, bucket)
		}
	}
}

func TestFullModeIncludesEverything(t *testing.T) {
	store := fixtureStore()
	sel := New(nil)
	res, err := sel.Run(store, model.ModeFull)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	if res.ExcludedCount() != 0 {
		t.Fatalf("Expected full mode to exclude nothing, excluded %d", res.ExcludedCount())
	}
	if res.IncludedCount() != store.Len() {
		t.Fatalf("Expected all %d atoms included, got %d", store.Len(), res.IncludedCount())
	}
	if got := bucketIDs(t, res.Entities, model.BucketMentionedContacts); len(got) != 2 {
		t.Errorf("Expected bare role kept under mentioned_contacts in full mode, got %v", got)
	}
	if got := bucketIDs(t, res.Statements, model.BucketUnclassified); len(got) != 1 || got[0] != "ST-003" {
		t.Errorf("Expected unclassified_statements [ST-003], got %v", got)
	}
	if got := bucketIDs(t, res.Statements, model.BucketDirectEvents); len(got) != 1 || got[0] != "ST-004" {
		t.Errorf("Expected direct_events [ST-004], got %v", got)
	}
	if got := bucketIDs(t, res.Timeline, model.BucketTimelineEntries); len(got) != 3 {
		t.Errorf("Expected all timeline entries included in full mode, got %v", got)
	}
}

func TestTimelineModeExcludesOtherCategories(t *testing.T) {
	sel := New(nil)
	res, err := sel.Run(fixtureStore(), model.ModeTimeline)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	if got := bucketIDs(t, res.Timeline, model.BucketTimelineEntries); len(got) != 2 {
		t.Errorf("Expected timeline mode to keep resolved entries, got %v", got)
	}
	if !hasExclusion(res.Timeline, "TL-003", ReasonUnresolvedPronouns) {
		t.Errorf("Expected unresolved entry still excluded by its own reason, got %v", res.Timeline.Excluded)
	}
	for _, ev := range fixtureStore().Events {
		if !hasExclusion(res.Events, ev.ID, ReasonModeExcluded) {
			t.Errorf("Expected %s excluded as mode_excluded, got %v", ev.ID, res.Events.Excluded)
		}
	}
	if res.Statements.BucketLen() != 0 || res.Quotes.BucketLen() != 0 || res.Entities.BucketLen() != 0 {
		t.Errorf("Expected only timeline buckets populated in timeline mode")
	}
}

func TestEventsOnlyMode(t *testing.T) {
	sel := New(nil)
	res, err := sel.Run(fixtureStore(), model.ModeEventsOnly)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	if res.Events.BucketLen() != 4 {
		t.Errorf("Expected all four events routed, got %d", res.Events.BucketLen())
	}
	if !hasExclusion(res.Statements, "ST-001", ReasonModeExcluded) {
		t.Errorf("Expected statements excluded in events_only mode, got %v", res.Statements.Excluded)
	}
	if !hasExclusion(res.Timeline, "TL-001", ReasonModeExcluded) {
		t.Errorf("Expected timeline excluded in events_only mode, got %v", res.Timeline.Excluded)
	}
}

func TestRecompositionModeDropsStatementsOnly(t *testing.T) {
	sel := New(nil)
	res, err := sel.Run(fixtureStore(), model.ModeRecomposition)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	if res.Events.BucketLen() != 4 {
		t.Errorf("Expected events routed in recomposition mode, got %d", res.Events.BucketLen())
	}
	if res.Quotes.BucketLen() != 2 {
		t.Errorf("Expected quotes routed in recomposition mode, got %d", res.Quotes.BucketLen())
	}
	if res.Entities.BucketLen() != 3 {
		t.Errorf("Expected entities routed in recomposition mode, got %d", res.Entities.BucketLen())
	}
	for _, st := range fixtureStore().Statements {
		if !hasExclusion(res.Statements, st.ID, ReasonModeExcluded) {
			t.Errorf("Expected %s excluded as mode_excluded, got %v", st.ID, res.Statements.Excluded)
		}
	}
}

func TestSelectionAccountsForEveryAtom(t *testing.T) {
	store := fixtureStore()
	sel := New(nil)
	for _, mode := range []model.Mode{model.ModeStrict, model.ModeFull, model.ModeTimeline, model.ModeEventsOnly, model.ModeRecomposition} {
		res, err := sel.Run(store, mode)
		if err != nil {
			t.Fatalf("Expected mode %s to succeed, got %v", mode, err)
		}
		if got := res.IncludedCount() + res.ExcludedCount(); got != store.Len() {
			t.Errorf("Expected mode %s to account for %d atoms, got %d", mode, store.Len(), got)
		}
	}
}

func TestVerifyReportsMissingAndRepeated(t *testing.T) {
	store := fixtureStore()
	res := model.NewSelectionResult(model.ModeStrict)

	// EV-001 routed twice, EV-002 never, EV-999 invented; the remaining
	// categories are filled correctly.
	res.Events.Add(model.BucketObservedEvents, "EV-001")
	res.Events.Add(model.BucketNarrativeExcerpts, "EV-001")
	res.Events.Add(model.BucketNarrativeExcerpts, "EV-003")
	res.Events.Add(model.BucketNarrativeExcerpts, "EV-004")
	res.Events.Add(model.BucketObservedEvents, "EV-999")
	for _, en := range store.Entities {
		res.Entities.Add(model.BucketMentionedContacts, en.ID)
	}
	for _, q := range store.Quotes {
		res.Quotes.Add(model.BucketPreservedQuotes, q.ID)
	}
	for _, te := range store.Timeline {
		res.Timeline.Add(model.BucketTimelineEntries, te.ID)
	}
	for _, st := range store.Statements {
		res.Statements.Add(model.BucketGeneralSelfReport, st.ID)
	}

	err := verify(res, store)
	if err == nil {
		t.Fatal("Expected completeness violation, got nil")
	}
	var cerr *CompletenessError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *CompletenessError, got %T", err)
	}
	if got := cerr.Missing["events"]; len(got) != 1 || got[0] != "EV-002" {
		t.Errorf("Expected EV-002 reported missing, got %v", got)
	}
	if got := cerr.Repeated["events"]; len(got) != 1 || got[0] != "EV-001" {
		t.Errorf("Expected EV-001 reported repeated, got %v", got)
	}
	if got := cerr.Unknown["events"]; len(got) != 1 || got[0] != "EV-999" {
		t.Errorf("Expected EV-999 reported unknown, got %v", got)
	}
	for _, want := range []string{"EV-002", "EV-001", "EV-999"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error message to list %s, got %q", want, err.Error())
		}
	}
}

func TestRunRejectsNilStore(t *testing.T) {
	sel := New(nil)
	if _, err := sel.Run(nil, model.ModeStrict); err == nil {
		t.Fatal("Expected error for nil store, got nil")
	}
}

func TestEventThresholdConfigurable(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Rules.EventThreshold = 0.4

	sel := New(cfg)
	res, err := sel.Run(fixtureStore(), model.ModeStrict)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}
	// EV-004 sits at 0.5, above the lowered threshold.
	observed := bucketIDs(t, res.Events, model.BucketObservedEvents)
	if len(observed) != 2 || observed[1] != "EV-004" {
		t.Errorf("Expected EV-004 observed under lowered threshold, got %v", observed)
	}
}
