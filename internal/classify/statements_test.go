package classify

import (
	"strings"
	"testing"

	"plainview/internal/model"
)

func classifyText(t *testing.T, c *Classifier, text string) *model.AtomicStatement {
	t.Helper()
	st := &model.AtomicStatement{
		ID:          "ST-001",
		Text:        text,
		Span:        model.Span{Start: 0, End: len(text)},
		Type:        model.TypeUnknown,
		Attribution: model.AttrReporter,
	}
	if errs := c.classifyStatement(st, text); len(errs) != 0 {
		t.Fatalf("%q: expected no eval errors, got %v", text, errs)
	}
	return st
}

func TestEpistemicBattery(t *testing.T) {
	c := testClassifier(t)
	cases := []struct {
		text    string
		typ     model.EpistemicType
		subtype model.Subtype
	}{
		{"I was terrified.", model.TypeSelfReport, model.SubtypeAcute},
		{"My wrist still hurts.", model.TypeSelfReport, model.SubtypeInjury},
		{"I have nightmares about the stop.", model.TypeSelfReport, model.SubtypePsychological},
		{"I missed work for a week and lost wages.", model.TypeSelfReport, model.SubtypeSocioeconomic},
		{"which was clearly a threat.", model.TypeInference, model.SubtypeNone},
		{"He must have wanted to teach me a lesson.", model.TypeInference, model.SubtypeNone},
		{"It felt like he was punishing me.", model.TypeInterpretation, model.SubtypeNone},
		{"He was aggressive and hostile the entire time.", model.TypeCharacterization, model.SubtypeNone},
		{"They were covering up for each other.", model.TypeConspiracyClaim, model.SubtypeNone},
		{"This was an assault, plain and simple.", model.TypeLegalClaim, model.SubtypeLegalDirect},
		{"I filed a complaint with internal affairs.", model.TypeLegalClaim, model.SubtypeLegalAdmin},
		{"I lost my job as a direct result of the arrest.", model.TypeLegalClaim, model.SubtypeLegalCausation},
		{"My attorney says we are pressing charges.", model.TypeLegalClaim, model.SubtypeLegalAttorney},
		{"I requested the footage from the department.", model.TypeAdminAction, model.SubtypeNone},
		{"According to the report, I was resisting.", model.TypeSourceDerived, model.SubtypeNone},
		{"Officer Jenkins grabbed my arm.", model.TypeDirectEvent, model.SubtypeNone},
		{"The weather was cold.", model.TypeUnknown, model.SubtypeNone},
	}
	for _, tc := range cases {
		st := classifyText(t, c, tc.text)
		if st.Type != tc.typ {
			t.Errorf("%q: expected type %s, got %s (rule %s)", tc.text, tc.typ, st.Type, st.MatchedRule)
		}
		if st.Subtype != tc.subtype {
			t.Errorf("%q: expected subtype %q, got %q", tc.text, tc.subtype, st.Subtype)
		}
	}
}

func TestEpistemicUnknownKeepsZeroConfidence(t *testing.T) {
	c := testClassifier(t)
	st := classifyText(t, c, "The weather was cold.")
	if st.Confidence != 0 || st.MatchedRule != "" {
		t.Errorf("Expected untouched defaults for an unmatched statement, got %+v", st)
	}
}

func TestMedicalFindingPrecedence(t *testing.T) {
	c := testClassifier(t)
	narrative := "Dr. Patel examined me at the clinic. She documented bruises on both wrists."
	text := "She documented bruises on both wrists."
	start := strings.Index(narrative, text)
	st := &model.AtomicStatement{
		ID:          "ST-002",
		Text:        text,
		Span:        model.Span{Start: start, End: start + len(text)},
		Type:        model.TypeUnknown,
		Attribution: model.AttrReporter,
	}
	if errs := c.classifyStatement(st, narrative); len(errs) != 0 {
		t.Fatalf("Expected no eval errors, got %v", errs)
	}
	if st.Type != model.TypeMedicalFinding {
		t.Fatalf("Expected medical_finding with a provider in the window, got %s (rule %s)", st.Type, st.MatchedRule)
	}

	// Without a provider anywhere nearby the same text is an injury
	// self-report, not a clinical finding.
	alone := classifyText(t, c, text)
	if alone.Type != model.TypeSelfReport || alone.Subtype != model.SubtypeInjury {
		t.Errorf("Expected self_report:injury without provider context, got %s:%s", alone.Type, alone.Subtype)
	}
}

func TestAttributionOverrides(t *testing.T) {
	c := testClassifier(t)

	st := classifyText(t, c, "A witness told me he saw everything.")
	if st.Attribution != model.AttrWitness {
		t.Errorf("Expected witness attribution, got %s", st.Attribution)
	}

	st = classifyText(t, c, "The doctor said I had a mild sprain.")
	if st.Attribution != model.AttrMedicalProvider {
		t.Errorf("Expected medical_provider attribution, got %s", st.Attribution)
	}
	if st.Type != model.TypeSelfReport || st.Subtype != model.SubtypeInjury {
		t.Errorf("Expected injury type independent of attribution, got %s:%s", st.Type, st.Subtype)
	}

	st = classifyText(t, c, "According to the report, I was resisting.")
	if st.Attribution != model.AttrOfficial {
		t.Errorf("Expected official attribution, got %s", st.Attribution)
	}

	st = classifyText(t, c, "I was terrified.")
	if st.Attribution != model.AttrReporter {
		t.Errorf("Expected the reporter default, got %s", st.Attribution)
	}
}

func TestConfidenceFloorDowngradesToUnknown(t *testing.T) {
	eng := testClassifier(t).eng
	cfg := model.DefaultConfig()
	cfg.Rules.ConfidenceFloor = 0.95
	c := New(eng, cfg)

	st := classifyText(t, c, "I was terrified.")
	if st.Type != model.TypeUnknown {
		t.Errorf("Expected downgrade to unknown below the floor, got %s", st.Type)
	}
	if st.MatchedRule != "ep-self-acute-050" || st.Confidence != 0.85 {
		t.Errorf("Expected the match kept for audit, got rule %q confidence %v", st.MatchedRule, st.Confidence)
	}
}
