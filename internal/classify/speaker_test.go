package classify

import (
	"strings"
	"testing"

	"plainview/internal/model"
)

// quoteStore builds a one-quote store over the narrative, with the
// named entities the resolver may consult.
func quoteStore(t *testing.T, narrative, quoted string, entities ...*model.Entity) (*model.Store, *model.SpeechAct) {
	t.Helper()
	start := strings.Index(narrative, quoted)
	if start < 0 {
		t.Fatalf("Quote %q not in narrative", quoted)
	}
	q := &model.SpeechAct{
		ID:                "QU-001",
		Content:           strings.Trim(quoted, `"'`),
		Span:              model.Span{Start: start, End: start + len(quoted)},
		SpeakerValidation: model.SpeakerUnknown,
	}
	return &model.Store{Entities: entities, Quotes: []*model.SpeechAct{q}}, q
}

func namedEntity(label string, conf float64, mentions ...model.Span) *model.Entity {
	return &model.Entity{
		ID:              "EN-001",
		Label:           label,
		Role:            model.RoleUnknown,
		Participation:   model.ParticipationUnknown,
		IsValidActor:    true,
		IsNamed:         true,
		NamedConfidence: conf,
		Mentions:        mentions,
	}
}

func TestResolveSpeakerDirect(t *testing.T) {
	c := testClassifier(t)
	narrative := `Officer Jenkins said "Get out of the car." and stepped back.`
	store, q := quoteStore(t, narrative, `"Get out of the car."`,
		namedEntity("Officer Jenkins", 0.95, model.Span{Start: 0, End: 15}))

	if errs := c.resolveSpeaker(q, store, narrative); len(errs) != 0 {
		t.Fatalf("Expected no eval errors, got %v", errs)
	}
	if !q.SpeakerResolved || q.SpeakerLabel != "Officer Jenkins" {
		t.Fatalf("Expected direct resolution to Officer Jenkins, got %+v", q)
	}
	if q.SpeakerMethod != model.MethodDirect {
		t.Errorf("Expected method direct, got %s", q.SpeakerMethod)
	}
	if q.SpeakerValidation != model.SpeakerValid {
		t.Errorf("Expected valid speaker, got %s", q.SpeakerValidation)
	}
	if q.SpeakerConfidence != 0.95 {
		t.Errorf("Expected registry confidence 0.95, got %v", q.SpeakerConfidence)
	}
	if q.SpeechVerb != "said" {
		t.Errorf("Expected speech verb said, got %q", q.SpeechVerb)
	}
}

func TestResolveSpeakerContextFromPronoun(t *testing.T) {
	c := testClassifier(t)
	narrative := "Officer Jenkins grabbed my arm. 'Stop!' he yelled."
	store, q := quoteStore(t, narrative, "'Stop!'",
		namedEntity("Officer Jenkins", 0.95, model.Span{Start: 0, End: 15}))

	if errs := c.resolveSpeaker(q, store, narrative); len(errs) != 0 {
		t.Fatalf("Expected no eval errors, got %v", errs)
	}
	if !q.SpeakerResolved || q.SpeakerLabel != "Officer Jenkins" {
		t.Fatalf("Expected context resolution to Officer Jenkins, got %+v", q)
	}
	if q.SpeakerMethod != model.MethodContext {
		t.Errorf("Expected method context, got %s", q.SpeakerMethod)
	}
	if q.SpeechVerb != "yelled" {
		t.Errorf("Expected speech verb yelled, got %q", q.SpeechVerb)
	}
}

func TestResolveSpeakerPronounOnly(t *testing.T) {
	c := testClassifier(t)
	narrative := `He yelled "Get back" at someone on the corner.`
	store, q := quoteStore(t, narrative, `"Get back"`)

	if errs := c.resolveSpeaker(q, store, narrative); len(errs) != 0 {
		t.Fatalf("Expected no eval errors, got %v", errs)
	}
	if q.SpeakerResolved {
		t.Fatalf("Expected unresolved speaker, got %+v", q)
	}
	if q.SpeakerValidation != model.SpeakerPronounOnly {
		t.Errorf("Expected pronoun_only validation, got %s", q.SpeakerValidation)
	}
	if q.IsQuarantined {
		t.Error("A pronoun-adjacent quote is unresolved, not quarantined")
	}
}

func TestResolveSpeakerSelfQuote(t *testing.T) {
	c := testClassifier(t)
	narrative := `I said "I need to call my wife" twice.`
	store, q := quoteStore(t, narrative, `"I need to call my wife"`)

	if errs := c.resolveSpeaker(q, store, narrative); len(errs) != 0 {
		t.Fatalf("Expected no eval errors, got %v", errs)
	}
	if !q.SpeakerResolved || q.SpeakerLabel != "Reporter" {
		t.Fatalf("Expected self-quote resolution to Reporter, got %+v", q)
	}
	if q.SpeakerMethod != model.MethodDirect {
		t.Errorf("Expected method direct, got %s", q.SpeakerMethod)
	}
}

func TestResolveSpeakerQuarantinesUnattributed(t *testing.T) {
	c := testClassifier(t)
	narrative := `"Back up." The street was empty.`
	store, q := quoteStore(t, narrative, `"Back up."`)

	if errs := c.resolveSpeaker(q, store, narrative); len(errs) != 0 {
		t.Fatalf("Expected no eval errors, got %v", errs)
	}
	if !q.IsQuarantined || q.QuarantineReason != "no_speaker_attribution" {
		t.Fatalf("Expected quarantine, got %+v", q)
	}
	if q.SpeakerResolved {
		t.Error("A quarantined quote must not be resolved")
	}
	if q.SpeakerValidation != model.SpeakerUnknown {
		t.Errorf("Expected unknown validation, got %s", q.SpeakerValidation)
	}
}
