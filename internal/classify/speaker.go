package classify

import (
	"strings"

	"plainview/internal/model"
	"plainview/internal/rules"
)

// resolveSpeaker attributes one quote. The attribution window around
// the quote is searched for speaker syntax; a proper-name capture
// resolves directly, a pronoun capture resolves through the nearest
// preceding named entity, and a quote with no attribution at all is
// quarantined rather than guessed at.
func (c *Classifier) resolveSpeaker(q *model.SpeechAct, store *model.Store, narrative string) []*rules.EvalError {
	win := window(narrative, q.Span, attributionRadius)
	cands := c.eng.Extract("speaker", win)

	var direct, pronoun *rules.Extraction
	for i := range cands {
		w := strings.ToLower(cands[i].Value)
		if c.pronouns[w] || c.firstPerson[w] {
			if pronoun == nil {
				pronoun = &cands[i]
			}
		} else if direct == nil {
			direct = &cands[i]
		}
	}

	switch {
	case direct != nil:
		q.SpeakerLabel = direct.Value
		q.SpeakerResolved = true
		q.SpeakerMethod = model.MethodDirect
		q.SpeakerValidation = c.validateLabel(direct.Value)
		q.SpeakerConfidence = 0.9
		if en := findEntity(store, direct.Value); en != nil && en.NamedConfidence > 0 {
			q.SpeakerConfidence = en.NamedConfidence
		}
		c.setSpeechVerb(q, win, direct.Span)

	case pronoun != nil:
		c.setSpeechVerb(q, win, pronoun.Span)
		if strings.EqualFold(pronoun.Value, "i") {
			// A first-person attribution is the narrator quoting
			// themselves.
			q.SpeakerLabel = "Reporter"
			q.SpeakerResolved = true
			q.SpeakerMethod = model.MethodDirect
			q.SpeakerValidation = model.SpeakerValid
			q.SpeakerConfidence = 0.9
			return nil
		}
		if en, ok := nearestNamedBefore(store, q.Span.Start); ok {
			q.SpeakerLabel = en.Label
			q.SpeakerResolved = true
			q.SpeakerMethod = model.MethodContext
			q.SpeakerValidation = model.SpeakerValid
			q.SpeakerConfidence = en.NamedConfidence
			return nil
		}
		q.SpeakerLabel = pronoun.Value
		q.SpeakerResolved = false
		q.SpeakerValidation = model.SpeakerPronounOnly

	default:
		q.IsQuarantined = true
		q.QuarantineReason = "no_speaker_attribution"
	}
	return nil
}

// validateLabel grades a speaker label: a titled role or proper name is
// valid, a pronoun is pronoun_only, anything else stays unknown.
func (c *Classifier) validateLabel(label string) model.SpeakerValidation {
	w := strings.ToLower(label)
	if c.pronouns[w] || c.firstPerson[w] {
		return model.SpeakerPronounOnly
	}
	if len(c.eng.Extract("titled_name", label)) > 0 {
		return model.SpeakerValid
	}
	if label != "" && label[0] >= 'A' && label[0] <= 'Z' && !c.stopwords[w] {
		return model.SpeakerValid
	}
	return model.SpeakerUnknown
}

// setSpeechVerb records which speech verb carried the attribution.
func (c *Classifier) setSpeechVerb(q *model.SpeechAct, win string, sp model.Span) {
	if sp.End > len(win) || sp.Start < 0 || sp.Start >= sp.End {
		return
	}
	if m, ok := c.eng.FirstMatch("speech_verbs", win[sp.Start:sp.End]); ok {
		q.SpeechVerb = strings.ToLower(m.Text)
	}
}
