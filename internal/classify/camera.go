package classify

import (
	"strings"

	"plainview/internal/model"
	"plainview/internal/rules"
)

// classifyEvent runs the full event battery: the camera verdict, the
// non-consuming detect flags, and display neutralization when the text
// carries interpretive vocabulary.
func (c *Classifier) classifyEvent(ev *model.Event) []*rules.EvalError {
	ectx := &rules.EvalContext{AtomID: ev.ID}

	// 1. Camera verdict. The event arrives with the conservative
	// default already set; nothing below can leave it half-written.
	verdict, errs := c.cameraVerdict(ev.Text, ectx)
	ev.Camera = verdict

	// 2. Detect flags run regardless of the camera outcome: a
	// disqualified event still reports its quote and follow-up flags
	// truthfully.
	dets, derrs := c.eng.Detect("detect", ev.Text, ectx)
	errs = append(errs, derrs...)
	seen := map[string]bool{}
	for _, d := range dets {
		switch d.Field {
		case "contains_quote":
			ev.ContainsQuote = true
		case "contains_interpretive":
			ev.ContainsInterpretive = true
			if !seen[d.Term] {
				seen[d.Term] = true
				ev.InterpretiveTerms = append(ev.InterpretiveTerms, d.Term)
			}
		case "is_follow_up":
			ev.IsFollowUp = true
		case "is_fragment":
			ev.IsFragment = true
		}
	}

	// 3. Neutralize interpretive descriptions for display. Applied is
	// true only when the rewrite actually changed something.
	if ev.ContainsInterpretive {
		out, _ := c.eng.Transform("neutralize", ev.Text)
		ev.Neutralized = out
		ev.NeutralizationApplied = out != ev.Text
	}
	return errs
}

// cameraVerdict decides camera-friendliness for one event text.
//
// The default is not friendly. A DISQUALIFY hit ends the evaluation
// with that rule's reason. Otherwise the named-actor gate runs: the
// text must contain a titled name or a bare proper pair, or at least
// not open with a bare pronoun. Only an event that clears every check
// becomes friendly, at the rule-reported confidence when a CLASSIFY
// rule voted and the configured default otherwise.
func (c *Classifier) cameraVerdict(text string, ectx *rules.EvalContext) (model.CameraVerdict, []*rules.EvalError) {
	if strings.TrimSpace(text) == "" {
		return model.UnclassifiedVerdict(), nil
	}

	v, ok, errs := c.eng.Classify("camera", text, ectx)
	if ok && v.Disqualified {
		return model.CameraVerdict{
			Friendly:   false,
			Confidence: v.Confidence,
			Reason:     v.Reason,
			Source:     v.RuleID,
		}, errs
	}

	if reason, failed := c.namedActorGate(text); failed {
		return model.CameraVerdict{
			Friendly:   false,
			Confidence: 0.9,
			Reason:     reason,
			Source:     "classification_pass",
		}, errs
	}

	conf := c.cfg.Rules.DefaultCameraConfidence
	if ok && v.Confidence > 0 {
		conf = v.Confidence
	}
	return model.CameraVerdict{
		Friendly:   true,
		Confidence: conf,
		Reason:     "passed_all_rules",
		Source:     "classification_pass",
	}, errs
}

// namedActorGate fails a text that opens with a bare pronoun and names
// nobody anywhere. "His partner, Officer Rodriguez, found the keys"
// passes: the possessive opener is excused by the name further in.
func (c *Classifier) namedActorGate(text string) (string, bool) {
	if len(c.eng.Extract("titled_name", text)) > 0 {
		return "", false
	}
	for _, ext := range c.eng.ExtractAll("proper_pair", text) {
		if !c.stopwords[firstWord(ext.Value)] {
			return "", false
		}
	}
	if c.pronouns[firstWord(text)] {
		return "pronoun_start_no_named_actor", true
	}
	return "", false
}
