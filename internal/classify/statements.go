package classify

import (
	"strings"

	"plainview/internal/model"
	"plainview/internal/rules"
)

// classifyStatement types one statement through the epistemic battery
// and resolves its source attribution. The battery's order lives in the
// ruleset priorities: medical findings outrank legal claims outrank
// intent attributions outrank self-reports, with observable action the
// last resort before unknown.
func (c *Classifier) classifyStatement(st *model.AtomicStatement, narrative string) []*rules.EvalError {
	ectx := &rules.EvalContext{
		AtomID: st.ID,
		Window: window(narrative, st.Span, contextRadius),
	}

	v, ok, errs := c.eng.Classify("epistemic_type", st.Text, ectx)
	if ok {
		st.Type, st.Subtype = splitTypeValue(v.Value)
		st.Confidence = v.Confidence
		st.MatchedRule = v.RuleID

		// Below the floor the match is recorded but not trusted.
		if v.Confidence < c.cfg.Rules.ConfidenceFloor {
			st.Type = model.TypeUnknown
			st.Subtype = model.SubtypeNone
		}
	}

	av, aok, aerrs := c.eng.Classify("attribution", st.Text, ectx)
	errs = append(errs, aerrs...)
	if aok {
		st.Attribution = attributionValue(av.Value)
	}
	return errs
}

// splitTypeValue parses a rule's classification value into type and
// subtype ("self_report:acute"). Unrecognized types become unknown so a
// misconfigured ruleset cannot invent a bucket.
func splitTypeValue(value string) (model.EpistemicType, model.Subtype) {
	base, sub, _ := strings.Cut(value, ":")
	typ, known := model.ValidEpistemicTypes[base]
	if !known {
		return model.TypeUnknown, model.SubtypeNone
	}
	return typ, model.Subtype(sub)
}

// attributionValue maps a rule value onto the closed attribution set.
func attributionValue(value string) model.Attribution {
	switch model.Attribution(value) {
	case model.AttrReporter, model.AttrWitness, model.AttrMedicalProvider, model.AttrOfficial:
		return model.Attribution(value)
	}
	return model.AttrUnknown
}
