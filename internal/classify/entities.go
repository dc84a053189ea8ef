package classify

import (
	"plainview/internal/model"
	"plainview/internal/rules"
)

// classifyEntity assigns an entity its domain role, its participation
// phase, and its actor validity. Role rules read the label text;
// participation rules read the assigned role through the context.
func (c *Classifier) classifyEntity(en *model.Entity) []*rules.EvalError {
	ectx := &rules.EvalContext{AtomID: en.ID}

	v, ok, errs := c.eng.Classify("entity_role", en.Label, ectx)
	if ok {
		if role, known := model.ValidRoles[v.Value]; known {
			en.Role = role
			en.RoleConfidence = v.Confidence
		}
	}

	ectx.EntityRole = string(en.Role)
	pv, pok, perrs := c.eng.Classify("participation", en.Label, ectx)
	errs = append(errs, perrs...)
	if pok {
		switch model.Participation(pv.Value) {
		case model.ParticipationIncident:
			en.Participation = model.ParticipationIncident
		case model.ParticipationPostIncident:
			en.Participation = model.ParticipationPostIncident
		case model.ParticipationMentioned:
			en.Participation = model.ParticipationMentioned
		}
	}

	// An unnamed entity whose head noun is too generic to identify
	// anyone ("his partner", "a suspect") cannot anchor anything.
	if !en.IsNamed && c.bareRoles[lastWord(en.Label)] {
		en.IsValidActor = false
	}
	return errs
}
