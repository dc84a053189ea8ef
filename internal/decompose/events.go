package decompose

import (
	"strings"
	"unicode"

	"plainview/internal/model"
)

// parseEvent builds an event candidate from a statement. Any statement
// anchored by an action verb is a candidate; actor resolution is best
// effort here and the camera battery judges the result later. A
// statement with no action verb never becomes an event.
func (d *Decomposer) parseEvent(ids *counter, text string, span model.Span) (*model.Event, bool) {
	verb, ok := d.eng.FirstMatch("action_verbs", text)
	if !ok {
		return nil, false
	}

	actor, resolved := d.leadingActor(text)
	target := targetAfter(text, verb.Span.End)

	return &model.Event{
		ID:            ids.next("EV"),
		Text:          text,
		Span:          span,
		ActorLabel:    actor,
		ActionVerb:    strings.ToLower(verb.Text),
		TargetLabel:   target,
		ActorResolved: resolved,
		Camera:        model.UnclassifiedVerdict(),
	}, true
}

// leadingActor finds the subject at the head of the statement. A titled
// name or proper pair resolves; a pronoun, a determiner phrase ("the
// officer") or a lone capitalized word does not.
func (d *Decomposer) leadingActor(text string) (label string, resolved bool) {
	// 1. Titled name at the very start ("Officer Jenkins grabbed ...")
	for _, ext := range d.eng.Extract("titled_name", text) {
		if ext.Span.Start == 0 {
			return ext.Value, true
		}
	}

	// 2. Proper pair at the start, unless the first word is sentence
	// furniture ("Then Maria ...")
	for _, ext := range d.eng.Extract("proper_pair", text) {
		if ext.Span.Start != 0 {
			continue
		}
		if d.stopwords[firstWord(ext.Value)] {
			break
		}
		return ext.Value, true
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	head := strings.ToLower(strings.Trim(fields[0], ".,;:!?"))

	// 3. First person: the narrator is a known actor
	if d.firstPerson[head] {
		return "Reporter", true
	}

	// 4. Determiner phrase ("The officer", "His partner"). Possessives
	// are checked here first so "His partner" reads as a phrase, not as
	// the bare pronoun "His".
	if d.determiners[head] && len(fields) > 1 {
		noun := strings.Trim(fields[1], ".,;:!?")
		if noun != "" && !d.actionVerbs[strings.ToLower(noun)] {
			return fields[0] + " " + noun, false
		}
	}

	// 5. Bare pronoun
	if d.pronouns[head] {
		return fields[0], false
	}

	// 6. Lone capitalized word that is not vocabulary
	r := []rune(fields[0])
	if len(r) > 0 && unicode.IsUpper(r[0]) && !d.stopwords[head] && !d.actionVerbs[head] {
		return strings.Trim(fields[0], ".,;:!?"), false
	}
	return "", false
}

// targetAfter takes the remainder of the statement past the action verb
// as the target phrase, trimmed of closing punctuation.
func targetAfter(text string, verbEnd int) string {
	if verbEnd >= len(text) {
		return ""
	}
	rest := strings.TrimSpace(text[verbEnd:])
	rest = strings.TrimRight(rest, ".!?;, ")
	return rest
}
