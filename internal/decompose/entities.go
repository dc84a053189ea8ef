package decompose

import (
	"sort"
	"strings"

	"plainview/internal/model"
)

// buildEntities assembles the entity registry for the whole narrative:
// the narrator, every titled name, every bare proper pair, and every
// role noun that is not part of a named mention. Labels merge case
// insensitively so "Officer Jenkins" is one entity however often he
// appears. Role and participation stay unset here; the classification
// pass owns them.
func (d *Decomposer) buildEntities(store *model.Store, ids *counter, narrative string) {
	// 1. The narrator. Every first-person narrative gets a Reporter
	// entity; self-reports and pronoun substitution hang off it.
	if d.eng.MatchesAny("first_person", narrative) {
		store.Entities = append(store.Entities, &model.Entity{
			ID:            ids.next("EN"),
			Label:         "Reporter",
			Role:          model.RoleUnknown,
			Participation: model.ParticipationUnknown,
			IsValidActor:  true,
		})
	}

	type found struct {
		label    string
		source   string
		conf     float64
		named    bool
		mentions []model.Span
	}
	byKey := map[string]*found{}
	var all []*found
	var claimed []model.Span

	add := func(label, source string, conf float64, named bool, sp model.Span) {
		key := strings.ToLower(label)
		f, ok := byKey[key]
		if !ok {
			f = &found{label: label, source: source, conf: conf, named: named}
			byKey[key] = f
			all = append(all, f)
		}
		f.mentions = append(f.mentions, sp)
	}

	// 2. Titled names ("Officer Jenkins")
	for _, ext := range d.eng.ExtractAll("titled_name", narrative) {
		add(ext.Value, "titled_name", 0.95, true, ext.ValueSpan)
		claimed = append(claimed, ext.ValueSpan)
	}

	// 3. Proper pairs not claimed by a titled name. The stopword check
	// drops sentence-initial false pairs ("Then Maria").
	for _, ext := range d.eng.ExtractAll("proper_pair", narrative) {
		if overlapsAny(ext.ValueSpan, claimed) || d.stopwords[firstWord(ext.Value)] {
			continue
		}
		add(ext.Value, "proper_pair", 0.8, true, ext.ValueSpan)
		claimed = append(claimed, ext.ValueSpan)
	}

	// 4. Bare role nouns ("the sergeant") outside any named mention
	for _, m := range d.eng.Matches("entity_role", narrative) {
		if overlapsAny(m.Span, claimed) {
			continue
		}
		sp := expandDeterminer(narrative, m.Span, d.determiners)
		add(strings.ToLower(narrative[sp.Start:sp.End]), "role_noun", 0, false, sp)
	}

	// 5. Register in order of first appearance
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].mentions[0].Start < all[j].mentions[0].Start
	})
	for _, f := range all {
		store.Entities = append(store.Entities, &model.Entity{
			ID:              ids.next("EN"),
			Label:           f.label,
			Role:            model.RoleUnknown,
			Participation:   model.ParticipationUnknown,
			IsValidActor:    true,
			IsNamed:         f.named,
			NamedConfidence: f.conf,
			NamedSource:     f.source,
			Mentions:        f.mentions,
		})
	}
}

// expandDeterminer widens a role-noun span to include its determiner,
// so the entity reads "the officer" rather than "officer".
func expandDeterminer(text string, sp model.Span, dets map[string]bool) model.Span {
	i := sp.Start
	for i > 0 && text[i-1] == ' ' {
		i--
	}
	j := i
	for j > 0 && isWordByte(text[j-1]) {
		j--
	}
	if j < i && dets[strings.ToLower(text[j:i])] {
		return model.Span{Start: j, End: sp.End}
	}
	return sp
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func overlapsAny(sp model.Span, spans []model.Span) bool {
	for _, t := range spans {
		if sp.Start < t.End && t.Start < sp.End {
			return true
		}
	}
	return false
}
