package classify

import (
	"strconv"
	"strings"

	"plainview/internal/model"
	"plainview/internal/rules"
)

// longGapMinutes is the threshold past which a gap between two timed
// entries needs an explanation in the intervening text.
const longGapMinutes = 120

// enrichTimeline anchors every entry: cumulative day offsets, per-day
// sequence numbers, clock and relative times, gap grading between
// adjacent timed entries, and leading-pronoun resolution. The resulting
// (DayOffset, SequenceOrder) pair is the canonical ordering.
func (c *Classifier) enrichTimeline(store *model.Store, narrative string) []*rules.EvalError {
	var errs []*rules.EvalError

	day := 0
	seq := map[int]int{}
	minutes := make([]int, len(store.Timeline))

	for i, te := range store.Timeline {
		ectx := &rules.EvalContext{AtomID: te.ID}

		// 1. Day markers accumulate: "the next day" twice is day 2.
		v, ok, derrs := c.eng.Classify("day_offset", te.Description, ectx)
		errs = append(errs, derrs...)
		if ok {
			if delta, err := strconv.Atoi(v.Value); err == nil && delta > 0 {
				day += delta
			}
		}
		te.DayOffset = day
		seq[day]++
		te.SequenceOrder = seq[day]

		// 2. Clock time beats a relative marker when both appear.
		minutes[i] = -1
		if exts := c.eng.Extract("time_absolute", te.Description); len(exts) > 0 {
			te.AbsoluteTime = exts[0].Value
			te.TimeConfidence = 0.9
			if m, mok := clockMinutes(exts[0].Value); mok {
				minutes[i] = m
			}
		} else if exts := c.eng.Extract("time_relative", te.Description); len(exts) > 0 {
			te.RelativeTime = exts[0].Value
			te.TimeConfidence = 0.5
		}

		// 3. Leading pronouns resolve against the registry.
		c.resolveEntryPronouns(te, store)
	}

	// 4. Gaps between consecutive timed entries. A negative gap means
	// the narrative's clock runs backwards; a long one needs the text
	// in between to account for the wait.
	lastTimed := -1
	for i, te := range store.Timeline {
		if minutes[i] < 0 {
			continue
		}
		if lastTimed >= 0 {
			prev := store.Timeline[lastTimed]
			gap := (te.DayOffset*24*60 + minutes[i]) - (prev.DayOffset*24*60 + minutes[lastTimed])
			te.GapBeforeMinutes = &gap
			switch {
			case gap < 0:
				te.Gap = model.GapContradictory
			case gap > longGapMinutes:
				between := narrative[prev.Span.Start:te.Span.End]
				if c.eng.HasContext("gap_explained", between) {
					te.Gap = model.GapExplained
				} else {
					te.Gap = model.GapUnexplained
				}
			}
		}
		lastTimed = i
	}

	// 5. Display quality
	for _, te := range store.Timeline {
		te.Quality = c.entryQuality(te)
	}
	return errs
}

// resolveEntryPronouns rewrites a leading pronoun to its antecedent.
// First-person entries read as the reporter; third-person ones resolve
// to the nearest preceding named entity or stay unresolved.
func (c *Classifier) resolveEntryPronouns(te *model.TimelineEntry, store *model.Store) {
	w := firstWord(te.Description)
	switch {
	case c.firstPerson[w]:
		label := "The reporter"
		if w == "my" {
			label += "'s"
		}
		te.PronounsResolved = true
		te.ResolvedDescription = substituteLeading(te.Description, label)
	case c.pronouns[w]:
		en, ok := nearestNamedBefore(store, te.Span.Start)
		if !ok {
			te.PronounsResolved = false
			return
		}
		label := en.Label
		if c.possessive(w) {
			label += "'s"
		}
		te.PronounsResolved = true
		te.ResolvedDescription = substituteLeading(te.Description, label)
	default:
		te.PronounsResolved = true
	}
}

// entryQuality grades an entry for display.
func (c *Classifier) entryQuality(te *model.TimelineEntry) model.DisplayQuality {
	switch {
	case c.actionVerbs[firstWord(te.Description)]:
		return model.QualityFragment
	case !te.PronounsResolved:
		return model.QualityLow
	case te.AbsoluteTime != "":
		return model.QualityHigh
	default:
		return model.QualityNormal
	}
}

// substituteLeading replaces the first token of a description.
func substituteLeading(desc, replacement string) string {
	fields := strings.Fields(desc)
	if len(fields) == 0 {
		return desc
	}
	return replacement + strings.TrimPrefix(desc, fields[0])
}

// clockMinutes parses an extracted clock value ("3:45 p.m.", "11 am",
// "noon") into minutes since midnight.
func clockMinutes(s string) (int, bool) {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "noon":
		return 12 * 60, true
	case "midnight":
		return 0, true
	}

	i := 0
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	if i == 0 || i > 2 {
		return 0, false
	}
	hour, _ := strconv.Atoi(t[:i])

	minute := 0
	rest := t[i:]
	if strings.HasPrefix(rest, ":") {
		j := 1
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		if j != 3 {
			return 0, false
		}
		minute, _ = strconv.Atoi(rest[1:3])
		rest = rest[3:]
	}

	rest = strings.TrimSpace(rest)
	switch {
	case strings.HasPrefix(rest, "p"):
		if hour < 12 {
			hour += 12
		}
	case strings.HasPrefix(rest, "a"):
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
