package render

import (
	"fmt"
	"strings"

	"plainview/internal/model"
)

// Section titles are emitted verbatim and asserted on by tests; the v1
// suffix versions the compatibility surface. Changing a title means
// bumping its version, never editing in place.
const (
	ReportTitle   = "PLAINVIEW TRANSFORM v1"
	reportVersion = "v1"

	TitleObservedEvents     = "OBSERVED EVENTS v1"
	TitleFollowUpEvents     = "FOLLOW-UP EVENTS v1"
	TitleNarrativeExcerpts  = "NARRATIVE EXCERPTS v1"
	TitleTimeline           = "TIMELINE v1"
	TitlePreservedQuotes    = "PRESERVED QUOTES v1"
	TitleQuarantinedQuotes  = "QUARANTINED QUOTES v1"
	TitleMedicalFindings    = "MEDICAL FINDINGS v1"
	TitleAcuteState         = "ACUTE STATE v1"
	TitleInjuryState        = "INJURY STATE v1"
	TitlePsychologicalState = "PSYCHOLOGICAL STATE v1"
	TitleSocioeconomic      = "SOCIOECONOMIC IMPACT v1"
	TitleGeneralSelfReport  = "GENERAL SELF-REPORT v1"
	TitleLegalDirect        = "LEGAL CLAIMS v1"
	TitleLegalAdmin         = "ADMINISTRATIVE COMPLAINTS v1"
	TitleLegalCausation     = "CAUSATION CLAIMS v1"
	TitleLegalAttorney      = "ATTORNEY STATEMENTS v1"
	TitleAdminActions       = "ADMINISTRATIVE ACTIONS v1"
	TitleCharacterizations  = "CHARACTERIZATIONS v1"
	TitleInterpretations    = "INTERPRETATIONS v1"
	TitleInferences         = "INFERENCES v1"
	TitleContested          = "CONTESTED ALLEGATIONS v1"
	TitleSourceDerived      = "SOURCE-DERIVED STATEMENTS v1"
	TitleDirectEvents       = "DIRECT EVENT STATEMENTS v1"
	TitleUnclassified       = "UNCLASSIFIED STATEMENTS v1"
	TitleParticipants       = "INCIDENT PARTICIPANTS v1"
	TitleProfessionals      = "POST-INCIDENT PROFESSIONALS v1"
	TitleContacts           = "MENTIONED CONTACTS v1"
	TitleExclusions         = "EXCLUSIONS v1"
)

const (
	catEvents     = "events"
	catEntities   = "entities"
	catQuotes     = "quotes"
	catTimeline   = "timeline"
	catStatements = "statements"
)

type sectionSpec struct {
	title    string
	bucket   string
	category string
}

// sectionSpecs fixes the section order of every report. Buckets a mode
// never fills are simply skipped at emission.
var sectionSpecs = []sectionSpec{
	{TitleObservedEvents, model.BucketObservedEvents, catEvents},
	{TitleFollowUpEvents, model.BucketFollowUpEvents, catEvents},
	{TitleNarrativeExcerpts, model.BucketNarrativeExcerpts, catEvents},
	{TitleTimeline, model.BucketTimelineEntries, catTimeline},
	{TitlePreservedQuotes, model.BucketPreservedQuotes, catQuotes},
	{TitleQuarantinedQuotes, model.BucketQuarantinedQuotes, catQuotes},
	{TitleMedicalFindings, model.BucketMedicalFindings, catStatements},
	{TitleAcuteState, model.BucketAcuteState, catStatements},
	{TitleInjuryState, model.BucketInjuryState, catStatements},
	{TitlePsychologicalState, model.BucketPsychologicalState, catStatements},
	{TitleSocioeconomic, model.BucketSocioeconomicImpact, catStatements},
	{TitleGeneralSelfReport, model.BucketGeneralSelfReport, catStatements},
	{TitleLegalDirect, model.BucketLegalDirect, catStatements},
	{TitleLegalAdmin, model.BucketLegalAdmin, catStatements},
	{TitleLegalCausation, model.BucketLegalCausation, catStatements},
	{TitleLegalAttorney, model.BucketLegalAttorney, catStatements},
	{TitleAdminActions, model.BucketAdminActions, catStatements},
	{TitleCharacterizations, model.BucketCharacterizations, catStatements},
	{TitleInterpretations, model.BucketInterpretations, catStatements},
	{TitleInferences, model.BucketInferences, catStatements},
	{TitleContested, model.BucketContestedAllegation, catStatements},
	{TitleSourceDerived, model.BucketSourceDerived, catStatements},
	{TitleDirectEvents, model.BucketDirectEvents, catStatements},
	{TitleUnclassified, model.BucketUnclassified, catStatements},
	{TitleParticipants, model.BucketIncidentParticipants, catEntities},
	{TitleProfessionals, model.BucketPostIncidentPros, catEntities},
	{TitleContacts, model.BucketMentionedContacts, catEntities},
}

// excludedOrder fixes the order exclusion listings appear in.
var excludedOrder = []string{catEvents, catEntities, catQuotes, catTimeline, catStatements}

const maxLineLen = 240

func eventLine(ev *model.Event, bucket string) string {
	text := ev.Text
	if ev.NeutralizationApplied {
		text = ev.Neutralized
	}
	text = substituteFirstPerson(text)
	if bucket == model.BucketNarrativeExcerpts {
		return fmt.Sprintf("%s (reason: %s)", truncate(text, maxLineLen), ev.Camera.Reason)
	}
	return truncate(text, maxLineLen)
}

func quoteLine(q *model.SpeechAct) string {
	if q.SpeakerResolved {
		return fmt.Sprintf("%q (speaker: %s, %s)", q.Content, q.SpeakerLabel, q.SpeakerMethod)
	}
	if q.IsQuarantined {
		return fmt.Sprintf("%q (unattributed: %s)", q.Content, q.QuarantineReason)
	}
	return fmt.Sprintf("%q (speaker unresolved: %s)", q.Content, q.SpeakerValidation)
}

func timelineLine(te *model.TimelineEntry) string {
	desc := te.Description
	if te.ResolvedDescription != "" {
		desc = te.ResolvedDescription
	}
	prefix := fmt.Sprintf("day %d", te.DayOffset)
	switch {
	case te.AbsoluteTime != "":
		prefix += ", " + te.AbsoluteTime
	case te.RelativeTime != "":
		prefix += ", " + te.RelativeTime
	}
	line := prefix + ": " + truncate(desc, maxLineLen)
	if te.GapBeforeMinutes != nil && te.Gap != "" {
		line += fmt.Sprintf(" (gap %d min, %s)", *te.GapBeforeMinutes, te.Gap)
	}
	return line
}

func statementLine(st *model.AtomicStatement) string {
	text := truncate(substituteFirstPerson(st.Text), maxLineLen)
	switch st.Attribution {
	case model.AttrReporter, model.AttrUnknown, "":
		return text
	default:
		return fmt.Sprintf("%s (per %s)", text, st.Attribution)
	}
}

func entityLine(en *model.Entity) string {
	return fmt.Sprintf("%s (%s, %s)", en.Label, en.Role, en.Participation)
}

// firstPersonLabels maps the reporter's pronouns to display labels. The
// substitution is display-only; canonical atom text is never touched.
var firstPersonLabels = map[string]string{
	"I":      "Reporter",
	"my":     "reporter's",
	"My":     "Reporter's",
	"me":     "the reporter",
	"Me":     "The reporter",
	"myself": "the reporter",
	"Myself": "The reporter",
	"mine":   "the reporter's",
	"Mine":   "The reporter's",
}

func substituteFirstPerson(s string) string {
	fields := strings.Fields(s)
	changed := false
	for i, f := range fields {
		lead, core, trail := splitWord(f)
		repl, ok := firstPersonLabels[core]
		if !ok {
			continue
		}
		fields[i] = lead + repl + trail
		changed = true
	}
	if !changed {
		return s
	}
	return strings.Join(fields, " ")
}

// splitWord peels surrounding punctuation off a whitespace-delimited
// token so the core can be matched exactly.
func splitWord(w string) (lead, core, trail string) {
	start := 0
	for start < len(w) && isPunct(w[start]) {
		start++
	}
	end := len(w)
	for end > start && isPunct(w[end-1]) {
		end--
	}
	return w[:start], w[start:end], w[end:]
}

func isPunct(b byte) bool {
	switch b {
	case '.', ',', ';', ':', '!', '?', '"', '\'', '(', ')', '[', ']':
		return true
	}
	return false
}

// truncate cuts a display line at a word boundary and marks the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndexByte(s[:n], ' ')
	if cut <= 0 {
		cut = n
	}
	return s[:cut] + "..."
}
