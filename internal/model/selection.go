package model

import "fmt"

// Mode selects a presentation profile. Every mode consumes the same
// classified store; they differ only in which buckets survive.
type Mode string

const (
	ModeStrict        Mode = "strict"
	ModeFull          Mode = "full"
	ModeTimeline      Mode = "timeline"
	ModeEventsOnly    Mode = "events_only"
	ModeRecomposition Mode = "recomposition"
)

// ParseMode validates a mode string from a flag or request parameter.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrict, ModeFull, ModeTimeline, ModeEventsOnly, ModeRecomposition:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (valid: strict, full, timeline, events_only, recomposition)", s)
	}
}

// Bucket names. Selection routes every atom ID into exactly one of its
// category's buckets or onto the category's excluded list.
const (
	// events
	BucketObservedEvents    = "observed_events"
	BucketFollowUpEvents    = "follow_up_events"
	BucketNarrativeExcerpts = "narrative_excerpts"

	// entities
	BucketIncidentParticipants = "incident_participants"
	BucketPostIncidentPros     = "post_incident_professionals"
	BucketMentionedContacts    = "mentioned_contacts"

	// quotes
	BucketPreservedQuotes   = "preserved_quotes"
	BucketQuarantinedQuotes = "quarantined_quotes"

	// timeline
	BucketTimelineEntries = "timeline_entries"

	// statements, keyed by epistemic type and subtype
	BucketAcuteState          = "acute_state"
	BucketInjuryState         = "injury_state"
	BucketPsychologicalState  = "psychological_state"
	BucketSocioeconomicImpact = "socioeconomic_impact"
	BucketGeneralSelfReport   = "general_self_report"
	BucketLegalDirect         = "legal_direct"
	BucketLegalAdmin          = "legal_admin"
	BucketLegalCausation      = "legal_causation"
	BucketLegalAttorney       = "legal_attorney"
	BucketCharacterizations   = "characterizations"
	BucketInterpretations     = "interpretations"
	BucketInferences          = "inferences"
	BucketContestedAllegation = "contested_allegations"
	BucketMedicalFindings     = "medical_findings"
	BucketAdminActions        = "admin_actions"
	BucketSourceDerived       = "source_derived"

	// full-mode homes for statements strict mode excludes
	BucketDirectEvents = "direct_events"
	BucketUnclassified = "unclassified_statements"
)

// Exclusion is an atom left out of every bucket, with the reason it was
// excluded. Exclusions are part of the result, never silent.
type Exclusion struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// CategoryResult partitions one atom category into named buckets plus an
// excluded list. Bucket values are atom IDs in store order.
type CategoryResult struct {
	Buckets  map[string][]string `json:"buckets"`
	Excluded []Exclusion         `json:"excluded"`
}

// NewCategoryResult returns an empty partition ready for routing.
func NewCategoryResult() CategoryResult {
	return CategoryResult{Buckets: map[string][]string{}}
}

// Add routes an atom ID into a bucket.
func (c *CategoryResult) Add(bucket, id string) {
	c.Buckets[bucket] = append(c.Buckets[bucket], id)
}

// Exclude routes an atom ID onto the excluded list with a reason.
func (c *CategoryResult) Exclude(id, reason string) {
	c.Excluded = append(c.Excluded, Exclusion{ID: id, Reason: reason})
}

// AccountedIDs returns every ID the partition has routed, bucketed or
// excluded, in routing order. Used by the completeness check.
func (c *CategoryResult) AccountedIDs() []string {
	var ids []string
	for _, bucket := range c.Buckets {
		ids = append(ids, bucket...)
	}
	for _, ex := range c.Excluded {
		ids = append(ids, ex.ID)
	}
	return ids
}

// BucketLen is the number of IDs routed into buckets (excluded not
// counted).
func (c *CategoryResult) BucketLen() int {
	n := 0
	for _, bucket := range c.Buckets {
		n += len(bucket)
	}
	return n
}

// SelectionResult is the complete audited partition of a classified
// store under one mode. Every atom in the store appears in exactly one
// bucket or exactly one excluded list; the selection layer asserts this
// before returning, so downstream consumers can rely on it.
type SelectionResult struct {
	Mode       Mode           `json:"mode"`
	Events     CategoryResult `json:"events"`
	Entities   CategoryResult `json:"entities"`
	Quotes     CategoryResult `json:"quotes"`
	Timeline   CategoryResult `json:"timeline"`
	Statements CategoryResult `json:"statements"`
}

// NewSelectionResult returns an empty result for the given mode.
func NewSelectionResult(mode Mode) *SelectionResult {
	return &SelectionResult{
		Mode:       mode,
		Events:     NewCategoryResult(),
		Entities:   NewCategoryResult(),
		Quotes:     NewCategoryResult(),
		Timeline:   NewCategoryResult(),
		Statements: NewCategoryResult(),
	}
}

// IncludedCount is the total number of atom IDs routed into buckets
// across all categories.
func (r *SelectionResult) IncludedCount() int {
	return r.Events.BucketLen() + r.Entities.BucketLen() + r.Quotes.BucketLen() +
		r.Timeline.BucketLen() + r.Statements.BucketLen()
}

// ExcludedCount is the total number of excluded atom IDs across all
// categories.
func (r *SelectionResult) ExcludedCount() int {
	return len(r.Events.Excluded) + len(r.Entities.Excluded) + len(r.Quotes.Excluded) +
		len(r.Timeline.Excluded) + len(r.Statements.Excluded)
}
