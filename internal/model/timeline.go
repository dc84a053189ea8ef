package model

// DisplayQuality grades how presentable a timeline entry is after
// pronoun resolution: "high" has an absolute time and a resolved actor,
// "fragment" is a clause that never parsed into a full entry.
type DisplayQuality string

const (
	QualityHigh     DisplayQuality = "high"
	QualityNormal   DisplayQuality = "normal"
	QualityLow      DisplayQuality = "low"
	QualityFragment DisplayQuality = "fragment"
)

// GapType explains the time gap between an entry and its predecessor.
type GapType string

const (
	GapExplained     GapType = "explained"
	GapUnexplained   GapType = "unexplained"
	GapContradictory GapType = "contradictory"
)

// TimelineEntry is one narrative moment placed on the incident timeline.
//
// GapBeforeMinutes and Gap are computed once, during timeline assembly,
// for each adjacent pair under the canonical (DayOffset, SequenceOrder)
// ordering. They are display metadata afterward; the renderer never
// recomputes gaps.
type TimelineEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Span        Span   `json:"span"`

	SequenceOrder int `json:"sequence_order"`
	DayOffset     int `json:"day_offset"`

	AbsoluteTime   string  `json:"absolute_time,omitempty"`
	RelativeTime   string  `json:"relative_time,omitempty"`
	TimeConfidence float64 `json:"time_confidence"`

	PronounsResolved    bool   `json:"pronouns_resolved"`
	ResolvedDescription string `json:"resolved_description,omitempty"`

	Quality DisplayQuality `json:"display_quality"`

	GapBeforeMinutes *int    `json:"gap_before_minutes,omitempty"`
	Gap              GapType `json:"gap_type,omitempty"`
}
