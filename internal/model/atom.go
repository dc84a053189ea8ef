package model

// Span is an offset range into the original narrative text. Spans are
// assigned once during decomposition and never recomputed; every derived
// atom stays traceable back to its source characters.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether the span is well-formed for a text of the given
// length. Oracle output with an invalid span is rejected at decomposition.
func (s Span) Valid(textLen int) bool {
	return s.Start >= 0 && s.End >= s.Start && s.End <= textLen
}

// EpistemicType classifies a statement by its relationship to evidence:
// directly observed fact, self-reported internal state, interpretive
// inference, legal conclusion, third-party medical finding, and so on.
// Exactly one type per statement.
type EpistemicType string

const (
	TypeDirectEvent      EpistemicType = "direct_event"
	TypeSelfReport       EpistemicType = "self_report"
	TypeInterpretation   EpistemicType = "interpretation"
	TypeCharacterization EpistemicType = "characterization"
	TypeInference        EpistemicType = "inference"
	TypeLegalClaim       EpistemicType = "legal_claim"
	TypeConspiracyClaim  EpistemicType = "conspiracy_claim"
	TypeMedicalFinding   EpistemicType = "medical_finding"
	TypeAdminAction      EpistemicType = "admin_action"
	TypeSourceDerived    EpistemicType = "source_derived"
	TypeUnknown          EpistemicType = "unknown"
)

// ValidEpistemicTypes maps recognized type strings to their typed values.
var ValidEpistemicTypes = map[string]EpistemicType{
	"direct_event":     TypeDirectEvent,
	"self_report":      TypeSelfReport,
	"interpretation":   TypeInterpretation,
	"characterization": TypeCharacterization,
	"inference":        TypeInference,
	"legal_claim":      TypeLegalClaim,
	"conspiracy_claim": TypeConspiracyClaim,
	"medical_finding":  TypeMedicalFinding,
	"admin_action":     TypeAdminAction,
	"source_derived":   TypeSourceDerived,
	"unknown":          TypeUnknown,
}

// Subtype refines an EpistemicType. It is a refinement of the single type,
// not a second classification axis: only self_report and legal_claim carry
// subtypes, every other type uses SubtypeNone.
type Subtype string

const (
	SubtypeNone Subtype = ""

	// self_report refinements
	SubtypeAcute         Subtype = "acute"
	SubtypeInjury        Subtype = "injury"
	SubtypePsychological Subtype = "psychological"
	SubtypeSocioeconomic Subtype = "socioeconomic"
	SubtypeGeneral       Subtype = "general"

	// legal_claim refinements
	SubtypeLegalDirect    Subtype = "direct"
	SubtypeLegalAdmin     Subtype = "admin"
	SubtypeLegalCausation Subtype = "causation"
	SubtypeLegalAttorney  Subtype = "attorney"
)

// Attribution identifies who is asserting a statement. Required for
// provenance-sensitive buckets (medical findings, legal allegations).
type Attribution string

const (
	AttrReporter        Attribution = "reporter"
	AttrWitness         Attribution = "witness"
	AttrMedicalProvider Attribution = "medical_provider"
	AttrOfficial        Attribution = "official"
	AttrUnknown         Attribution = "unknown"
)

// AtomicStatement is one self-contained factual or claim unit extracted
// from a sentence.
//
// Field ownership: Text and Span are written by decomposition and never
// change afterward. Type, Subtype, Confidence, Attribution and the
// quarantine fields are written exactly once by the classification pass;
// the selection layer reads them but never overwrites. The renderer may
// apply display transforms without mutating the canonical Text.
type AtomicStatement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Span Span   `json:"span"`

	Type        EpistemicType `json:"epistemic_type"`
	Subtype     Subtype       `json:"subtype,omitempty"`
	Confidence  float64       `json:"confidence"`
	Attribution Attribution   `json:"source_attribution"`

	// MatchedRule records which rule decided the epistemic type, for
	// audit trails. Empty when the type fell through to a default.
	MatchedRule string `json:"matched_rule,omitempty"`

	IsQuarantined    bool   `json:"is_quarantined,omitempty"`
	QuarantineReason string `json:"quarantine_reason,omitempty"`
}

// Diagnostic records a recovered per-atom failure (a rule that errored
// during evaluation, an oracle span that failed the contract). Diagnostics
// never abort a transform; they are surfaced with the report.
type Diagnostic struct {
	Stage   string `json:"stage"`
	AtomID  string `json:"atom_id,omitempty"`
	RuleID  string `json:"rule_id,omitempty"`
	Message string `json:"message"`
}
