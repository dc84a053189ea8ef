package model

// SpeakerMethod records how a quote's speaker was resolved: "direct"
// when the attribution sits inside the same statement, "context" when a
// nearby statement supplied it, "default" when a configured fallback was
// applied.
type SpeakerMethod string

const (
	MethodDirect  SpeakerMethod = "direct"
	MethodContext SpeakerMethod = "context"
	MethodDefault SpeakerMethod = "default"
)

// SpeakerValidation grades the resolved speaker label itself: a proper
// name or titled role is "valid", a bare pronoun is "pronoun_only",
// anything else is "unknown".
type SpeakerValidation string

const (
	SpeakerValid       SpeakerValidation = "valid"
	SpeakerPronounOnly SpeakerValidation = "pronoun_only"
	SpeakerUnknown     SpeakerValidation = "unknown"
)

// SpeechAct is one quoted utterance with its attribution metadata.
// Quoted content is never paraphrased; it either survives verbatim with
// a resolved speaker or is quarantined with a reason.
type SpeechAct struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Span    Span   `json:"span"`

	SpeakerLabel      string            `json:"speaker_label,omitempty"`
	SpeechVerb        string            `json:"speech_verb,omitempty"`
	SpeakerResolved   bool              `json:"speaker_resolved"`
	SpeakerConfidence float64           `json:"speaker_confidence"`
	SpeakerMethod     SpeakerMethod     `json:"speaker_method,omitempty"`
	SpeakerValidation SpeakerValidation `json:"speaker_validation"`

	IsQuarantined    bool   `json:"is_quarantined,omitempty"`
	QuarantineReason string `json:"quarantine_reason,omitempty"`
}
