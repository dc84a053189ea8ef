package model

// CameraVerdict is the full camera-friendliness decision for an event:
// the boolean, how sure the pass is, which rule (or gate) decided, and
// which stage produced the verdict.
//
// The zero value is the mandatory conservative default: not camera
// friendly, confidence 0, reason "unclassified". No code path may set
// Friendly true without also setting Confidence, Reason and Source.
type CameraVerdict struct {
	Friendly   bool    `json:"friendly"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Source     string  `json:"source"`
}

// UnclassifiedVerdict returns the default verdict every event starts
// with before the classification pass runs.
func UnclassifiedVerdict() CameraVerdict {
	return CameraVerdict{Friendly: false, Confidence: 0, Reason: "unclassified", Source: "default"}
}

// Event is an observable occurrence extracted from the narrative:
// an actor, an action verb, and optionally a target.
type Event struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Span Span   `json:"span"`

	ActorLabel    string `json:"actor_label"`
	ActionVerb    string `json:"action_verb"`
	TargetLabel   string `json:"target_label,omitempty"`
	ActorResolved bool   `json:"actor_resolved"`

	Camera CameraVerdict `json:"camera"`

	IsFollowUp bool `json:"is_follow_up"`
	IsFragment bool `json:"is_fragment"`

	ContainsQuote        bool     `json:"contains_quote"`
	ContainsInterpretive bool     `json:"contains_interpretive"`
	InterpretiveTerms    []string `json:"interpretive_terms,omitempty"`

	// Neutralized holds the display-safe rewrite of Text with charged
	// vocabulary stripped or replaced. NeutralizationApplied is true only
	// when Neutralized actually differs from Text.
	Neutralized           string `json:"neutralized_description,omitempty"`
	NeutralizationApplied bool   `json:"neutralization_applied"`
}
