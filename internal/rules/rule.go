package rules

// Action is what a rule does when its match fires. Transformation
// actions rewrite text and consume their matched span; classification
// actions only annotate and never consume anything.
type Action string

const (
	// transformation actions (span-consuming)
	ActionRemove   Action = "REMOVE"   // delete the matched span
	ActionReplace  Action = "REPLACE"  // substitute the replacement text
	ActionReframe  Action = "REFRAME"  // substitute a neutral reframing
	ActionStrip    Action = "STRIP"    // delete a charged modifier, keep the noun
	ActionPreserve Action = "PRESERVE" // lock the span against other transforms

	// classification actions (non-consuming)
	ActionClassify   Action = "CLASSIFY"   // vote a field value
	ActionDisqualify Action = "DISQUALIFY" // veto a field, wins over any vote
	ActionDetect     Action = "DETECT"     // set a boolean flag
	ActionContext    Action = "CONTEXT"    // establish context another rule requires
	ActionGroup      Action = "GROUP"      // contribute vocabulary to a named group
	ActionExtract    Action = "EXTRACT"    // capture a value out of the text
)

// Transforms reports whether the action rewrites text and consumes spans.
func (a Action) Transforms() bool {
	switch a {
	case ActionRemove, ActionReplace, ActionReframe, ActionStrip, ActionPreserve:
		return true
	}
	return false
}

// Classifies reports whether the action annotates without consuming.
func (a Action) Classifies() bool {
	switch a {
	case ActionClassify, ActionDisqualify, ActionDetect, ActionContext, ActionGroup, ActionExtract:
		return true
	}
	return false
}

// MatchType selects the matching strategy for a rule.
type MatchType string

const (
	MatchKeyword    MatchType = "keyword"     // whole words, boundary-safe
	MatchPhrase     MatchType = "phrase"      // multi-word literal, flexible whitespace
	MatchRegex      MatchType = "regex"       // raw regular expression
	MatchEntityRole MatchType = "entity_role" // matches an entity's domain role
	MatchEntityType MatchType = "entity_type" // matches an entity kind label
	MatchEventType  MatchType = "event_type"  // matches an event kind label
)

// Match describes what a rule looks for.
type Match struct {
	Type MatchType `yaml:"type" json:"type"`

	// Patterns are keywords, phrases, regexes, or metadata labels
	// depending on Type. At least one is required.
	Patterns []string `yaml:"patterns" json:"patterns"`

	// ContextRequired names a rule category whose CONTEXT rules must
	// also match the text for this rule to fire. Empty means no
	// context gate.
	ContextRequired string `yaml:"context_required,omitempty" json:"context_required,omitempty"`

	CaseSensitive bool `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

// Classification is the annotation side of a classification rule: which
// field it votes on, the value it votes, the reason recorded when it
// wins, and how confident the vote is.
type Classification struct {
	Field          string  `yaml:"field" json:"field"`
	Value          string  `yaml:"value" json:"value"`
	ReasonTemplate string  `yaml:"reason_template,omitempty" json:"reason_template,omitempty"`
	Confidence     float64 `yaml:"confidence,omitempty" json:"confidence,omitempty"`
}

// Rule is one declarative transformation or classification unit. Rules
// are data: adding pattern knowledge to the system means editing a
// ruleset, never adding a code branch.
type Rule struct {
	ID       string `yaml:"id" json:"id"`
	Category string `yaml:"category" json:"category"`

	// Priority orders evaluation within a category; lower runs first.
	Priority int `yaml:"priority" json:"priority"`

	Match  Match  `yaml:"match" json:"match"`
	Action Action `yaml:"action" json:"action"`

	// Replacement is the substitute text for REPLACE and REFRAME.
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`

	Classification *Classification `yaml:"classification,omitempty" json:"classification,omitempty"`

	Domain string   `yaml:"domain,omitempty" json:"domain,omitempty"`
	Tags   []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports whether the rule participates in evaluation.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// validate checks everything about a rule that can be checked without
// other rules: required fields, recognized enums, compilable patterns.
// Cross-rule checks (duplicate IDs) happen during composition.
func (r *Rule) validate(file string) error {
	if r.ID == "" {
		return loadErrf(file, "", "rule missing id")
	}
	if r.Category == "" {
		return loadErrf(file, r.ID, "missing category")
	}
	if r.Priority < 0 {
		return loadErrf(file, r.ID, "negative priority %d", r.Priority)
	}
	switch r.Match.Type {
	case MatchKeyword, MatchPhrase, MatchRegex, MatchEntityRole, MatchEntityType, MatchEventType:
	case "":
		return loadErrf(file, r.ID, "missing match.type")
	default:
		return loadErrf(file, r.ID, "unknown match.type %q", r.Match.Type)
	}
	if len(r.Match.Patterns) == 0 {
		return loadErrf(file, r.ID, "missing match.patterns")
	}
	for i, p := range r.Match.Patterns {
		if p == "" {
			return loadErrf(file, r.ID, "empty pattern at index %d", i)
		}
	}
	if !r.Action.Transforms() && !r.Action.Classifies() {
		if r.Action == "" {
			return loadErrf(file, r.ID, "missing action")
		}
		return loadErrf(file, r.ID, "unknown action %q", r.Action)
	}
	if (r.Action == ActionReplace || r.Action == ActionReframe) && r.Replacement == "" {
		return loadErrf(file, r.ID, "%s requires replacement", r.Action)
	}
	if r.Action.Classifies() && r.Action != ActionContext && r.Action != ActionGroup {
		if r.Classification == nil {
			return loadErrf(file, r.ID, "%s requires classification", r.Action)
		}
		if r.Classification.Field == "" {
			return loadErrf(file, r.ID, "missing classification.field")
		}
		if c := r.Classification.Confidence; c < 0 || c > 1 {
			return loadErrf(file, r.ID, "classification.confidence %v outside [0,1]", c)
		}
	}
	return nil
}
