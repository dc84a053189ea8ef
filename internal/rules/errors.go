package rules

import "fmt"

// LoadError reports a ruleset that failed parsing or validation. Load
// errors are fatal: the engine never starts on a partially valid
// ruleset, because a silently dropped rule changes classification
// behavior without any trace.
type LoadError struct {
	File   string
	RuleID string
	Reason string
}

func (e *LoadError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("ruleset %s: rule %q: %s", e.File, e.RuleID, e.Reason)
	}
	return fmt.Sprintf("ruleset %s: %s", e.File, e.Reason)
}

// loadErrf builds a LoadError with a formatted reason.
func loadErrf(file, ruleID, format string, a ...interface{}) *LoadError {
	return &LoadError{File: file, RuleID: ruleID, Reason: fmt.Sprintf(format, a...)}
}

// EvalError reports a single rule failing against a single atom during
// evaluation. Eval errors are never fatal: the caller records a
// diagnostic, keeps the atom's pre-rule default, and continues.
type EvalError struct {
	RuleID string
	AtomID string
	Err    error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("rule %q on atom %s: %v", e.RuleID, e.AtomID, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
