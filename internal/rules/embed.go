package rules

import "embed"

//go:embed rulesets/*.yaml
var embeddedFS embed.FS

// Default returns the engine built from the embedded ruleset. It is
// compiled into the binary so a bare install transforms correctly with
// no external files.
func Default() (*Engine, error) {
	return LoadFS(embeddedFS, "rulesets/default.yaml")
}
