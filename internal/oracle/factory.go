package oracle

import (
	"fmt"
	"strings"

	"plainview/internal/model"
)

// New creates the configured oracle. The heuristic segmenter is the
// default and needs nothing external.
func New(cfg model.OracleConfig) (Oracle, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "heuristic":
		return NewHeuristic(), nil
	case "openai":
		return NewOpenAI(cfg)
	case "ollama":
		return NewOllama(cfg)
	default:
		return nil, fmt.Errorf("unknown oracle provider: %s (supported: heuristic, openai, ollama)", cfg.Provider)
	}
}
