package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"plainview/internal/model"
)

// decomposePrompt instructs an LLM oracle to do segmentation and only
// segmentation. The hard rules mirror the contract Vet enforces, so a
// compliant response survives vetting untouched.
func decomposePrompt(narrative string) string {
	return fmt.Sprintf(`Split the narrative below into atomic statements: one event, one reported feeling, one quoted utterance, or one claim per statement.

HARD RULES:
1. Output ONLY a JSON array, no prose: [{"text": "...", "start": N, "end": N, "kind": "sentence|clause|quote"}]
2. "start" and "end" are byte offsets into the narrative EXACTLY as given.
3. "text" must be the exact substring narrative[start:end]. Never paraphrase, correct, or merge.
4. Statements must not overlap.
5. Split compound sentences at clause boundaries; keep the conjunction with the second clause.

NARRATIVE:
%s`, narrative)
}

const decomposeSystem = "You segment first-person incident narratives into atomic statements. You copy exact substrings with exact offsets. You never interpret, classify, or rewrite."

type wireAtom struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Kind  string `json:"kind,omitempty"`
}

// parseProposal extracts the JSON array from a model response, tolerating
// prose or code fences around it.
func parseProposal(content string) (*Proposal, error) {
	open := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if open < 0 || end <= open {
		return nil, fmt.Errorf("no JSON array in oracle response")
	}
	var atoms []wireAtom
	if err := json.Unmarshal([]byte(content[open:end+1]), &atoms); err != nil {
		return nil, fmt.Errorf("parse oracle response: %w", err)
	}
	p := &Proposal{}
	for _, a := range atoms {
		p.Atoms = append(p.Atoms, ProposedAtom{
			Text: a.Text,
			Span: model.Span{Start: a.Start, End: a.End},
			Kind: a.Kind,
		})
	}
	return p, nil
}
