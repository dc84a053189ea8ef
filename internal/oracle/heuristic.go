package oracle

import (
	"context"
	"strings"
	"unicode"

	"plainview/internal/model"
)

// Heuristic is the default oracle: a deterministic, offline sentence
// and clause segmenter. It never invents text, it only slices the
// narrative, so its output passes the contract by construction.
type Heuristic struct{}

// NewHeuristic creates the default segmentation oracle.
func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) IsAvailable(ctx context.Context) bool { return true }

// Decompose splits the narrative into sentence atoms, then splits
// compound sentences at clause boundaries. Clause splits happen after
// the comma, so the second clause keeps its leading conjunction; the
// camera battery downstream relies on that to spot fragments.
func (h *Heuristic) Decompose(ctx context.Context, narrative string) (*Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := &Proposal{}
	for _, sent := range splitSentences(narrative) {
		for _, cl := range splitClauses(narrative, sent) {
			text := narrative[cl.Start:cl.End]
			if strings.TrimSpace(text) == "" {
				continue
			}
			kind := "sentence"
			if cl != sent {
				kind = "clause"
			}
			if startsWithQuote(text) {
				kind = "quote"
			}
			p.Atoms = append(p.Atoms, ProposedAtom{Text: text, Span: cl, Kind: kind})
		}
	}
	return p, nil
}

// abbreviations that end in a period without ending a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "sgt": true,
	"lt": true, "capt": true, "cpl": true, "det": true, "jr": true,
	"sr": true, "vs": true, "etc": true, "inc": true, "dept": true,
	"blvd": true, "ave": true, "st": true,
}

// splitSentences finds sentence spans. It tracks quote state so a
// terminator inside quoted speech never ends the sentence early, and it
// refuses to split after known abbreviations, initials, or decimals.
func splitSentences(text string) []model.Span {
	var spans []model.Span
	runes := []rune(text)

	start := 0
	inDouble := false
	inSingle := false

	bytePos := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		bytePos[i] = pos
		pos += len(string(r))
	}
	bytePos[len(runes)] = pos

	flush := func(endRune int) {
		s, e := bytePos[trimLeftRunes(runes, start)], bytePos[trimRightRunes(runes, endRune)]
		if e > s {
			spans = append(spans, model.Span{Start: s, End: e})
		}
		start = endRune
		// An unbalanced quote must not leak across a boundary and
		// swallow the rest of the narrative.
		inDouble = false
		inSingle = false
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch r {
		case '"', '“':
			if !inDouble {
				inDouble = true
				continue
			}
		}
		if r == '"' || r == '”' {
			if inDouble {
				inDouble = false
				if i > 0 && isTerminator(runes[i-1]) && nextStartsSentence(runes, i+1) {
					flush(i + 1)
				}
				continue
			}
		}
		if r == '\'' {
			if !inSingle && (i == 0 || unicode.IsSpace(runes[i-1])) && i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				inSingle = true
				continue
			}
			if inSingle && i > 0 && !unicode.IsSpace(runes[i-1]) {
				inSingle = false
				if i > 0 && isTerminator(runes[i-1]) && nextStartsSentence(runes, i+1) {
					flush(i + 1)
				}
				continue
			}
		}

		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			flush(i)
			continue
		}

		if !isTerminator(r) || inDouble || inSingle {
			continue
		}

		if r == '.' {
			if i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			word := precedingWord(runes, i)
			if abbreviations[strings.ToLower(word)] {
				continue
			}
			// "badge no. 4471": "no." reads as an abbreviation only when
			// a number follows, so "I said no." still ends the sentence.
			if strings.EqualFold(word, "no") && nextIsDigit(runes, i+1) {
				continue
			}
			// Single uppercase letter is an initial; single lowercase
			// letter after a dot is an a.m./p.m. tail and only splits
			// before a capital.
			if len(word) == 1 {
				wr := []rune(word)[0]
				if unicode.IsUpper(wr) {
					continue
				}
				if !nextStartsSentence(runes, i+1) {
					continue
				}
			}
		}

		// Consume any run of terminators ("?!", "...").
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if nextStartsSentence(runes, j+1) {
			flush(j + 1)
			i = j
		}
	}
	flush(len(runes))
	return spans
}

func isTerminator(r rune) bool { return r == '.' || r == '!' || r == '?' }

func nextIsDigit(runes []rune, i int) bool {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i < len(runes) && unicode.IsDigit(runes[i])
}

// nextStartsSentence reports whether what follows looks like a new
// sentence: end of text, or whitespace then a capital, digit, or quote.
func nextStartsSentence(runes []rune, i int) bool {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	if i >= len(runes) {
		return true
	}
	r := runes[i]
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '“' || r == '\''
}

func precedingWord(runes []rune, i int) string {
	end := i
	start := end
	for start > 0 && (unicode.IsLetter(runes[start-1]) || unicode.IsDigit(runes[start-1])) {
		start--
	}
	return string(runes[start:end])
}

func trimLeftRunes(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

func trimRightRunes(runes []rune, i int) int {
	for i > 0 && i-1 < len(runes) && unicode.IsSpace(runes[i-1]) {
		i--
	}
	return i
}

// clause boundaries worth an atom of their own. The conjunction stays
// with the second clause.
var clauseMarkers = []string{", and ", ", but ", ", so ", ", then ", ", which ", ", who ", ", because ", ", although ", ", while "}

const minClauseLen = 12

// splitClauses splits one sentence span at semicolons and coordinating
// boundaries, skipping anything inside quotes.
func splitClauses(text string, sent model.Span) []model.Span {
	s := text[sent.Start:sent.End]
	cuts := []int{0}

	depth := 0
	for i := 0; i < len(s); i++ {
		if strings.HasPrefix(s[i:], "“") {
			depth = 1
			i += 2
			continue
		}
		if strings.HasPrefix(s[i:], "”") {
			depth = 0
			i += 2
			continue
		}
		switch s[i] {
		case '"':
			depth = 1 - depth
		case ';':
			if depth == 0 {
				cuts = append(cuts, i+1)
			}
		case ',':
			if depth != 0 {
				continue
			}
			for _, m := range clauseMarkers {
				if strings.HasPrefix(s[i:], m) {
					// Cut after ", ", keep the conjunction.
					cut := i + 2
					if i >= minClauseLen && len(s)-cut >= minClauseLen {
						cuts = append(cuts, cut)
					}
					break
				}
			}
		}
	}
	cuts = append(cuts, len(s))

	var out []model.Span
	for i := 0; i+1 < len(cuts); i++ {
		a, b := cuts[i], cuts[i+1]
		// Trim the slice but keep offsets absolute. A clause cut leaves
		// the first clause with a dangling comma; drop it from the span.
		for a < b && (s[a] == ' ' || s[a] == '\t') {
			a++
		}
		for b > a && (s[b-1] == ' ' || s[b-1] == '\t') {
			b--
		}
		if i+1 < len(cuts)-1 && b > a && (s[b-1] == ',' || s[b-1] == ';') {
			b--
		}
		if b > a {
			out = append(out, model.Span{Start: sent.Start + a, End: sent.Start + b})
		}
	}
	if len(out) == 0 {
		return []model.Span{sent}
	}
	return out
}

func startsWithQuote(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	switch s[0] {
	case '"', '\'':
		return true
	}
	return strings.HasPrefix(s, "“") || strings.HasPrefix(s, "‘")
}
