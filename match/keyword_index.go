package match

import (
	"strings"
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "are": true, "was": true, "will": true,
	"can": true, "you": true, "your": true, "please": true, "want": true,
	"need": true, "would": true, "like": true, "all": true, "any": true,
	"into": true, "about": true, "how": true, "what": true, "when": true,
}

// tokenize lowercases text, splits on non-alphanumeric runs, and drops stop
// words and tokens of two characters or fewer.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 || stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// keywordIndex is an inverted index over tool tokens. Token weights are the
// inverse of how many tools carry the token, so rare tokens dominate.
type keywordIndex struct {
	toolTokens map[string]map[string]bool // tool name -> token set
	popularity map[string]int             // token -> number of tools containing it
}

func buildKeywordIndex(entries []*toolEntry) *keywordIndex {
	idx := &keywordIndex{
		toolTokens: make(map[string]map[string]bool, len(entries)),
		popularity: make(map[string]int),
	}
	for _, e := range entries {
		text := strings.Join([]string{
			e.tool.Name,
			e.tool.Description,
			e.tool.Endpoint.Path,
			e.tool.Endpoint.Method,
		}, " ")
		set := make(map[string]bool)
		for _, tok := range tokenize(text) {
			set[tok] = true
		}
		idx.toolTokens[e.tool.Name] = set
		for tok := range set {
			idx.popularity[tok]++
		}
	}
	return idx
}

// score returns the popularity-weighted fraction of query tokens present in
// the tool's token set. Unknown query tokens get full weight, so they count
// against the match. Result lies in [0,1].
func (idx *keywordIndex) score(queryTokens []string, toolName string) float64 {
	if len(queryTokens) == 0 {
		return 0.0
	}
	set := idx.toolTokens[toolName]

	var matched, total float64
	for _, tok := range queryTokens {
		w := 1.0
		if pop := idx.popularity[tok]; pop > 0 {
			w = 1.0 / float64(pop)
		}
		total += w
		if set[tok] {
			matched += w
		}
	}
	if total == 0 {
		return 0.0
	}
	return matched / total
}
