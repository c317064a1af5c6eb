package objectives

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences/english"

	"github.com/imyousuf/srcgraph/internal/table"
)

// DocstringSentences is the number of leading sentences kept per docstring.
const DocstringSentences = 3

// Docstrings labels each function body with the first sentences of its
// docstring, joined by spaces. Bodies without a docstring are skipped.
func Docstrings(bodies []table.Body) ([]Target, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}
	var out []Target
	for _, b := range bodies {
		if strings.TrimSpace(b.Docstring) == "" {
			continue
		}
		var parts []string
		for _, s := range tokenizer.Tokenize(b.Docstring) {
			text := strings.Join(strings.Fields(s.Text), " ")
			if text == "" {
				continue
			}
			parts = append(parts, text)
			if len(parts) == DocstringSentences {
				break
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, Target{Src: b.ID, Dst: strings.Join(parts, " ")})
	}
	return out, nil
}
