package grammar

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MrWong99/glyphcard/internal/llmjson"
)

type batchResponse struct {
	BatchResults []rawSentence `json:"batch_results"`
	Results      []rawSentence `json:"results"`
}

type rawSentence struct {
	SentenceIndex    json.RawMessage `json:"sentence_index"`
	Sentence         string          `json:"sentence"`
	Words            []rawWord       `json:"words"`
	WordCombinations []rawCompound   `json:"word_combinations"`
}

type rawWord struct {
	Word              string `json:"word"`
	IndividualMeaning string `json:"individual_meaning"`
	Meaning           string `json:"meaning"`
	GrammaticalRole   string `json:"grammatical_role"`
	Role              string `json:"role"`
}

type rawCompound struct {
	Text            string `json:"text"`
	CombinedMeaning string `json:"combined_meaning"`
	GrammaticalRole string `json:"grammatical_role"`
}

// ParseBatchResponse implements [Analyzer].
//
// Entries are matched to sentences by sentence_index (1-based, or 0-based
// when any entry uses index 0), then by sentence text, then by their
// position in the array. Sentences left without an entry, and entries
// without words, yield a per-sentence [ErrMalformedResponse].
func (a *RuleAnalyzer) ParseBatchResponse(raw string, sentences []string) ([]ParseResult, error) {
	var resp batchResponse
	if err := llmjson.Decode(raw, &resp); err != nil {
		return nil, fmt.Errorf("grammar: parse batch: %w: %w", ErrMalformedResponse, err)
	}
	entries := resp.BatchResults
	if len(entries) == 0 {
		entries = resp.Results
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("grammar: parse batch: %w: no batch_results", ErrMalformedResponse)
	}

	slots := assign(entries, sentences)

	out := make([]ParseResult, len(sentences))
	for i, sentence := range sentences {
		ei := slots[i]
		if ei < 0 {
			out[i] = ParseResult{Err: fmt.Errorf("grammar: sentence %d: %w: no result", i+1, ErrMalformedResponse)}
			continue
		}
		analysis, err := a.build(sentence, entries[ei])
		if err != nil {
			out[i] = ParseResult{Err: fmt.Errorf("grammar: sentence %d: %w", i+1, err)}
			continue
		}
		out[i] = ParseResult{Analysis: analysis}
	}
	return out, nil
}

// assign returns, for each sentence, the index of its entry or -1.
func assign(entries []rawSentence, sentences []string) []int {
	slots := make([]int, len(sentences))
	for i := range slots {
		slots[i] = -1
	}
	used := make([]bool, len(entries))

	indices := make([]int, len(entries))
	base := 1
	for i, e := range entries {
		idx, ok := parseIndex(e.SentenceIndex)
		if !ok {
			indices[i] = -1
			continue
		}
		indices[i] = idx
		if idx == 0 {
			base = 0
		}
	}

	// By index.
	for i, idx := range indices {
		if idx < 0 {
			continue
		}
		slot := idx - base
		if slot >= 0 && slot < len(slots) && slots[slot] < 0 {
			slots[slot] = i
			used[i] = true
		}
	}

	// By text.
	for i, e := range entries {
		text := oneLine(e.Sentence)
		if used[i] || text == "" {
			continue
		}
		for s, sentence := range sentences {
			if slots[s] < 0 && oneLine(sentence) == text {
				slots[s] = i
				used[i] = true
				break
			}
		}
	}

	// By position.
	for i := range entries {
		if !used[i] && i < len(slots) && slots[i] < 0 {
			slots[i] = i
			used[i] = true
		}
	}
	return slots
}

// parseIndex accepts a JSON number or a numeric string.
func parseIndex(raw json.RawMessage) (int, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func (a *RuleAnalyzer) build(sentence string, e rawSentence) (SentenceAnalysis, error) {
	words := make([]WordAnalysis, 0, len(e.Words))
	for _, w := range e.Words {
		surface := strings.TrimSpace(w.Word)
		if surface == "" {
			continue
		}
		words = append(words, WordAnalysis{
			Word:     surface,
			Category: a.ResolveCategory(firstNonEmpty(w.GrammaticalRole, w.Role)),
			Gloss:    strings.TrimSpace(firstNonEmpty(w.IndividualMeaning, w.Meaning)),
			Position: -1,
		})
	}
	if len(words) == 0 {
		return SentenceAnalysis{}, fmt.Errorf("%w: no words", ErrMalformedResponse)
	}

	var compounds []CompoundAnalysis
	for _, c := range e.WordCombinations {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		compounds = append(compounds, CompoundAnalysis{
			Text:     text,
			Category: a.ResolveCategory(c.GrammaticalRole),
			Gloss:    strings.TrimSpace(c.CombinedMeaning),
		})
	}

	rendered, positions := a.render(sentence, words, compounds)
	for i := range words {
		words[i].Position = positions[i]
	}
	return SentenceAnalysis{
		Sentence:  sentence,
		Analyzer:  a.key,
		Words:     words,
		Compounds: compounds,
		Rendered:  rendered,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
