package grammar_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/glyphcard/internal/grammar"
)

func TestParseBatchResponse_Success(t *testing.T) {
	t.Parallel()

	raw := "Here you go:\n```json\n" + `{
  "batch_results": [
    {
      "sentence_index": 1,
      "sentence": "Der Hund läuft.",
      "words": [
        {"word": "Der", "individual_meaning": "the", "grammatical_role": "definite article"},
        {"word": "Hund", "individual_meaning": "dog", "grammatical_role": "Noun"},
        {"word": "läuft", "individual_meaning": "runs", "grammatical_role": "verb_verb"},
      ],
      "word_combinations": [
        {"text": "Der Hund", "combined_meaning": "the dog", "grammatical_role": "noun phrase"}
      ]
    },
    {
      "sentence_index": 2,
      "sentence": "Ich schlafe.",
      "words": [
        {"word": "Ich", "meaning": "I", "role": "personal pronoun"},
        {"word": "schlafe", "individual_meaning": "sleep", "grammatical_role": "verb"}
      ]
    }
  ]
}` + "\n```"

	a := mustAnalyzer(t, "european")
	res, err := a.ParseBatchResponse(raw, []string{"Der Hund läuft.", "Ich schlafe."})
	if err != nil {
		t.Fatalf("ParseBatchResponse: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("len = %d, want 2", len(res))
	}
	for i, r := range res {
		if !r.OK() {
			t.Fatalf("result %d: %v", i, r.Err)
		}
	}

	first := res[0].Analysis
	wantCats := []string{"article", "noun", "verb"}
	wantPos := []int{0, 4, 9}
	for i, w := range first.Words {
		if w.Category != wantCats[i] || w.Position != wantPos[i] {
			t.Errorf("word %d = %+v, want category %s at %d", i, w, wantCats[i], wantPos[i])
		}
	}
	if first.Analyzer != "european" || first.Sentence != "Der Hund läuft." {
		t.Errorf("analysis header = %q / %q", first.Analyzer, first.Sentence)
	}
	if len(first.Compounds) != 1 || first.Compounds[0].Category != "noun" || first.Footer == "" {
		t.Errorf("compounds = %+v, footer = %q", first.Compounds, first.Footer)
	}
	if first.HTML == "" || len(first.Explanations) != 3 {
		t.Errorf("rendered output missing: %+v", first.Rendered)
	}

	second := res[1].Analysis
	if second.Words[0].Category != "pronoun" || second.Words[0].Gloss != "I" {
		t.Errorf("alternate field names not honoured: %+v", second.Words[0])
	}
}

func TestParseBatchResponse_PerSentenceFailure(t *testing.T) {
	t.Parallel()

	raw := `{"batch_results":[
		{"sentence_index":1,"words":[{"word":"eins","individual_meaning":"one","grammatical_role":"numeral"}]},
		{"sentence_index":2,"words":[]},
		{"sentence_index":3,"words":[{"word":"drei","individual_meaning":"three","grammatical_role":"numeral"}]}
	]}`

	res, err := mustAnalyzer(t, "european").ParseBatchResponse(raw, []string{"eins", "zwei", "drei"})
	if err != nil {
		t.Fatalf("ParseBatchResponse: %v", err)
	}
	if !res[0].OK() || !res[2].OK() {
		t.Fatalf("sentences 1 and 3 should parse: %v, %v", res[0].Err, res[2].Err)
	}
	if res[1].OK() || !errors.Is(res[1].Err, grammar.ErrMalformedResponse) {
		t.Errorf("sentence 2 err = %v, want ErrMalformedResponse", res[1].Err)
	}
	if res[2].Analysis.Words[0].Word != "drei" {
		t.Errorf("sentence 3 got words of another sentence: %+v", res[2].Analysis.Words)
	}
}

func TestParseBatchResponse_Matching(t *testing.T) {
	t.Parallel()

	sentences := []string{"eins", "zwei"}
	word := func(w string) string {
		return `"words":[{"word":"` + w + `","individual_meaning":"x","grammatical_role":"numeral"}]`
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"one-based out of order", `{"batch_results":[{"sentence_index":2,` + word("zwei") + `},{"sentence_index":1,` + word("eins") + `}]}`},
		{"zero-based", `{"batch_results":[{"sentence_index":1,` + word("zwei") + `},{"sentence_index":0,` + word("eins") + `}]}`},
		{"string index", `{"batch_results":[{"sentence_index":"2",` + word("zwei") + `},{"sentence_index":"1",` + word("eins") + `}]}`},
		{"by text", `{"batch_results":[{"sentence":"zwei",` + word("zwei") + `},{"sentence":"eins",` + word("eins") + `}]}`},
		{"by position", `{"batch_results":[{` + word("eins") + `},{` + word("zwei") + `}]}`},
		{"results key", `{"results":[{"sentence_index":1,` + word("eins") + `},{"sentence_index":2,` + word("zwei") + `}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := mustAnalyzer(t, "european").ParseBatchResponse(tt.raw, sentences)
			if err != nil {
				t.Fatalf("ParseBatchResponse: %v", err)
			}
			for i, r := range res {
				if !r.OK() {
					t.Fatalf("result %d: %v", i, r.Err)
				}
				if got := r.Analysis.Words[0].Word; got != sentences[i] {
					t.Errorf("result %d word = %q, want %q", i, got, sentences[i])
				}
			}
		})
	}
}

func TestParseBatchResponse_MissingEntry(t *testing.T) {
	t.Parallel()

	raw := `{"batch_results":[{"sentence_index":1,"words":[{"word":"a","grammatical_role":"article"}]}]}`
	res, err := mustAnalyzer(t, "european").ParseBatchResponse(raw, []string{"a", "b"})
	if err != nil {
		t.Fatalf("ParseBatchResponse: %v", err)
	}
	if !res[0].OK() {
		t.Errorf("sentence 1: %v", res[0].Err)
	}
	if !errors.Is(res[1].Err, grammar.ErrMalformedResponse) {
		t.Errorf("sentence 2 err = %v", res[1].Err)
	}
}

func TestParseBatchResponse_WholeResponseFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "Sorry, I cannot help with that."},
		{"truncated", `{"batch_results":[{"sentence_index":1,"words":[{"word":"a"`},
		{"no results", `{"batch_results":[]}`},
		{"wrong shape", `{"batch_results":"none"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := mustAnalyzer(t, "european").ParseBatchResponse(tt.raw, []string{"a"})
			if !errors.Is(err, grammar.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
			if res != nil {
				t.Errorf("results = %+v, want nil", res)
			}
		})
	}
}
