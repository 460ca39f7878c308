package enrich_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/glyphcard/internal/batch"
	"github.com/MrWong99/glyphcard/internal/enrich"
	"github.com/MrWong99/glyphcard/internal/grammar"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/translit"
	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	llmmock "github.com/MrWong99/glyphcard/pkg/provider/llm/mock"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
	phonememock "github.com/MrWong99/glyphcard/pkg/provider/phoneme/mock"
)

type fixture struct {
	enricher *enrich.Enricher
	phoneme  *phonememock.Provider
	llm      *llmmock.Provider
	fallback *atomic.Int32
}

// echo answers every batch prompt by tagging each token of each sentence as
// a noun.
func echo(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	prompt := req.Messages[0].Content
	_, rest, _ := strings.Cut(prompt, "\nSentences:\n")
	block, _, _ := strings.Cut(rest, "\n\n")

	type word struct {
		Word string `json:"word"`
		Role string `json:"grammatical_role"`
	}
	type entry struct {
		Index int    `json:"sentence_index"`
		Words []word `json:"words"`
	}
	var resp struct {
		BatchResults []entry `json:"batch_results"`
	}
	for i, line := range strings.Split(block, "\n") {
		_, s, _ := strings.Cut(line, ". ")
		e := entry{Index: i + 1}
		for _, tok := range strings.Fields(s) {
			e.Words = append(e.Words, word{Word: tok, Role: "noun"})
		}
		resp.BatchResults = append(resp.BatchResults, e)
	}
	b, _ := json.Marshal(resp)
	return &llm.CompletionResponse{Content: string(b)}, nil
}

func newFixture(t *testing.T, ph *phonememock.Provider) fixture {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	langs, err := language.Default()
	if err != nil {
		t.Fatalf("language.Default: %v", err)
	}

	calls := new(atomic.Int32)
	src := translit.FallbackFunc(func(context.Context, string, language.Profile) (string, error) {
		calls.Add(1)
		return "", errors.New("no model configured")
	})

	lm := &llmmock.Provider{CompleteFunc: echo}
	svc := translit.New(nil, ph, translit.WithMetrics(m))
	coord := batch.New(lm, batch.WithMetrics(m))
	e := enrich.New(langs, svc, grammar.NewRegistry(), coord, enrich.WithFallbackSource(src))
	return fixture{enricher: e, phoneme: ph, llm: lm, fallback: calls}
}

func TestEnrich_KnownLanguage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &phonememock.Provider{Result: "ˈhaʊs"})
	res, err := f.enricher.Enrich(context.Background(), enrich.Request{
		Language:  "de-DE",
		Sentences: []string{"Das Haus", "Ein Haus"},
	})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if res.Language != "de" || !res.Known || res.Analyzer != "european" {
		t.Errorf("result header = %+v", res)
	}
	if len(res.Cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(res.Cards))
	}
	for i, c := range res.Cards {
		if c.Transliteration.Tier != translit.TierPhoneme || c.Transliteration.Text != "ˈhaʊs" {
			t.Errorf("card %d transliteration = %+v", i, c.Transliteration)
		}
		if c.Analysis.Fallback || c.Analysis.Sentence != c.Sentence {
			t.Errorf("card %d analysis = %+v", i, c.Analysis)
		}
	}
}

func TestEnrich_UnknownLanguage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &phonememock.Provider{Result: "ˈhaʊs"})
	res, err := f.enricher.Enrich(context.Background(), enrich.Request{
		Language:  "tlh",
		Sentences: []string{"nuqneH"},
	})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if res.Known || res.Analyzer != grammar.GenericKey {
		t.Errorf("result header = %+v", res)
	}
	tr := res.Cards[0].Transliteration
	if tr.Tier != translit.TierPlaceholder || tr.Text != "[transliteration unavailable for tlh]" {
		t.Errorf("transliteration = %+v", tr)
	}
	if f.fallback.Load() != 0 {
		t.Error("model fallback source used for an unknown language")
	}
	if len(f.phoneme.Calls) != 0 {
		t.Error("phoneme engine called for an unknown language")
	}
}

func TestEnrich_SuppliedTransliteration(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &phonememock.Provider{Err: phoneme.ErrUnavailable})
	res, err := f.enricher.Enrich(context.Background(), enrich.Request{
		Language:         "de",
		Sentences:        []string{"Haus", "Maus"},
		Transliterations: []string{"haʊs"},
	})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if tr := res.Cards[0].Transliteration; tr.Tier != translit.TierFallback || tr.Text != "haʊs" {
		t.Errorf("card 0 transliteration = %+v", tr)
	}
	// No supplied text for the second sentence: the configured source runs
	// and fails, so the placeholder is used.
	if tr := res.Cards[1].Transliteration; tr.Tier != translit.TierPlaceholder || tr.Text != "[transliteration unavailable for German]" {
		t.Errorf("card 1 transliteration = %+v", tr)
	}
	if f.fallback.Load() != 1 {
		t.Errorf("fallback source calls = %d, want 1", f.fallback.Load())
	}
}

func TestEnrich_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &phonememock.Provider{Result: "ˈhaʊs"})
	if _, err := f.enricher.Enrich(context.Background(), enrich.Request{Language: "de"}); !errors.Is(err, enrich.ErrNoSentences) {
		t.Errorf("empty request err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.enricher.Enrich(ctx, enrich.Request{Language: "de", Sentences: []string{"Haus"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled request err = %v", err)
	}
}

func TestAnalyzeAndTransliterate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &phonememock.Provider{ByCode: map[string]string{"cmn": "ni˨˩˦ xau˨˩˦"}})

	out, key, err := f.enricher.Analyze(context.Background(), enrich.Request{Language: "Chinese", Sentences: []string{"你好"}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if key != "chinese" || len(out) != 1 || out[0].Fallback {
		t.Errorf("Analyze = %q, %+v", key, out)
	}

	res, p := f.enricher.Transliterate(context.Background(), "zh", "你好", "")
	if p.Code != "zh" || res.Tier != translit.TierPhoneme || res.Text != "ni˨˩˦ xau˨˩˦" {
		t.Errorf("Transliterate = %+v (%s)", res, p.Code)
	}

	if got := len(f.enricher.Languages()); got == 0 {
		t.Error("Languages() is empty")
	}
}

func TestEnrich_RightToLeftProfileOrdersExplanations(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &phonememock.Provider{Result: "jeː ətʃʰaː ɦɛː"})
	// Words listed against reading order.
	f.llm.CompleteFunc = func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: `{"batch_results": [{"sentence_index": 1, "words": [
			{"word": "ہے", "individual_meaning": "is", "grammatical_role": "verb"},
			{"word": "اچھا", "individual_meaning": "good", "grammatical_role": "adjective"},
			{"word": "یہ", "individual_meaning": "this", "grammatical_role": "pronoun"}
		]}]}`}, nil
	}

	res, err := f.enricher.Enrich(context.Background(), enrich.Request{
		Language:  "ur",
		Sentences: []string{"یہ اچھا ہے"},
	})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if res.Analyzer != "indic" {
		t.Errorf("analyzer = %q, want indic", res.Analyzer)
	}
	a := res.Cards[0].Analysis
	if a.Fallback {
		t.Fatalf("analysis fell back: %+v", a)
	}
	var pos []int
	for _, e := range a.Explanations {
		pos = append(pos, e.Position)
	}
	if !slices.Equal(pos, []int{0, 3, 8}) {
		t.Errorf("explanation positions = %v, want [0 3 8]", pos)
	}
	ur, _ := f.enricher.Resolve("ur")
	if got := f.enricher.Analyzer(ur).Direction(); got != language.RTL {
		t.Errorf("analyzer direction = %s, want rtl", got)
	}
}
