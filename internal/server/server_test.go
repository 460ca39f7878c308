package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/glyphcard/internal/batch"
	"github.com/MrWong99/glyphcard/internal/enrich"
	"github.com/MrWong99/glyphcard/internal/grammar"
	"github.com/MrWong99/glyphcard/internal/health"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/server"
	"github.com/MrWong99/glyphcard/internal/translit"
	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	llmmock "github.com/MrWong99/glyphcard/pkg/provider/llm/mock"
	phonememock "github.com/MrWong99/glyphcard/pkg/provider/phoneme/mock"
)

// nounReply tags every whitespace token of every prompted sentence as a noun.
func nounReply(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	_, rest, _ := strings.Cut(req.Messages[0].Content, "\nSentences:\n")
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

func newHandler(t *testing.T, opts ...server.Option) http.Handler {
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

	svc := translit.New(nil, &phonememock.Provider{Result: "ˈhaʊs"}, translit.WithMetrics(m))
	coord := batch.New(&llmmock.Provider{CompleteFunc: nounReply}, batch.WithMetrics(m))
	e := enrich.New(langs, svc, grammar.NewRegistry(), coord)

	base := []server.Option{
		server.WithMetrics(m),
		server.WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		})),
	}
	return server.New(e, append(base, opts...)...).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type languageBody struct {
	Code      string `json:"code"`
	Direction string `json:"direction"`
	Analyzer  string `json:"analyzer"`
}

func TestLanguages(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	rec := do(t, h, "GET", "/v1/languages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	langs := decode[[]languageBody](t, rec)
	byCode := make(map[string]languageBody, len(langs))
	for _, l := range langs {
		byCode[l.Code] = l
	}
	if de := byCode["de"]; de.Analyzer != "european" || de.Direction != "ltr" {
		t.Errorf("de = %+v", de)
	}
	if ar := byCode["ar"]; ar.Analyzer != "semitic" || ar.Direction != "rtl" {
		t.Errorf("ar = %+v", ar)
	}
	if th := byCode["th"]; th.Analyzer != grammar.GenericKey {
		t.Errorf("th analyzer = %q, want %q", th.Analyzer, grammar.GenericKey)
	}
}

func TestLanguage(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	rec := do(t, h, "GET", "/v1/languages/de-DE", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[languageBody](t, rec); got.Code != "de" {
		t.Errorf("code = %q, want de", got.Code)
	}

	if rec := do(t, h, "GET", "/v1/languages/tlh", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown language status = %d, want 404", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	rec := do(t, h, "GET", "/v1/categories?language=ar", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[struct {
		Analyzer   string             `json:"analyzer"`
		Direction  string             `json:"direction"`
		Categories []grammar.Category `json:"categories"`
	}](t, rec)
	if body.Analyzer != "semitic" || body.Direction != "rtl" {
		t.Errorf("header = %q %q", body.Analyzer, body.Direction)
	}
	var hasOther bool
	for _, c := range body.Categories {
		hasOther = hasOther || c.Key == grammar.CategoryOther
	}
	if !hasOther || len(body.Categories) < grammar.MinCategories {
		t.Errorf("categories = %d, other present = %v", len(body.Categories), hasOther)
	}
}

func TestTransliterate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantTier string
		wantText string
		known    bool
	}{
		{
			name:     "known language",
			body:     `{"language":"German","text":"Das Haus"}`,
			wantCode: http.StatusOK,
			wantTier: "phoneme",
			wantText: "ˈhaʊs",
			known:    true,
		},
		{
			name:     "unknown language with supplied fallback",
			body:     `{"language":"tlh","text":"nuqneH","fallback":"nuqnɛx"}`,
			wantCode: http.StatusOK,
			wantTier: "fallback",
			wantText: "nuqnɛx",
		},
		{name: "missing text", body: `{"language":"de"}`, wantCode: http.StatusOK, wantTier: "none", known: true},
		{name: "blank text", body: `{"language":"de","text":" \t\n"}`, wantCode: http.StatusOK, wantTier: "none", known: true},
		{name: "unknown field", body: `{"language":"de","text":"x","voice":"y"}`, wantCode: http.StatusBadRequest},
		{name: "not json", body: `language=de`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, newHandler(t), "POST", "/v1/transliterate", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantCode != http.StatusOK {
				if e := decode[map[string]string](t, rec); e["error"] == "" {
					t.Error("error body is empty")
				}
				return
			}
			got := decode[struct {
				Known bool   `json:"known"`
				Text  string `json:"text"`
				Tier  string `json:"tier"`
			}](t, rec)
			if got.Tier != tt.wantTier || got.Text != tt.wantText || got.Known != tt.known {
				t.Errorf("got %+v, want tier %q text %q known %v", got, tt.wantTier, tt.wantText, tt.known)
			}
		})
	}
}

func TestEnrich(t *testing.T) {
	t.Parallel()
	rec := do(t, newHandler(t), "POST", "/v1/enrich",
		`{"language":"de","sentences":["Das Haus","Ein Haus"],"complexity":"beginner"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body)
	}
	res := decode[struct {
		Language string `json:"language"`
		Known    bool   `json:"known"`
		Analyzer string `json:"analyzer"`
		Cards    []struct {
			Sentence        string `json:"sentence"`
			Transliteration struct {
				Text string `json:"text"`
				Tier string `json:"tier"`
			} `json:"transliteration"`
			Analysis grammar.SentenceAnalysis `json:"analysis"`
		} `json:"cards"`
	}](t, rec)

	if res.Language != "de" || !res.Known || res.Analyzer != "european" || len(res.Cards) != 2 {
		t.Fatalf("result = %+v", res)
	}
	for i, c := range res.Cards {
		if c.Transliteration.Tier != "phoneme" {
			t.Errorf("card %d tier = %q", i, c.Transliteration.Tier)
		}
		if c.Analysis.Fallback || len(c.Analysis.Words) != 2 || !strings.Contains(c.Analysis.HTML, "grammar-noun") {
			t.Errorf("card %d analysis = %+v", i, c.Analysis)
		}
	}
}

func TestAnalyze_UnknownLanguageUsesGeneric(t *testing.T) {
	t.Parallel()
	rec := do(t, newHandler(t), "POST", "/v1/analyze", `{"language":"tlh","sentences":["nuqneH jagh"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body)
	}
	res := decode[struct {
		Known    bool                       `json:"known"`
		Analyzer string                     `json:"analyzer"`
		Analyses []grammar.SentenceAnalysis `json:"analyses"`
	}](t, rec)
	if res.Known || res.Analyzer != grammar.GenericKey || len(res.Analyses) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestSentenceRequests_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		opts     []server.Option
		wantCode int
	}{
		{name: "no sentences", path: "/v1/enrich", body: `{"language":"de"}`, wantCode: http.StatusBadRequest},
		{
			name:     "too many sentences",
			path:     "/v1/analyze",
			body:     `{"language":"de","sentences":["a","b","c"]}`,
			opts:     []server.Option{server.WithMaxSentences(2)},
			wantCode: http.StatusBadRequest,
		},
		{name: "bad complexity", path: "/v1/enrich", body: `{"language":"de","sentences":["a"],"complexity":"expert"}`, wantCode: http.StatusBadRequest},
		{
			name:     "body too large",
			path:     "/v1/enrich",
			body:     `{"language":"de","sentences":["` + strings.Repeat("a", 512) + `"]}`,
			opts:     []server.Option{server.WithMaxBodyBytes(128)},
			wantCode: http.StatusRequestEntityTooLarge,
		},
		{name: "wrong method", path: "/v1/enrich", wantCode: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			method := "POST"
			if tt.body == "" {
				method = "GET"
			}
			rec := do(t, newHandler(t, tt.opts...), method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
		})
	}
}

func TestEnrich_CancelledRequest(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequestWithContext(ctx, "POST", "/v1/enrich",
		bytes.NewBufferString(`{"language":"de","sentences":["Das Haus"]}`))
	rec := httptest.NewRecorder()
	newHandler(t).ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestOperationalRoutes(t *testing.T) {
	t.Parallel()
	failing := health.Checker{Name: "cache", Check: func(context.Context) error { return context.DeadlineExceeded }}
	h := newHandler(t, server.WithHealth(health.New(failing)))

	if rec := do(t, h, "GET", "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz = %d, want 503", rec.Code)
	}
	rec := do(t, h, "GET", "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# metrics") {
		t.Errorf("/metrics = %d %q", rec.Code, rec.Body)
	}
}
