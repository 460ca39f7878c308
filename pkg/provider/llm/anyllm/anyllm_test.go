package anyllm

import (
	"strings"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/types"
)

func TestBuildParams(t *testing.T) {
	t.Parallel()

	p := &Provider{model: "claude-3-5-haiku-latest"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are a linguist.",
		Messages: []types.Message{
			{Role: "user", Content: "Der Hund schläft."},
			{Role: "assistant", Content: "{}"},
		},
		Temperature: 0.3,
		MaxTokens:   1024,
	})

	if params.Model != "claude-3-5-haiku-latest" {
		t.Errorf("Model = %q", params.Model)
	}
	wantRoles := []string{anyllmlib.RoleSystem, "user", "assistant"}
	if len(params.Messages) != len(wantRoles) {
		t.Fatalf("messages = %d, want %d", len(params.Messages), len(wantRoles))
	}
	for i, role := range wantRoles {
		if params.Messages[i].Role != role {
			t.Errorf("message %d role = %q, want %q", i, params.Messages[i].Role, role)
		}
	}
	if got := params.Messages[1].ContentString(); got != "Der Hund schläft." {
		t.Errorf("user content = %q", got)
	}
	if params.Temperature == nil || *params.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %v, want 1024", params.MaxTokens)
	}
}

func TestBuildParams_JSONMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		system string
		want   string
	}{
		{name: "appended to system prompt", system: "You are a linguist.", want: "You are a linguist.\n\n" + llm.JSONInstruction},
		{name: "becomes the system prompt", system: "", want: llm.JSONInstruction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &Provider{model: "llama3.1:8b"}
			params := p.buildParams(llm.CompletionRequest{
				SystemPrompt: tt.system,
				Messages:     []types.Message{{Role: "user", Content: "Analyse."}},
				JSONMode:     true,
			})
			if len(params.Messages) != 2 {
				t.Fatalf("messages = %d, want 2", len(params.Messages))
			}
			if got := params.Messages[0].ContentString(); got != tt.want {
				t.Errorf("system prompt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildParams_ZeroValuesOmitted(t *testing.T) {
	t.Parallel()

	p := &Provider{model: "gemini-2.0-flash"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "Analyse."}},
	})
	if len(params.Messages) != 1 {
		t.Errorf("messages = %d, want 1 without a system prompt", len(params.Messages))
	}
	if params.Temperature != nil || params.MaxTokens != nil {
		t.Errorf("Temperature = %v, MaxTokens = %v; want both unset", params.Temperature, params.MaxTokens)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend, model string
		wantErr        string
	}{
		{backend: "anthropic", model: "claude-3-5-haiku-latest"},
		{backend: "Ollama", model: "llama3.1"},
		{backend: "llamacpp", model: "qwen2.5"},
		{backend: "llamafile", model: "phi-3"},
		{backend: "anthropic", wantErr: "model is required"},
		{backend: "fakecloud", model: "m", wantErr: `unknown backend "fakecloud" (have anthropic, deepseek,`},
		{backend: "", model: "m", wantErr: "unknown backend"},
	}
	for _, tt := range tests {
		t.Run(tt.backend+"/"+tt.model, func(t *testing.T) {
			p, err := New(tt.backend, tt.model, anyllmlib.WithAPIKey("test-key"))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if p.name != strings.ToLower(tt.backend) {
				t.Errorf("name = %q", p.name)
			}
			if p.Capabilities() != llm.CapabilitiesFor(tt.model) {
				t.Errorf("Capabilities() = %+v", p.Capabilities())
			}
		})
	}
}

func TestNew_OpenAIMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New("openai", "gpt-4o"); err == nil {
		t.Fatal("New succeeded without an API key")
	}
}

func TestBackends(t *testing.T) {
	t.Parallel()
	got := strings.Join(Backends(), ",")
	if got != "anthropic,deepseek,gemini,groq,llamacpp,llamafile,mistral,ollama,openai" {
		t.Errorf("Backends() = %s", got)
	}
}

func TestCountTokens(t *testing.T) {
	t.Parallel()

	p := &Provider{model: "gpt-4o"}
	if n, err := p.CountTokens(nil); err != nil || n != 0 {
		t.Fatalf("CountTokens(nil) = %d, %v", n, err)
	}
	msgs := []types.Message{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there, how can I help?"},
	}
	two, _ := p.CountTokens(msgs)
	one, _ := p.CountTokens(msgs[:1])
	if two <= one {
		t.Errorf("two messages = %d tokens, one = %d; want more for two", two, one)
	}
}
