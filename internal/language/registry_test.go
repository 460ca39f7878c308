package language_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/glyphcard/internal/language"
)

func TestDefault_LoadsEmbeddedTable(t *testing.T) {
	t.Parallel()

	reg, err := language.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if reg.Len() < 30 {
		t.Errorf("Len = %d, want at least 30 languages", reg.Len())
	}

	all := reg.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Code >= all[i].Code {
			t.Fatalf("All() not sorted by code at %d: %q >= %q", i, all[i-1].Code, all[i].Code)
		}
	}
	for _, p := range all {
		if !p.Direction.IsValid() {
			t.Errorf("%s: invalid direction %q", p.Code, p.Direction)
		}
	}
}

func TestRegistry_Profile(t *testing.T) {
	t.Parallel()

	reg, err := language.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" de ", "de"},
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"zh-Hans-CN", "zh"},
		{"yue", "yue"},
		{"German", "de"},
		{"japanese", "ja"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			p, err := reg.Profile(tt.key)
			if err != nil {
				t.Fatalf("Profile(%q): %v", tt.key, err)
			}
			if p.Code != tt.want {
				t.Errorf("Profile(%q).Code = %q, want %q", tt.key, p.Code, tt.want)
			}
		})
	}
}

func TestRegistry_ProfileUnsupported(t *testing.T) {
	t.Parallel()

	reg, err := language.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	for _, key := range []string{"", "klingon", "xx-YY"} {
		if _, err := reg.Profile(key); !errors.Is(err, language.ErrUnsupportedLanguage) {
			t.Errorf("Profile(%q) err = %v, want ErrUnsupportedLanguage", key, err)
		}
	}
}

func TestDefault_ProfileFlags(t *testing.T) {
	t.Parallel()

	reg, err := language.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	zh, _ := reg.Profile("zh")
	if !zh.SkipsRuleEngine() {
		t.Error("zh: expected rule engine to be skipped for a logographic script")
	}
	if zh.RomanizationAllowed || !zh.Tonal {
		t.Errorf("zh: RomanizationAllowed=%v Tonal=%v, want false/true", zh.RomanizationAllowed, zh.Tonal)
	}

	en, _ := reg.Profile("en")
	if en.SkipsRuleEngine() {
		t.Error("en: rule engine should be attempted")
	}

	ar, _ := reg.Profile("ar")
	if !ar.IsRTL() {
		t.Error("ar: expected RTL")
	}

	ru, _ := reg.Profile("ru")
	if !ru.SkipsRuleEngine() {
		t.Error("ru: no tier-1 code, rule engine should be skipped")
	}
}

func TestLoad_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "duplicate code",
			yaml: `languages:
  - {code: en, name: English, script_type: latin}
  - {code: EN, name: English again, script_type: latin}`,
			wantErr: "duplicate code",
		},
		{
			name:    "missing name",
			yaml:    `languages: [{code: en, script_type: latin}]`,
			wantErr: "name is required",
		},
		{
			name:    "bad script",
			yaml:    `languages: [{code: en, name: English, script_type: runes}]`,
			wantErr: "script_type",
		},
		{
			name:    "bad direction",
			yaml:    `languages: [{code: en, name: English, script_type: latin, script_direction: up}]`,
			wantErr: "script_direction",
		},
		{
			name:    "unknown field",
			yaml:    `languages: [{code: en, name: English, script_type: latin, colour: red}]`,
			wantErr: "decode table",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := language.Load(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_DefaultsDirection(t *testing.T) {
	t.Parallel()

	reg, err := language.Load(strings.NewReader(`languages: [{code: eo, name: Esperanto, script_type: latin}]`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := reg.Profile("eo")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Direction != language.LTR {
		t.Errorf("Direction = %q, want ltr", p.Direction)
	}
}

func TestUnknown(t *testing.T) {
	t.Parallel()

	p := language.Unknown(" Klingon ")
	if p.Code != "klingon" || p.Name != "Klingon" {
		t.Errorf("Unknown = %+v", p)
	}
	if !p.SkipsRuleEngine() || p.Tier2Code != "" || p.AnalyzerKey != "" {
		t.Errorf("Unknown profile should carry no tier codes or analyzer: %+v", p)
	}
	if p.DisplayName() != "Klingon" {
		t.Errorf("DisplayName = %q", p.DisplayName())
	}
}
