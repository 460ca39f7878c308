package ipa_test

import (
	"testing"

	"github.com/MrWong99/glyphcard/internal/ipa"
	"github.com/MrWong99/glyphcard/internal/language"
)

var (
	english = language.Profile{Code: "en", Name: "English", ScriptType: language.ScriptLatin, RomanizationAllowed: true}
	chinese = language.Profile{Code: "zh", Name: "Chinese", ScriptType: language.ScriptHan, Tonal: true}
	japan   = language.Profile{Code: "ja", Name: "Japanese", ScriptType: language.ScriptJapanese}
	russian = language.Profile{Code: "ru", Name: "Russian", ScriptType: language.ScriptCyrillic, RomanizationAllowed: true}
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		profile   language.Profile
		wantOK    bool
		reason    ipa.Reason
	}{
		{"english ipa", "həˈloʊ ˈwɜːld", english, true, ""},
		{"bracketed ipa", "/həˈloʊ/", english, true, ""},
		{"empty", "", english, false, ipa.ReasonEmpty},
		{"whitespace", "  \t ", english, false, ipa.ReasonEmpty},
		{"source echo han", "你好", chinese, false, ipa.ReasonForeignScript},
		{"source echo cyrillic", "привет", russian, false, ipa.ReasonForeignScript},
		{"greek letters allowed", "θɪŋk βɛta", english, true, ""},
		{"implausible symbols", "h@#$%^&*=+~", english, false, ipa.ReasonImplausible},
		{"pinyin on chinese", "nǐ hǎo", chinese, false, ipa.ReasonRomanizationToneMark},
		{"pinyin decomposed", "ni\u030c ha\u030co", chinese, false, ipa.ReasonRomanizationToneMark},
		{"hepburn macron on japanese", "tōkyō", japan, false, ipa.ReasonRomanizationToneMark},
		{"chinese chao tones", "ni˨˩˦ xau˨˩˦", chinese, true, ""},
		{"chinese superscript tones", "ni²¹⁴ xau²¹⁴", chinese, true, ""},
		{"chinese trailing tone digits", "ni3 xau3", chinese, true, ""},
		{"chinese without tone", "ni xau", chinese, false, ipa.ReasonMissingTone},
		{"accents fine where romanization allowed", "privét", russian, true, ""},
		{"japanese ipa", "toːkʲoː", japan, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, reason := ipa.Validate(tt.candidate, tt.profile)
			if ok != tt.wantOK || reason != tt.reason {
				t.Errorf("Validate(%q) = (%v, %q), want (%v, %q)", tt.candidate, ok, reason, tt.wantOK, tt.reason)
			}
		})
	}
}

func TestHasHardContamination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		profile   language.Profile
		want      bool
	}{
		{"plain latin", "ni hao", chinese, false},
		{"han echo", "ni 好", chinese, true},
		{"pinyin vowel", "nǐ hao", chinese, true},
		{"pinyin vowel allowed", "privét", russian, false},
		{"implausible but clean", "h@#$%", english, false},
		{"hangul", "annyeong 안녕", japan, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ipa.HasHardContamination(tt.candidate, tt.profile); got != tt.want {
				t.Errorf("HasHardContamination(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}
