// Package language holds the static table of supported target languages.
//
// A [Profile] maps one language identity to the internal code every other
// subsystem uses for it: the rule-engine code for Tier 1 transliteration, the
// phoneme-frontend locale for Tier 2, the grammar analyzer key, the script
// direction and whether a romanized reading is an acceptable transliteration.
//
// The table is loaded once at startup into a [Registry] and is read-only
// thereafter, so a Registry is safe for concurrent use without locking.
package language

import "strings"

// Direction is the reading direction of a script.
type Direction string

const (
	// LTR is left-to-right reading order.
	LTR Direction = "ltr"

	// RTL is right-to-left reading order.
	RTL Direction = "rtl"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	switch d {
	case LTR, RTL:
		return true
	}
	return false
}

// ScriptType names the writing system a language is normally written in.
type ScriptType string

const (
	ScriptLatin      ScriptType = "latin"
	ScriptCyrillic   ScriptType = "cyrillic"
	ScriptGreek      ScriptType = "greek"
	ScriptArabic     ScriptType = "arabic"
	ScriptHebrew     ScriptType = "hebrew"
	ScriptDevanagari ScriptType = "devanagari"
	ScriptBengali    ScriptType = "bengali"
	ScriptThai       ScriptType = "thai"
	ScriptHangul     ScriptType = "hangul"
	ScriptHan        ScriptType = "han"
	ScriptJapanese   ScriptType = "japanese"
)

// IsValid reports whether s is a known script type.
func (s ScriptType) IsValid() bool {
	switch s {
	case ScriptLatin, ScriptCyrillic, ScriptGreek, ScriptArabic, ScriptHebrew,
		ScriptDevanagari, ScriptBengali, ScriptThai, ScriptHangul, ScriptHan, ScriptJapanese:
		return true
	}
	return false
}

// IsLogographic reports whether the script is (at least partly) logographic.
// Rule engines fed logographic text emit a romanized reading instead of
// phonetic symbols.
func (s ScriptType) IsLogographic() bool {
	return s == ScriptHan || s == ScriptJapanese
}

// Profile is the identity record of one supported language.
type Profile struct {
	// Code is the unique, lower-case language code (normally ISO 639-1).
	Code string `yaml:"code"`

	// Name is the English display name, e.g. "German".
	Name string `yaml:"name"`

	// NativeName is the name in the language itself, e.g. "Deutsch".
	NativeName string `yaml:"native_name"`

	// Family groups related languages for per-family policy overrides.
	Family string `yaml:"family"`

	// ScriptType is the writing system the language is normally written in.
	ScriptType ScriptType `yaml:"script_type"`

	// Direction is the script reading direction.
	Direction Direction `yaml:"script_direction"`

	// Tier1Code addresses the rule-based transliteration engine. Empty means
	// the engine has no rules for this language.
	Tier1Code string `yaml:"tier1_code"`

	// Tier2Code is the locale passed to the phoneme frontend. Empty means the
	// frontend has no voice for this language.
	Tier2Code string `yaml:"tier2_code"`

	// AnalyzerKey selects the grammar analyzer. Empty means the generic one.
	AnalyzerKey string `yaml:"analyzer_key"`

	// RomanizationAllowed permits a romanized reading with diacritics in place
	// of strict phonetic symbols.
	RomanizationAllowed bool `yaml:"romanization_allowed"`

	// Tonal marks languages whose phonetic transcription is expected to
	// carry tone markers.
	Tonal bool `yaml:"tonal"`
}

// SkipsRuleEngine reports whether Tier 1 must not be attempted for p, either
// because it has no rule-engine code or because its script makes the engine
// degrade to a romanized reading.
func (p Profile) SkipsRuleEngine() bool {
	return p.Tier1Code == "" || p.ScriptType.IsLogographic()
}

// IsRTL reports whether p is written right-to-left.
func (p Profile) IsRTL() bool {
	return p.Direction == RTL
}

// DisplayName returns the name used in user-facing strings, falling back to
// the code when no name is known.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Code
}

// Unknown returns a placeholder profile for a key that is not in any
// registry. It has no tier codes and no analyzer, so transliteration goes
// straight to the caller's fallback and analysis uses the generic analyzer.
func Unknown(key string) Profile {
	code := normalizeKey(key)
	return Profile{
		Code:                code,
		Name:                strings.TrimSpace(key),
		Family:              "unknown",
		ScriptType:          ScriptLatin,
		Direction:           LTR,
		RomanizationAllowed: true,
	}
}

// normalizeKey lower-cases key, trims it and turns '_' into '-' so that
// "pt_BR" and "PT-br" compare equal.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "_", "-")
}
