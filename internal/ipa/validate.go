// Package ipa validates candidate phonetic transcriptions against the
// character repertoire a language profile expects.
//
// Validation is a pure function of the candidate and the profile. The
// transliteration service uses [Validate] as a hard gate for engine output and
// [HasHardContamination] as the narrower gate for caller-supplied fallback text.
package ipa

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/glyphcard/internal/language"
)

// Reason explains why a candidate failed validation. The zero value means the
// candidate is valid.
type Reason string

const (
	// ReasonEmpty means the candidate is empty or whitespace only.
	ReasonEmpty Reason = "empty"

	// ReasonForeignScript means the candidate contains letters from a script
	// other than Latin or Greek, typically an echo of the source text.
	ReasonForeignScript Reason = "foreign script"

	// ReasonImplausible means too many characters are neither phonetic
	// symbols nor romanization letters.
	ReasonImplausible Reason = "implausible characters"

	// ReasonRomanizationToneMark means a language that expects phonetic
	// symbols received pinyin-style tone-marked vowels.
	ReasonRomanizationToneMark Reason = "romanization tone mark"

	// ReasonMissingTone means a tonal language's transcription carries no
	// tone marker.
	ReasonMissingTone Reason = "missing tone marker"
)

// MinPlausibleRatio is the share of characters that must be plausible in a
// phonetic or romanized transcription.
const MinPlausibleRatio = 0.85

// romanizationToneVowels are the tone-marked vowels of pinyin. They are the
// signature of an engine that substituted a romanized reading for phonetic
// symbols.
const romanizationToneVowels = "āáǎàēéěèīíǐìōóǒòūúǔùǖǘǚǜĀÁǍÀĒÉĚÈĪÍǏÌŌÓǑÒŪÚǓÙǕǗǙǛ"

// Validate reports whether candidate is an acceptable transcription for p.
// When it is not, the returned Reason names the first failed check.
func Validate(candidate string, p language.Profile) (bool, Reason) {
	s := norm.NFC.String(strings.TrimSpace(candidate))
	if s == "" {
		return false, ReasonEmpty
	}
	if hasForeignLetters(s) {
		return false, ReasonForeignScript
	}
	if !p.RomanizationAllowed && strings.ContainsAny(s, romanizationToneVowels) {
		return false, ReasonRomanizationToneMark
	}
	if plausibleRatio(s) < MinPlausibleRatio {
		return false, ReasonImplausible
	}
	if p.Tonal && !p.RomanizationAllowed && !hasToneMarker(s) {
		return false, ReasonMissingTone
	}
	return true, ""
}

// HasHardContamination reports whether candidate carries a marker that
// disqualifies it even as best-effort fallback text: letters of a non-Latin
// script, or romanization tone vowels where romanization is not expected.
func HasHardContamination(candidate string, p language.Profile) bool {
	s := norm.NFC.String(candidate)
	if hasForeignLetters(s) {
		return true
	}
	return !p.RomanizationAllowed && strings.ContainsAny(s, romanizationToneVowels)
}

// hasForeignLetters reports whether s contains a letter outside the Latin,
// Greek and script-neutral ranges. IPA extensions and modifier letters are
// classified as Latin or Common and pass.
func hasForeignLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.In(r, unicode.Latin, unicode.Greek, unicode.Common, unicode.Inherited) {
			continue
		}
		return true
	}
	return false
}

// plausibleRatio returns the share of runes in s that can appear in a
// phonetic or romanized transcription.
func plausibleRatio(s string) float64 {
	var total, ok int
	for _, r := range s {
		total++
		if isPlausible(r) {
			ok++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(ok) / float64(total)
}

func isPlausible(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsSpace(r), unicode.IsDigit(r):
		return true
	case unicode.In(r, unicode.Mn, unicode.Lm, unicode.Sk):
		return true
	case isToneMarker(r):
		return true
	}
	return strings.ContainsRune(".,-'’‿|‖/[]()!?;:", r)
}

// hasToneMarker reports whether s carries Chao tone letters, superscript
// tone digits or a tone digit directly after a letter ("ni3").
func hasToneMarker(s string) bool {
	prevLetter := false
	for _, r := range s {
		if isToneMarker(r) {
			return true
		}
		if prevLetter && r >= '1' && r <= '6' {
			return true
		}
		prevLetter = unicode.IsLetter(r) || unicode.In(r, unicode.Mn)
	}
	return false
}

func isToneMarker(r rune) bool {
	switch {
	case r >= '˥' && r <= '˩': // ˥ ˦ ˧ ˨ ˩
		return true
	case r == '¹', r == '²', r == '³', r == '⁴', r == '⁵', r == '⁶':
		return true
	}
	return false
}
