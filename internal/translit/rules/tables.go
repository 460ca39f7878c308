package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tableDef is the source form of a grapheme table. Keys are lower-case
// graphemes, optionally anchored with "^" (word start) and "$" (word end).
// Values are space-separated IPA segments; "" is silent and a "!" prefix marks
// a lexically stressed vowel.
type tableDef struct {
	rules  map[string]string
	stress stressPolicy
}

// graphemeTable is a compiled tableDef.
type graphemeTable struct {
	rules  map[string][]segment
	maxLen int
	stress stressPolicy
}

func newGraphemeTable(rules map[string]string, stress stressPolicy) *graphemeTable {
	t := &graphemeTable{
		rules:  make(map[string][]segment, len(rules)),
		stress: stress,
	}
	for k, v := range rules {
		t.rules[k] = parseSegments(v)
		if n := utf8.RuneCountInString(strings.TrimSuffix(strings.TrimPrefix(k, "^"), "$")); n > t.maxLen {
			t.maxLen = n
		}
	}
	return t
}

func parseSegments(v string) []segment {
	var segs []segment
	for _, f := range strings.Fields(v) {
		var s segment
		if rest, ok := strings.CutPrefix(f, "!"); ok {
			s.stress = 1
			f = rest
		}
		s.ipa = f
		s.vowel = isVowel(f)
		segs = append(segs, s)
	}
	return segs
}

// segments converts one lower-case word with longest-match lookup. Anchored
// keys are preferred over unanchored keys of the same length. Letters without
// a rule pass through unchanged.
func (t *graphemeTable) segments(word string) []segment {
	r := []rune(word)
	var out []segment
	for i := 0; i < len(r); {
		matched := false
		for l := min(t.maxLen, len(r)-i); l > 0 && !matched; l-- {
			key := string(r[i : i+l])
			for _, k := range candidates(key, i == 0, i+l == len(r)) {
				if segs, ok := t.rules[k]; ok {
					out = append(out, segs...)
					i += l
					matched = true
					break
				}
			}
		}
		if matched {
			continue
		}
		if unicode.IsLetter(r[i]) {
			s := string(r[i])
			out = append(out, segment{ipa: s, vowel: isVowel(s)})
		}
		i++
	}
	return out
}

func candidates(key string, atStart, atEnd bool) []string {
	c := make([]string, 0, 4)
	if atStart && atEnd {
		c = append(c, "^"+key+"$")
	}
	if atStart {
		c = append(c, "^"+key)
	}
	if atEnd {
		c = append(c, key+"$")
	}
	return append(c, key)
}

// builtinTables holds the grapheme tables keyed by rule code.
var builtinTables = map[string]tableDef{
	"en": {stress: stressInitial, rules: englishRules},
	"de": {stress: stressInitial, rules: germanRules},
	"es": {stress: stressPenultimate, rules: spanishRules},
	"it": {stress: stressPenultimate, rules: italianRules},
	"pt": {stress: stressPenultimate, rules: portugueseRules},
	"fr": {stress: stressNone, rules: frenchRules},
	"tr": {stress: stressFinal, rules: turkishRules},
}

// englishRules cover words missing from the pronouncing dictionary.
var englishRules = map[string]string{
	"th": "θ", "ch": "tʃ", "sh": "ʃ", "ph": "f", "wh": "w", "ng": "ŋ",
	"ck": "k", "gh": "", "^kn": "n", "^wr": "ɹ", "mb$": "m",
	"tion": "ʃ ə n", "sion": "ʒ ə n", "ough": "oʊ", "igh": "aɪ", "eigh": "eɪ",
	"ee": "i", "ea": "i", "oo": "u", "ou": "aʊ", "oi": "ɔɪ", "oy": "ɔɪ",
	"ai": "eɪ", "ay": "eɪ", "aw": "ɔ", "au": "ɔ", "ew": "j u",
	"e$": "", "y$": "i", "le$": "ə l", "er$": "ɚ",
	"a": "æ", "b": "b", "c": "k", "ce": "s ɛ", "ci": "s ɪ", "d": "d", "e": "ɛ",
	"f": "f", "g": "ɡ", "h": "h", "i": "ɪ", "j": "dʒ", "k": "k", "l": "l",
	"m": "m", "n": "n", "o": "ɑ", "p": "p", "q": "k", "qu": "k w", "r": "ɹ",
	"s": "s", "t": "t", "u": "ʌ", "v": "v", "w": "w", "x": "k s", "y": "j", "z": "z",
}

var germanRules = map[string]string{
	"a": "a", "e": "ɛ", "i": "ɪ", "o": "ɔ", "u": "ʊ", "y": "y",
	"ä": "ɛ", "ö": "ø", "ü": "y",
	"aa": "aː", "ah": "aː", "ee": "eː", "eh": "eː", "ie": "iː", "ieh": "iː",
	"oo": "oː", "oh": "oː", "uh": "uː", "äh": "ɛː", "öh": "øː", "üh": "yː",
	"ei": "aɪ", "ai": "aɪ", "eu": "ɔʏ", "äu": "ɔʏ", "au": "aʊ",
	"sch": "ʃ", "tsch": "tʃ", "ch": "ç", "chs": "k s",
	"ach": "a x", "och": "ɔ x", "uch": "u x", "auch": "aʊ x",
	"ck": "k", "ng": "ŋ", "nk": "ŋ k", "pf": "pf", "ph": "f", "qu": "k v",
	"^sp": "ʃ p", "^st": "ʃ t", "^s": "z", "ß": "s", "ss": "s", "tz": "ts", "z": "ts",
	"b": "b", "c": "k", "d": "d", "f": "f", "g": "ɡ", "h": "h", "j": "j", "k": "k",
	"l": "l", "m": "m", "n": "n", "p": "p", "r": "ʁ", "s": "s", "t": "t",
	"v": "f", "w": "v", "x": "k s",
	"er$": "ɐ", "e$": "ə", "en$": "ə n", "el$": "ə l", "ig$": "ɪ ç",
	"b$": "p", "d$": "t", "g$": "k",
}

var spanishRules = map[string]string{
	"a": "a", "e": "e", "i": "i", "o": "o", "u": "u", "ü": "w",
	"á": "!a", "é": "!e", "í": "!i", "ó": "!o", "ú": "!u",
	"ie": "j e", "ia": "j a", "io": "j o", "ue": "w e", "ua": "w a",
	"ai": "a j", "ei": "e j", "oi": "o j", "au": "a w", "eu": "e w",
	"b": "b", "v": "b", "c": "k", "ce": "θ e", "ci": "θ i", "cé": "θ !e", "cí": "θ !i",
	"cie": "θ j e", "cia": "θ j a", "cio": "θ j o", "ch": "tʃ",
	"d": "d", "f": "f", "g": "ɡ", "ge": "x e", "gi": "x i", "gue": "ɡ e", "gui": "ɡ i",
	"güe": "ɡ w e", "h": "", "j": "x", "k": "k", "l": "l", "ll": "ʝ", "m": "m",
	"n": "n", "ñ": "ɲ", "p": "p", "qu": "k", "r": "ɾ", "^r": "r", "rr": "r",
	"s": "s", "t": "t", "w": "w", "x": "k s", "y": "ʝ", "y$": "i", "z": "θ",
}

var italianRules = map[string]string{
	"a": "a", "e": "e", "i": "i", "o": "o", "u": "u",
	"à": "!a", "è": "!ɛ", "é": "!e", "ì": "!i", "ò": "!ɔ", "ó": "!o", "ù": "!u",
	"c": "k", "ce": "tʃ e", "ci": "tʃ i", "cia": "tʃ a", "cio": "tʃ o", "ciu": "tʃ u", "ch": "k",
	"g": "ɡ", "ge": "dʒ e", "gi": "dʒ i", "gia": "dʒ a", "gio": "dʒ o", "giu": "dʒ u", "gh": "ɡ",
	"gli": "ʎ i", "glia": "ʎ a", "glio": "ʎ o", "gn": "ɲ", "h": "", "qu": "k w",
	"sc": "s k", "sce": "ʃ e", "sci": "ʃ i", "scia": "ʃ a", "scio": "ʃ o",
	"z": "ts", "zz": "tː s", "b": "b", "d": "d", "f": "f", "j": "j", "k": "k",
	"l": "l", "m": "m", "n": "n", "p": "p", "r": "r", "s": "s", "t": "t", "v": "v",
	"ll": "lː", "tt": "tː", "ss": "sː", "pp": "pː", "rr": "rː", "mm": "mː",
	"nn": "nː", "cc": "kː", "bb": "bː", "dd": "dː", "ff": "fː",
}

var portugueseRules = map[string]string{
	"a": "a", "e": "e", "i": "i", "o": "o", "u": "u",
	"á": "!a", "é": "!ɛ", "ê": "!e", "í": "!i", "ó": "!ɔ", "ô": "!o", "ú": "!u", "â": "!ɐ",
	"ã": "ɐ̃", "õ": "õ", "ão": "ɐ̃w", "ões": "õj s", "ãe": "ɐ̃j",
	"ei": "e j", "ai": "a j", "ou": "o",
	"lh": "ʎ", "nh": "ɲ", "ch": "ʃ", "ç": "s", "c": "k", "ce": "s e", "ci": "s i",
	"g": "ɡ", "ge": "ʒ e", "gi": "ʒ i", "gue": "ɡ e", "gui": "ɡ i", "qu": "k",
	"j": "ʒ", "h": "", "r": "ɾ", "^r": "ʁ", "rr": "ʁ", "s": "s", "ss": "s",
	"x": "ʃ", "z": "z", "b": "b", "d": "d", "f": "f", "k": "k", "l": "l",
	"m": "m", "n": "n", "p": "p", "t": "t", "v": "v",
	"o$": "u", "os$": "u s", "e$": "i", "es$": "i s",
	"am$": "ɐ̃w", "em$": "ẽj", "im$": "ĩ", "om$": "õ", "um$": "ũ",
}

var frenchRules = map[string]string{
	"a": "a", "à": "a", "â": "ɑ", "e": "ə", "é": "e", "è": "ɛ", "ê": "ɛ", "ë": "ɛ",
	"i": "i", "î": "i", "ï": "i", "o": "o", "ô": "o", "u": "y", "û": "y", "ù": "y", "y": "i",
	"ai": "ɛ", "ei": "ɛ", "au": "o", "eau": "o", "ou": "u", "où": "u",
	"oi": "w a", "oy": "w a j", "eu": "ø", "œu": "œ",
	"an": "ɑ̃", "am": "ɑ̃", "en": "ɑ̃", "em": "ɑ̃", "on": "ɔ̃", "om": "ɔ̃",
	"in": "ɛ̃", "im": "ɛ̃", "ain": "ɛ̃", "ein": "ɛ̃", "un": "œ̃", "ien": "j ɛ̃", "ion": "j ɔ̃",
	"ane": "a n", "anne": "a n", "enne": "ɛ n", "onne": "ɔ n", "ine": "i n", "une": "y n",
	"ame": "a m", "ome": "ɔ m",
	"b": "b", "c": "k", "ce": "s ə", "ci": "s i", "cé": "s e", "ç": "s", "ch": "ʃ",
	"d": "d", "f": "f", "g": "ɡ", "ge": "ʒ ə", "gi": "ʒ i", "gé": "ʒ e", "gn": "ɲ", "gu": "ɡ",
	"h": "", "j": "ʒ", "k": "k", "l": "l", "ll": "l", "ille": "i j", "m": "m", "n": "n",
	"p": "p", "ph": "f", "qu": "k", "r": "ʁ", "s": "s", "ss": "s", "t": "t", "th": "t",
	"tion": "s j ɔ̃", "v": "v", "w": "w", "x": "k s", "z": "z",
	"e$": "", "es$": "", "s$": "", "t$": "", "d$": "", "x$": "", "z$": "", "p$": "", "ts$": "",
	"er$": "e", "ez$": "e", "et$": "ɛ", "ce$": "s", "ge$": "ʒ",
	"^le$": "l ə", "^de$": "d ə", "^je$": "ʒ ə", "^me$": "m ə", "^te$": "t ə",
	"^se$": "s ə", "^ne$": "n ə", "^ce$": "s ə", "^que$": "k ə",
}

var turkishRules = map[string]string{
	"a": "a", "e": "e", "ı": "ɯ", "i": "i", "o": "o", "ö": "ø", "u": "u", "ü": "y",
	"â": "aː", "î": "iː", "û": "uː",
	"b": "b", "c": "dʒ", "ç": "tʃ", "d": "d", "f": "f", "g": "ɡ", "ğ": "ː", "h": "h",
	"j": "ʒ", "k": "k", "l": "l", "m": "m", "n": "n", "p": "p", "r": "ɾ", "s": "s",
	"ş": "ʃ", "t": "t", "v": "v", "y": "j", "z": "z",
}
