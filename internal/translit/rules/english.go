package rules

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"
)

//go:embed en_lexicon.dict
var enLexicon string

// embeddedEnglish parses the embedded dictionary once per process.
var embeddedEnglish = sync.OnceValue(func() map[string][]segment {
	lex, err := parseLexicon(strings.NewReader(enLexicon))
	if err != nil {
		panic(fmt.Sprintf("rules: embedded english lexicon: %v", err))
	}
	return lex
})

// arpabet maps ARPAbet phonemes (without stress digits) to IPA.
var arpabet = map[string]string{
	"AA": "ɑ",
	"AE": "æ",
	"AH": "ʌ",
	"AO": "ɔ",
	"AW": "aʊ",
	"AY": "aɪ",
	"B":  "b",
	"CH": "tʃ",
	"D":  "d",
	"DH": "ð",
	"EH": "ɛ",
	"ER": "ɝ",
	"EY": "eɪ",
	"F":  "f",
	"G":  "ɡ",
	"HH": "h",
	"IH": "ɪ",
	"IY": "i",
	"JH": "dʒ",
	"K":  "k",
	"L":  "l",
	"M":  "m",
	"N":  "n",
	"NG": "ŋ",
	"OW": "oʊ",
	"OY": "ɔɪ",
	"P":  "p",
	"R":  "ɹ",
	"S":  "s",
	"SH": "ʃ",
	"T":  "t",
	"TH": "θ",
	"UH": "ʊ",
	"UW": "u",
	"V":  "v",
	"W":  "w",
	"Y":  "j",
	"Z":  "z",
	"ZH": "ʒ",
}

// parseLexicon reads a CMU-format dictionary: ";;;" comments, then one
// "WORD  PH PH PH" entry per line. Alternate pronunciations ("WORD(2)") and
// lines with unknown phonemes are skipped.
func parseLexicon(r io.Reader) (map[string][]segment, error) {
	lex := make(map[string][]segment)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";;;") {
			continue
		}
		word, pron, ok := strings.Cut(line, "  ")
		if !ok || strings.Contains(word, "(") {
			continue
		}
		segs, ok := arpabetSegments(strings.Fields(pron))
		if !ok {
			continue
		}
		lex[strings.ToLower(word)] = segs
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lex, nil
}

// arpabetSegments converts ARPAbet phonemes to segments. Vowels are the
// phonemes carrying a stress digit; unstressed AH and ER reduce to schwa.
func arpabetSegments(phones []string) ([]segment, bool) {
	segs := make([]segment, 0, len(phones))
	for _, ph := range phones {
		base := strings.TrimRight(ph, "012")
		ipa, ok := arpabet[base]
		if !ok {
			return nil, false
		}
		seg := segment{ipa: ipa, vowel: len(base) < len(ph)}
		if seg.vowel {
			switch ph[len(ph)-1] {
			case '1':
				seg.stress = 1
			case '2':
				seg.stress = 2
			case '0':
				switch base {
				case "AH":
					seg.ipa = "ə"
				case "ER":
					seg.ipa = "ɚ"
				}
			}
		}
		segs = append(segs, seg)
	}
	return segs, len(segs) > 0
}
