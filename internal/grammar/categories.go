package grammar

// ─── Shared categories ───────────────────────────────────────────────────────
//
// Family tables compose these and add their own. Colours keep nouns blue,
// verbs red, modifiers green/amber and function words in muted tones across
// every family so that learners switching languages see the same palette.

func cat(key, label, color, parent, desc string) Category {
	return Category{
		Key:         key,
		Label:       label,
		Color:       color,
		Class:       classFor(key),
		Parent:      parent,
		Description: desc,
	}
}

func classFor(key string) string {
	b := []byte(key)
	for i, c := range b {
		if c == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}

var (
	catNoun          = cat("noun", "Noun", "#2563EB", "", "person, place, thing or idea")
	catProperNoun    = cat("proper_noun", "Proper noun", "#1D4ED8", "noun", "name of a specific person, place or organisation")
	catVerb          = cat("verb", "Verb", "#DC2626", "", "action, event or state")
	catAuxiliaryVerb = cat("auxiliary_verb", "Auxiliary verb", "#B91C1C", "verb", "helping verb forming tense, mood or voice")
	catModalVerb     = cat("modal_verb", "Modal verb", "#991B1B", "verb", "expresses ability, permission, obligation or wish")
	catParticiple    = cat("participle", "Participle", "#F87171", "verb", "verb form used like an adjective or in compound tenses")
	catInfinitive    = cat("infinitive", "Infinitive", "#EF4444", "verb", "base, unconjugated form of a verb")
	catAdjective     = cat("adjective", "Adjective", "#16A34A", "", "describes a noun")
	catAdverb        = cat("adverb", "Adverb", "#CA8A04", "", "modifies a verb, adjective or clause")
	catNumeral       = cat("numeral", "Numeral", "#0891B2", "", "number or ordinal")
	catPronoun       = cat("pronoun", "Pronoun", "#7C3AED", "", "stands in for a noun")
	catReflexive     = cat("reflexive_pronoun", "Reflexive pronoun", "#6D28D9", "pronoun", "refers back to the subject")
	catPossessive    = cat("possessive_pronoun", "Possessive", "#8B5CF6", "pronoun", "shows ownership")
	catDeterminer    = cat("determiner", "Determiner", "#A855F7", "", "introduces and limits a noun")
	catArticle       = cat("article", "Article", "#9333EA", "", "definite or indefinite article")
	catPreposition   = cat("preposition", "Preposition", "#EA580C", "", "relates a noun to the rest of the sentence")
	catConjunction   = cat("conjunction", "Conjunction", "#DB2777", "", "joins words or clauses")
	catParticle      = cat("particle", "Particle", "#0D9488", "", "small uninflected function word")
	catNegation      = cat("negation", "Negation", "#475569", "", "negates a word or clause")
	catInterjection  = cat("interjection", "Interjection", "#F59E0B", "", "exclamation or greeting")
)

// ─── Shared rules ────────────────────────────────────────────────────────────

var (
	ruleProperNoun = Rule{"proper_noun", Words("proper noun", "proper name", "name", "toponym", "anthroponym")}
	ruleNoun       = Rule{"noun", Words("noun", "substantive", "nominal", "common noun", "n")}
	ruleAuxiliary  = Rule{"auxiliary_verb", Words("auxiliary", "aux", "helping verb", "auxiliary verb")}
	ruleModal      = Rule{"modal_verb", Words("modal verb", "modal auxiliary", "modal")}
	ruleParticiple = Rule{"participle", Words("participle", "past participle", "present participle", "partizip")}
	ruleInfinitive = Rule{"infinitive", AllOf(Words("infinitive", "infinitiv", "inf"), Not(Words("infinitive marker")))}
	ruleVerb       = Rule{"verb", AllOf(Words("verb", "v", "predicate", "copula", "verbal"), Not(Words("verbal noun")))}
	ruleAdjective  = Rule{"adjective", Stems("adject")}
	ruleAdverb     = Rule{"adverb", Stems("adverb")}
	ruleNumeral    = Rule{"numeral", Words("numeral", "number", "cardinal", "ordinal", "num")}
	ruleReflexive  = Rule{"reflexive_pronoun", Words("reflexive", "reflexive pronoun")}
	rulePossessive = Rule{"possessive_pronoun", Stems("possess")}
	rulePronoun    = Rule{"pronoun", Words("pronoun", "personal pronoun", "pron", "demonstrative", "relative pronoun", "interrogative pronoun")}
	ruleArticle    = Rule{"article", Words("article", "definite article", "indefinite article", "art")}
	ruleDeterminer = Rule{"determiner", Words("determiner", "quantifier", "det")}
	rulePrep       = Rule{"preposition", Words("preposition", "prep", "adposition", "contracted preposition")}
	ruleConj       = Rule{"conjunction", Words("conjunction", "conj", "cconj", "sconj", "subordinator", "coordinator")}
	ruleNegation   = Rule{"negation", Words("negation", "negative", "negator", "negative particle", "neg")}
	ruleParticle   = Rule{"particle", Words("particle", "separable prefix", "infinitive marker", "prt")}
	ruleInterj     = Rule{"interjection", Stems("interjection", "exclamation", "intj", "greeting")}
)
