package grammar

import "github.com/MrWong99/glyphcard/internal/language"

// European covers Germanic, Romance, Hellenic, Uralic and Turkic languages
// written left to right with articles and prepositions.
func europeanTable() Table {
	return Table{
		Key:       "european",
		Direction: language.LTR,
		Categories: []Category{
			catNoun, catProperNoun,
			catVerb, catAuxiliaryVerb, catModalVerb, catParticiple, catInfinitive,
			catAdjective, catAdverb, catNumeral,
			catPronoun, catReflexive, catPossessive,
			catArticle, catDeterminer, catPreposition, catConjunction,
			catParticle, catNegation, catInterjection,
			Other,
		},
		Rules: []Rule{
			ruleProperNoun,
			ruleAuxiliary, ruleModal, ruleParticiple, ruleInfinitive,
			ruleReflexive, rulePossessive,
			ruleNoun, ruleVerb, ruleAdjective, ruleAdverb, ruleNumeral,
			rulePronoun, ruleArticle, ruleDeterminer, rulePrep, ruleConj,
			ruleNegation, ruleParticle, ruleInterj,
			{"preposition", Words("postposition", "case suffix")},
		},
		PromptHints: []string{
			"Mark separable verb prefixes (German \"an\", \"auf\", Dutch \"op\") as particle.",
			"Contracted forms such as \"zum\", \"du\", \"della\" are preposition.",
			"Reflexive verbs: the verb is verb, the reflexive word is reflexive_pronoun.",
		},
	}
}

func slavicTable() Table {
	verbalAdverb := cat("verbal_adverb", "Verbal adverb", "#FB7185", "verb", "adverbial participle (gerund)")
	shortAdjective := cat("short_adjective", "Short adjective", "#15803D", "adjective", "short-form predicative adjective")

	return Table{
		Key:       "slavic",
		Direction: language.LTR,
		Categories: []Category{
			catNoun, catProperNoun,
			catVerb, catParticiple, verbalAdverb, catInfinitive,
			catAdjective, shortAdjective, catAdverb, catNumeral,
			catPronoun, catReflexive, catPossessive,
			catPreposition, catConjunction, catParticle, catNegation, catInterjection,
			Other,
		},
		Rules: []Rule{
			{"short_adjective", Words("short adjective", "short form adjective", "predicative adjective", "short form")},
			{"verbal_adverb", Words("verbal adverb", "adverbial participle", "gerund", "deeprichastie", "transgressive")},
			ruleParticiple, ruleInfinitive, ruleProperNoun, ruleReflexive, rulePossessive,
			ruleNoun, ruleVerb, ruleAdjective, ruleAdverb, ruleNumeral, rulePronoun,
			rulePrep, ruleConj, ruleNegation, ruleParticle, ruleInterj,
		},
		PromptHints: []string{
			"Reflexive verb endings (-ся, -сь, się, se) belong to the verb.",
			"Mention the grammatical case of nouns in the gloss when it is not nominative.",
		},
	}
}
