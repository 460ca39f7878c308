package grammar

import "github.com/MrWong99/glyphcard/internal/language"

// Semitic covers Arabic, Hebrew and languages written in Arabic script that
// share their clitic structure. It renders right to left.
func semiticTable() Table {
	verbalNoun := cat("verbal_noun", "Verbal noun", "#3B82F6", "noun", "masdar or gerund")
	attached := cat("attached_pronoun", "Attached pronoun", "#A78BFA", "pronoun", "pronoun suffix attached to a noun, verb or preposition")
	demonstrative := cat("demonstrative", "Demonstrative", "#8B5CF6", "pronoun", "this, that, these")
	relative := cat("relative_pronoun", "Relative pronoun", "#6D28D9", "pronoun", "الذي, אשר, که")
	definite := cat("definite_article", "Definite article", "#9333EA", "", "ال, ה")
	interrogative := cat("interrogative", "Question word", "#64748B", "", "question word or question particle")

	return Table{
		Key:       "semitic",
		Direction: language.RTL,
		Categories: []Category{
			catNoun, catProperNoun, verbalNoun,
			catVerb, catParticiple,
			catAdjective, catAdverb, catNumeral,
			catPronoun, attached, demonstrative, relative,
			definite, catPreposition, catConjunction,
			catParticle, catNegation, interrogative, catInterjection,
			Other,
		},
		Rules: []Rule{
			{"verbal_noun", Words("verbal noun", "masdar", "gerund", "infinitive noun")},
			{"attached_pronoun", Words("attached pronoun", "suffix pronoun", "pronominal suffix", "enclitic pronoun", "object suffix", "possessive suffix", "clitic pronoun", "enclitic")},
			{"demonstrative", Words("demonstrative", "demonstrative pronoun", "demonstrative adjective")},
			{"relative_pronoun", Words("relative pronoun", "relativizer", "relative particle", "relative")},
			{"participle", Words("participle", "active participle", "passive participle", "ism fael", "benoni")},
			ruleProperNoun,
			{"definite_article", Words("definite article", "article", "al", "definite prefix", "he hayediah")},
			{"interrogative", Words("interrogative", "question word", "question particle", "interrogative particle")},
			ruleNegation,
			ruleNoun, ruleVerb, ruleAdjective, ruleAdverb, ruleNumeral, rulePronoun,
			rulePrep, ruleConj,
			{"particle", Words("particle", "prefix", "proclitic", "vocative", "ezafe")},
			ruleInterj,
		},
		PromptHints: []string{
			"Give attached clitics as separate words when they are written joined: وكتابه is و + كتاب + ه.",
			"Give each word exactly as written in the sentence, including its original script and diacritics.",
			"List words in reading order, right to left.",
		},
	}
}

func indicTable() Table {
	lightVerb := cat("light_verb", "Light verb", "#F87171", "verb", "second verb of a compound verb, e.g. जाना in खा जाना")
	postposition := cat("postposition", "Postposition", "#EA580C", "", "relational word placed after a noun, e.g. में, पर")
	caseMarker := cat("case_marker", "Case marker", "#F97316", "postposition", "ने, को, का, की, के, से")
	emphatic := cat("emphatic_particle", "Emphatic particle", "#14B8A6", "particle", "ही, भी, तो")

	return Table{
		Key:       "indic",
		Direction: language.LTR,
		Categories: []Category{
			catNoun, catProperNoun,
			catVerb, catAuxiliaryVerb, lightVerb, catParticiple,
			catAdjective, catAdverb, catNumeral,
			catPronoun, catReflexive,
			postposition, caseMarker, catConjunction,
			catParticle, emphatic, catNegation, catInterjection,
			Other,
		},
		Rules: []Rule{
			{"light_verb", Words("light verb", "compound verb", "vector verb", "conjunct verb", "explicator verb", "explicator")},
			{"case_marker", Words("case marker", "case particle", "ergative marker", "ergative", "genitive marker", "genitive", "dative marker", "accusative marker")},
			{"emphatic_particle", Words("emphatic particle", "emphatic", "focus particle", "emphasis")},
			ruleAuxiliary, ruleParticiple, ruleProperNoun, ruleReflexive,
			ruleNoun, ruleVerb, ruleAdjective, ruleAdverb, ruleNumeral, rulePronoun,
			{"postposition", Words("postposition", "preposition", "adposition", "post position")},
			ruleConj, ruleNegation, ruleParticle, ruleInterj,
		},
		PromptHints: []string{
			"Give postpositions and case markers as separate words: घर में is घर (noun) + में (postposition).",
			"In a compound verb give the main verb as verb and the second verb as light_verb.",
			"Write every \"word\" in the original script.",
		},
	}
}

// genericTable is the analyzer for languages without a family table. It
// uses only categories that exist in most languages.
func genericTable() Table {
	article := catArticle
	article.Parent = "determiner"
	adposition := cat("adposition", "Adposition", "#EA580C", "", "preposition or postposition")
	classifier := cat("classifier", "Classifier", "#0E7490", "", "measure word or counter")

	return Table{
		Key:       "generic",
		Direction: language.LTR,
		Categories: []Category{
			catNoun, catProperNoun,
			catVerb, catAuxiliaryVerb,
			catAdjective, catAdverb, catNumeral, classifier,
			catPronoun, catDeterminer, article,
			adposition, catConjunction, catParticle, catNegation, catInterjection,
			Other,
		},
		Rules: []Rule{
			ruleProperNoun, ruleAuxiliary, ruleArticle,
			{"auxiliary_verb", Words("modal", "modal verb", "copula")},
			ruleNoun, ruleVerb, ruleAdjective, ruleAdverb, ruleNumeral,
			{"classifier", Words("classifier", "measure word", "counter")},
			rulePronoun, ruleDeterminer,
			{"adposition", Words("adposition", "preposition", "postposition", "case marker", "prep")},
			ruleConj, ruleNegation, ruleParticle, ruleInterj,
		},
	}
}
