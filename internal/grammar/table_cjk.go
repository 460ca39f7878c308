package grammar

import "github.com/MrWong99/glyphcard/internal/language"

var (
	catMeasureWord = cat("measure_word", "Measure word", "#0E7490", "", "classifier between a number and a noun")
	catCopula      = cat("copula", "Copula", "#E11D48", "", "linking verb such as \"to be\"")
)

func chineseTable() Table {
	location := cat("location_word", "Location word", "#3B82F6", "noun", "localizer such as 上, 里, 旁边")
	timeWord := cat("time_word", "Time word", "#60A5FA", "noun", "time expression such as 今天, 现在")
	resultative := cat("resultative_complement", "Resultative complement", "#F87171", "verb", "result attached to a verb, e.g. 完 in 吃完")
	directional := cat("directional_complement", "Directional complement", "#FCA5A5", "verb", "direction attached to a verb, e.g. 来 in 进来")
	aspect := cat("aspect_particle", "Aspect particle", "#14B8A6", "particle", "了, 着, 过")
	structural := cat("structural_particle", "Structural particle", "#2DD4BF", "particle", "的, 地, 得")
	modalParticle := cat("modal_particle", "Modal particle", "#5EEAD4", "particle", "sentence-final 吗, 呢, 吧, 啊")

	return Table{
		Key:       "chinese",
		Direction: language.LTR,
		Categories: []Category{
			catNoun, catProperNoun, location, timeWord,
			catVerb, catModalVerb, resultative, directional,
			catAdjective, catAdverb, catNumeral, catMeasureWord,
			catPronoun, catPreposition, catConjunction,
			catParticle, aspect, structural, modalParticle,
			catInterjection,
			Other,
		},
		Rules: []Rule{
			{"aspect_particle", Words("aspect particle", "aspect marker", "aspectual particle", "perfective particle", "durative particle", "experiential particle")},
			{"structural_particle", Words("structural particle", "structural auxiliary", "possessive particle", "attributive particle", "de particle")},
			{"modal_particle", Words("modal particle", "sentence final particle", "final particle", "question particle", "interrogative particle", "mood particle")},
			{"location_word", Words("location word", "localizer", "locative", "place word", "direction word", "locative noun")},
			{"time_word", Words("time word", "time noun", "temporal noun", "time expression")},
			{"resultative_complement", Words("resultative complement", "result complement", "resultative", "complement of result")},
			{"directional_complement", Words("directional complement", "direction complement", "directional")},
			{"modal_verb", Words("modal verb", "optative verb", "auxiliary verb", "auxiliary", "can wish verb")},
			ruleProperNoun,
			{"measure_word", Words("measure word", "classifier", "measure", "counter", "cl")},
			{"preposition", Words("coverb", "co verb", "preposition", "prep")},
			ruleNoun, ruleVerb, ruleAdjective, ruleAdverb, ruleNumeral, rulePronoun, ruleConj,
			{"particle", Words("particle", "modal", "marker")},
			ruleInterj,
		},
		PromptHints: []string{
			"Segment the sentence into words, not single characters: 我们 and 学习 are one word each.",
			"Write every \"word\" in the original characters. Never give pinyin as the word.",
			"Put the verb-complement pair apart: in 吃完 give 吃 as verb and 完 as resultative_complement.",
		},
	}
}

func japaneseTable() Table {
	iAdjective := cat("i_adjective", "I-adjective", "#22C55E", "adjective", "adjective ending in い that conjugates")
	naAdjective := cat("na_adjective", "Na-adjective", "#15803D", "adjective", "adjectival noun taking な before nouns")
	caseParticle := cat("case_particle", "Case particle", "#14B8A6", "particle", "が, を, に, で, へ, と, から, まで")
	topicParticle := cat("topic_particle", "Topic particle", "#0F766E", "particle", "は, も")
	conjParticle := cat("conjunctive_particle", "Conjunctive particle", "#2DD4BF", "particle", "て, ので, から, けど linking clauses")
	endingParticle := cat("sentence_ending_particle", "Sentence-ending particle", "#5EEAD4", "particle", "か, ね, よ, な")
	counter := cat("counter", "Counter", "#0E7490", "", "counter suffix such as 本, 枚, 人")
	affix := cat("affix", "Prefix / suffix", "#94A3B8", "", "honorific prefix or suffix such as お, ご, さん")

	return Table{
		Key:       "japanese",
		Direction: language.LTR,
		Categories: []Category{
			catNoun, catProperNoun,
			catVerb, catAuxiliaryVerb, catCopula,
			catAdjective, iAdjective, naAdjective, catAdverb, catNumeral, counter,
			catPronoun,
			catParticle, caseParticle, topicParticle, conjParticle, endingParticle,
			catConjunction, affix, catInterjection,
			Other,
		},
		Rules: []Rule{
			{"i_adjective", Words("i adjective", "keiyoushi", "adjective i")},
			{"na_adjective", Words("na adjective", "adjectival noun", "keiyoudoushi", "adjective na", "nominal adjective")},
			{"topic_particle", Words("topic particle", "topic marker", "theme particle", "wa")},
			{"case_particle", Words("case particle", "case marker", "subject marker", "object marker", "subject particle", "object particle", "direction particle", "location particle", "ga", "wo", "ni", "de")},
			{"conjunctive_particle", Words("conjunctive particle", "connective particle", "te form particle", "linking particle")},
			{"sentence_ending_particle", Words("sentence ending particle", "sentence final particle", "final particle", "question particle", "ending particle")},
			ruleAuxiliary, ruleProperNoun,
			{"copula", Words("copula", "desu", "da")},
			{"counter", Words("counter", "counter suffix", "classifier", "josuushi")},
			{"affix", Words("prefix", "suffix", "honorific", "honorific prefix", "honorific suffix")},
			ruleNoun, ruleVerb, ruleAdjective, ruleAdverb, ruleNumeral, rulePronoun, ruleConj,
			{"particle", Words("particle", "marker", "joshi")},
			ruleInterj,
		},
		PromptHints: []string{
			"Give each particle as its own word: 私は is 私 (pronoun) + は (topic_particle).",
			"Keep verb stems and their inflection together: 食べました is one verb.",
			"Write every \"word\" in the original script. Never give romaji as the word.",
		},
	}
}

func koreanTable() Table {
	dependentNoun := cat("dependent_noun", "Dependent noun", "#3B82F6", "noun", "bound noun such as 것, 수, 데")
	subjectParticle := cat("subject_particle", "Subject particle", "#14B8A6", "particle", "이, 가, 께서")
	objectParticle := cat("object_particle", "Object particle", "#0F766E", "particle", "을, 를")
	topicParticle := cat("topic_particle", "Topic particle", "#2DD4BF", "particle", "은, 는")
	ending := cat("verb_ending", "Verb ending", "#FDA4AF", "", "conjugational or connective ending attached to a stem")
	counter := cat("counter", "Counter", "#0E7490", "", "counter such as 개, 명, 권")
	adjective := catAdjective
	adjective.Description = "descriptive verb such as 좋다, 크다"

	return Table{
		Key:       "korean",
		Direction: language.LTR,
		Categories: []Category{
			catNoun, catProperNoun, dependentNoun,
			catVerb, catAuxiliaryVerb, catCopula,
			adjective, catAdverb, catNumeral, counter,
			catPronoun, catDeterminer,
			catParticle, subjectParticle, objectParticle, topicParticle,
			ending, catConjunction, catInterjection,
			Other,
		},
		Rules: []Rule{
			{"dependent_noun", Words("dependent noun", "bound noun", "defective noun", "uiconmyeongsa")},
			{"subject_particle", Words("subject particle", "subject marker", "nominative particle", "nominative marker", "honorific subject particle")},
			{"object_particle", Words("object particle", "object marker", "accusative particle", "accusative marker")},
			{"topic_particle", Words("topic particle", "topic marker", "contrast particle")},
			ruleAuxiliary, ruleProperNoun,
			{"particle", Words("adverbial particle", "locative particle", "dative particle", "instrumental particle", "genitive particle", "possessive particle", "comitative particle")},
			{"verb_ending", Words("verb ending", "ending", "connective ending", "sentence ending", "final ending", "suffix", "conjugation", "honorific ending", "eomi")},
			{"copula", Words("copula", "ida", "positive copula")},
			{"adjective", Words("descriptive verb", "stative verb", "adjective", "hyeongyongsa")},
			{"counter", Words("counter", "classifier", "counting unit", "unit noun")},
			{"determiner", Words("determiner", "prenoun", "adnominal", "gwanhyeongsa")},
			ruleNoun, ruleVerb, ruleAdjective, ruleAdverb, ruleNumeral, rulePronoun, ruleConj,
			{"particle", Words("particle", "marker", "josa")},
			ruleInterj,
		},
		PromptHints: []string{
			"Split particles from the nouns they attach to: 학교에 is 학교 (noun) + 에 (particle).",
			"Keep a verb stem and its ending together unless the ending is a separate connective word.",
			"Write every \"word\" in Hangul. Never give a romanization as the word.",
		},
	}
}
