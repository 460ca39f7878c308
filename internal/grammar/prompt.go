package grammar

import (
	"fmt"
	"strings"
)

const responseShape = `{"batch_results":[{"sentence_index":1,"sentence":"...","words":[{"word":"...","individual_meaning":"...","grammatical_role":"..."}],"word_combinations":[{"text":"...","combined_meaning":"...","grammatical_role":"..."}]}]}`

// BuildBatchPrompt implements [Analyzer].
func (a *RuleAnalyzer) BuildBatchPrompt(req PromptRequest) (string, error) {
	if n := len(req.Sentences); n == 0 || n > MaxBatchSentences {
		return "", fmt.Errorf("grammar: build prompt: %w (got %d)", ErrBatchSize, n)
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "the target language"
	}
	native := strings.TrimSpace(req.NativeLanguage)
	if native == "" {
		native = "English"
	}
	level := req.Complexity
	if !level.IsValid() {
		level = ComplexityIntermediate
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a grammar tutor. Analyse each %s sentence below word by word for a %s learner whose native language is %s.\n", lang, level, native)
	if t := strings.TrimSpace(req.TargetWord); t != "" {
		fmt.Fprintf(&b, "The sentences were chosen to practise the word %q.\n", t)
	}
	b.WriteString(levelGuidance(level))

	b.WriteString("\nFor every word, in reading order, give:\n")
	b.WriteString("- \"word\": the word exactly as written in the sentence\n")
	fmt.Fprintf(&b, "- \"individual_meaning\": a short gloss in %s\n", native)
	b.WriteString("- \"grammatical_role\": exactly one key from the list below\n")
	b.WriteString("List idioms and multi-word expressions separately under \"word_combinations\" with \"text\", \"combined_meaning\" and \"grammatical_role\". Do not merge them into \"words\".\n")

	b.WriteString("\nGrammatical roles:\n")
	for _, c := range a.categories {
		fmt.Fprintf(&b, "- %s: %s", c.Key, c.Label)
		if c.Description != "" {
			fmt.Fprintf(&b, " (%s)", c.Description)
		}
		b.WriteByte('\n')
	}

	if len(a.hints) > 0 {
		b.WriteString("\nNotes:\n")
		for _, h := range a.hints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	b.WriteString("\nSentences:\n")
	for i, s := range req.Sentences {
		fmt.Fprintf(&b, "%d. %s\n", i+1, oneLine(s))
	}

	fmt.Fprintf(&b, "\nReturn one entry per sentence, with sentence_index starting at 1, in exactly this JSON shape:\n%s\n", responseShape)
	b.WriteString("Respond with the JSON object only. No markdown, no commentary.")
	return b.String(), nil
}

func levelGuidance(level Complexity) string {
	switch level {
	case ComplexityBeginner:
		return "Keep glosses to one or two simple words.\n"
	case ComplexityAdvanced:
		return "Where it matters, mention case, tense, aspect or register in the gloss.\n"
	default:
		return "Keep glosses short but precise.\n"
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
