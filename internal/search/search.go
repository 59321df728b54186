package search

import (
	"strings"
	"unicode/utf8"
)

// Answers returned by InText
const (
	AnswerFound    = "以下の関連する可能性のある記述が見つかりました。"
	AnswerNotFound = "明確な回答や根拠は見つかりませんでした。"
)

// Result of a question over a transcript
type Result struct {
	Answer   string
	Evidence string
	Found    bool
}

// InText returns the first sentence of text that shares enough words with question.
//
// Sentences end with '.' or '。'. Question words are split by spaces, one letter words are skipped.
// A sentence matches when it contains more than half of the words, at least two of
// more than two words, or at least one of one or two words. Matching ignores case.
func InText(text, question string) *Result {
	words := questionWords(question)
	if len(words) == 0 {
		return notFound()
	}
	for _, s := range sentences(text) {
		if !matches(strings.ToLower(s), words) {
			continue
		}
		evidence := strings.TrimSpace(s)
		if strings.Contains(text, evidence+"。") {
			evidence += "。"
		}
		return &Result{Answer: AnswerFound, Evidence: evidence, Found: true}
	}
	return notFound()
}

func notFound() *Result {
	return &Result{Answer: AnswerNotFound}
}

func questionWords(question string) []string {
	var res []string
	for _, w := range strings.Fields(strings.ToLower(question)) {
		if utf8.RuneCountInString(w) > 1 {
			res = append(res, w)
		}
	}
	return res
}

func sentences(text string) []string {
	var res []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '。' }) {
		if strings.TrimSpace(s) != "" {
			res = append(res, s)
		}
	}
	return res
}

func matches(sentence string, words []string) bool {
	c := 0
	for _, w := range words {
		if strings.Contains(sentence, w) {
			c++
		}
	}
	n := len(words)
	return c*2 > n || (n > 2 && c >= 2) || (n <= 2 && c >= 1)
}
