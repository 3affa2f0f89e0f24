// Package prompt builds the instruction prompts for the article and title
// generation stages.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const articleRU = `Напиши новостную статью на русском языке на основе следующего события: %s
Обязательно включи в текст ключевые слова: %s.
Стиль новостной, нейтральный и связный, без комментариев и мнений.`

const articleEN = `Write a news article in English based on the following event: %s
Be sure to include these keywords in the text: %s.
The style is news-like, neutral and coherent, without commentary or opinion.`

const titleRU = `Составь короткий новостной заголовок к статье ниже.
Заголовок обязательно должен содержать ключевые слова: %s.
Пиши нейтрально, без оценок. Верни только заголовок.`

const titleEN = `Write a short news headline for the article below.
The headline must contain these keywords: %s.
Keep it neutral, without opinion. Return only the headline.`

// Article returns the prompt for the article generation stage.
func Article(event string, keywords []string, lang string) string {
	tmpl := articleEN
	if isRussian(lang) {
		tmpl = articleRU
	}
	return fmt.Sprintf(tmpl, sentence(event), strings.Join(keywords, ", "))
}

// Title returns the instruction handed to the summarizer along with the article.
func Title(keywords []string, lang string) string {
	tmpl := titleEN
	if isRussian(lang) {
		tmpl = titleRU
	}
	return fmt.Sprintf(tmpl, strings.Join(keywords, ", "))
}

func isRussian(lang string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(lang)), "ru")
}

// sentence trims the event and makes sure it ends with terminal punctuation.
func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if r, _ := utf8.DecodeLastRuneInString(s); strings.ContainsRune(".!?…", r) {
		return s
	}
	return s + "."
}
