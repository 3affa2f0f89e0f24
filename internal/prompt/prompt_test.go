package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var kws = []string{"городской совет", "парк", "река"}

func TestArticleRussian(t *testing.T) {
	p := Article("Городской совет одобрил новый парк у реки", kws, "ru")

	assert.Contains(t, p, "на русском языке")
	assert.Contains(t, p, "Городской совет одобрил новый парк у реки.")
	assert.Contains(t, p, "городской совет, парк, река")
	assert.Contains(t, p, "нейтральный")
	assert.Contains(t, p, "без комментариев и мнений")
}

func TestArticleEnglishFallback(t *testing.T) {
	for _, lang := range []string{"en", "", "de", "EN-us"} {
		p := Article("The council approved a park!", []string{"council", "park"}, lang)
		assert.Contains(t, p, "Write a news article", lang)
		assert.Contains(t, p, "The council approved a park!\n", lang)
		assert.Contains(t, p, "council, park", lang)
	}
}

func TestArticleLanguageVariants(t *testing.T) {
	assert.Equal(t, Article("x", kws, "ru"), Article("x", kws, "ru-RU"))
	assert.Equal(t, Article("x", kws, "ru"), Article("x", kws, " RU "))
}

func TestTitle(t *testing.T) {
	ru := Title(kws, "ru")
	assert.Contains(t, ru, "заголовок")
	assert.Contains(t, ru, "городской совет, парк, река")

	en := Title([]string{"park"}, "fr")
	assert.Contains(t, en, "headline")
	assert.Contains(t, en, "keywords: park.")
}

func TestPromptsAreDeterministic(t *testing.T) {
	assert.Equal(t, Article("событие", kws, "ru"), Article("событие", kws, "ru"))
	assert.Equal(t, Title(kws, "en"), Title(kws, "en"))
}

func TestSentence(t *testing.T) {
	assert.Equal(t, "Event.", sentence("  Event "))
	assert.Equal(t, "Event?", sentence("Event?"))
	assert.Equal(t, "Событие…", sentence("Событие…"))
	assert.Equal(t, "", sentence(""))
}
