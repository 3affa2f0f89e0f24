package keywords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const russianEvent = "Городской совет одобрил новый парк у реки. Строительство парка начнётся весной, " +
	"а открыть парк для жителей планируют к осени. Депутаты городского совета выделили средства из бюджета."

const englishEvent = "The new park opens today near the river. The park has a lake and a playground. " +
	"Families from the city visit the park every weekend, and the city council plans to expand the park."

func TestExtractDeterministic(t *testing.T) {
	e := New()
	first := e.Extract(russianEvent, "ru", 6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Extract(russianEvent, "ru", 6))
	}
}

func TestExtractReturnsRequestedCount(t *testing.T) {
	e := New()
	for _, n := range []int{1, 3, 6} {
		got := e.Extract(russianEvent, "ru", n)
		assert.Len(t, got, n)
	}
}

func TestExtractUniqueKeywords(t *testing.T) {
	got := New().Extract(englishEvent, "en", 10)
	require.NotEmpty(t, got)

	seen := map[string]bool{}
	for _, kw := range got {
		key := strings.ToLower(kw)
		assert.False(t, seen[key], "duplicate keyword %q", kw)
		seen[key] = true
	}
}

func TestExtractKeywordsComeFromText(t *testing.T) {
	lower := strings.ToLower(russianEvent)
	for _, kw := range New().Extract(russianEvent, "ru", 6) {
		assert.Contains(t, lower, strings.ToLower(kw))
	}
}

func TestExtractFavorsRepeatedTerm(t *testing.T) {
	got := New().Extract(englishEvent, "en", 5)
	require.NotEmpty(t, got)

	found := false
	for _, kw := range got {
		if strings.Contains(strings.ToLower(kw), "park") {
			found = true
		}
	}
	assert.True(t, found, "no keyword mentions park: %v", got)
}

func TestExtractSkipsNumbers(t *testing.T) {
	got := New().Extract("В 2024 году 15 тысяч жителей поддержали 3 проекта благоустройства", "ru", 10)
	for _, kw := range got {
		for _, f := range strings.Fields(kw) {
			assert.False(t, isNumeric(f), "numeric token in %q", kw)
		}
	}
}

func TestExtractEmptyInputs(t *testing.T) {
	e := New()
	tests := []struct {
		name string
		text string
		lang string
	}{
		{"empty", "", "ru"},
		{"whitespace", "   \n\t", "ru"},
		{"punctuation", "... !!! ???", "en"},
		{"only stopwords", "и в на с по", "ru"},
		{"only short words", "a an of to", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, e.Extract(tt.text, tt.lang, 6))
		})
	}
}

func TestExtractZeroCount(t *testing.T) {
	assert.Empty(t, New().Extract(russianEvent, "ru", 0))
}

func TestExtractLanguageVariants(t *testing.T) {
	e := New()
	assert.Equal(t, e.Extract(russianEvent, "ru", 4), e.Extract(russianEvent, "ru-RU", 4))
	assert.Equal(t, e.Extract(englishEvent, "en", 4), e.Extract(englishEvent, "xx", 4))
}

func TestExtractFillsWithNearDuplicates(t *testing.T) {
	e := &Extractor{MaxNGram: 1, DedupLim: 0.5}
	got := e.Extract("parks parking parked", "en", 3)
	assert.Len(t, got, 3)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("парк", "парк"))
	assert.Equal(t, 0.0, similarity("abc", "xyz"))
	assert.InDelta(t, 0.8, similarity("парка", "парки"), 1e-9)
	assert.Equal(t, 1.0, similarity("", ""))
}

func TestStopwordsFallBackToEnglish(t *testing.T) {
	_, ok := stopwordsFor("zz")["the"]
	assert.True(t, ok)
	_, ok = stopwordsFor("ru")["и"]
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"en", "ru"}, Languages())
}
