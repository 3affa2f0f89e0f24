package coverage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		keywords []string
		score    float64
		missing  []string
	}{
		{"all present", "Совет одобрил парк у реки", []string{"совет", "парк"}, 1, nil},
		{"case insensitive", "ГОРОДСКОЙ СОВЕТ одобрил", []string{"городской совет"}, 1, nil},
		{"trimmed keyword", "Park approved", []string{"  park "}, 1, nil},
		{"none present", "Weather today", []string{"park", "river"}, 0, []string{"park", "river"}},
		{"partial keeps order", "River park", []string{"council", "park", "mayor"}, 1.0 / 3, []string{"council", "mayor"}},
		{"no stemming", "Совет одобрил проект", []string{"река"}, 0, []string{"река"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Score(tt.title, tt.keywords)
			require.NoError(t, err)
			assert.InDelta(t, tt.score, res.Score, 1e-9)
			assert.Equal(t, tt.missing, res.Missing)
			assert.Equal(t, len(tt.missing) == 0, res.Covered())
		})
	}
}

func TestScoreRejectsEmptyKeywords(t *testing.T) {
	_, err := Score("anything", nil)
	assert.ErrorIs(t, err, ErrNoKeywords)

	_, err = Score("anything", []string{})
	assert.ErrorIs(t, err, ErrNoKeywords)
}

func TestScoreInvariant(t *testing.T) {
	keywords := []string{"совет", "парк", "река", "бюджет"}
	res, err := Score("Совет утвердил бюджет", keywords)
	require.NoError(t, err)

	n := float64(len(keywords))
	assert.InDelta(t, (n-float64(len(res.Missing)))/n, res.Score, 1e-9)
}

func TestScoreMonotonic(t *testing.T) {
	title := "Совет одобрил парк"
	base := []string{"совет", "река"}

	before, err := Score(title, base)
	require.NoError(t, err)

	withPresent, err := Score(title, append(append([]string{}, base...), "парк"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, withPresent.Score, before.Score)

	withoutMissing, err := Score(title, []string{"совет"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, withoutMissing.Score, before.Score)
}

func TestRepairIdentity(t *testing.T) {
	for _, title := range []string{"Совет одобрил проект", "", "Title.  "} {
		assert.Equal(t, title, Repair(title, nil))
		assert.Equal(t, title, Repair(title, []string{}))
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		missing []string
		want    string
	}{
		{"appends clause", "Совет одобрил проект", []string{"парк", "река"}, "Совет одобрил проект: парк, река"},
		{"keeps final period", "Council approves plan.  ", []string{"park"}, "Council approves plan. park"},
		{"keeps question mark", "Новый парк?", []string{"река"}, "Новый парк? река"},
		{"empty title", "  ", []string{"park", "river"}, "park, river"},
		{"blank keywords ignored", "Plan", []string{" ", "park "}, "Plan: park"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repair(tt.title, tt.missing))
		})
	}
}

func TestRepairIsDeterministic(t *testing.T) {
	missing := []string{"парк", "река"}
	assert.Equal(t, Repair("Совет одобрил проект", missing), Repair("Совет одобрил проект", missing))
}

func TestRepairThenScoreIsComplete(t *testing.T) {
	titles := []string{"Совет одобрил проект", "", "Weather.", "ПАРК закрыт"}
	keywords := []string{"городской совет", "парк", "река"}
	for _, title := range titles {
		res, err := Score(title, keywords)
		require.NoError(t, err)

		repaired := Repair(title, res.Missing)
		after, err := Score(repaired, keywords)
		require.NoError(t, err)
		assert.Equal(t, 1.0, after.Score, "title %q repaired to %q", title, repaired)
	}
}

func TestRepairKeepsKeywordEndingInPeriod(t *testing.T) {
	keywords := []string{"D.C.", "summit"}
	title := "Leaders meet in D.C."

	res, err := Score(title, keywords)
	require.NoError(t, err)
	assert.Equal(t, []string{"summit"}, res.Missing)

	repaired := Repair(title, res.Missing)
	assert.Equal(t, "Leaders meet in D.C. summit", repaired)

	after, err := Score(repaired, keywords)
	require.NoError(t, err)
	assert.Equal(t, 1.0, after.Score)
}

func TestParkScenario(t *testing.T) {
	keywords := []string{"совет", "парк", "река"}
	title := "Совет одобрил проект"

	res, err := Score(title, keywords)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, res.Score, 1e-9)
	assert.Equal(t, []string{"парк", "река"}, res.Missing)
	assert.Less(t, res.Score, 0.8)

	final := Repair(title, res.Missing)
	for _, kw := range keywords {
		assert.Contains(t, strings.ToLower(final), kw)
	}
}
