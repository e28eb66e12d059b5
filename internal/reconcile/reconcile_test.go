package reconcile

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/rebuttal/internal/models"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		reviews   []string
		responses []string
		missing   []string
		extra     []string
		matched   []string
	}{
		{
			name:      "one missing",
			reviews:   []string{"a", "b", "c"},
			responses: []string{"a", "c"},
			missing:   []string{"b"},
			extra:     []string{},
			matched:   []string{"a", "c"},
		},
		{
			name:      "no reviews with extra response",
			reviews:   []string{},
			responses: []string{"x"},
			missing:   []string{},
			extra:     []string{"x"},
			matched:   []string{},
		},
		{
			name:      "nil inputs",
			reviews:   nil,
			responses: nil,
			missing:   []string{},
			extra:     []string{},
			matched:   []string{},
		},
		{
			name:      "reviews subset of responses",
			reviews:   []string{"r1.txt", "r2.txt"},
			responses: []string{"r2.txt", "r1.txt", "r3.txt"},
			missing:   []string{},
			extra:     []string{"r3.txt"},
			matched:   []string{"r1.txt", "r2.txt"},
		},
		{
			name:      "duplicates collapse",
			reviews:   []string{"a", "a", "b"},
			responses: []string{"b", "b"},
			missing:   []string{"a"},
			extra:     []string{},
			matched:   []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.reviews, tt.responses, MatchExact)
			if diff := cmp.Diff(tt.missing, got.Missing); diff != "" {
				t.Errorf("missing mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.extra, got.Extra); diff != "" {
				t.Errorf("extra mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.matched, got.Matched); diff != "" {
				t.Errorf("matched mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, len(tt.missing) == 0, got.OK())
		})
	}
}

// Missing must equal R - S for arbitrary sets.
func TestReconcile_SetDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	for i := 0; i < 200; i++ {
		var reviews, responses []string
		for _, k := range alphabet {
			if rng.Intn(2) == 0 {
				reviews = append(reviews, k)
			}
			if rng.Intn(2) == 0 {
				responses = append(responses, k)
			}
		}

		inResponses := map[string]bool{}
		for _, k := range responses {
			inResponses[k] = true
		}
		want := []string{}
		for _, k := range reviews {
			if !inResponses[k] {
				want = append(want, k)
			}
		}
		sort.Strings(want)

		got := Reconcile(reviews, responses, MatchExact)
		require.Equal(t, want, got.Missing, "reviews=%v responses=%v", reviews, responses)
		assert.Equal(t, len(reviews), len(got.Missing)+len(got.Matched))
	}
}

func TestParseMatchMode(t *testing.T) {
	m, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, m)

	m, err = ParseMatchMode("STEM")
	require.NoError(t, err)
	assert.Equal(t, MatchStem, m)

	_, err = ParseMatchMode("fuzzy")
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "review1.txt", Key("review1.txt", MatchExact))
	assert.Equal(t, "review1", Key("review1.txt", MatchStem))
	assert.Equal(t, "archive.tar", Key("archive.tar.gz", MatchStem))
	assert.Equal(t, ".hidden", Key(".hidden", MatchStem))
	assert.Equal(t, "noext", Key("noext", MatchStem))
}

func TestReconcile_StemMode(t *testing.T) {
	reviews := []string{"r1.txt", "r2.txt", "r3.html"}
	responses := []string{"r1.md", "r3.txt", "notes.txt"}

	exact := Reconcile(reviews, responses, MatchExact)
	assert.Equal(t, []string{"r1.txt", "r2.txt", "r3.html"}, exact.Missing)

	stem := Reconcile(reviews, responses, MatchStem)
	if diff := cmp.Diff([]string{"r2"}, stem.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"r1", "r3"}, stem.Matched)
	assert.Equal(t, []string{"notes"}, stem.Extra)
}

func TestPair(t *testing.T) {
	reviews := []models.Document{
		{Name: "b.txt", Text: "review b"},
		{Name: "a.txt", Text: "review a"},
		{Name: "c.txt", Text: "review c"},
	}
	responses := []models.Document{
		{Name: "a.md", Text: "response a"},
		{Name: "b.md", Text: "response b"},
		{Name: "z.md", Text: "response z"},
	}

	pairs, res := Pair(reviews, responses, MatchStem)
	require.Len(t, pairs, 2)
	assert.Equal(t, "a", pairs[0].Key)
	assert.Equal(t, "a", pairs[0].Review.Key)
	assert.Equal(t, "a.md", pairs[0].Response.Name)
	assert.Equal(t, "review a", pairs[0].Review.Text)
	assert.Equal(t, "response a", pairs[0].Response.Text)
	assert.Equal(t, "b", pairs[1].Key)
	assert.Equal(t, []string{"c"}, res.Missing)
	assert.Equal(t, []string{"z"}, res.Extra)
}

func TestPair_ExactModeKeepsExtensions(t *testing.T) {
	reviews := []models.Document{{Name: "a.txt"}, {Name: "b.txt"}}
	responses := []models.Document{{Name: "a.md"}, {Name: "b.txt"}}

	pairs, res := Pair(reviews, responses, MatchExact)
	require.Len(t, pairs, 1)
	assert.Equal(t, "b.txt", pairs[0].Key)
	assert.Equal(t, []string{"a.txt"}, res.Missing)
	assert.Equal(t, []string{"a.md"}, res.Extra)
}
