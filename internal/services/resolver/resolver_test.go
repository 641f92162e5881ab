package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/models"
)

func records(names ...string) []models.CatalogRecord {
	out := make([]models.CatalogRecord, len(names))
	for i, n := range names {
		out[i] = models.CatalogRecord{Name: n, Address: n + " 주소"}
	}
	return out
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "세브란스병원", "세브란스병원", 1.0},
		{"disjoint", "abc", "xyz", 0},
		{"shifted", "abcd", "bcde", 0.75},
		{"korean partial", "서울대학교병원", "서울대학병원", 12.0 / 13.0},
		{"both empty", "", "", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestResolve_ExactNameGetsSubstringBonus(t *testing.T) {
	r := NewResolver(DefaultMinScore, arbor.NewLogger())

	best, score, ok := r.Resolve("세브란스병원", records("연세이비인후과", "세브란스병원", "서울내과"))
	require.True(t, ok)
	require.NotNil(t, best)
	assert.Equal(t, "세브란스병원", best.Name)
	assert.Equal(t, "세브란스병원 주소", best.Address)
	assert.InDelta(t, 0.9, score, 1e-9)
}

func TestResolve_SubstringIgnoresSpacesAndCase(t *testing.T) {
	m := Score("Seoul Clinic", models.CatalogRecord{Name: "seoulclinic 강남점"})
	assert.True(t, m.Contains)
	assert.InDelta(t, 0.9, m.Score, 1e-9)
}

func TestResolve_FirstCandidateWinsTies(t *testing.T) {
	r := NewResolver(DefaultMinScore, arbor.NewLogger())

	best, score, ok := r.Resolve("세브란스병원", records("강남세브란스병원", "세브란스병원"))
	require.True(t, ok)
	assert.Equal(t, "강남세브란스병원", best.Name)
	assert.InDelta(t, 0.9, score, 1e-9)
}

func TestResolve_AcceptsByRatio(t *testing.T) {
	r := NewResolver(DefaultMinScore, arbor.NewLogger())

	best, score, ok := r.Resolve("서울대학교병원", records("서울대학병원"))
	require.True(t, ok)
	assert.Equal(t, "서울대학병원", best.Name)
	assert.InDelta(t, 0.3*12.0/13.0, score, 1e-9)
}

func TestResolve_RejectsBelowThreshold(t *testing.T) {
	r := NewResolver(DefaultMinScore, arbor.NewLogger())

	// whole-name ratio 0.6 and token ratio 0.5 both fall under the threshold once weighted
	best, score, ok := r.Resolve("서울 병원", records("서울 내과"))
	assert.False(t, ok)
	assert.Nil(t, best)
	assert.InDelta(t, 0.18, score, 1e-9)
}

func TestResolve_NoCandidates(t *testing.T) {
	r := NewResolver(DefaultMinScore, arbor.NewLogger())

	best, score, ok := r.Resolve("세브란스병원", nil)
	assert.False(t, ok)
	assert.Nil(t, best)
	assert.Zero(t, score)
}

func TestScore_TokenRatio(t *testing.T) {
	m := Score("서울 병원", models.CatalogRecord{Name: "서울 내과"})
	assert.False(t, m.Contains)
	assert.InDelta(t, 0.6, m.FullRatio, 1e-9)
	assert.InDelta(t, 0.5, m.TokenRatio, 1e-9)
	assert.InDelta(t, 0.18, m.Score, 1e-9)
}
