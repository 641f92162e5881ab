package resolver

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/models"
)

const (
	// Weights of the whole-name and per-token ratio signals
	ratioWeight = 0.3
	// SubstringBonus is the composite score when the target is contained in a candidate name
	SubstringBonus = 0.9
	// DefaultMinScore is the acceptance threshold for the best composite score
	DefaultMinScore = 0.2
)

// Match is the scoring detail for one candidate
type Match struct {
	Record     models.CatalogRecord
	FullRatio  float64
	TokenRatio float64
	Contains   bool
	Score      float64
}

// Resolver maps a spoken place name to the closest catalog record among retrieved candidates
type Resolver struct {
	minScore float64
	logger   arbor.ILogger
}

// NewResolver creates a resolver accepting composite scores >= minScore
func NewResolver(minScore float64, logger arbor.ILogger) *Resolver {
	return &Resolver{
		minScore: minScore,
		logger:   logger,
	}
}

// Resolve scores every candidate and returns the best one when its score clears the threshold.
// The first candidate wins ties. The best score is returned even when it is rejected.
func (r *Resolver) Resolve(target string, candidates []models.CatalogRecord) (*models.CatalogRecord, float64, bool) {
	var best *models.CatalogRecord
	highest := 0.0

	for i := range candidates {
		m := Score(target, candidates[i])

		r.logger.Debug().
			Str("target", target).
			Str("candidate", m.Record.Name).
			Float64("full_ratio", m.FullRatio).
			Float64("token_ratio", m.TokenRatio).
			Bool("contains", m.Contains).
			Float64("score", m.Score).
			Msg("Candidate scored")

		if m.Score > highest {
			highest = m.Score
			best = &candidates[i]
		}
	}

	if best == nil || highest < r.minScore {
		r.logger.Info().
			Str("target", target).
			Int("candidates", len(candidates)).
			Float64("best_score", highest).
			Msg("No candidate accepted")
		return nil, highest, false
	}

	r.logger.Info().
		Str("target", target).
		Str("resolved", best.Name).
		Str("address", best.Address).
		Float64("score", highest).
		Msg("Target resolved")

	return best, highest, true
}

// Score computes the composite score of one candidate: the max of the weighted whole-name
// ratio, the weighted mean best-token ratio, and the substring bonus.
func Score(target string, candidate models.CatalogRecord) Match {
	m := Match{
		Record:     candidate,
		FullRatio:  Ratio(target, candidate.Name),
		TokenRatio: tokenRatio(target, candidate.Name),
		Contains:   strings.Contains(normalize(candidate.Name), normalize(target)),
	}

	m.Score = max(m.FullRatio*ratioWeight, m.TokenRatio*ratioWeight)
	if m.Contains {
		m.Score = max(m.Score, SubstringBonus)
	}
	return m
}

// Ratio is the sequence-matcher similarity 2*M/T over runes, in [0,1]
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(runeStrings(a), runeStrings(b)).Ratio()
}

// tokenRatio averages, over the target's whitespace tokens, the best lower-cased ratio
// against any of the name's tokens.
func tokenRatio(target, name string) float64 {
	targetTokens := strings.Fields(target)
	nameTokens := strings.Fields(name)
	if len(targetTokens) == 0 || len(nameTokens) == 0 {
		return 0
	}

	total := 0.0
	for _, tt := range targetTokens {
		tt = strings.ToLower(tt)
		bestToken := 0.0
		for _, nt := range nameTokens {
			if ratio := Ratio(tt, strings.ToLower(nt)); ratio > bestToken {
				bestToken = ratio
			}
		}
		total += bestToken
	}
	return total / float64(len(targetTokens))
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

func runeStrings(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
