package intent

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/models"
)

// DirectionTriggers mark a directions request. The first trigger present, in list order, splits the query.
var DirectionTriggers = []string{"어떻게 가", "가는 길", "가는 방법", "찾아가", "가는길", "까지 가는"}

// FillerPhrases are stripped from the destination prefix of a directions query
var FillerPhrases = []string{"알려줘", "가르쳐줘", "좀 알려", "좀 가르쳐"}

// SearchWords mark a facility search when a category also hits
var SearchWords = []string{"어디", "있", "알려줘", "찾아줘", "검색"}

const locationPrefix = "위치("

// Classifier routes a query to directions, facility search or unknown
type Classifier struct {
	keywords *KeywordTable
	minScore float64
	logger   arbor.ILogger
}

// NewClassifier creates a classifier over the given keyword table. A nil table uses the defaults.
// Category matches scoring below minScore are treated as no match.
func NewClassifier(keywords *KeywordTable, minScore float64, logger arbor.ILogger) *Classifier {
	if keywords == nil {
		keywords = DefaultKeywordTable()
	}
	return &Classifier{
		keywords: keywords,
		minScore: minScore,
		logger:   logger,
	}
}

// Categorize exposes the raw category score for a query
func (c *Classifier) Categorize(query string) models.CategoryMatch {
	return c.keywords.Categorize(query)
}

// Classify runs the three stages in order: directions triggers, then search words with a
// category hit, then unknown. A "위치(...)" prefix is split off before classification.
func (c *Classifier) Classify(query string) *models.QueryIntent {
	location, text := SplitLocationPrefix(query)

	intent := &models.QueryIntent{
		Kind:     models.IntentUnknown,
		Location: location,
		Query:    text,
	}
	if strings.Contains(text, models.ModifierNearest) {
		intent.Modifiers = append(intent.Modifiers, models.ModifierNearest)
	}

	if target, ok := ExtractTarget(text); ok {
		intent.Kind = models.IntentDirections
		intent.TargetName = target
		c.logger.Debug().Str("query", text).Str("target", target).Msg("Classified as directions")
		return intent
	}

	match := c.keywords.Categorize(text)
	hasCategory := match.Category != models.CategoryNone && match.Score >= c.minScore
	if hasCategory {
		category := match.Category
		intent.Category = &category
	}

	if _, ok := firstContained(text, SearchWords); ok && hasCategory {
		intent.Kind = models.IntentFacilitySearch
	}

	c.logger.Debug().
		Str("query", text).
		Str("kind", string(intent.Kind)).
		Str("category", match.Category.String()).
		Float64("score", match.Score).
		Msg("Query classified")

	return intent
}

// ExtractTarget finds the first direction trigger and returns the trimmed text before it,
// with the first present filler phrase cut off. The target may be empty.
func ExtractTarget(query string) (string, bool) {
	trigger, ok := firstContained(query, DirectionTriggers)
	if !ok {
		return "", false
	}

	target := strings.TrimSpace(strings.SplitN(query, trigger, 2)[0])
	if filler, ok := firstContained(target, FillerPhrases); ok {
		target = strings.TrimSpace(strings.SplitN(target, filler, 2)[0])
	}
	return target, true
}

// SplitLocationPrefix separates a leading "위치(<location>)" from the rest of the query.
// Queries without a well-formed prefix are returned unchanged with an empty location.
func SplitLocationPrefix(query string) (string, string) {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(trimmed, locationPrefix) {
		return "", trimmed
	}

	end := strings.Index(trimmed, ")")
	if end < 0 {
		return "", trimmed
	}

	location := strings.TrimSpace(trimmed[len(locationPrefix):end])
	rest := strings.TrimSpace(trimmed[end+1:])
	return location, rest
}

func firstContained(text string, terms []string) (string, bool) {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}
