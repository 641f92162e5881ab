package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/placefinder/internal/models"
)

// Tier scores, checked in order. A category scores the first tier that hits.
const (
	ScoreHigh    = 1.0
	ScoreMedium  = 0.7
	ScoreContext = 0.3
)

// KeywordTiers holds the three keyword tiers of one category
type KeywordTiers struct {
	Category models.Category `yaml:"category"`
	High     []string        `yaml:"high"`
	Medium   []string        `yaml:"medium"`
	Context  []string        `yaml:"context"`
}

// KeywordTable is the ordered category -> tiers mapping. Order breaks score ties.
type KeywordTable struct {
	Categories []KeywordTiers `yaml:"categories"`
}

// DefaultKeywordTable returns the built-in tiers
func DefaultKeywordTable() *KeywordTable {
	return &KeywordTable{
		Categories: []KeywordTiers{
			{
				Category: models.CategoryHospital,
				High:     []string{"병원", "의원", "치과", "한의원"},
				Medium:   []string{"진료", "진찰", "의료", "검진"},
				Context:  []string{"아파서", "아픈데", "아프다", "치료", "진단", "가까운"},
			},
			{
				Category: models.CategoryRestaurant,
				High:     []string{"음식점", "식당", "레스토랑", "맛집"},
				Medium:   []string{"밥집", "식사"},
				Context:  []string{"배고파", "먹을", "먹고", "식사", "가까운"},
			},
			{
				Category: models.CategoryCafe,
				High:     []string{"카페", "커피숍", "커피집"},
				Medium:   []string{"커피", "디저트", "베이커리"},
				Context:  []string{"마시고", "달달한", "차", "가까운"},
			},
			{
				Category: models.CategoryPharmacy,
				High:     []string{"약국", "약방", "드럭스토어"},
				Medium:   []string{"약", "처방", "조제"},
				Context:  []string{"약이", "약을", "처방전", "가까운"},
			},
		},
	}
}

// LoadKeywordTable reads a YAML keyword table. Every entry must name an enumerated category
// and no category may appear twice.
func LoadKeywordTable(path string) (*KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file %s: %w", path, err)
	}

	var table KeywordTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse keywords file %s: %w", path, err)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid keywords file %s: %w", path, err)
	}
	return &table, nil
}

// Validate checks categories are known and unique
func (t *KeywordTable) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("no categories defined")
	}
	seen := make(map[models.Category]bool, len(t.Categories))
	for _, tiers := range t.Categories {
		if !tiers.Category.IsKnown() {
			return fmt.Errorf("unknown category %q", tiers.Category)
		}
		if seen[tiers.Category] {
			return fmt.Errorf("duplicate category %q", tiers.Category)
		}
		seen[tiers.Category] = true
	}
	return nil
}

// Categorize scores every category against the query by substring containment and returns
// the strictly highest one. Ties keep the earliest category. No hit gives CategoryNone with score 0.
func (t *KeywordTable) Categorize(query string) models.CategoryMatch {
	best := models.CategoryMatch{Category: models.CategoryNone}

	for _, tiers := range t.Categories {
		score, term := tiers.score(query)
		if score > best.Score {
			best = models.CategoryMatch{
				Category:    tiers.Category,
				Score:       score,
				MatchedTerm: term,
			}
		}
	}
	return best
}

func (k KeywordTiers) score(query string) (float64, string) {
	if term, ok := firstContained(query, k.High); ok {
		return ScoreHigh, term
	}
	if term, ok := firstContained(query, k.Medium); ok {
		return ScoreMedium, term
	}
	if term, ok := firstContained(query, k.Context); ok {
		return ScoreContext, term
	}
	return 0, ""
}
