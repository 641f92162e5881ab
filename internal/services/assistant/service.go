package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
	"github.com/ternarybob/placefinder/internal/services/intent"
	"github.com/ternarybob/placefinder/internal/services/llm"
	"github.com/ternarybob/placefinder/internal/services/maps"
	"github.com/ternarybob/placefinder/internal/services/resolver"
)

var (
	// ErrEmptyQuery is returned for blank queries
	ErrEmptyQuery = errors.New("empty query")

	// ErrUnsupportedCategory is returned when no category keyword matched
	ErrUnsupportedCategory = errors.New("unsupported category")

	// ErrLowConfidence is returned when the category score is under the threshold
	ErrLowConfidence = errors.New("low confidence")

	// ErrNoCandidates is returned when retrieval found nothing
	ErrNoCandidates = errors.New("no candidates")
)

// Error carries a user-facing message alongside one of the sentinel errors
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func userError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Service routes classified queries to the directions, facility search and location lookup flows
type Service struct {
	classifier *intent.Classifier
	resolver   *resolver.Resolver
	retrieval  interfaces.RetrievalService
	maps       interfaces.MapsService
	summarizer interfaces.Summarizer
	search     *common.SearchConfig
	naver      *common.NaverConfig
	logger     arbor.ILogger
}

// NewService creates a new assistant service
func NewService(
	classifier *intent.Classifier,
	resolver *resolver.Resolver,
	retrieval interfaces.RetrievalService,
	mapsService interfaces.MapsService,
	summarizer interfaces.Summarizer,
	search *common.SearchConfig,
	naver *common.NaverConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		classifier: classifier,
		resolver:   resolver,
		retrieval:  retrieval,
		maps:       mapsService,
		summarizer: summarizer,
		search:     search,
		naver:      naver,
		logger:     logger,
	}
}

// Classify exposes the intent classification of a query
func (s *Service) Classify(query string) *models.QueryIntent {
	return s.classifier.Classify(query)
}

// Categorize exposes the raw category match of a query
func (s *Service) Categorize(query string) models.CategoryMatch {
	return s.classifier.Categorize(query)
}

// Handle classifies a query and runs the matching flow. userLocation labels the origin
// in generated answers; it falls back to a "위치(...)" prefix and then the configured origin.
func (s *Service) Handle(ctx context.Context, query, userLocation string) (*models.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, userError(ErrEmptyQuery, "검색어를 입력해주세요.")
	}

	qi := s.classifier.Classify(query)
	origin := s.originLabel(userLocation, qi)

	s.logger.Info().
		Str("query", query).
		Str("kind", string(qi.Kind)).
		Str("target", qi.TargetName).
		Str("origin", origin).
		Msg("Handling assistant query")

	switch qi.Kind {
	case models.IntentDirections:
		return s.Directions(ctx, qi.TargetName, origin)
	case models.IntentFacilitySearch:
		return s.FacilitySearch(ctx, qi, origin)
	default:
		return s.LocationLookup(ctx, qi)
	}
}

// StrictSearch runs the facility flow only when the category is unambiguous
func (s *Service) StrictSearch(ctx context.Context, query string) (*models.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, userError(ErrEmptyQuery, "검색어를 입력해주세요.")
	}

	match := s.classifier.Categorize(query)
	if match.Category == models.CategoryNone {
		return nil, userError(ErrUnsupportedCategory, "검색 결과를 찾을 수 없습니다. 병원, 음식점, 카페, 약국 중 하나를 선택해 주세요.")
	}
	if match.Score < s.search.MinCategoryScore {
		return nil, userError(ErrLowConfidence, "시설 유형을 정확히 파악할 수 없습니다. 더 구체적으로 말씀해 주세요.")
	}

	s.logger.Info().
		Str("category", match.Category.String()).
		Float64("score", match.Score).
		Str("keyword", match.MatchedTerm).
		Msg("Strict facility search")

	results := s.retrieval.Search(ctx, query, match.Category, s.search.FacilityTopK)
	if len(results) == 0 {
		return nil, userError(ErrNoCandidates, "주변에서 %s을(를) 찾을 수 없습니다.", match.Category)
	}

	text := s.describePlaces(ctx, s.naver.StartName, match.Category, results)
	return &models.Answer{
		Type:         models.AnswerPlaces,
		Response:     text,
		ResponseHTML: llm.RenderHTML(text),
		Places:       results,
	}, nil
}

// FacilitySearch retrieves the closest catalog matches for a classified facility query
func (s *Service) FacilitySearch(ctx context.Context, qi *models.QueryIntent, origin string) (*models.Answer, error) {
	if qi.Category == nil {
		return chat(fmt.Sprintf("죄송합니다. '%s'에서 시설 유형을 찾을 수 없습니다.", qi.Query)), nil
	}
	category := *qi.Category

	results := s.retrieval.Search(ctx, qi.Query, category, s.search.FacilityTopK)
	if len(results) == 0 {
		return chat(fmt.Sprintf("죄송합니다. 주변에서 %s을(를) 찾을 수 없습니다.", category)), nil
	}

	text := s.describePlaces(ctx, origin, category, results)
	answer := &models.Answer{
		Type:         models.AnswerChat,
		Response:     text,
		ResponseHTML: llm.RenderHTML(text),
		Places:       results,
	}
	if qi.HasModifier(models.ModifierNearest) {
		answer.DistanceConstraint = models.ModifierNearest
	}
	return answer, nil
}

// Directions resolves a spoken destination against the catalog and routes to it from the configured origin
func (s *Service) Directions(ctx context.Context, target, origin string) (*models.Answer, error) {
	if target == "" {
		return chat("어디로 가는 길을 알려드릴까요? 목적지 이름을 말씀해 주세요."), nil
	}

	category, ok := models.ParseCategory(s.search.DirectionsCategory)
	if !ok {
		category = models.CategoryHospital
	}

	results := s.retrieval.Search(ctx, target, category, s.search.DirectionsTopK)
	if len(results) == 0 {
		return chat(fmt.Sprintf("죄송합니다. '%s'의 정보를 찾을 수 없습니다.", target)), nil
	}

	candidates := make([]models.CatalogRecord, len(results))
	for i, r := range results {
		candidates[i] = r.Record
	}

	name, address := target, results[0].Record.Address
	if best, _, ok := s.resolver.Resolve(target, candidates); ok {
		name, address = best.Name, best.Address
	}

	geo, err := s.maps.Geocode(ctx, address)
	if err != nil {
		s.logger.Error().Err(err).Str("address", address).Msg("Geocode failed for directions target")
		return chat("죄송합니다. 길찾기 중 오류가 발생했습니다."), nil
	}
	dest, err := maps.FirstAddress(geo)
	if err != nil {
		return chat(fmt.Sprintf("죄송합니다. '%s'의 주소를 찾을 수 없습니다.", name)), nil
	}

	option := s.naver.RouteOption
	if option == "" {
		option = maps.DefaultRouteOption
	}
	start := models.Coordinate{X: s.naver.StartX, Y: s.naver.StartY}

	route, err := s.maps.Route(ctx, start.X+","+start.Y, dest.X+","+dest.Y, option, "")
	if err != nil {
		s.logger.Error().Err(err).Str("target", name).Msg("Route failed")
		return chat("죄송합니다. 길찾기 중 오류가 발생했습니다."), nil
	}
	path := route.Primary(option)
	if path == nil {
		s.logger.Warn().Str("option", option).Str("target", name).Msg("Route has no path for option")
		return chat("죄송합니다. 길찾기 중 오류가 발생했습니다."), nil
	}

	summary := &models.DirectionsSummary{
		Distance:        path.Summary.Distance,
		DurationMinutes: path.Summary.DurationMinutes(),
	}

	prompt := llm.DirectionsPrompt(origin, name, address, summary.Distance, summary.DurationMinutes)
	text, err := s.summarizer.Summarize(ctx, llm.DirectionsSystemPrompt, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Directions summary failed, using plain text")
		text = fmt.Sprintf("%s에서 %s까지 약 %.1fkm, 예상 소요 시간은 %d분입니다.",
			origin, name, float64(summary.Distance)/1000, summary.DurationMinutes)
	}

	return &models.Answer{
		Type:         models.AnswerDirections,
		Response:     text,
		ResponseHTML: llm.RenderHTML(text),
		Route:        route.Route,
		Summary:      summary,
		Start:        &models.RouteEndpoint{Name: origin, X: start.X, Y: start.Y},
		End: &models.RouteEndpoint{
			Name:    name,
			Address: address,
			X:       dest.X,
			Y:       dest.Y,
		},
	}, nil
}

// LocationLookup geocodes the query. An explicit location prefix is tried first, then the query text.
// When a category was detected, a short background note about it is added.
func (s *Service) LocationLookup(ctx context.Context, qi *models.QueryIntent) (*models.Answer, error) {
	lookups := []string{qi.Query}
	if qi.Location != "" {
		lookups = []string{qi.Location, qi.Query}
	}

	var geo *models.GeocodeResult
	for _, text := range lookups {
		if text == "" {
			continue
		}
		result, err := s.maps.Geocode(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", text, err)
		}
		geo = result
		if len(geo.Addresses) > 0 {
			break
		}
	}

	if geo == nil || len(geo.Addresses) == 0 {
		return &models.Answer{
			Type: models.AnswerLocation,
			LocationAnswer: &models.LocationAnswer{
				Status:        "ZERO_RESULTS",
				OriginalQuery: qi.Query,
				Addresses:     []models.GeocodeAddress{},
			},
		}, nil
	}

	location := &models.LocationAnswer{
		Status:        geo.Status,
		OriginalQuery: qi.Query,
		Addresses:     geo.Addresses,
		Analysis:      qi,
	}

	if qi.Category != nil {
		first := geo.Addresses[0]
		place := first.RoadAddress
		if place == "" {
			place = first.JibunAddress
		}
		info, err := s.summarizer.Summarize(ctx, llm.EnhanceSystemPrompt, llm.EnhancePrompt(place, qi.Category.String()))
		if err != nil {
			s.logger.Warn().Err(err).Msg("Location enrichment failed, returning plain geocode result")
		} else {
			location.AdditionalInfo = info
		}
	}

	return &models.Answer{Type: models.AnswerLocation, LocationAnswer: location}, nil
}

func (s *Service) describePlaces(ctx context.Context, origin string, category models.Category, results []models.RetrievalResult) string {
	records := make([]models.CatalogRecord, len(results))
	for i, r := range results {
		records[i] = r.Record
	}

	prompt, err := llm.FacilityPrompt(origin, category.String(), records)
	if err == nil {
		text, sumErr := s.summarizer.Summarize(ctx, llm.FacilitySystemPrompt, prompt)
		if sumErr == nil {
			return text
		}
		err = sumErr
	}

	s.logger.Warn().Err(err).Msg("Facility summary failed, using plain list")

	var b strings.Builder
	fmt.Fprintf(&b, "%s 주변의 %s입니다.\n", origin, category)
	for _, r := range results {
		fmt.Fprintf(&b, "%d. %s (%s)\n", r.Rank, r.Record.Name, r.Record.Address)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Service) originLabel(userLocation string, qi *models.QueryIntent) string {
	if label := strings.TrimSpace(userLocation); label != "" {
		return label
	}
	if qi.Location != "" {
		return qi.Location
	}
	return s.naver.StartName
}

func chat(text string) *models.Answer {
	return &models.Answer{
		Type:         models.AnswerChat,
		Response:     text,
		ResponseHTML: llm.RenderHTML(text),
	}
}
