package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/placefinder/internal/models"
)

func TestFormatPlaces(t *testing.T) {
	out := formatPlaces("근처 약국", models.CategoryPharmacy, []models.RetrievalResult{
		{Rank: 1, Similarity: 0.8123, Record: models.CatalogRecord{Name: "온누리약국", Address: "서울 강남구 테헤란로 1", OpenHour: "09:00~21:00"}},
	})

	assert.Contains(t, out, "## 약국 results for \"근처 약국\" (1 results)")
	assert.Contains(t, out, "### 1. 온누리약국")
	assert.Contains(t, out, "**Similarity:** 0.8123")
	assert.Contains(t, out, "**Hours:** 09:00~21:00")
	assert.NotContains(t, out, "**Menu:**")
}

func TestFormatPlaces_Empty(t *testing.T) {
	assert.Contains(t, formatPlaces("x", models.CategoryCafe, nil), "No results found.")
}

func TestFormatDirections(t *testing.T) {
	answer := &models.Answer{
		Type:     models.AnswerDirections,
		Response: "약 7분 걸립니다.",
		Summary:  &models.DirectionsSummary{Distance: 2345, DurationMinutes: 7},
		End:      &models.RouteEndpoint{Name: "강남세브란스병원", Address: "서울 강남구 언주로 211"},
	}

	out := formatDirections(answer)
	assert.Contains(t, out, "## Directions to 강남세브란스병원")
	assert.Contains(t, out, "**Distance:** 2.3 km")
	assert.Contains(t, out, "**Duration:** 7 min")

	chat := &models.Answer{Type: models.AnswerChat, Response: "주소를 찾을 수 없습니다"}
	assert.Equal(t, "주소를 찾을 수 없습니다", formatDirections(chat))
}
