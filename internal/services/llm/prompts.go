package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// System prompts for the three answer kinds
const (
	FacilitySystemPrompt   = "당신은 친근한 말투로 주변 시설을 추천해주는 도우미입니다."
	DirectionsSystemPrompt = "당신은 친근한 말투로 길 안내를 해주는 도우미입니다."
	EnhanceSystemPrompt    = "당신은 위치 기반 정보 제공 전문가입니다.\n" +
		"특정 위치와 장소 유형에 관해 사용자가 알면 도움이 될 간략한 정보를 제공하세요.\n" +
		"답변은 3-5줄 내외로 짧고 유용하게 작성하세요."
)

// FacilityPrompt asks for a conversational description of retrieved places around origin.
// results is marshalled as indented JSON with non-ASCII kept readable.
func FacilityPrompt(origin, category string, results interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s 주변의 %s 검색 결과입니다:\n", origin, category)
	b.WriteString(strings.TrimRight(buf.String(), "\n"))
	b.WriteString("\n\n이 정보를 자연스러운 한국어로 설명해주세요. ")
	b.WriteString("각 시설의 이름, 위치(지하철역 기준), 영업시간, 특징적인 정보를 포함해주세요.\n")
	b.WriteString("응답은 친근하고 대화체로 작성해주세요.")
	return b.String(), nil
}

// DirectionsPrompt asks for a conversational rendering of a driving route
func DirectionsPrompt(origin, targetName, targetAddress string, distanceMeters, durationMinutes int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s에서 %s까지의 길찾기 정보입니다:\n", origin, targetName)
	fmt.Fprintf(&b, "- 목적지 주소: %s\n", targetAddress)
	fmt.Fprintf(&b, "- 총 거리: %dm\n", distanceMeters)
	fmt.Fprintf(&b, "- 예상 소요 시간: %d분\n\n", durationMinutes)
	b.WriteString("이 정보를 자연스러운 대화체 한국어로 설명해주세요.")
	return b.String()
}

// EnhancePrompt asks for short background on a category at a geocoded location
func EnhancePrompt(locationName, category string) string {
	return fmt.Sprintf("%s의 %s에 대한 간략한 정보를 제공해주세요.", locationName, category)
}
