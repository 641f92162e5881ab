package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/placefinder/internal/models"
)

// formatPlaces formats retrieval results as markdown
func formatPlaces(query string, category models.Category, results []models.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s results for \"%s\" (%d results)\n\n", category, query, len(results)))

	if len(results) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String()
	}

	for _, r := range results {
		rec := r.Record
		sb.WriteString(fmt.Sprintf("### %d. %s\n", r.Rank, rec.Name))
		sb.WriteString(fmt.Sprintf("**Similarity:** %.4f\n", r.Similarity))
		writeField(&sb, "Category", rec.Category)
		writeField(&sb, "Address", rec.Address)
		writeField(&sb, "Nearby transit", rec.CloseTransport)
		writeField(&sb, "Hours", rec.OpenHour)
		writeField(&sb, "Break", rec.BreakTime)
		writeField(&sb, "Closed", rec.DayOff)
		writeField(&sb, "Menu", rec.Menu)
		writeField(&sb, "Rating", rec.Rate)
		writeField(&sb, "Contact", rec.Contact)
		sb.WriteString("\n---\n\n")
	}

	return sb.String()
}

// formatClassification formats the routing decision and category score
func formatClassification(qi *models.QueryIntent, match models.CategoryMatch) string {
	var sb strings.Builder
	sb.WriteString("## Query classification\n\n")
	sb.WriteString(fmt.Sprintf("**Intent:** %s\n", qi.Kind))
	if qi.TargetName != "" {
		sb.WriteString(fmt.Sprintf("**Target:** %s\n", qi.TargetName))
	}
	sb.WriteString(fmt.Sprintf("**Category:** %s (score %.1f", match.Category, match.Score))
	if match.MatchedTerm != "" {
		sb.WriteString(fmt.Sprintf(", keyword %q", match.MatchedTerm))
	}
	sb.WriteString(")\n\n")

	raw, _ := json.MarshalIndent(qi, "", "  ")
	sb.WriteString("```json\n")
	sb.Write(raw)
	sb.WriteString("\n```\n")
	return sb.String()
}

// formatDirections formats a directions answer; non-directions answers carry only text
func formatDirections(answer *models.Answer) string {
	if answer.Type != models.AnswerDirections || answer.Summary == nil || answer.End == nil {
		return answer.Response
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Directions to %s\n\n", answer.End.Name))
	writeField(&sb, "Address", answer.End.Address)
	sb.WriteString(fmt.Sprintf("**Distance:** %.1f km\n", float64(answer.Summary.Distance)/1000))
	sb.WriteString(fmt.Sprintf("**Duration:** %d min\n\n", answer.Summary.DurationMinutes))
	sb.WriteString(answer.Response)
	sb.WriteString("\n")
	return sb.String()
}

func writeField(sb *strings.Builder, label, value string) {
	if value != "" {
		sb.WriteString(fmt.Sprintf("**%s:** %s\n", label, value))
	}
}
