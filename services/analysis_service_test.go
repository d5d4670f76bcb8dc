package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func sampleRecord() *NutritionRecord {
	return &NutritionRecord{
		ProductName: "Choco Crunch Cereal",
		Barcode:     "3017620422003",
		Nutrients:   Nutrients{Calories: 380, Sugar: 25, Sodium: 500},
		Ingredients: []string{"wheat", "sugar", "cocoa"},
		DataSource:  "Open Food Facts",
	}
}

func TestAnalyzeFullReply(t *testing.T) {
	ai := testGateway(t, completionHandler(`{
		"healthScore": 3,
		"category": "unhealthy",
		"riskIngredients": [{"name": "sugar", "risk": "high", "explanation": "25g per 100g"}],
		"recommendations": ["choose a low-sugar cereal"],
		"aiExplanation": "High in sugar for a breakfast product.",
		"healthierAlternatives": [{"name": "Plain Oats", "brand": "Acme", "reason": "No added sugar", "estimatedScore": 9}]
	}`))
	svc := NewAnalysisService(ai)

	result, err := svc.Analyze(context.Background(), sampleRecord(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HealthScore != 3 || result.Category != "unhealthy" {
		t.Fatalf("score/category: %d %q", result.HealthScore, result.Category)
	}
	if len(result.RiskIngredients) != 1 || result.RiskIngredients[0].Name != "sugar" {
		t.Fatalf("risk ingredients: %+v", result.RiskIngredients)
	}
	if len(result.HealthierAlternatives) != 1 || result.HealthierAlternatives[0].EstimatedScore != 9 {
		t.Fatalf("alternatives: %+v", result.HealthierAlternatives)
	}
	if result.ProductName != "Choco Crunch Cereal" || result.DataSource != "Open Food Facts" {
		t.Fatalf("record fields must carry through: %+v", result)
	}
}

func TestAnalyzeAppliesDefaultsForMissingFields(t *testing.T) {
	// Model returned an empty object; every field falls back.
	ai := testGateway(t, completionHandler(`{}`))
	svc := NewAnalysisService(ai)

	result, err := svc.Analyze(context.Background(), sampleRecord(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HealthScore != 5 {
		t.Fatalf("default score: %d", result.HealthScore)
	}
	if result.Category != "moderate" {
		t.Fatalf("default category: %q", result.Category)
	}
	if result.RiskIngredients == nil || len(result.RiskIngredients) != 0 {
		t.Fatalf("risk ingredients must be empty, not nil: %#v", result.RiskIngredients)
	}
	if result.Recommendations == nil || len(result.Recommendations) != 0 {
		t.Fatalf("recommendations must be empty, not nil: %#v", result.Recommendations)
	}
	if result.HealthierAlternatives == nil || len(result.HealthierAlternatives) != 0 {
		t.Fatalf("alternatives must be empty, not nil: %#v", result.HealthierAlternatives)
	}
	if result.AIExplanation != "Analysis completed successfully." {
		t.Fatalf("fallback explanation: %q", result.AIExplanation)
	}
}

func TestAnalyzeZeroScoreIsKept(t *testing.T) {
	ai := testGateway(t, completionHandler(`{"healthScore": 0}`))
	svc := NewAnalysisService(ai)

	result, err := svc.Analyze(context.Background(), sampleRecord(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An explicit 0 is a present field, not an omission.
	if result.HealthScore != 0 {
		t.Fatalf("explicit zero must survive, got %d", result.HealthScore)
	}
}

func TestAnalyzeProseReplyFails(t *testing.T) {
	ai := testGateway(t, completionHandler("I think this product is fairly unhealthy overall."))
	svc := NewAnalysisService(ai)

	if _, err := svc.Analyze(context.Background(), sampleRecord(), nil); !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
}

func TestBuildAnalysisPromptPersonalization(t *testing.T) {
	record := sampleRecord()

	anon := buildAnalysisPrompt(record, nil)
	if strings.Contains(anon, "User Health Profile") {
		t.Fatal("anonymous prompt must not carry a profile section")
	}

	profile := &HealthProfile{
		HealthIssues: []string{"diabetes"},
		Intolerances: []string{"lactose"},
	}
	personal := buildAnalysisPrompt(record, profile)
	if !strings.Contains(personal, "User Health Profile") {
		t.Fatal("personalized prompt missing profile section")
	}
	if !strings.Contains(personal, "diabetes") || !strings.Contains(personal, "lactose") {
		t.Fatal("profile values missing from prompt")
	}
	if !strings.Contains(personal, "Sensitivities: None") {
		t.Fatal("empty profile lists should render as None")
	}
	if !strings.Contains(personal, "CRITICAL: Lower score") {
		t.Fatal("personalized scoring directive missing")
	}
}
