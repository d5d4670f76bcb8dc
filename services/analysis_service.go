package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/vamshi726/food-scan-ai/utils"
)

// ErrAnalysisFailed covers AI-contract violations: the model reply did not
// contain parseable JSON. Surfaced as a generic analysis failure; the raw
// reply is logged for diagnosis.
var ErrAnalysisFailed = errors.New("analysis failed")

// HealthProfile is the read-only slice of the user's onboarding answers
// that the pipeline feeds into prompts.
type HealthProfile struct {
	HealthIssues       []string `json:"health_issues"`
	Sensitivities      []string `json:"sensitivities"`
	Intolerances       []string `json:"intolerances"`
	DietaryPreferences []string `json:"dietary_preferences"`
}

type RiskIngredient struct {
	Name        string `json:"name"`
	Risk        string `json:"risk"` // "high" | "medium" | "low"
	Explanation string `json:"explanation"`
}

type HealthierAlternative struct {
	Name           string  `json:"name"`
	Brand          string  `json:"brand"`
	Reason         string  `json:"reason"`
	EstimatedScore float64 `json:"estimatedScore"`
}

// AnalysisResult is the canonical per-scan record returned to the client.
// It lives for the session; a new scan replaces it wholesale.
type AnalysisResult struct {
	ProductName           string                 `json:"productName"`
	Barcode               string                 `json:"barcode,omitempty"`
	DataSource            string                 `json:"dataSource"`
	HealthScore           int                    `json:"healthScore"`
	Category              string                 `json:"category"`
	Nutrients             Nutrients              `json:"nutrients"`
	Ingredients           []string               `json:"ingredients"`
	RiskIngredients       []RiskIngredient       `json:"riskIngredients"`
	Recommendations       []string               `json:"recommendations"`
	AIExplanation         string                 `json:"aiExplanation"`
	HealthierAlternatives []HealthierAlternative `json:"healthierAlternatives"`
}

// AnalysisService sends one NutritionRecord (+ optional profile) to the
// text model and parses the scored result.
type AnalysisService struct {
	ai *AIGatewayService
}

func NewAnalysisService(ai *AIGatewayService) *AnalysisService {
	return &AnalysisService{ai: ai}
}

func (s *AnalysisService) Analyze(ctx context.Context, record *NutritionRecord, profile *HealthProfile) (*AnalysisResult, error) {
	prompt := buildAnalysisPrompt(record, profile)

	content, err := s.ai.Complete(ctx, []GatewayMessage{
		TextMessage("system", "You are a nutrition analysis AI that returns only valid JSON."),
		TextMessage("user", prompt),
	})
	if err != nil {
		return nil, err
	}

	parsed, err := parseAnalysisJSON(content)
	if err != nil {
		log.Printf("failed to parse AI analysis: %v; raw: %s", err, content)
		return nil, ErrAnalysisFailed
	}

	return buildAnalysisResult(record, parsed), nil
}

// modelAnalysis uses pointers where the orchestrator trusts but defaults.
type modelAnalysis struct {
	HealthScore           *int                   `json:"healthScore"`
	Category              *string                `json:"category"`
	RiskIngredients       []RiskIngredient       `json:"riskIngredients"`
	Recommendations       []string               `json:"recommendations"`
	AIExplanation         string                 `json:"aiExplanation"`
	HealthierAlternatives []HealthierAlternative `json:"healthierAlternatives"`
}

func parseAnalysisJSON(content string) (*modelAnalysis, error) {
	raw, err := utils.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}
	var parsed modelAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}
	return &parsed, nil
}

// buildAnalysisResult applies the trust-but-default rules: score 5 and
// category "moderate" when omitted, empty sequences for missing lists, and
// a fixed fallback explanation.
func buildAnalysisResult(record *NutritionRecord, parsed *modelAnalysis) *AnalysisResult {
	result := &AnalysisResult{
		ProductName:           record.ProductName,
		Barcode:               record.Barcode,
		DataSource:            record.DataSource,
		HealthScore:           5,
		Category:              "moderate",
		Nutrients:             record.Nutrients,
		Ingredients:           record.Ingredients,
		RiskIngredients:       []RiskIngredient{},
		Recommendations:       []string{},
		AIExplanation:         "Analysis completed successfully.",
		HealthierAlternatives: []HealthierAlternative{},
	}

	if parsed.HealthScore != nil {
		result.HealthScore = *parsed.HealthScore
	}
	if parsed.Category != nil && *parsed.Category != "" {
		result.Category = *parsed.Category
	}
	if parsed.RiskIngredients != nil {
		result.RiskIngredients = parsed.RiskIngredients
	}
	if parsed.Recommendations != nil {
		result.Recommendations = parsed.Recommendations
	}
	if parsed.AIExplanation != "" {
		result.AIExplanation = parsed.AIExplanation
	}
	if parsed.HealthierAlternatives != nil {
		result.HealthierAlternatives = parsed.HealthierAlternatives
	}
	return result
}

func buildAnalysisPrompt(record *NutritionRecord, profile *HealthProfile) string {
	var sb strings.Builder

	barcode := record.Barcode
	if barcode == "" {
		barcode = "N/A"
	}

	fmt.Fprintf(&sb, `You are a nutrition expert AI conducting a multi-agent analysis.

Product: %s
Barcode: %s
Data Source: %s

Nutrients (per 100g):
- Calories: %g kcal
- Protein: %gg
- Carbs: %gg
- Fat: %gg
- Sugar: %gg
- Sodium: %gmg
- Fiber: %gg

Ingredients: %s
`,
		record.ProductName, barcode, record.DataSource,
		record.Nutrients.Calories, record.Nutrients.Protein, record.Nutrients.Carbs,
		record.Nutrients.Fat, record.Nutrients.Sugar, record.Nutrients.Sodium,
		record.Nutrients.Fiber, strings.Join(record.Ingredients, ", "))

	personalized := profile != nil
	if personalized {
		fmt.Fprintf(&sb, `
User Health Profile:
- Health Issues: %s
- Sensitivities: %s
- Allergies/Intolerances: %s
- Dietary Preferences: %s

IMPORTANT: Provide personalized warnings and recommendations based on the user's health profile. Flag any ingredients that conflict with their health issues, sensitivities, or allergies.
`,
			joinOrNone(profile.HealthIssues), joinOrNone(profile.Sensitivities),
			joinOrNone(profile.Intolerances), joinOrNone(profile.DietaryPreferences))
	}

	sb.WriteString(`
Perform a comprehensive analysis following this multi-agent approach:

Agent 1 - Ingredient Parser: Parse and categorize all ingredients
Agent 2 - Risk Detector: Identify harmful additives, preservatives, excessive sugar/sodium
Agent 3 - Health Score Calculator: Calculate a score from 1-10 based on WHO guidelines`)
	if personalized {
		sb.WriteString(" AND user's health profile")
	}
	sb.WriteString(`
Agent 4 - Recommendation Engine: Suggest healthier alternatives or improvements`)
	if personalized {
		sb.WriteString(" tailored to user's needs")
	}
	sb.WriteString(`
Agent 5 - Alternatives Finder: Suggest 3 healthier alternative products in the same category

Return ONLY valid JSON with this structure:
{
  "healthScore": number (1-10),
  "category": "healthy" | "moderate" | "unhealthy",
  "riskIngredients": [
    {
      "name": "ingredient name",
      "risk": "high" | "medium" | "low",
      "explanation": "why it's concerning"
    }
  ],
  "recommendations": ["rec1", "rec2", "rec3"],
  "aiExplanation": "2-3 sentence summary of overall assessment",
  "healthierAlternatives": [
    {
      "name": "Product Name",
      "brand": "Brand Name",
      "reason": "Why this is healthier (1 sentence)",
      "estimatedScore": number (1-10)
    }
  ]
}

Guidelines:
- Score >=7: healthy (low sugar <10g, sodium <400mg, high fiber >5g)
- Score 4-6: moderate (moderate sugar 10-20g, sodium 400-800mg)
- Score <=3: unhealthy (high sugar >20g, sodium >800mg, many additives)
- Flag: E-numbers, palm oil, high fructose corn syrup, trans fats, artificial sweeteners
- Consider nutrient density and ingredient quality`)
	if personalized {
		sb.WriteString("\n- CRITICAL: Lower score if ingredients conflict with user's health issues, sensitivities, or allergies")
	}

	return sb.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
