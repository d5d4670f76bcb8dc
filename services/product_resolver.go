package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/vamshi726/food-scan-ai/utils"
)

// Nutrients holds per-100g values. Sodium is in milligrams; everything else
// in grams except calories (kcal). Missing source fields stay zero so
// downstream arithmetic is always defined.
type Nutrients struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
	Fiber    float64 `json:"fiber"`
}

// NutritionRecord is the normalized output of one successful resolution.
// Immutable after creation; exactly one resolution path produces it or the
// pipeline fails closed.
type NutritionRecord struct {
	ProductName string    `json:"productName"`
	Barcode     string    `json:"barcode,omitempty"`
	Nutrients   Nutrients `json:"nutrients"`
	Ingredients []string  `json:"ingredients"`
	DataSource  string    `json:"dataSource"`
}

// ProductResolver resolves a barcode through an ordered fallback chain:
// Open Food Facts (world + mirrors), then AI product search. Each stage
// failure is swallowed; only total exhaustion is a miss.
type ProductResolver struct {
	off *OpenFoodFactsService
	ai  *AIGatewayService
}

func NewProductResolver(off *OpenFoodFactsService, ai *AIGatewayService) *ProductResolver {
	return &ProductResolver{off: off, ai: ai}
}

func (r *ProductResolver) Resolve(ctx context.Context, barcode string) (*NutritionRecord, error) {
	if product, err := r.off.Lookup(barcode); err == nil {
		return normalizeProduct(product, barcode, "Open Food Facts"), nil
	}

	log.Printf("barcode %s not in Open Food Facts, trying AI search", barcode)
	if product, err := r.searchProductOnline(ctx, barcode); err == nil {
		return normalizeProduct(product, barcode, "AI Search"), nil
	}

	return nil, ErrProductNotFound
}

const productSearchSystemPrompt = "You are a product research assistant. You have knowledge of many consumer products, their barcodes, nutrition information, and ingredients. Provide accurate information when you know it, and clearly indicate when information is estimated or uncertain."

// searchProductOnline asks the text model for the product behind a barcode,
// constrained to the Open Food Facts JSON shape. A reply carrying the
// not-found marker, or one that fails to parse, is a miss.
func (r *ProductResolver) searchProductOnline(ctx context.Context, barcode string) (*ProductData, error) {
	prompt := fmt.Sprintf(`Search for a product with barcode/UPC: %s

Find information about this product including:
1. Product name and brand
2. Nutrition facts per 100g (calories, protein, carbs, fat, sugar, sodium, fiber)
3. Ingredients list

Return ONLY a valid JSON object with this structure:
{
  "product_name": "Brand - Product Name",
  "nutriments": {
    "energy-kcal_100g": number or null,
    "proteins_100g": number or null,
    "carbohydrates_100g": number or null,
    "fat_100g": number or null,
    "sugars_100g": number or null,
    "sodium_100g": number or null (in grams),
    "fiber_100g": number or null
  },
  "ingredients_text": "comma separated ingredients or 'Unknown' if not found"
}

If you cannot find the product, return:
{
  "product_name": null,
  "error": "Product not found"
}`, barcode)

	content, err := r.ai.Complete(ctx, []GatewayMessage{
		TextMessage("system", productSearchSystemPrompt),
		TextMessage("user", prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("ai product search failed: %w", err)
	}

	product, err := parseProductJSON(content)
	if err != nil {
		return nil, err
	}
	if product.Error != "" || product.ProductName == "" {
		return nil, ErrProductNotFound
	}
	log.Printf("found product via AI search: %s", product.ProductName)
	return product, nil
}

func parseProductJSON(content string) (*ProductData, error) {
	raw, err := utils.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}
	var product ProductData
	if err := json.Unmarshal([]byte(raw), &product); err != nil {
		return nil, fmt.Errorf("failed to parse product JSON: %w", err)
	}
	return &product, nil
}

// normalizeProduct produces the canonical record: sodium is converted from
// grams per 100g to milligrams, missing fields default to zero, and the
// ingredients string is materialized into an ordered list.
func normalizeProduct(product *ProductData, barcode, dataSource string) *NutritionRecord {
	name := product.ProductName
	if name == "" {
		name = "Unknown Product"
	}

	ingredientsText := product.IngredientsText
	if ingredientsText == "" && len(product.Ingredients) > 0 {
		parts := make([]string, 0, len(product.Ingredients))
		for _, ing := range product.Ingredients {
			parts = append(parts, ing.Text)
		}
		ingredientsText = strings.Join(parts, ", ")
	}
	if ingredientsText == "" {
		ingredientsText = "No ingredients listed"
	}

	return &NutritionRecord{
		ProductName: name,
		Barcode:     barcode,
		Nutrients: Nutrients{
			Calories: product.Nutriments.EnergyKcal100g,
			Protein:  product.Nutriments.Proteins100g,
			Carbs:    product.Nutriments.Carbs100g,
			Fat:      product.Nutriments.Fat100g,
			Sugar:    product.Nutriments.Sugars100g,
			Sodium:   product.Nutriments.Sodium100g * 1000, // g -> mg
			Fiber:    product.Nutriments.Fiber100g,
		},
		Ingredients: SplitIngredients(ingredientsText),
		DataSource:  dataSource,
	}
}

// SplitIngredients splits a raw ingredients string on commas, trims each
// segment and drops empties, preserving order.
func SplitIngredients(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
