package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
)

// MaxLabelImageBytes bounds uploaded label photos. Checked against the
// decoded payload before any network call.
const MaxLabelImageBytes = 5 * 1024 * 1024

var (
	ErrImageTooLarge   = errors.New("image exceeds the 5MB limit")
	ErrInvalidImage    = errors.New("uploaded file is not an image")
	ErrLabelParseError = errors.New("could not read nutrition data from the label")
)

// LabelExtractor turns a photo of a nutrition label into a NutritionRecord
// via a vision-capable model.
type LabelExtractor struct {
	ai *AIGatewayService
}

func NewLabelExtractor(ai *AIGatewayService) *LabelExtractor {
	return &LabelExtractor{ai: ai}
}

const labelVisionPrompt = `Analyze this nutrition label image and extract:
1. Product name
2. Nutrition facts per 100g (calories, protein, carbs, fat, sugar, sodium, fiber)
3. Complete ingredients list

Return ONLY a JSON object with this exact structure:
{
  "product_name": "string",
  "nutriments": {
    "energy-kcal_100g": number,
    "proteins_100g": number,
    "carbohydrates_100g": number,
    "fat_100g": number,
    "sugars_100g": number,
    "sodium_100g": number,
    "fiber_100g": number
  },
  "ingredients_text": "comma separated ingredients"
}`

// Extract validates the data-URL payload and sends it to the vision model.
// A reply without parseable JSON is a hard failure; nothing is retried.
func (e *LabelExtractor) Extract(ctx context.Context, imageDataURL string) (*NutritionRecord, error) {
	if err := ValidateImageDataURL(imageDataURL); err != nil {
		return nil, err
	}

	content, err := e.ai.Complete(ctx, []GatewayMessage{
		VisionMessage(labelVisionPrompt, imageDataURL),
	})
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}

	product, err := parseProductJSON(content)
	if err != nil {
		log.Printf("failed to parse vision response: %v; raw: %s", err, content)
		return nil, ErrLabelParseError
	}

	record := normalizeProduct(product, "", "Label OCR")
	if record.ProductName == "Unknown Product" {
		record.ProductName = "Scanned Product"
	}
	return record, nil
}

// ValidateImageDataURL enforces the acquisition constraints: the payload
// must be a data URL with an image/* MIME type and a decoded size of at
// most MaxLabelImageBytes.
func ValidateImageDataURL(dataURL string) error {
	if !strings.HasPrefix(dataURL, "data:") {
		return ErrInvalidImage
	}
	parts := strings.SplitN(dataURL, ",", 2)
	if len(parts) != 2 {
		return ErrInvalidImage
	}

	meta := strings.TrimPrefix(parts[0], "data:") // "image/png;base64"
	contentType := strings.SplitN(meta, ";", 2)[0]
	if !strings.HasPrefix(contentType, "image/") {
		return ErrInvalidImage
	}

	// DecodedLen is an upper bound; subtract the padding so an image of
	// exactly MaxLabelImageBytes still passes.
	payload := parts[1]
	size := base64.StdEncoding.DecodedLen(len(payload))
	for i := len(payload) - 1; i >= 0 && payload[i] == '='; i-- {
		size--
	}
	if size > MaxLabelImageBytes {
		return ErrImageTooLarge
	}
	return nil
}
