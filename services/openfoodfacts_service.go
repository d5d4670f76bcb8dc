package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrProductNotFound is the typed miss for the whole resolution chain.
var ErrProductNotFound = errors.New("product not found")

// ProductData mirrors the Open Food Facts product payload; the AI search
// fallback is instructed to return the same shape.
type ProductData struct {
	ProductName string `json:"product_name"`
	Nutriments  struct {
		EnergyKcal100g float64 `json:"energy-kcal_100g"`
		Proteins100g   float64 `json:"proteins_100g"`
		Carbs100g      float64 `json:"carbohydrates_100g"`
		Fat100g        float64 `json:"fat_100g"`
		Sugars100g     float64 `json:"sugars_100g"`
		Sodium100g     float64 `json:"sodium_100g"` // grams per 100g
		Fiber100g      float64 `json:"fiber_100g"`
	} `json:"nutriments"`
	IngredientsText string `json:"ingredients_text"`
	Ingredients     []struct {
		Text string `json:"text"`
	} `json:"ingredients"`
	Error string `json:"error"`
}

type productLookupResponse struct {
	Status  int          `json:"status"`
	Product *ProductData `json:"product"`
}

// OpenFoodFactsService queries the world database first and then a fixed
// list of regional mirrors.
type OpenFoodFactsService struct {
	hosts  []string
	client *http.Client
}

func NewOpenFoodFactsService() *OpenFoodFactsService {
	return &OpenFoodFactsService{
		hosts: []string{
			"https://world.openfoodfacts.org",
			"https://us.openfoodfacts.org",
			"https://uk.openfoodfacts.org",
			"https://de.openfoodfacts.org",
			"https://fr.openfoodfacts.org",
			"https://es.openfoodfacts.org",
		},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup walks the host list in order and returns the first hit. A failure
// against one host (network, non-2xx, malformed body, status!=1) is a miss
// for that host only; the chain always runs to the end before reporting
// ErrProductNotFound.
func (s *OpenFoodFactsService) Lookup(barcode string) (*ProductData, error) {
	for _, host := range s.hosts {
		product, err := s.lookupHost(host, barcode)
		if err != nil {
			continue
		}
		return product, nil
	}
	return nil, ErrProductNotFound
}

func (s *OpenFoodFactsService) lookupHost(host, barcode string) (*ProductData, error) {
	u := fmt.Sprintf("%s/api/v0/product/%s.json", host, barcode)

	resp, err := s.client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed to call Open Food Facts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Open Food Facts response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open food facts error %d: %s", resp.StatusCode, string(body))
	}

	var lr productLookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("failed to parse Open Food Facts JSON: %w", err)
	}

	// status=1 with a present product is the only success condition.
	if lr.Status != 1 || lr.Product == nil {
		return nil, ErrProductNotFound
	}
	return lr.Product, nil
}
