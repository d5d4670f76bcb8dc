package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func offServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupFallsBackThroughMirrors(t *testing.T) {
	var worldHits, mirrorHits int

	world := offServer(t, func(w http.ResponseWriter, r *http.Request) {
		worldHits++
		fmt.Fprint(w, `{"status": 0}`)
	})
	mirror := offServer(t, func(w http.ResponseWriter, r *http.Request) {
		mirrorHits++
		fmt.Fprint(w, `{"status": 1, "product": {"product_name": "Oat Bar", "nutriments": {"energy-kcal_100g": 400}, "ingredients_text": "oats, honey"}}`)
	})

	svc := &OpenFoodFactsService{
		hosts:  []string{world.URL, mirror.URL},
		client: &http.Client{Timeout: 2 * time.Second},
	}

	product, err := svc.Lookup("0123456789012")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.ProductName != "Oat Bar" {
		t.Fatalf("wrong product: %q", product.ProductName)
	}
	if worldHits != 1 || mirrorHits != 1 {
		t.Fatalf("expected one hit per host, got world=%d mirror=%d", worldHits, mirrorHits)
	}
}

func TestLookupTreatsHostFailuresAsMisses(t *testing.T) {
	broken := offServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	malformed := offServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	})
	good := offServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": 1, "product": {"product_name": "Yogurt"}}`)
	})

	svc := &OpenFoodFactsService{
		hosts:  []string{broken.URL, malformed.URL, good.URL},
		client: &http.Client{Timeout: 2 * time.Second},
	}

	product, err := svc.Lookup("5000000000001")
	if err != nil {
		t.Fatalf("chain should have recovered, got: %v", err)
	}
	if product.ProductName != "Yogurt" {
		t.Fatalf("wrong product: %q", product.ProductName)
	}
}

func TestLookupMissWhenAllHostsMiss(t *testing.T) {
	miss := offServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": 0}`)
	})

	svc := &OpenFoodFactsService{
		hosts:  []string{miss.URL, miss.URL},
		client: &http.Client{Timeout: 2 * time.Second},
	}

	if _, err := svc.Lookup("4000000000002"); err != ErrProductNotFound {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestLookupStatusOneWithoutProductIsMiss(t *testing.T) {
	srv := offServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": 1}`)
	})

	svc := &OpenFoodFactsService{
		hosts:  []string{srv.URL},
		client: &http.Client{Timeout: 2 * time.Second},
	}

	if _, err := svc.Lookup("4000000000003"); err != ErrProductNotFound {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
