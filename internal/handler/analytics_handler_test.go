package handler

import (
	"net/http"
	"testing"

	"github.com/closetlog/internal/db"
)

func TestPreferencesRoundTrip(t *testing.T) {
	env := setupHandlerTest(t)

	rr, body := env.request(t, http.MethodGet, "/preferences", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := body["preferences"].(map[string]interface{})["donation_threshold_months"]; got != float64(db.DefaultDonationThresholdMonths) {
		t.Fatalf("expected default threshold, got %v", got)
	}

	rr, _ = env.request(t, http.MethodPut, "/preferences", map[string]int{"donation_threshold_months": 0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero threshold, got %d", rr.Code)
	}

	rr, body = env.request(t, http.MethodPut, "/preferences", map[string]int{"donation_threshold_months": 12})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := body["preferences"].(map[string]interface{})["donation_threshold_months"]; got != float64(12) {
		t.Fatalf("expected 12, got %v", got)
	}
}

func TestGetAnalytics(t *testing.T) {
	env := setupHandlerTest(t)
	env.seedGarment(t, env.userID, "Plain Tee", db.CategoryTops)

	rr, body := env.request(t, http.MethodGet, "/analytics?threshold_months=3", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if body["threshold_months"] != float64(3) {
		t.Fatalf("expected override to apply, got %v", body["threshold_months"])
	}
	stats := body["stats"].(map[string]interface{})
	if stats["total_garments"] != float64(1) || stats["utilization_percent"] != float64(0) {
		t.Fatalf("unexpected stats %#v", stats)
	}
	if len(body["most_worn"].([]interface{})) != 1 {
		t.Fatalf("expected garment in most worn list")
	}

	rr, _ = env.request(t, http.MethodGet, "/analytics?threshold_months=zero", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid threshold, got %d", rr.Code)
	}
}
