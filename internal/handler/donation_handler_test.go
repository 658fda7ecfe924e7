package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/closetlog/internal/db"
)

func TestDonationLifecycle(t *testing.T) {
	env := setupHandlerTest(t)
	coat := env.seedGarment(t, env.userID, "Old Wool Coat", db.CategoryOuterwear)

	rr, body := env.request(t, http.MethodPost, "/donations", map[string]uint{"garment_id": coat.ID})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	donation := body["donation"].(map[string]interface{})
	if donation["garment"].(map[string]interface{})["name"] != "Old Wool Coat" {
		t.Fatalf("expected garment to be embedded, got %#v", donation)
	}

	rr, _ = env.request(t, http.MethodPost, "/donations", map[string]uint{"garment_id": coat.ID})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rr.Code)
	}

	rr, body = env.request(t, http.MethodGet, "/donations", nil)
	if rr.Code != http.StatusOK || len(body["donations"].([]interface{})) != 1 {
		t.Fatalf("expected one pending donation, got %d %v", rr.Code, body)
	}

	path := fmt.Sprintf("/donations/%d/donated", coat.ID)
	rr, body = env.request(t, http.MethodPatch, path, nil)
	if rr.Code != http.StatusOK || body["donation"].(map[string]interface{})["donated_at"] == nil {
		t.Fatalf("expected donated_at to be set, got %d %v", rr.Code, body)
	}

	_, body = env.request(t, http.MethodGet, "/donations", nil)
	if len(body["donations"].([]interface{})) != 0 {
		t.Fatalf("donated garments must leave the pending list")
	}

	rr, _ = env.request(t, http.MethodDelete, fmt.Sprintf("/donations/%d", coat.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on remove, got %d", rr.Code)
	}
	rr, _ = env.request(t, http.MethodDelete, fmt.Sprintf("/donations/%d", coat.ID), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second remove, got %d", rr.Code)
	}
}

func TestSaveDonationRejectsInvalidGarment(t *testing.T) {
	env := setupHandlerTest(t)

	rr, _ := env.request(t, http.MethodPost, "/donations", map[string]uint{"garment_id": 0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing garment, got %d", rr.Code)
	}
	rr, _ = env.request(t, http.MethodPost, "/donations", map[string]uint{"garment_id": 4242})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown garment, got %d", rr.Code)
	}
	rr, _ = env.request(t, http.MethodDelete, "/donations/abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rr.Code)
	}
}
