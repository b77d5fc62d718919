package vapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPlaceCall(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/call" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer vapi-key" {
			t.Errorf("authorization header: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "call-123"})
	}))
	defer srv.Close()

	c := NewClient("vapi-key", "asst-1", "phone-1").WithBaseURL(srv.URL)
	vars := map[string]any{"intent": "generic_query", "vendor_name": "Walmart", "session_id": "s-9"}

	id, err := c.PlaceCall(context.Background(), "+16674190027", vars)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if id != "call-123" {
		t.Errorf("call id: got %v", id)
	}

	if got["assistantId"] != "asst-1" || got["phoneNumberId"] != "phone-1" {
		t.Errorf("routing ids missing: %v", got)
	}
	customer, _ := got["customer"].(map[string]any)
	if customer["number"] != "+16674190027" {
		t.Errorf("customer number: %v", customer)
	}
	overrides, _ := got["assistantOverrides"].(map[string]any)
	vv, _ := overrides["variableValues"].(map[string]any)
	if vv["vendor_name"] != "Walmart" || vv["session_id"] != "s-9" {
		t.Errorf("variable values not attached: %v", vv)
	}
}

func TestPlaceCallRejectsEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewClient("vapi-key", "asst-1", "phone-1").WithBaseURL(srv.URL)
	if _, err := c.PlaceCall(context.Background(), "+16674190027", nil); err == nil {
		t.Error("expected an error for a response without a call id")
	}
}

func TestEndCall(t *testing.T) {
	var controlHit bool
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/call/call-123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"monitor": map[string]string{"controlUrl": srv.URL + "/control/call-123"},
		})
	})
	mux.HandleFunc("/control/call-123", func(w http.ResponseWriter, r *http.Request) {
		controlHit = true
		var msg map[string]string
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("decode control message: %v", err)
		}
		if msg["type"] != "end-call" {
			t.Errorf("control message: %v", msg)
		}
		w.WriteHeader(http.StatusOK)
	})

	c := NewClient("vapi-key", "asst-1", "phone-1").WithBaseURL(srv.URL)
	if err := c.EndCall(context.Background(), "call-123"); err != nil {
		t.Fatalf("EndCall: %v", err)
	}
	if !controlHit {
		t.Error("control URL never posted to")
	}
}

func TestEndCallWithoutControlURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	c := NewClient("vapi-key", "asst-1", "phone-1").WithBaseURL(srv.URL)
	if err := c.EndCall(context.Background(), "call-123"); err == nil {
		t.Error("expected an error when the call has no control URL")
	}
}
