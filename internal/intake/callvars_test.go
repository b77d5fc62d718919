package intake

import "testing"

func TestResolveTargetNumberPrecedence(t *testing.T) {
	dir := map[string]string{"walmart": "+16674190027"}

	f := Fields{"target_number": "+15550001111", "vendor_name": "Walmart"}
	if got := ResolveTargetNumber(f, dir, "+19998887777"); got != "+15550001111" {
		t.Errorf("explicit target number should win: got %v", got)
	}

	f = Fields{"vendor_name": "Walmart"}
	if got := ResolveTargetNumber(f, dir, "+19998887777"); got != "+16674190027" {
		t.Errorf("directory lookup failed: got %v", got)
	}

	// Lookup is case-insensitive and falls back to hotel_name.
	f = Fields{"hotel_name": "WALMART"}
	if got := ResolveTargetNumber(f, dir, "+19998887777"); got != "+16674190027" {
		t.Errorf("hotel_name directory lookup failed: got %v", got)
	}

	f = Fields{"vendor_name": "Unknown Shop"}
	if got := ResolveTargetNumber(f, dir, "+19998887777"); got != "+19998887777" {
		t.Errorf("fallback not used: got %v", got)
	}
}

func TestBuildCallVars(t *testing.T) {
	f := Fields{
		"intent":      string(IntentRetailReturn),
		"vendor_name": "Walmart",
		"order_id":    "112-556",
		"goal":        "return",
		"user_phone":  "+14155550134",
	}
	vars := BuildCallVars(f, "Sam", "+16674190027")

	if vars["call_type"] != "outbound" {
		t.Errorf("call_type: got %v", vars["call_type"])
	}
	if vars["vendor_name"] != "Walmart" || vars["order_id"] != "112-556" {
		t.Errorf("field values not flattened: %v", vars)
	}
	if vars["user_name"] != "Sam" || vars["user_phone"] != "+14155550134" {
		t.Errorf("user identity wrong: %v", vars)
	}
	if _, ok := vars["goal"]; ok {
		t.Error("legacy goal leaked into call variables")
	}
	// Absent vocabulary keys ride as nil so the agent template sees them.
	if v, ok := vars["question"]; !ok || v != nil {
		t.Errorf("absent key should be present as nil: %v %v", v, ok)
	}
}

func TestBuildCallVarsHotelNameAsVendor(t *testing.T) {
	f := Fields{"intent": string(IntentHotelBooking), "hotel_name": "Hilton Midtown"}
	vars := BuildCallVars(f, "Sam", "+16674190027")
	if vars["vendor_name"] != "Hilton Midtown" {
		t.Errorf("hotel_name should back-fill vendor_name: got %v", vars["vendor_name"])
	}
	if vars["user_phone"] != "+16674190027" {
		t.Errorf("default user phone not applied: got %v", vars["user_phone"])
	}
}

func TestEssentialFields(t *testing.T) {
	f := Fields{
		"intent":           string(IntentRetailReturn),
		"vendor_name":      "Walmart",
		"order_id":         "112-556",
		"date_of_purchase": "2025-08-12",
		"bill_amount":      249.0,
		"item":             "AirPods",
		"reason":           "left earbud dead",
		"user_phone":       "+14155550134",
		"target_number":    "+16674190027",
	}
	got := EssentialFields(f)

	for _, kept := range []string{"intent", "vendor_name", "user_phone", "target_number"} {
		if !got.Has(kept) {
			t.Errorf("essential field %q dropped", kept)
		}
	}
	for _, gone := range []string{"order_id", "date_of_purchase", "bill_amount", "item", "reason"} {
		if _, ok := got[gone]; ok {
			t.Errorf("transient field %q kept after dial", gone)
		}
	}
}
