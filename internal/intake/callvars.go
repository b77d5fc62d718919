package intake

import "strings"

// ResolveTargetNumber picks the number to dial: an explicitly supplied
// target number wins, then a vendor-directory lookup by vendor or hotel
// name, then the configured fallback. It never returns "" as long as a
// fallback is configured.
func ResolveTargetNumber(f Fields, directory map[string]string, fallback string) string {
	if n := f.Str("target_number"); n != "" {
		return n
	}
	name := f.Str("vendor_name")
	if name == "" {
		name = f.Str("hotel_name")
	}
	if n, ok := directory[strings.ToLower(name)]; ok && n != "" {
		return n
	}
	return fallback
}

// callVarKeys is the full cross-intent variable vocabulary exposed to the
// voice agent. Absent fields ride as nil.
var callVarKeys = []string{
	"intent",
	// retail
	"order_id", "date_of_purchase", "bill_amount", "item", "reason",
	// hotel
	"hotel_name", "city", "stay_start", "stay_end", "nights", "ask_price", "ask_discounts",
	// rental
	"rental_agreement_number", "car_issue",
	// service / generic
	"service_type", "preferred_time", "ask_availability", "question",
}

// BuildCallVars flattens f into the variable map handed to the telephony
// provider. The legacy goal key is deliberately not included.
func BuildCallVars(f Fields, userName, defaultUserPhone string) map[string]any {
	vars := make(map[string]any, len(callVarKeys)+4)
	vars["call_type"] = "outbound"
	for _, k := range callVarKeys {
		vars[k] = f[k]
	}
	vendor := f["vendor_name"]
	if emptyValue(vendor) {
		vendor = f["hotel_name"]
	}
	vars["vendor_name"] = vendor
	vars["user_name"] = userName
	if f.Has("user_phone") {
		vars["user_phone"] = f["user_phone"]
	} else {
		vars["user_phone"] = defaultUserPhone
	}
	return vars
}

// essentialKeys is the minimal field set a session keeps once a call has
// been placed. Everything else is transient extraction detail that must not
// leak into a later reuse of the session.
var essentialKeys = []string{
	"intent", "vendor_name", "hotel_name", "service_type",
	"preferred_time", "ask_availability", "question",
	"user_phone", "target_number",
}

// EssentialFields returns the pruned post-dial field set.
func EssentialFields(f Fields) Fields {
	out := make(Fields, len(essentialKeys))
	for _, k := range essentialKeys {
		if f.Has(k) {
			out[k] = f[k]
		}
	}
	return out
}
