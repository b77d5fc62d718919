package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// schemaKeys is the closed vocabulary of extractable fields. Anything else
// in a model response is dropped.
var schemaKeys = map[string]bool{
	"intent":      true,
	"vendor_name": true, "target_number": true, "user_phone": true, "question": true,
	"order_id": true, "date_of_purchase": true, "bill_amount": true, "item": true, "reason": true,
	"hotel_name": true, "city": true, "stay_start": true, "stay_end": true, "nights": true,
	"ask_price": true, "ask_discounts": true,
	"rental_agreement_number": true, "car_issue": true,
	"service_type": true, "preferred_time": true, "ask_availability": true,
}

var (
	nonAmountRe = regexp.MustCompile(`[^\d.]`)
	digitsRe    = regexp.MustCompile(`\d+`)
)

// Normalize filters a raw extraction map down to schema keys and coerces
// the typed fields: bill_amount to float, nights to int, the ask_* flags to
// booleans. Unparseable values are dropped rather than kept as junk.
func Normalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if !schemaKeys[k] || isEmpty(v) {
			continue
		}
		out[k] = v
	}

	if s, ok := out["bill_amount"].(string); ok {
		if f, err := strconv.ParseFloat(nonAmountRe.ReplaceAllString(s, ""), 64); err == nil {
			out["bill_amount"] = f
		} else {
			delete(out, "bill_amount")
		}
	}

	if s, ok := out["nights"].(string); ok {
		if m := digitsRe.FindString(s); m != "" {
			n, _ := strconv.Atoi(m)
			out["nights"] = n
		} else {
			delete(out, "nights")
		}
	}

	for _, k := range []string{"ask_price", "ask_discounts", "ask_availability"} {
		s, ok := out[k].(string)
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "y", "true":
			out[k] = true
		case "no", "n", "false":
			out[k] = false
		default:
			delete(out, k)
		}
	}

	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}
