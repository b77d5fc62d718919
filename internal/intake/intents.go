package intake

import "strings"

// Intent is the classified purpose of the conversation. It determines which
// fields have to be collected before a call can be placed.
type Intent string

const (
	IntentRetailReturn   Intent = "retail_return"
	IntentHotelBooking   Intent = "hotel_booking"
	IntentRentalIssue    Intent = "rental_issue"
	IntentServiceBooking Intent = "service_booking"

	// IntentGenericQuery is the catch-all used when nothing more specific is
	// recognized. A held specific intent is never downgraded to it.
	IntentGenericQuery Intent = "generic_query"
)

// Specific reports whether i is one of the specific intents, as opposed to
// empty or the catch-all.
func (i Intent) Specific() bool {
	switch i {
	case IntentRetailReturn, IntentHotelBooking, IntentRentalIssue, IntentServiceBooking:
		return true
	}
	return false
}

// intentSlots maps each intent to its required fields. Order matters: it is
// the order in which missing fields are asked for.
var intentSlots = map[Intent][]string{
	IntentRetailReturn:   {"vendor_name", "order_id", "date_of_purchase", "bill_amount", "item", "reason", "user_phone"},
	IntentHotelBooking:   {"hotel_name", "city", "stay_start", "stay_end", "nights", "ask_price", "ask_discounts", "user_phone"},
	IntentRentalIssue:    {"vendor_name", "rental_agreement_number", "car_issue", "user_phone"},
	IntentServiceBooking: {"vendor_name", "service_type", "preferred_time", "ask_price", "ask_availability", "user_phone"},
	IntentGenericQuery:   {"vendor_name", "question", "user_phone"},
}

// intentKeep lists the fields each intent is allowed to hold. Switching to a
// new intent drops everything outside its set to avoid cross-talk between
// unrelated tasks in the same session.
var intentKeep = map[Intent]map[string]bool{
	IntentRetailReturn: setOf(
		"intent", "vendor_name", "target_number", "user_phone",
		"order_id", "date_of_purchase", "bill_amount", "item", "reason",
	),
	IntentHotelBooking: setOf(
		"intent", "vendor_name", "hotel_name", "city", "stay_start", "stay_end", "nights",
		"ask_price", "ask_discounts", "question", "target_number", "user_phone",
	),
	IntentRentalIssue: setOf(
		"intent", "vendor_name", "target_number", "user_phone",
		"rental_agreement_number", "car_issue",
	),
	IntentServiceBooking: setOf(
		"intent", "vendor_name", "service_type", "preferred_time", "ask_availability",
		"question", "target_number", "user_phone",
	),
	IntentGenericQuery: setOf(
		"intent", "vendor_name", "question", "target_number", "user_phone",
	),
}

// legacyGoals maps the old free-text "goal" vocabulary onto an intent. Kept
// only as a backward-compatible input alias.
var legacyGoals = map[string]Intent{
	"refund":      IntentRetailReturn,
	"return":      IntentRetailReturn,
	"exchange":    IntentRetailReturn,
	"replacement": IntentRetailReturn,
}

func setOf(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// CurrentIntent reads the intent tag out of f, or "" when unset.
func CurrentIntent(f Fields) Intent {
	return Intent(f.Str("intent"))
}

// ApplyLegacyGoal sets the intent from a legacy goal word when no specific
// intent has been chosen yet. A specific intent is left untouched.
func ApplyLegacyGoal(f Fields) {
	if CurrentIntent(f).Specific() {
		return
	}
	if in, ok := legacyGoals[strings.ToLower(f.Str("goal"))]; ok {
		f["intent"] = string(in)
	}
}

// PruneForIntent drops every field that does not belong to intent. The
// legacy "goal" key survives for alias mapping only; it is never surfaced to
// a call.
func PruneForIntent(f Fields, intent Intent) {
	keep, ok := intentKeep[intent]
	if !ok {
		return
	}
	for k := range f {
		if !keep[k] && k != "goal" {
			delete(f, k)
		}
	}
}
