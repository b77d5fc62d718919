package intake

import "strings"

// fieldPrompts holds the human-facing wording for each field the engine can
// ask about.
var fieldPrompts = map[string]string{
	"intent":                  "What do you need help with? (a return, a hotel booking, a rental car issue, booking a service, or a general question)",
	"vendor_name":             "Which company or hotel is this for?",
	"order_id":                "What's the order ID shown on your receipt or email?",
	"date_of_purchase":        "What was the purchase date? (e.g., 2025-09-01 or Sep 1, 2025)",
	"bill_amount":             "What was the total billed amount (numbers only, like 89.99)?",
	"item":                    "Which item is this about?",
	"reason":                  "Briefly, what's the reason?",
	"hotel_name":              "What's the hotel's name?",
	"city":                    "Which city is the hotel in?",
	"stay_start":              "When do you want to check in? (date)",
	"stay_end":                "When do you plan to check out? (date)",
	"nights":                  "How many nights?",
	"ask_price":               "Should I ask for the total price for that duration? (yes/no)",
	"ask_discounts":           "Should I ask about any discounts? (yes/no)",
	"rental_agreement_number": "What's your rental agreement number?",
	"car_issue":               "What's the issue with the car?",
	"service_type":            "What kind of service do you want to book?",
	"preferred_time":          "When would you like the appointment?",
	"ask_availability":        "Should I check their availability? (yes/no)",
	"question":                "What do you want me to ask them?",
	"user_phone":              "If they need to reach you, what's your number with country code? (e.g., +1 415 555 0134)",
}

// ComposeQuestion folds every missing field into a single consolidated
// prompt so the user can answer everything in one reply.
func ComposeQuestion(missing []string, known Fields) string {
	hints := make([]string, 0, len(missing))
	for _, f := range missing {
		if p, ok := fieldPrompts[f]; ok {
			hints = append(hints, p)
		}
	}
	if len(hints) == 0 {
		return "Could you tell me a bit more about what you need?"
	}
	return "I need a couple of details to proceed: " + strings.Join(hints, " ")
}
