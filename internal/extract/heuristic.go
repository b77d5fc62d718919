package extract

import (
	"regexp"
	"strings"
)

// Local keyword/pattern extractor. It guarantees at least an intent
// classification when the model path is unavailable, so the conversation
// can always proceed.

var (
	orderIDRe   = regexp.MustCompile(`(?i)order\s*(?:id|#|number)?\s*(?:is|:)?\s*([A-Za-z0-9\-]{4,})`)
	agreementRe = regexp.MustCompile(`(?i)(?:agreement|contract)\s*(?:no|number|#)?\s*[:\-]?\s*([A-Za-z0-9\-]{3,})`)
	anyPhoneRe  = regexp.MustCompile(`(\+\d[\d\s\-]{7,18}\d)`)

	reasonLabelRe  = regexp.MustCompile(`(?i)\breason\s*(?:is|:)\s*(.+)`)
	reasonClauseRe = regexp.MustCompile(`(?i)\b(?:because|due to|as)\s+([^.;]+)`)
	reasonPhraseRe = regexp.MustCompile(`(?i)\b(i\s+don['’]?t\s+like\s+(it|the\s+product)|doesn['’]?t\s+work|defective|broken|broke|damaged|too\s+small|too\s+big|wrong\s+item)\b`)

	targetNumberRe = regexp.MustCompile(`(?i)\b(?:call|dial|ring|reach\s+them\s+at|their\s+number\s+is|support\s+number)\s*(?:at|on)?\s*(\+\d[\d\s\-]{7,18}\d)`)
	userPhoneRe    = regexp.MustCompile(`(?i)(?:my\s+phone\s+is|call\s+me\s+at|reach\s+me\s+at)\s*(\+\d[\d\s\-]{7,18}\d)`)

	questionHintWords = []string{
		"what", "when", "how", "can you", "could you", "please", "ask",
		"price", "cost", "open", "hours", "availability", "available",
		"book", "reserve", "appointment", "schedule", "quote",
	}
	serviceWords = []string{"haircut", "barber", "salon", "spa", "stylist", "doctor", "dentist", "restaurant", "table"}
)

// HeuristicExtract classifies the intent by keywords and grabs the obvious
// structured fields with regexes.
func HeuristicExtract(text string) map[string]any {
	out := map[string]any{}
	low := strings.ToLower(text)

	switch {
	case containsAny(low, "return", "refund", "exchange") && !strings.Contains(low, "hotel"):
		out["intent"] = "retail_return"
	case containsAny(low, "hotel", "book", "reservation") && !containsAny(low, "haircut", "salon"):
		out["intent"] = "hotel_booking"
	case containsAny(low, "rental", "enterprise", "hertz", "avis") && containsAny(low, "issue", "return", "exchange"):
		out["intent"] = "rental_issue"
	case containsAny(low, "book", "appointment", "reserve", "reservation") && containsAny(low, serviceWords...):
		out["intent"] = "service_booking"
	default:
		out["intent"] = "generic_query"
	}

	if m := orderIDRe.FindStringSubmatch(text); m != nil {
		out["order_id"] = strings.TrimRight(strings.TrimSpace(m[1]), ".,;:")
	}
	if m := agreementRe.FindStringSubmatch(text); m != nil {
		out["rental_agreement_number"] = strings.TrimSpace(m[1])
	}
	if m := anyPhoneRe.FindStringSubmatch(text); m != nil {
		out["user_phone"] = stripPhone(m[1])
	}

	out = enrichReasonAndPhones(text, out)
	intent, _ := out["intent"].(string)
	return enrichQuestion(text, out, intent)
}

// enrichReasonAndPhones fills reason, target_number, and user_phone from
// natural phrasings the model often misses ("because it broke", "call me at
// +1 415 555 0134"). Existing values are never replaced.
func enrichReasonAndPhones(text string, fields map[string]any) map[string]any {
	out := copyNonEmpty(fields)
	txt := strings.TrimSpace(text)
	low := strings.ToLower(txt)

	if isEmpty(out["reason"]) {
		if m := reasonLabelRe.FindStringSubmatch(txt); m != nil {
			out["reason"] = strings.TrimRight(strings.TrimSpace(m[1]), ".")
		} else if m := reasonClauseRe.FindStringSubmatch(txt); m != nil {
			out["reason"] = strings.TrimSpace(m[1])
		}
		// A short reply in a returns context is usually the reason itself.
		if isEmpty(out["reason"]) && len(txt) <= 160 &&
			containsAny(low, "return", "refund", "exchange", "replace", "product", "item") {
			out["reason"] = strings.TrimRight(txt, " .")
		}
		if isEmpty(out["reason"]) && reasonPhraseRe.MatchString(low) {
			out["reason"] = strings.TrimRight(txt, " .")
		}
	}

	if isEmpty(out["target_number"]) {
		if m := targetNumberRe.FindStringSubmatch(txt); m != nil {
			out["target_number"] = stripPhone(m[1])
		}
	}
	if isEmpty(out["user_phone"]) {
		if m := userPhoneRe.FindStringSubmatch(txt); m != nil {
			out["user_phone"] = stripPhone(m[1])
		}
	}

	return copyNonEmpty(out)
}

// enrichQuestion infers a question from short natural replies ("What time
// are they open?", "Ask their price."). Only fills when missing.
func enrichQuestion(text string, fields map[string]any, intent string) map[string]any {
	out := copyNonEmpty(fields)
	if !isEmpty(out["question"]) {
		return out
	}

	txt := strings.TrimSpace(text)
	low := strings.ToLower(txt)

	keywordHit := containsAny(low, questionHintWords...)
	intentTakesQuestion := intent == "generic_query" || intent == "service_booking" || intent == "hotel_booking"

	if strings.Contains(txt, "?") || (len(txt) <= 160 && (keywordHit || intentTakesQuestion)) {
		cleaned := strings.TrimSpace(strings.Trim(strings.Join(strings.Fields(txt), " "), "?.! "))
		if cleaned != "" {
			out["question"] = cleaned
		}
	}
	return out
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func stripPhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

func copyNonEmpty(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !isEmpty(v) {
			out[k] = v
		}
	}
	return out
}
