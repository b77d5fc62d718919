package intake

import (
	"regexp"
	"strings"
)

// askCap is how many times a field may be asked for before it is skipped
// from the next prompt batch. The skip is per-turn, not permanent, so the
// conversation can complete with a downstream default instead of looping.
const askCap = 2

var phoneRe = regexp.MustCompile(`^\+\d{8,16}$`)

// ValidPhone accepts a leading + followed by 8-16 digits, ignoring spaces
// and hyphens.
func ValidPhone(s string) bool {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(s)
	return phoneRe.MatchString(clean)
}

// MissingFields returns the required fields for intent that f does not yet
// hold a usable value for, in prompt order. Without an intent the only thing
// missing is the intent itself. A present but malformed user_phone still
// counts as missing.
func MissingFields(f Fields, intent Intent) []string {
	if intent == "" {
		return []string{"intent"}
	}
	var missing []string
	for _, slot := range intentSlots[intent] {
		if !f.Has(slot) {
			missing = append(missing, slot)
			continue
		}
		if slot == "user_phone" && !ValidPhone(f.Str("user_phone")) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Suppressed reports whether field has hit the ask cap for this session.
func Suppressed(field string, askCounts map[string]int) bool {
	return askCounts[field] >= askCap
}
