package domain

import "strings"

// KnownAccents lists the labels emitted by the CommonAccent model family.
// The scorer's output is validated against this set.
var KnownAccents = []string{
	"african",
	"australia",
	"bermuda",
	"canada",
	"england",
	"hongkong",
	"indian",
	"ireland",
	"malaysia",
	"newzealand",
	"philippines",
	"scotland",
	"singapore",
	"southatlandtic",
	"us",
	"wales",
}

// displayNames overrides labels whose raw form reads poorly in the UI.
var displayNames = map[string]string{
	"us":             "US",
	"hongkong":       "Hong Kong",
	"newzealand":     "New Zealand",
	"southatlandtic": "South Atlantic",
}

// IsKnownAccent reports whether label belongs to the model's label set.
func IsKnownAccent(label string) bool {
	normalized := strings.ToLower(strings.TrimSpace(label))
	for _, accent := range KnownAccents {
		if accent == normalized {
			return true
		}
	}
	return false
}

// DisplayLabel converts a raw model label to its title-cased UI form.
func DisplayLabel(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return ""
	}
	if name, ok := displayNames[normalized]; ok {
		return name
	}
	return strings.ToUpper(normalized[:1]) + normalized[1:]
}
