package core

import "strings"

// unitAliases maps free-text unit spellings to their canonical token.
// Keys are lower-case; targets are never themselves keys, which keeps
// NormalizeUnit idempotent.
var unitAliases = map[string]string{
	"gram":        "g",
	"grams":       "g",
	"gramy":       "g",
	"gramow":      "g",
	"gramów":      "g",
	"kilogram":    "kg",
	"kilograms":   "kg",
	"kilogramy":   "kg",
	"kilogramow":  "kg",
	"kilogramów":  "kg",
	"liter":       "l",
	"litre":       "l",
	"liters":      "l",
	"litres":      "l",
	"litr":        "l",
	"litry":       "l",
	"litrow":      "l",
	"litrów":      "l",
	"milliliter":  "ml",
	"millilitre":  "ml",
	"mililitr":    "ml",
	"mililitry":   "ml",
	"milligram":   "mg",
	"milligrams":  "mg",
	"miligram":    "mg",
	"miligramy":   "mg",
	"sztuka":      "szt",
	"sztuki":      "szt",
	"sztuk":       "szt",
	"szt.":        "szt",
	"piece":       "pcs",
	"pieces":      "pcs",
	"pc":          "pcs",
	"opakowanie":  "opak",
	"opakowania":  "opak",
	"opakowan":    "opak",
	"opakowań":    "opak",
	"opak.":       "opak",
	"kartony":     "karton",
	"kartonow":    "karton",
	"kartonów":    "karton",
}

// NormalizeUnit canonicalizes a free-text unit token: lower-cases,
// trims, and resolves the alias table. Unknown tokens pass through
// case-folded. Idempotent; never fails.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if canonical, ok := unitAliases[u]; ok {
		return canonical
	}
	return u
}
