package core

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Match tier weights. Exact keyword matches outrank substring matches,
// which outrank sample-data type inference.
const (
	weightExact     = 100
	weightSubstring = 60
	weightSample    = 30
)

// LowConfidence is the threshold below which the caller should offer
// manual mapping correction instead of accepting the detected mapping.
const LowConfidence = 50

// detectionKeywords is the declarative matcher table: per-field keyword
// sets compared against normalized header tokens. Keywords are stored
// already normalized (lower-case, no diacritics, no punctuation).
var detectionKeywords = map[Field][]string{
	FieldItemID: {
		"nr indeksu", "numer indeksu", "indeks", "item id", "itemid",
		"index", "kod", "kod towaru", "code", "sku", "symbol",
	},
	FieldName: {
		"nazwa towaru", "nazwa", "nazwa materialu", "name", "product",
		"product name", "towar", "material", "description", "opis", "asortyment",
	},
	FieldQuantity: {
		"ilosc", "quantity", "qty", "amount", "stan", "stan magazynowy", "liczba",
	},
	FieldUnit: {
		"jmz", "jm", "unit", "uom", "unit of measure", "jednostka",
		"jednostka miary", "miara",
	},
	FieldOrdinal: {
		"lp", "l p", "no", "poz", "pozycja", "position", "ordinal",
	},
}

// Detection is the result of header analysis: a best-effort mapping and
// a 0-100 confidence score. Detection never fails; a zero-confidence
// result still carries a (possibly empty) mapping.
type Detection struct {
	Mapping    Mapping `json:"mapping"`
	Confidence int     `json:"confidence"`
}

// NeedsReview reports whether the caller should ask for manual mapping.
func (d Detection) NeedsReview() bool {
	return d.Confidence < LowConfidence
}

// headerNormalizer strips diacritics so that e.g. "Ilość" and "Ilosc"
// compare equal.
var headerNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeHeader produces the comparison token for a header cell:
// lower-case, diacritics stripped, punctuation replaced by spaces,
// whitespace collapsed.
func normalizeHeader(h string) string {
	s := strings.ToLower(strings.TrimSpace(h))
	if folded, _, err := transform.String(headerNormalizer, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// candidate is one potential field-to-column assignment.
type candidate struct {
	field  Field
	column int
	weight int
}

// Detect proposes a canonical field mapping for a header row, optionally
// refined with sample data rows. Pure and deterministic: identical input
// yields an identical mapping and confidence.
func Detect(headers []string, sampleRows [][]Cell) Detection {
	tokens := make([]string, len(headers))
	for i, h := range headers {
		tokens[i] = normalizeHeader(h)
	}

	var candidates []candidate
	for _, f := range Fields {
		for col, token := range tokens {
			if token == "" {
				continue
			}
			if w := keywordWeight(f, token); w > 0 {
				candidates = append(candidates, candidate{field: f, column: col, weight: w})
			}
		}
	}

	// Best weight wins; ties resolve to the earlier field in canonical
	// order, then the earlier column, so detection stays deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		if candidates[i].field != candidates[j].field {
			return fieldRank(candidates[i].field) < fieldRank(candidates[j].field)
		}
		return candidates[i].column < candidates[j].column
	})

	mapping := make(Mapping)
	weights := make(map[Field]int)
	claimed := make(map[int]bool)
	for _, c := range candidates {
		if _, done := mapping[c.field]; done || claimed[c.column] {
			continue
		}
		mapping[c.field] = c.column
		weights[c.field] = c.weight
		claimed[c.column] = true
	}

	// Sample-data inference: an unclaimed column whose sample values are
	// all numeric is a quantity candidate.
	if _, ok := mapping[FieldQuantity]; !ok && len(sampleRows) > 0 {
		for col := range headers {
			if claimed[col] {
				continue
			}
			if columnAllNumeric(sampleRows, col) {
				mapping[FieldQuantity] = col
				weights[FieldQuantity] = weightSample
				claimed[col] = true
				break
			}
		}
	}

	return Detection{Mapping: mapping, Confidence: confidence(weights)}
}

// keywordWeight returns the best match tier for a normalized header
// token against a field's keyword set.
func keywordWeight(f Field, token string) int {
	best := 0
	for _, kw := range detectionKeywords[f] {
		switch {
		case token == kw:
			return weightExact
		// Short keywords like "lp" and "no" only count on exact match;
		// as substrings they would claim unrelated headers ("Notes").
		case strings.Contains(token, kw) && len(kw) >= 3:
			if weightSubstring > best {
				best = weightSubstring
			}
		}
	}
	return best
}

// columnAllNumeric reports whether every non-empty sample value in the
// column parses as a number. Columns with no samples at all do not
// qualify.
func columnAllNumeric(sampleRows [][]Cell, col int) bool {
	seen := false
	for _, row := range sampleRows {
		if col >= len(row) || row[col].IsEmpty() {
			continue
		}
		if _, err := parseQuantity(row[col]); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// confidence is the weighted fraction of required fields matched,
// scaled to 0-100.
func confidence(weights map[Field]int) int {
	total := 0
	for _, f := range RequiredFields {
		total += weights[f]
	}
	return total * 100 / (len(RequiredFields) * weightExact)
}

func fieldRank(f Field) int {
	for i, ff := range Fields {
		if ff == f {
			return i
		}
	}
	return len(Fields)
}
