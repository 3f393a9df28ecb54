package validation

import "strings"

// canonicalBrands is the tire brand vocabulary accepted by the validator.
// Matching is fuzzy: case and punctuation are ignored, so "B.F. Goodrich",
// "bfgoodrich" and "BF GOODRICH" all resolve to "BFGOODRICH".
var canonicalBrands = []string{
	"MICHELIN", "BRIDGESTONE", "GOODYEAR", "CONTINENTAL", "FIRESTONE",
	"YOKOHAMA", "HANKOOK", "DUNLOP", "TOYO", "KUMHO", "PIRELLI",
	"GENERAL", "BFGOODRICH", "COOPER", "SAILUN", "DOUBLE COIN",
	"TRIANGLE", "GITI", "FALKEN", "UNKNOWN",
}

var brandIndex = func() map[string]string {
	idx := make(map[string]string, len(canonicalBrands))
	for _, b := range canonicalBrands {
		idx[normalizeBrand(b)] = b
	}
	return idx
}()

// normalizeBrand keeps only letters and digits, uppercased.
func normalizeBrand(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			sb.WriteRune(r - 32)
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// MatchBrand resolves a free-form brand string to its canonical form.
// Returns ("", false) when the brand is not in the vocabulary.
func MatchBrand(s string) (string, bool) {
	n := normalizeBrand(s)
	if n == "" {
		return "", false
	}
	canon, ok := brandIndex[n]
	return canon, ok
}
