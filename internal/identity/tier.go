package identity

import "strings"

// tierOrdinals maps feed tier strings to their ordinal. Boosted pets report a
// higher tier here than the nominal listing tier.
var tierOrdinals = map[string]int{
	"COMMON":    0,
	"UNCOMMON":  1,
	"RARE":      2,
	"EPIC":      3,
	"LEGENDARY": 4,
	"MYTHIC":    5,
}

// TierOrdinal returns the ordinal 0..5 for a tier string, or -1 when the tier
// is unrecognized. Unknown tiers are never an error.
func TierOrdinal(tier string) int {
	if n, ok := tierOrdinals[strings.ToUpper(strings.TrimSpace(tier))]; ok {
		return n
	}
	return -1
}
