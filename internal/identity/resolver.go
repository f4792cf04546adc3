// Package identity derives the canonical pricing key for a listing from its
// decoded attributes. Resolve is a pure function: the same attributes always
// produce the same key and tier, and listings that differ only in seller,
// uuid, or timestamps share a key.
package identity

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/skyquery/skyquery/internal/domain"
)

// colorCodeRegex matches the legacy formatting codes embedded in display
// names and lore (section sign followed by a code character).
var colorCodeRegex = regexp.MustCompile(`(?i)\x{00A7}[0-9A-FK-OR]`)

// StripColorCodes removes formatting codes from a display string.
func StripColorCodes(s string) string {
	return colorCodeRegex.ReplaceAllString(s, "")
}

// attributeCarrierID is the generic item whose only purpose is to carry a
// single attribute; its price scales with the attribute level.
const attributeCarrierID = "ATTRIBUTE_SHARD"

// tierBoostHeldItems are pet held items that raise the pet's effective tier.
var tierBoostHeldItems = map[string]bool{
	"PET_ITEM_TIER_BOOST":   true,
	"PET_ITEM_VAMPIRE_FANG": true,
	"PET_ITEM_TOY_JERRY":    true,
}

// ResolveContext carries the listing-level fields the resolver needs beyond
// the decoded attributes.
type ResolveContext struct {
	// FixedPrice is the listing's buy-it-now flag; pet keys are only
	// rewritten for fixed-price comparisons.
	FixedPrice bool
	// ListingTier is the nominal tier the feed assigned to the listing.
	ListingTier string
	// DisplayName is the raw listing display name.
	DisplayName string
	// Lore is the raw listing description text.
	Lore string
}

// Resolution is the canonical identity derived from one listing.
type Resolution struct {
	// Key is the canonical pricing key. Two listings share a Key exactly
	// when they are the same priceable variant.
	Key string

	// Tier is the effective tier: the pet descriptor's own tier for pets
	// (boosting raises it above the nominal tier), the listing tier
	// otherwise.
	Tier string

	// TierOrdinal is Tier as 0..5, or -1 when unrecognized.
	TierOrdinal int

	// PriceDivisor normalizes a single-attribute carrier's price to level 1
	// (the attribute's value doubles per level). 1 for everything else.
	PriceDivisor float64

	// EnchantKeys are the per-enchant lowest-ask keys of an enchanted book,
	// each NAME;LEVEL uppercased.
	EnchantKeys []string

	// Enchants are the NAME;LEVEL strings stored on the full-record row.
	Enchants []string

	// PetKey is the pet average key: the color-stripped display name with a
	// tier suffix and a _TB marker when a tier-boosting held item is
	// equipped. Empty for non-pets.
	PetKey string

	// IsPet reports whether the listing is a pet.
	IsPet bool
}

// variantRule is one entry of the ordered cosmetic-variant table. Rules are
// evaluated top to bottom and at most one fires per item.
type variantRule struct {
	name    string
	applies func(a domain.ParsedAttributes) bool
	rewrite func(key string, a domain.ParsedAttributes) string
}

var variantRules = []variantRule{
	{
		name: "party_hat_color",
		applies: func(a domain.ParsedAttributes) bool {
			return a.ID == "PARTY_HAT_CRAB" && a.PartyHatColor != ""
		},
		rewrite: func(key string, a domain.ParsedAttributes) string {
			return key + "_" + strings.ToUpper(a.PartyHatColor)
		},
	},
	{
		name: "new_year_cake",
		applies: func(a domain.ParsedAttributes) bool {
			return a.ID == "NEW_YEAR_CAKE" && a.NewYearsCakeYear > 0
		},
		rewrite: func(key string, a domain.ParsedAttributes) string {
			return fmt.Sprintf("%s_%d", key, a.NewYearsCakeYear)
		},
	},
	{
		name: "midas_sword_bid",
		applies: func(a domain.ParsedAttributes) bool {
			return a.ID == "MIDAS_SWORD" && a.WinningBid > 50_000_000
		},
		rewrite: func(key string, a domain.ParsedAttributes) string {
			return key + "_50M"
		},
	},
	{
		name: "midas_staff_bid",
		applies: func(a domain.ParsedAttributes) bool {
			return a.ID == "MIDAS_STAFF" && a.WinningBid > 100_000_000
		},
		rewrite: func(key string, a domain.ParsedAttributes) string {
			return key + "_100M"
		},
	},
	{
		name: "single_rune",
		applies: func(a domain.ParsedAttributes) bool {
			return a.ID == "RUNE" && len(a.Runes) == 1
		},
		rewrite: func(key string, a domain.ParsedAttributes) string {
			for name, level := range a.Runes {
				return fmt.Sprintf("%s_RUNE;%d", strings.ToUpper(name), level)
			}
			return key
		},
	},
}

// Resolve computes the canonical pricing key and effective tier for one
// listing. It never fails: unknown tiers map to ordinal -1 and absent
// qualifiers simply skip their rules.
func Resolve(attrs domain.ParsedAttributes, rctx ResolveContext) Resolution {
	res := Resolution{
		Key:          attrs.ID,
		Tier:         strings.ToUpper(strings.TrimSpace(rctx.ListingTier)),
		PriceDivisor: 1,
	}

	switch {
	case attrs.ID == "PET" && attrs.Pet != nil:
		resolvePet(attrs, rctx, &res)
	case attrs.ID == "ENCHANTED_BOOK" && len(attrs.Enchantments) > 0:
		resolveBook(attrs, &res)
	default:
		resolveAttributes(attrs, &res)
		for _, rule := range variantRules {
			if rule.applies(attrs) {
				res.Key = rule.rewrite(res.Key, attrs)
				break
			}
		}
	}

	res.TierOrdinal = TierOrdinal(res.Tier)
	return res
}

// resolvePet reads the effective tier from the pet's own descriptor and, for
// fixed-price comparisons, rewrites the key to the cosmetic-stripped pet name
// plus the tier ordinal.
func resolvePet(attrs domain.ParsedAttributes, rctx ResolveContext, res *Resolution) {
	res.IsPet = true
	res.Tier = strings.ToUpper(strings.TrimSpace(attrs.Pet.Tier))

	displayName := StripColorCodes(attrs.DisplayName)
	if displayName == "" {
		displayName = StripColorCodes(rctx.DisplayName)
	}

	res.PetKey = petAverageKey(displayName, res.Tier, attrs.Pet.HeldItem)

	if rctx.FixedPrice {
		// Pet display names carry a level prefix: "[Lvl 62] Blue Whale".
		// The level is cosmetic for pricing; only the name matters.
		if _, name, ok := strings.Cut(displayName, "] "); ok && name != "" {
			res.Key = fmt.Sprintf("%s;%d", cleanName(name), TierOrdinal(res.Tier))
		}
	}
}

// petAverageKey builds the pet accumulator key NAME_TIER with a _TB suffix
// when a tier-boosting held item is equipped.
func petAverageKey(displayName, tier, heldItem string) string {
	suffix := ""
	if tierBoostHeldItems[heldItem] {
		suffix = "_TB"
	}
	return strings.ToUpper(cleanName(displayName) + "_" + tier + suffix)
}

// cleanName normalizes a display name into key form: spaces to underscores,
// the skin marker stripped, uppercased.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "_???", "")
	return strings.ToUpper(name)
}

// resolveBook builds per-enchant keys for an enchanted book. A book with a
// single enchantment collapses to that enchantment's NAME;LEVEL key; books
// with more enchantments keep the base key with every enchant appended so
// that distinct enchantment sets never collide.
func resolveBook(attrs domain.ParsedAttributes, res *Resolution) {
	names := make([]string, 0, len(attrs.Enchantments))
	for name := range attrs.Enchantments {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		enchant := fmt.Sprintf("%s;%d", strings.ToUpper(name), attrs.Enchantments[name])
		res.EnchantKeys = append(res.EnchantKeys, enchant)
		res.Enchants = append(res.Enchants, enchant)
	}

	if len(res.EnchantKeys) == 1 {
		res.Key = res.EnchantKeys[0]
		return
	}
	res.Key = attrs.ID + "+" + strings.Join(res.EnchantKeys, "+")
}

// resolveAttributes applies the attribute-shard rules: a carrier with exactly
// one attribute is keyed by that attribute and its price normalized to level
// one; any other item with attributes has each one appended in id order
// without touching the price.
func resolveAttributes(attrs domain.ParsedAttributes, res *Resolution) {
	if len(attrs.Attributes) == 0 {
		return
	}

	names := make([]string, 0, len(attrs.Attributes))
	for name := range attrs.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	if attrs.ID == attributeCarrierID {
		if len(names) != 1 {
			return
		}
		name := names[0]
		res.Key = attrs.ID + "_" + strings.ToUpper(name)
		// Attribute value doubles per level, so a level-L price maps to a
		// level-1 reference price by dividing by 2^(L-1).
		if level := attrs.Attributes[name]; level > 1 {
			res.PriceDivisor = math.Pow(2, float64(level-1))
		}
		return
	}

	for _, name := range names {
		res.Key += "+ATTRIBUTE_SHARD_" + strings.ToUpper(name)
	}
}
