package domain

// ParsedAttributes is the decoded form of a listing's attribute blob: the base
// item type code plus the open set of optional qualifiers the identity
// resolver consumes. Derived once per listing and read-only afterward.
type ParsedAttributes struct {
	// ID is the base item type code, e.g. "ASPECT_OF_THE_END", "PET",
	// "ENCHANTED_BOOK", "ATTRIBUTE_SHARD".
	ID string

	// Count is the stack size of the item.
	Count int32

	// DisplayName is the item's display name, color codes included.
	DisplayName string

	// Enchantments maps enchantment name to level.
	Enchantments map[string]int32

	// Attributes maps attribute-shard name to level.
	Attributes map[string]int32

	// Runes maps rune name to level.
	Runes map[string]int32

	// Pet is set when the item is a pet; the nested descriptor carries the
	// pet's own tier, which may differ from the listing tier when boosted.
	Pet *PetInfo

	// PartyHatColor is the color qualifier of festive headwear.
	PartyHatColor string

	// NewYearsCakeYear is the year qualifier of the yearly collectible cake;
	// zero when absent.
	NewYearsCakeYear int32

	// WinningBid is the embedded winning-bid amount of bid-upgraded items;
	// zero when absent.
	WinningBid int64
}

// PetInfo is the pet descriptor embedded as JSON inside the attribute blob.
type PetInfo struct {
	Type     string `json:"type"`
	Tier     string `json:"tier"`
	HeldItem string `json:"heldItem"`
}
