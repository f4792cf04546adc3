// Package nbt decodes a listing's compressed attribute blob (base64-wrapped,
// gzip-compressed NBT) into the subset of fields the identity resolver needs.
package nbt

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"

	mcnbt "github.com/Tnze/go-mc/nbt"

	"github.com/skyquery/skyquery/internal/domain"
)

// partialNBT mirrors the blob's outer shape: a single-element item list.
type partialNBT struct {
	Items []partialItem `nbt:"i"`
}

type partialItem struct {
	Count int32      `nbt:"Count"`
	Tag   partialTag `nbt:"tag"`
}

type partialTag struct {
	Extra   extraAttributes `nbt:"ExtraAttributes"`
	Display displayInfo     `nbt:"display"`
}

type displayInfo struct {
	Name string   `nbt:"Name"`
	Lore []string `nbt:"Lore"`
}

// extraAttributes is the open qualifier set embedded per item. Every field is
// optional; absent tags simply stay zero.
type extraAttributes struct {
	ID            string           `nbt:"id"`
	PetInfo       string           `nbt:"petInfo"`
	Enchantments  map[string]int32 `nbt:"enchantments"`
	Attributes    map[string]int32 `nbt:"attributes"`
	Runes         map[string]int32 `nbt:"runes"`
	PartyHatColor string           `nbt:"party_hat_color"`
	NewYearsCake  int32            `nbt:"new_years_cake"`
	WinningBid    int64            `nbt:"winning_bid"`
}

// Decode turns a listing's attribute blob into ParsedAttributes. A decode
// failure is fatal for that one listing only; callers skip it and continue.
func Decode(blob domain.ItemBytes) (domain.ParsedAttributes, error) {
	raw, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return domain.ParsedAttributes{}, fmt.Errorf("nbt: base64: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return domain.ParsedAttributes{}, fmt.Errorf("nbt: gunzip: %w", err)
	}
	defer gz.Close()

	var nb partialNBT
	if _, err := mcnbt.NewDecoder(gz).Decode(&nb); err != nil {
		return domain.ParsedAttributes{}, fmt.Errorf("nbt: decode: %w", err)
	}
	if len(nb.Items) == 0 {
		return domain.ParsedAttributes{}, fmt.Errorf("nbt: empty item list: %w", domain.ErrDecodeFailed)
	}

	item := nb.Items[0]
	attrs := domain.ParsedAttributes{
		ID:               item.Tag.Extra.ID,
		Count:            item.Count,
		DisplayName:      item.Tag.Display.Name,
		Enchantments:     item.Tag.Extra.Enchantments,
		Attributes:       item.Tag.Extra.Attributes,
		Runes:            item.Tag.Extra.Runes,
		PartyHatColor:    item.Tag.Extra.PartyHatColor,
		NewYearsCakeYear: item.Tag.Extra.NewYearsCake,
		WinningBid:       item.Tag.Extra.WinningBid,
	}

	// The pet descriptor is itself a JSON document nested inside the NBT.
	if item.Tag.Extra.PetInfo != "" {
		var pet domain.PetInfo
		if err := json.Unmarshal([]byte(item.Tag.Extra.PetInfo), &pet); err != nil {
			return domain.ParsedAttributes{}, fmt.Errorf("nbt: pet info: %w", err)
		}
		attrs.Pet = &pet
	}

	return attrs, nil
}
