package nbt

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"testing"

	mcnbt "github.com/Tnze/go-mc/nbt"

	"github.com/skyquery/skyquery/internal/domain"
)

func encodeBlob(t *testing.T, v any) domain.ItemBytes {
	t.Helper()

	var raw bytes.Buffer
	if err := mcnbt.NewEncoder(&raw).Encode(v, ""); err != nil {
		t.Fatalf("encode nbt: %v", err)
	}

	var packed bytes.Buffer
	gw := gzip.NewWriter(&packed)
	if _, err := gw.Write(raw.Bytes()); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	return domain.ItemBytes{Data: base64.StdEncoding.EncodeToString(packed.Bytes())}
}

func TestDecode(t *testing.T) {
	blob := encodeBlob(t, partialNBT{
		Items: []partialItem{{
			Count: 3,
			Tag: partialTag{
				Display: displayInfo{Name: "§9Aspect of the End"},
				Extra: extraAttributes{
					ID:           "ASPECT_OF_THE_END",
					Enchantments: map[string]int32{"sharpness": 5},
					Attributes:   map[string]int32{"mana_pool": 2},
					WinningBid:   60_000_000,
				},
			},
		}},
	})

	attrs, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if attrs.ID != "ASPECT_OF_THE_END" {
		t.Errorf("ID = %q", attrs.ID)
	}
	if attrs.Count != 3 {
		t.Errorf("Count = %d", attrs.Count)
	}
	if attrs.DisplayName != "§9Aspect of the End" {
		t.Errorf("DisplayName = %q", attrs.DisplayName)
	}
	if attrs.Enchantments["sharpness"] != 5 {
		t.Errorf("Enchantments = %v", attrs.Enchantments)
	}
	if attrs.Attributes["mana_pool"] != 2 {
		t.Errorf("Attributes = %v", attrs.Attributes)
	}
	if attrs.WinningBid != 60_000_000 {
		t.Errorf("WinningBid = %d", attrs.WinningBid)
	}
	if attrs.Pet != nil {
		t.Errorf("Pet = %+v, want nil", attrs.Pet)
	}
}

func TestDecodePetInfo(t *testing.T) {
	blob := encodeBlob(t, partialNBT{
		Items: []partialItem{{
			Count: 1,
			Tag: partialTag{
				Display: displayInfo{Name: "§7[Lvl 100] §6Ender Dragon"},
				Extra: extraAttributes{
					ID:      "PET",
					PetInfo: `{"type":"ENDER_DRAGON","tier":"LEGENDARY","heldItem":"PET_ITEM_TIER_BOOST"}`,
				},
			},
		}},
	})

	attrs, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if attrs.Pet == nil {
		t.Fatal("Pet = nil")
	}
	if attrs.Pet.Type != "ENDER_DRAGON" || attrs.Pet.Tier != "LEGENDARY" || attrs.Pet.HeldItem != "PET_ITEM_TIER_BOOST" {
		t.Errorf("Pet = %+v", *attrs.Pet)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]domain.ItemBytes{
		"bad base64": {Data: "!!not-base64!!"},
		"bad gzip":   {Data: base64.StdEncoding.EncodeToString([]byte("plain bytes"))},
	}
	for name, blob := range cases {
		if _, err := Decode(blob); err == nil {
			t.Errorf("%s: Decode succeeded, want error", name)
		}
	}
}

func TestDecodeEmptyItemList(t *testing.T) {
	blob := encodeBlob(t, partialNBT{})
	_, err := Decode(blob)
	if !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("err = %v, want ErrDecodeFailed", err)
	}
}
