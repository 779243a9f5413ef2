package enums

import (
	"fmt"
	"strconv"
	"strings"
)

// Rarity mirrors the contract's rarity enum. Ordinals are part of the ABI.
type Rarity uint8

const (
	RarityCommon      Rarity = 0
	RarityRare        Rarity = 1
	RarityLegendary   Rarity = 2
	RarityMasterpiece Rarity = 3
)

var validRarities = []Rarity{RarityCommon, RarityRare, RarityLegendary, RarityMasterpiece}

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "Common"
	case RarityRare:
		return "Rare"
	case RarityLegendary:
		return "Legendary"
	case RarityMasterpiece:
		return "Masterpiece"
	default:
		return fmt.Sprintf("Rarity(%d)", uint8(r))
	}
}

func (r Rarity) IsValid() bool {
	return r <= RarityMasterpiece
}

// ParseRarity accepts the ordinal or the name in any case ("MASTERPIECE").
func ParseRarity(value string) (Rarity, error) {
	raw := strings.TrimSpace(value)
	if n, err := strconv.ParseUint(raw, 10, 8); err == nil {
		if r := Rarity(n); r.IsValid() {
			return r, nil
		}
		return 0, fmt.Errorf("invalid rarity %q", value)
	}
	for _, candidate := range validRarities {
		if strings.EqualFold(candidate.String(), raw) {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("invalid rarity %q", value)
}

// CompatibilityError describes why a rarity cannot be used with a media type.
// The empty string means the pair is allowed: videos are always Masterpiece
// and images never are.
func CompatibilityError(r Rarity, m MediaType) string {
	switch {
	case m == MediaTypeVideo && r != RarityMasterpiece:
		return "Videos can only have MASTERPIECE rarity"
	case m == MediaTypeImage && r == RarityMasterpiece:
		return "Images cannot have MASTERPIECE rarity"
	default:
		return ""
	}
}
