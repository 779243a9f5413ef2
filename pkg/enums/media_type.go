package enums

import (
	"fmt"
	"strconv"
	"strings"
)

// MediaType mirrors the contract's media enum.
type MediaType uint8

const (
	MediaTypeImage MediaType = 0
	MediaTypeVideo MediaType = 1
)

var mediaTypeNames = map[MediaType]string{
	MediaTypeImage: "Image",
	MediaTypeVideo: "Video",
}

// String returns the display name used in token metadata attributes.
func (m MediaType) String() string {
	if name, ok := mediaTypeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MediaType(%d)", uint8(m))
}

// IsValid reports whether the media type is known.
func (m MediaType) IsValid() bool {
	_, ok := mediaTypeNames[m]
	return ok
}

// ParseMediaType accepts the ordinal ("0", "1") or the name in any case.
func ParseMediaType(value string) (MediaType, error) {
	raw := strings.TrimSpace(value)
	if n, err := strconv.ParseUint(raw, 10, 8); err == nil {
		if m := MediaType(n); m.IsValid() {
			return m, nil
		}
		return 0, fmt.Errorf("invalid media type %q", value)
	}
	for m, name := range mediaTypeNames {
		if strings.EqualFold(name, raw) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid media type %q", value)
}
