package enums

import "fmt"

// PinKind distinguishes uploaded media from the metadata document.
type PinKind string

const (
	PinKindFile     PinKind = "file"
	PinKindMetadata PinKind = "metadata"
)

func (k PinKind) String() string {
	return string(k)
}

// PinStatus tracks whether a pinned object ended up referenced by a token.
type PinStatus string

const (
	PinStatusPinned   PinStatus = "pinned"
	PinStatusMinted   PinStatus = "minted"
	PinStatusOrphaned PinStatus = "orphaned"
)

var validPinStatuses = []PinStatus{PinStatusPinned, PinStatusMinted, PinStatusOrphaned}

func (s PinStatus) String() string {
	return string(s)
}

func (s PinStatus) IsValid() bool {
	for _, candidate := range validPinStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePinStatus converts raw query input into a PinStatus.
func ParsePinStatus(value string) (PinStatus, error) {
	for _, candidate := range validPinStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pin status %q", value)
}
