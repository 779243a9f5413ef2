package metadata

import (
	"github.com/nftennis/nftennis-backend/pkg/enums"
)

const (
	TraitRarity    = "Rarity"
	TraitMediaType = "Media Type"
)

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Document is the off-chain token metadata. Images use Image and videos use
// AnimationURL; both point at the pinned media.
type Document struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Image        string      `json:"image,omitempty"`
	AnimationURL string      `json:"animation_url,omitempty"`
	Attributes   []Attribute `json:"attributes"`
}

// Build assembles the document for freshly pinned media.
func Build(name, description, mediaURL string, rarity enums.Rarity, media enums.MediaType) Document {
	doc := Document{
		Name:        name,
		Description: description,
		Attributes: []Attribute{
			{TraitType: TraitRarity, Value: rarity.String()},
			{TraitType: TraitMediaType, Value: media.String()},
		},
	}
	if media == enums.MediaTypeVideo {
		doc.AnimationURL = mediaURL
	} else {
		doc.Image = mediaURL
	}
	return doc
}

// Trait returns the string value of the named attribute, or "".
func (d Document) Trait(name string) string {
	for _, attr := range d.Attributes {
		if attr.TraitType != name {
			continue
		}
		if s, ok := attr.Value.(string); ok {
			return s
		}
	}
	return ""
}

// MediaURL returns whichever media link the document carries.
func (d Document) MediaURL() string {
	if d.AnimationURL != "" {
		return d.AnimationURL
	}
	return d.Image
}
