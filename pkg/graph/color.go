package graph

import (
	"unicode/utf16"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ritzau/mutual-graph/pkg/model"
)

const (
	saturation      = 0.65
	lightness       = 0.50
	borderLightness = 0.32
)

// ColorFromID derives a stable colour pair from an identity. The hue comes
// from HashID, so the same identity is coloured the same in every session
// and in the browser UI.
func ColorFromID(id string) model.Color {
	hue := float64(HashID(id) % 360)
	return model.Color{
		Background: colorful.Hsl(hue, saturation, lightness).Hex(),
		Border:     colorful.Hsl(hue, saturation, borderLightness).Hex(),
	}
}

// HashID is FNV-1a over the UTF-16 code units of id followed by the murmur3
// finaliser, returned as the absolute value of the signed 32-bit result.
func HashID(id string) uint32 {
	h := uint32(0x811c9dc5)
	for _, unit := range utf16.Encode([]rune(id)) {
		h ^= uint32(unit)
		h *= 0x01000193
	}
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	if s := int32(h); s < 0 {
		return uint32(-int64(s))
	}
	return h
}
