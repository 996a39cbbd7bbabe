// Package garment holds the garment selection state for a try-on session:
// which product occupies which body slot and which slot receives the next pick.
package garment

import (
	"fmt"
	"strings"
)

// Slot is a body region a garment can occupy.
type Slot string

const (
	SlotUpper Slot = "upper"
	SlotLower Slot = "lower"
)

// Mode selects which slot(s) the current request targets.
type Mode string

const (
	ModeUpper Mode = "upper"
	ModeLower Mode = "lower"
	ModeCombo Mode = "combo"
)

// ClothType is the request discriminator sent to the try-on service.
type ClothType string

const (
	ClothUpper ClothType = "upper"
	ClothLower ClothType = "lower"
	ClothCombo ClothType = "combo"
)

// Product is a catalog item as handed over by the product-selection screen.
// ImageURL is the resolved reference image for the chosen color and size.
type Product struct {
	ID       string `json:"id" bson:"id"`
	Title    string `json:"title" bson:"title"`
	Category string `json:"category,omitempty" bson:"category,omitempty"`
	Color    string `json:"color,omitempty" bson:"color,omitempty"`
	Size     string `json:"size,omitempty" bson:"size,omitempty"`
	ImageURL string `json:"image_url" bson:"image_url"`
}

// ParseSlot parses a slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case SlotUpper:
		return SlotUpper, nil
	case SlotLower:
		return SlotLower, nil
	}
	return "", fmt.Errorf("unknown slot %q", s)
}

// ParseMode parses a try-on mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeUpper:
		return ModeUpper, nil
	case ModeLower:
		return ModeLower, nil
	case ModeCombo:
		return ModeCombo, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// ModeFor returns the mode that displays the slots used by clothType.
func ModeFor(ct ClothType) Mode {
	switch ct {
	case ClothLower:
		return ModeLower
	case ClothCombo:
		return ModeCombo
	default:
		return ModeUpper
	}
}
