package garment

// Selection tracks the garment chosen for each slot.
// The zero value is not ready for use; call NewSelection.
// Selection is not safe for concurrent use; the owning session serializes access.
type Selection struct {
	upper      *Product
	lower      *Product
	mode       Mode
	activeSlot Slot
}

// NewSelection returns an empty selection in upper mode.
func NewSelection() *Selection {
	return &Selection{mode: ModeUpper, activeSlot: SlotUpper}
}

// SelectProduct writes p into the slot the current mode points at.
func (s *Selection) SelectProduct(p Product) {
	if s.targetSlot() == SlotUpper {
		s.upper = &p
		return
	}
	s.lower = &p
}

func (s *Selection) targetSlot() Slot {
	switch s.mode {
	case ModeUpper:
		return SlotUpper
	case ModeCombo:
		return s.activeSlot
	default:
		return SlotLower
	}
}

// SetMode switches the mode. Existing picks are kept so the user can switch back.
func (s *Selection) SetMode(m Mode) {
	s.mode = m
}

// SetActiveSlot chooses the slot for subsequent picks. Only effective in combo mode.
func (s *Selection) SetActiveSlot(slot Slot) {
	if s.mode != ModeCombo {
		return
	}
	s.activeSlot = slot
}

// ClearSlot removes the product from slot.
func (s *Selection) ClearSlot(slot Slot) {
	switch slot {
	case SlotUpper:
		s.upper = nil
	case SlotLower:
		s.lower = nil
	}
}

// Reset clears both slots and returns to upper mode.
func (s *Selection) Reset() {
	*s = *NewSelection()
}

// Mode returns the current mode.
func (s *Selection) Mode() Mode { return s.mode }

// ActiveSlot returns the combo-mode target slot.
func (s *Selection) ActiveSlot() Slot { return s.activeSlot }

// Upper returns a copy of the upper product, or nil.
func (s *Selection) Upper() *Product { return clone(s.upper) }

// Lower returns a copy of the lower product, or nil.
func (s *Selection) Lower() *Product { return clone(s.lower) }

// Empty reports whether no slot is occupied.
func (s *Selection) Empty() bool {
	return s.upper == nil && s.lower == nil
}

// Snapshot is an immutable copy of a selection.
type Snapshot struct {
	Upper      *Product `json:"upper,omitempty"`
	Lower      *Product `json:"lower,omitempty"`
	Mode       Mode     `json:"mode"`
	ActiveSlot Slot     `json:"active_slot,omitempty"`
}

// Snapshot copies the current state.
func (s *Selection) Snapshot() Snapshot {
	snap := Snapshot{Upper: s.Upper(), Lower: s.Lower(), Mode: s.mode}
	if s.mode == ModeCombo {
		snap.ActiveSlot = s.activeSlot
	}
	return snap
}

// ClothType derives the request discriminator from the occupied slots.
// ok is false when no slot is occupied.
func (snap Snapshot) ClothType() (ct ClothType, ok bool) {
	switch {
	case snap.Upper != nil && snap.Lower != nil:
		return ClothCombo, true
	case snap.Upper != nil:
		return ClothUpper, true
	case snap.Lower != nil:
		return ClothLower, true
	}
	return "", false
}

// Restore replaces both slots with the given products and shows the mode
// matching clothType. Used when replaying a historical result.
func (s *Selection) Restore(upper, lower *Product, ct ClothType) {
	s.upper = clone(upper)
	s.lower = clone(lower)
	s.mode = ModeFor(ct)
	s.activeSlot = SlotUpper
}

func clone(p *Product) *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
