package garment

import "testing"

func TestSelectProduct_TargetsSlotByMode(t *testing.T) {
	shirt := Product{ID: "p1", Title: "Shirt"}

	tests := []struct {
		name      string
		mode      Mode
		active    Slot
		wantUpper bool
	}{
		{"upper mode", ModeUpper, SlotLower, true},
		{"lower mode", ModeLower, SlotUpper, false},
		{"combo upper active", ModeCombo, SlotUpper, true},
		{"combo lower active", ModeCombo, SlotLower, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelection()
			s.SetMode(tt.mode)
			s.SetActiveSlot(tt.active)
			s.SelectProduct(shirt)

			gotUpper := s.Upper() != nil
			if gotUpper != tt.wantUpper {
				t.Errorf("upper occupied = %v, want %v", gotUpper, tt.wantUpper)
			}
			if gotUpper == (s.Lower() != nil) {
				t.Error("exactly one slot should be occupied")
			}
		})
	}
}

func TestSetMode_KeepsSelections(t *testing.T) {
	s := NewSelection()
	s.SetMode(ModeLower)
	s.SelectProduct(Product{ID: "jeans"})
	s.SetMode(ModeUpper)
	s.SelectProduct(Product{ID: "shirt"})

	if s.Lower() == nil || s.Lower().ID != "jeans" {
		t.Fatalf("lower garment lost after mode switch: %+v", s.Lower())
	}
	s.SetMode(ModeLower)
	if s.Upper() == nil || s.Upper().ID != "shirt" {
		t.Fatalf("upper garment lost after mode switch: %+v", s.Upper())
	}
}

func TestSetActiveSlot_IgnoredOutsideCombo(t *testing.T) {
	s := NewSelection()
	s.SetActiveSlot(SlotLower)
	if s.ActiveSlot() != SlotUpper {
		t.Errorf("active slot changed outside combo mode: %s", s.ActiveSlot())
	}

	s.SetMode(ModeCombo)
	s.SetActiveSlot(SlotLower)
	if s.ActiveSlot() != SlotLower {
		t.Errorf("active slot = %s, want lower", s.ActiveSlot())
	}
}

func TestClearSlot(t *testing.T) {
	s := NewSelection()
	s.SetMode(ModeCombo)
	s.SelectProduct(Product{ID: "a"})
	s.SetActiveSlot(SlotLower)
	s.SelectProduct(Product{ID: "b"})

	s.ClearSlot(SlotUpper)
	if s.Upper() != nil {
		t.Error("upper should be cleared")
	}
	if s.Lower() == nil {
		t.Error("lower should be untouched")
	}
	s.ClearSlot(SlotLower)
	if !s.Empty() {
		t.Error("selection should be empty")
	}
}

func TestSnapshot_ClothType(t *testing.T) {
	top := &Product{ID: "top"}
	bottom := &Product{ID: "bottom"}

	tests := []struct {
		name   string
		snap   Snapshot
		want   ClothType
		wantOK bool
	}{
		{"upper only", Snapshot{Upper: top}, ClothUpper, true},
		{"lower only", Snapshot{Lower: bottom}, ClothLower, true},
		{"both", Snapshot{Upper: top, Lower: bottom}, ClothCombo, true},
		{"both in upper mode", Snapshot{Upper: top, Lower: bottom, Mode: ModeUpper}, ClothCombo, true},
		{"none", Snapshot{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.snap.ClothType()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ClothType() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewSelection()
	s.SelectProduct(Product{ID: "a", Title: "before"})
	snap := s.Snapshot()
	snap.Upper.Title = "after"

	if s.Upper().Title != "before" {
		t.Error("mutating a snapshot leaked into the selection")
	}
}

func TestRestore(t *testing.T) {
	s := NewSelection()
	s.Restore(&Product{ID: "a"}, &Product{ID: "b"}, ClothCombo)

	if s.Mode() != ModeCombo {
		t.Errorf("mode = %s, want combo", s.Mode())
	}
	if s.Upper().ID != "a" || s.Lower().ID != "b" {
		t.Errorf("restore mismatch: %+v", s.Snapshot())
	}
}

func TestParse(t *testing.T) {
	if m, err := ParseMode(" Combo "); err != nil || m != ModeCombo {
		t.Errorf("ParseMode = %v, %v", m, err)
	}
	if _, err := ParseMode("shoes"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if s, err := ParseSlot("LOWER"); err != nil || s != SlotLower {
		t.Errorf("ParseSlot = %v, %v", s, err)
	}
	if _, err := ParseSlot("feet"); err == nil {
		t.Error("expected error for unknown slot")
	}
}
