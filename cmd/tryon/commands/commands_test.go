package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/history"
)

func TestSelectionFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		upper   string
		lower   string
		mode    string
		want    garment.ClothType
		wantErr bool
	}{
		{name: "upper only", upper: "u.jpg", want: garment.ClothUpper},
		{name: "lower only", lower: "l.jpg", want: garment.ClothLower},
		{name: "both", upper: "u.jpg", lower: "l.jpg", want: garment.ClothCombo},
		{name: "both with upper mode", upper: "u.jpg", lower: "l.jpg", mode: "upper", want: garment.ClothUpper},
		{name: "both with lower mode", upper: "u.jpg", lower: "l.jpg", mode: "lower", want: garment.ClothLower},
		{name: "none", wantErr: true},
		{name: "unknown mode", upper: "u.jpg", mode: "hat", wantErr: true},
		{name: "mode misses garment", upper: "u.jpg", mode: "lower", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := selectionFromFlags(tt.upper, tt.lower, tt.mode)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			got, ok := sel.Snapshot().ClothType()
			if !ok || got != tt.want {
				t.Errorf("cloth type = %s, %v; want %s", got, ok, tt.want)
			}
		})
	}
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	printEntries(&buf, []history.Entry{{
		ID:             "T1",
		Timestamp:      time.Now(),
		ClothType:      garment.ClothCombo,
		Upper:          &garment.Product{ID: "A", Title: "Shirt"},
		ResultImageURL: "R1",
	}})

	out := buf.String()
	for _, want := range []string{"TASK", "T1", "combo", "Shirt", "R1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	if err := setLogLevel("debug"); err != nil {
		t.Fatal(err)
	}
	if err := setLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
	setLogLevel("info")
}
