package dataset

import (
	"encoding/json"
	"testing"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   int
		wantOK bool
	}{
		{"nil", nil, 0, false},
		{"int", 1998, 1998, true},
		{"float", 1998.0, 1998, true},
		{"fractional float", 1998.7, 1998, true},
		{"json number", json.Number("1850"), 1850, true},
		{"plain string", "1781", 1781, true},
		{"negative string", "-350", -350, true},
		{"leading integer", "1927 (reprint)", 1927, true},
		{"embedded digits", "c. 1650", 1650, true},
		{"forthcoming", "forthcoming", 0, false},
		{"empty string", "", 0, false},
		{"too early", -501, 0, false},
		{"lower bound", -500, -500, true},
		{"upper bound", "2030", 2030, true},
		{"too late", 2031, 0, false},
		{"digits out of range", "ca. 99999", 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseYear(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseYear(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseYear(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestYearPtr(t *testing.T) {
	if YearPtr("unknown") != nil {
		t.Error("Expected nil for unparsable year")
	}
	if y := YearPtr(1900); y == nil || *y != 1900 {
		t.Errorf("Expected 1900, got %v", y)
	}
}
