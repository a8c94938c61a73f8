package utils

import "testing"

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1234.56", 1234.56, true},
		{" 42 ", 42, true},
		{"1,23,456.78", 123456.78, true},
		{"₹ 2,500", 2500, true},
		{"18.4%", 18.4, true},
		{"-3.2", -3.2, true},
		{"0", 0, true},
		{"", 0, false},
		{"-", 0, false},
		{"NA", 0, false},
		{"n/a", 0, false},
		{"not a number", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseNumber(tt.in)
			if (got != nil) != tt.ok {
				t.Fatalf("ParseNumber(%q) presence = %v, want %v", tt.in, got != nil, tt.ok)
			}
			if got != nil && *got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, *got, tt.want)
			}
		})
	}
}
