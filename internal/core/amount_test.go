package core

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain", "125.50", 125.50},
		{"currency symbol", "$125.50", 125.50},
		{"thousands separator", "$1,250.00", 1250},
		{"parenthesized negative", "(45.00)", -45},
		{"currency negative", "($45.00)", -45},
		{"whitespace", "  99.99  ", 99.99},
		{"empty", "", 0},
		{"garbage", "n/a", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAmount(tt.input); got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseQty(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"integer", "3", 3},
		{"float", "2.0", 2},
		{"empty defaults to one", "", 1},
		{"garbage defaults to one", "many", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseQty(tt.input); got != tt.want {
				t.Errorf("ParseQty(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{6.666666, 6.67},
		{6.664, 6.66},
		{100.109, 100.11},
		{-2.567, -2.57},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round2(tt.input); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSplitEmployees(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"comma", "John Smith, Jane Miles", []string{"John Smith", "Jane Miles"}},
		{"semicolon", "John Smith; Jane Miles", []string{"John Smith", "Jane Miles"}},
		{"mixed", "A B, C D; E F", []string{"A B", "C D", "E F"}},
		{"empty segments", "John Smith,, ;", []string{"John Smith"}},
		{"single", "John Smith", []string{"John Smith"}},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitEmployees(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitEmployees(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SplitEmployees(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}
