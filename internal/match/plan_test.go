package match

import (
	"testing"

	"gymops/internal/core"
)

func TestResolvePlan(t *testing.T) {
	catalog := []core.PlanEntry{
		{Label: "Premier Monthly", Price: 49.99},
		{Label: "Basic", Price: 29.99},
		{Label: "Premier PIF 12mo", Price: 599},
		{Label: "Family Pay In Full", Price: 899},
		{Label: "Gold Premium Membership Monthly", Price: 79.99},
	}

	tests := []struct {
		name        string
		label       string
		wantPrice   float64
		wantMatched string
		wantOK      bool
	}{
		{
			name:        "exact match",
			label:       "Premier Monthly",
			wantPrice:   49.99,
			wantMatched: "Premier Monthly",
			wantOK:      true,
		},
		{
			name:        "case-insensitive match",
			label:       "premier monthly",
			wantPrice:   49.99,
			wantMatched: "Premier Monthly",
			wantOK:      true,
		},
		{
			name:        "label contained in canonical",
			label:       "Basic",
			wantPrice:   29.99,
			wantMatched: "Basic",
			wantOK:      true,
		},
		{
			name:        "canonical contained in label",
			label:       "2024 Basic Promo",
			wantPrice:   29.99,
			wantMatched: "Basic",
			wantOK:      true,
		},
		{
			name:        "token overlap picks best entry",
			label:       "Premium Monthly Draft",
			wantPrice:   79.99,
			wantMatched: "Gold Premium Membership Monthly",
			wantOK:      true,
		},
		{
			name:        "pif plan forced to zero",
			label:       "Premier PIF 12mo",
			wantPrice:   0,
			wantMatched: "Premier PIF 12mo",
			wantOK:      true,
		},
		{
			name:        "pay in full forced to zero",
			label:       "family pay in full",
			wantPrice:   0,
			wantMatched: "Family Pay In Full",
			wantOK:      true,
		},
		{
			name:   "no overlap is a miss",
			label:  "Corporate Wellness",
			wantOK: false,
		},
		{
			name:   "empty label is a miss",
			label:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, matched, ok := ResolvePlan(tt.label, catalog)
			if ok != tt.wantOK {
				t.Fatalf("ResolvePlan(%q) ok = %v, want %v", tt.label, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if price != tt.wantPrice || matched != tt.wantMatched {
				t.Errorf("ResolvePlan(%q) = (%v, %q), want (%v, %q)",
					tt.label, price, matched, tt.wantPrice, tt.wantMatched)
			}
		})
	}
}
