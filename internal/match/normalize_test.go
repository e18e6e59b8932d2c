package match

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain name lowercased",
			input: "John Smith",
			want:  "john smith",
		},
		{
			name:  "last comma first reordered",
			input: "Smith, John",
			want:  "john smith",
		},
		{
			name:  "internal whitespace collapsed",
			input: "  John    Smith  ",
			want:  "john smith",
		},
		{
			name:  "comma with extra spaces",
			input: "Smith ,  John",
			want:  "john smith",
		},
		{
			name:  "comma with empty given name",
			input: "Smith,",
			want:  "smith",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  "",
		},
		{
			name:  "multiple given names",
			input: "Smith, John Paul",
			want:  "john paul smith",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
