package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"us national", "(415) 555-2671", "+14155552671"},
		{"already e164", "+14155552671", "+14155552671"},
		{"international", "+55 11 91234-5678", "+5511912345678"},
		{"whitespace trimmed", "  +14155552671  ", "+14155552671"},
		{"empty", "", ""},
		{"unparseable returns input", "not a number", "not a number"},
		{"invalid returns input", "+1 555 000", "+1 555 000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
