package utils

import "testing"

func TestDisplayNameFromAddress(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		expected string
	}{
		{
			name:     "dotted local part",
			addr:     "dana.levi@corp.example",
			expected: "Dana Levi",
		},
		{
			name:     "underscore separator",
			addr:     "noam_peretz@corp.example",
			expected: "Noam Peretz",
		},
		{
			name:     "hyphen separator",
			addr:     "mary-jane@corp.example",
			expected: "Mary Jane",
		},
		{
			name:     "initials stay upper",
			addr:     "jd.cohen@corp.example",
			expected: "JD Cohen",
		},
		{
			name:     "plus tag dropped",
			addr:     "dana.levi+calendar@corp.example",
			expected: "Dana Levi",
		},
		{
			name:     "numeric run dropped",
			addr:     "john.doe.1985@corp.example",
			expected: "John Doe",
		},
		{
			name:     "single word",
			addr:     "yossi@corp.example",
			expected: "Yossi",
		},
		{
			name:     "upper case local part",
			addr:     "DANA.LEVI@corp.example",
			expected: "Dana Levi",
		},
		{
			name:     "already a display name",
			addr:     "Dana Levi",
			expected: "Dana Levi",
		},
		{
			name:     "whitespace trimmed",
			addr:     "  yossi@corp.example  ",
			expected: "Yossi",
		},
		{
			name:     "empty",
			addr:     "",
			expected: "",
		},
		{
			name:     "digits-only local part left alone",
			addr:     "12345@corp.example",
			expected: "12345@corp.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DisplayNameFromAddress(tt.addr)
			if result != tt.expected {
				t.Errorf("DisplayNameFromAddress(%q) = %q, expected %q", tt.addr, result, tt.expected)
			}
		})
	}
}
