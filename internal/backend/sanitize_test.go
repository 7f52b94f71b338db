// ABOUTME: Tests for ANSI escape stripping
// ABOUTME: Verifies sanitization removes terminal sequences and is idempotent

package backend

import "testing"

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text unchanged", "hello world", "hello world"},
		{"empty string", "", ""},
		{"color codes", "\x1b[31mred\x1b[0m text", "red text"},
		{"bold and reset", "\x1b[1mbold\x1b[22m", "bold"},
		{"cursor movement", "\x1b[2Kcleared line", "cleared line"},
		{"multiple sequences", "\x1b[32m\x1b[1mgreen bold\x1b[0m\x1b[0m", "green bold"},
		{"parameterized", "\x1b[38;5;196mdeep red\x1b[0m", "deep red"},
		{"newlines preserved", "line1\n\x1b[33mline2\x1b[0m\n", "line1\nline2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripANSI(tt.in)
			if got != tt.want {
				t.Errorf("StripANSI(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripANSI_Idempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"\x1b[31mred\x1b[0m",
		"mixed \x1b[1mtext\x1b[0m here",
	}
	for _, in := range inputs {
		once := StripANSI(in)
		twice := StripANSI(once)
		if once != twice {
			t.Errorf("StripANSI not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
