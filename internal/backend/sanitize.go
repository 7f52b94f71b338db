// ABOUTME: Output sanitization shared by both backend modes
// ABOUTME: Strips ANSI/terminal escape sequences from backend replies

package backend

import "regexp"

// Matches CSI and related terminal escape sequences (colors, cursor moves,
// OSC-style prefixes) as emitted by CLI harnesses.
var ansiEscape = regexp.MustCompile("[][[()#;?]*(?:[0-9]{1,4}(?:;[0-9]{0,4})*)?[0-9A-ORZcf-nqry=><]")

// StripANSI removes terminal escape sequences from s. Idempotent: applying
// it to an already-clean string returns the string unchanged.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}
