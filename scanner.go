package trickle

import "strings"

// Thinking-region markers. Literal, case-sensitive, non-nesting.
const (
	StartMarker = "<think>"
	EndMarker   = "</think>"
)

// MaxResidue is the upper bound on the carried-over residue between
// scans: one byte short of the longest marker.
const MaxResidue = len(EndMarker) - 1

// ScanResult is the output of one incremental scan.
type ScanResult struct {
	Main           string // span to append to the visible answer
	Thinking       string // span to append to the reasoning trace
	Residue        string // possible-marker suffix carried to the next scan
	InsideThinking bool
}

// Scan splits one incoming fragment into main and thinking spans,
// carrying marker state across fragment boundaries. residue and inside
// are the values returned by the previous call (zero values for the
// first fragment). Scan is total: it never fails, whatever the input.
//
// A stray EndMarker outside a thinking region and a StartMarker inside
// one are both treated as literal text. Malformed model output is
// common enough that raising a diagnostic here would hurt more than it
// helps.
func Scan(residue string, inside bool, fragment string) ScanResult {
	text := residue + fragment
	var main, thinking strings.Builder

	for {
		if !inside {
			if i := strings.Index(text, StartMarker); i >= 0 {
				main.WriteString(text[:i])
				text = text[i+len(StartMarker):]
				inside = true
				continue
			}
			hold := markerPrefixLen(text, StartMarker)
			main.WriteString(text[:len(text)-hold])
			text = text[len(text)-hold:]
			break
		}
		if i := strings.Index(text, EndMarker); i >= 0 {
			thinking.WriteString(text[:i])
			text = text[i+len(EndMarker):]
			inside = false
			continue
		}
		hold := markerPrefixLen(text, EndMarker)
		thinking.WriteString(text[:len(text)-hold])
		text = text[len(text)-hold:]
		break
	}

	return ScanResult{
		Main:           main.String(),
		Thinking:       thinking.String(),
		Residue:        text,
		InsideThinking: inside,
	}
}

// markerPrefixLen returns the length of the longest suffix of text that
// is a proper prefix of marker. Such a suffix must be held back as
// residue: the next fragment may complete the marker.
func markerPrefixLen(text, marker string) int {
	limit := len(marker) - 1
	if len(text) < limit {
		limit = len(text)
	}
	for n := limit; n > 0; n-- {
		if strings.HasPrefix(marker, text[len(text)-n:]) {
			return n
		}
	}
	return 0
}
