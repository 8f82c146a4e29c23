package ingest

import "strings"

// DetectDelimiter picks the candidate that occurs most often in line.
//
// Candidates are checked in the fixed order "," ";" "\t" "|". The first
// candidate with the highest count wins, so ties resolve to the earlier
// one and a line with no candidate at all resolves to ",".
func DetectDelimiter(line string) string {
	best := delimiterCandidates[0]
	bestN := -1
	for _, c := range delimiterCandidates {
		if n := strings.Count(line, c); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// ValidDelimiter reports whether s is a delimiter setting Parse understands:
// one of the candidates, "auto", empty, or the spellings `\t` and "tab".
func ValidDelimiter(s string) bool {
	switch s {
	case "", DelimiterAuto, DelimiterComma, DelimiterSemicolon, DelimiterTab, DelimiterPipe, `\t`, "tab":
		return true
	}
	return false
}

// resolveDelimiter returns the configured delimiter, or detects one from
// the first line when it is "auto" or empty. Parse itself stays lenient:
// values rejected by ValidDelimiter fall back to detection too.
func resolveDelimiter(configured, firstLine string) string {
	switch configured {
	case DelimiterComma, DelimiterSemicolon, DelimiterTab, DelimiterPipe:
		return configured
	case `\t`, "tab":
		return DelimiterTab
	default:
		return DetectDelimiter(firstLine)
	}
}
