package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	multiSpaceRe   = regexp.MustCompile(` {2,}`)
	multiNewlineRe = regexp.MustCompile(`\n{2,}`)
	disallowedRe   = regexp.MustCompile(`[^a-zA-Z0-9.,!?;:'"()\-\n ]`)
	punctRunRe     = regexp.MustCompile(`[.!?]{2,}`)
	pageMarkerRe   = regexp.MustCompile(`^(page\s*)?\d+$`)
	separatorRe    = regexp.MustCompile(`^[-_=#]{3,}$`)
)

// RemoveExtraWhitespace collapses tabs and runs of spaces to a single
// space and runs of blank lines to a single newline.
func RemoveExtraWhitespace(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\t", " ")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = multiNewlineRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// RemoveSpecialCharacters strips everything outside the allow-list of
// letters, digits and common punctuation. Runs of two or more terminal
// punctuation marks ("!!!", "...", "??") are decorative and dropped whole.
func RemoveSpecialCharacters(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = disallowedRe.ReplaceAllString(text, "")
	text = punctRunRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// RemoveHeadersFooters drops lines that are bare page-number markers
// ("3", "Page 3") or decorative separator runs ("-----").
func RemoveHeadersFooters(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		stripped := strings.ToLower(strings.TrimSpace(line))
		if pageMarkerRe.MatchString(stripped) {
			continue
		}
		if separatorRe.MatchString(stripped) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// NormalizeText applies Unicode compatibility decomposition (NFKD) and
// lowercases the result.
func NormalizeText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = norm.NFKD.String(text)
	return strings.TrimSpace(strings.ToLower(text))
}

// Clean applies every cleaning stage in fixed order. It is pure and
// deterministic; empty or whitespace-only input yields "" at every stage.
func Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = RemoveExtraWhitespace(text)
	text = RemoveSpecialCharacters(text)
	text = RemoveHeadersFooters(text)
	return NormalizeText(text)
}
