package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPageScenario(t *testing.T) {
	got := Clean("   PAGE 1   \nHello   World!!!  \n---\n")
	assert.Equal(t, "hello world", got)
}

func TestCleanEmptyInput(t *testing.T) {
	assert.Equal(t, "", Clean(""))
	assert.Equal(t, "", Clean("   \n\t  \n"))
	assert.Equal(t, "", RemoveExtraWhitespace("  \t "))
	assert.Equal(t, "", RemoveSpecialCharacters(" "))
	assert.Equal(t, "", RemoveHeadersFooters("\n\n"))
	assert.Equal(t, "", NormalizeText("   "))
}

func TestRemoveExtraWhitespace(t *testing.T) {
	assert.Equal(t, "a b\nc", RemoveExtraWhitespace("a \t b\n\n\nc"))
}

func TestRemoveSpecialCharacters(t *testing.T) {
	assert.Equal(t, "report: 42 done", RemoveSpecialCharacters("report: 42% done©"))
	// Single sentence punctuation survives, decorative runs do not.
	assert.Equal(t, "Done! Really", RemoveSpecialCharacters("Done! Really??"))
}

func TestRemoveHeadersFooters(t *testing.T) {
	in := "Page 12\nreal content here\n3\n=====\nmore content"
	assert.Equal(t, "real content here\nmore content", RemoveHeadersFooters(in))
}

func TestNormalizeText(t *testing.T) {
	// NFKD decomposes accented letters into base letter + combining mark.
	assert.Contains(t, NormalizeText("Résumé"), "sum")
	assert.Equal(t, "abc", NormalizeText("ABC"))
}

func TestCleanIsDeterministic(t *testing.T) {
	in := "Some   MIXED case\ninput -- with 3 lines\n7\n"
	assert.Equal(t, Clean(in), Clean(in))
}
