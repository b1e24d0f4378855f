package assist

import (
	"strings"
	"unicode"

	"github.com/marcelojr/inspireboard/internal/domain"
)

// Fallback derives a person record from raw input without any remote help.
// It always succeeds: strip a leading @, collapse whitespace for the handle,
// title-case the words for the display name, default the category.
func Fallback(input string) domain.NormalizedPerson {
	clean := strings.TrimSpace(input)
	bare := strings.TrimSpace(strings.TrimPrefix(clean, "@"))

	return domain.NormalizedPerson{
		DisplayName: titleCase(bare),
		Handle:      CleanHandle(clean),
		Category:    defaultCategory,
	}
}

// CleanHandle normalizes a handle: no leading @, no inner whitespace, lowercase.
func CleanHandle(raw string) string {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
	collapsed := strings.Join(strings.Fields(trimmed), "")
	return strings.ToLower(collapsed)
}

func titleCase(text string) string {
	words := strings.Fields(text)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
