package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile("[^a-z0-9]+")

var translitMap = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
	'ß': "ss", 'æ': "ae", 'ø': "o", 'œ': "oe", 'ł': "l",
}

// GenerateSlug lower-cases text, strips accents and collapses every run of
// characters outside [a-z0-9] into a single hyphen.
func GenerateSlug(text string) string {
	text = transliterate(strings.ToLower(text))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	text, _, _ = transform.String(t, text)

	text = nonSlugChars.ReplaceAllString(text, "-")
	return strings.Trim(text, "-")
}

// SlugOrDefault is GenerateSlug with a fallback for text that has no
// slug-able characters.
func SlugOrDefault(text, fallback string) string {
	if slug := GenerateSlug(text); slug != "" {
		return slug
	}
	return fallback
}

func transliterate(text string) string {
	var result strings.Builder
	result.Grow(len(text))
	for _, char := range text {
		if replacement, ok := translitMap[char]; ok {
			result.WriteString(replacement)
		} else {
			result.WriteRune(char)
		}
	}
	return result.String()
}
