package retrieval

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TokenSet is an ordered sequence of normalized, stemmed word tokens.
type TokenSet []string

// Normalize produces the canonical form of a string: diacritics folded to
// their base letters, lowercased, everything outside [a-z0-9 ] stripped,
// whitespace collapsed. Normalize is idempotent.
func Normalize(text string) string {
	decomposed := norm.NFD.String(text)

	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining mark left over from decomposition; dropping it is
			// what folds é to e.
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(r + ('a' - 'A'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
		default:
			sb.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

// Tokenize splits the canonical form of text into stemmed tokens. Stemming
// is a minimal plural/singular merge: trailing "ies" becomes "y", a trailing
// "s" not preceded by another "s" is dropped.
func Tokenize(text string) TokenSet {
	fields := strings.Fields(Normalize(text))
	tokens := make(TokenSet, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, stem(f))
	}
	return tokens
}

func stem(token string) string {
	if len(token) > 3 && strings.HasSuffix(token, "ies") {
		return token[:len(token)-3] + "y"
	}
	if len(token) > 1 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return token[:len(token)-1]
	}
	return token
}
