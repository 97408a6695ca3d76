package publish

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxPublishContent bounds the scraped content forwarded to the webhook so
// downstream email automation never chokes on megabyte payloads.
const MaxPublishContent = 50000

// asciiFold decomposes accented characters so their base letter survives the
// ASCII filter, then removes everything outside ASCII.
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Sanitize makes text safe for the automation webhook: accents fold to
// their base letters, remaining non-ASCII and non-printable characters are
// dropped (newlines and tabs survive), and the result is capped at
// MaxPublishContent bytes.
func Sanitize(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		// Fold failures keep the original text; the printable filter below
		// still applies.
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r < 32 || r == 127 || r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}

	out := b.String()
	if len(out) > MaxPublishContent {
		out = out[:MaxPublishContent]
	}
	return out
}
