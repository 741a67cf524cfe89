// Package translate defines the text translation capability used by the
// language normalizer.
//
// Implementations must be safe for concurrent use.
package translate

import "context"

// Translator converts text between languages.
type Translator interface {
	// Translate returns text rendered in the target language. source and
	// target are lowercase ISO 639-1 codes; an empty source lets the
	// service detect the input language itself.
	Translate(ctx context.Context, text, source, target string) (string, error)
}
