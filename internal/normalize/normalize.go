// Package normalize post-processes accepted transcripts: it detects the
// transcript language and translates it into the configured target language
// when they differ. Normalization is best effort and never fails a request;
// any detection or translation problem returns the transcript unchanged.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/govorun-bot/govorun/pkg/provider/translate"
)

// DefaultMinDetectRunes is the minimum trimmed transcript length worth
// running detection on. Shorter texts carry too little signal and are
// passed through unchanged.
const DefaultMinDetectRunes = 12

// linguaByTag maps the ISO 639-1 tags accepted in configuration to their
// detector languages. Extend this table when a new cascade language is
// added.
var linguaByTag = map[string]lingua.Language{
	"uk": lingua.Ukrainian,
	"ru": lingua.Russian,
	"en": lingua.English,
	"de": lingua.German,
	"fr": lingua.French,
	"es": lingua.Spanish,
	"pl": lingua.Polish,
	"it": lingua.Italian,
	"pt": lingua.Portuguese,
}

// Result describes what normalization did to one transcript.
type Result struct {
	// Text is the normalized transcript. Always non-empty when the input
	// was non-empty.
	Text string

	// Detected is the lowercase ISO 639-1 tag of the detected language, or
	// "" when detection was skipped or inconclusive.
	Detected string

	// Translated reports whether Text is a translation of the input.
	Translated bool
}

// Option is a functional option for configuring a Normalizer.
type Option func(*Normalizer)

// WithMinDetectRunes sets the minimum trimmed rune count below which
// detection is skipped. Defaults to [DefaultMinDetectRunes].
func WithMinDetectRunes(n int) Option {
	return func(nr *Normalizer) {
		if n > 0 {
			nr.minRunes = n
		}
	}
}

// Normalizer detects transcript language among a fixed candidate set and
// translates into the target language when needed. Safe for concurrent use.
type Normalizer struct {
	detector   lingua.LanguageDetector
	translator translate.Translator
	target     string
	minRunes   int
}

// New builds a Normalizer that detects among the candidate ISO 639-1 tags
// and translates mismatches into target. The candidate set must contain at
// least two known tags and should cover every language the recognition
// order can produce; detection is only as good as the candidates it can
// choose between.
func New(target string, candidates []string, tr translate.Translator, opts ...Option) (*Normalizer, error) {
	if _, ok := linguaByTag[target]; !ok {
		return nil, fmt.Errorf("normalize: unsupported target language %q", target)
	}
	if tr == nil {
		return nil, fmt.Errorf("normalize: translator must not be nil")
	}

	langs := make([]lingua.Language, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, tag := range candidates {
		l, ok := linguaByTag[tag]
		if !ok {
			return nil, fmt.Errorf("normalize: unsupported candidate language %q", tag)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		langs = append(langs, l)
	}
	if _, ok := seen[target]; !ok {
		langs = append(langs, linguaByTag[target])
		seen[target] = struct{}{}
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("normalize: need at least two candidate languages, got %d", len(langs))
	}

	n := &Normalizer{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			Build(),
		translator: tr,
		target:     target,
		minRunes:   DefaultMinDetectRunes,
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Normalize returns text translated into the target language when it is
// confidently detected as something else, and text unchanged otherwise.
func (n *Normalizer) Normalize(ctx context.Context, text string) Result {
	res := Result{Text: text}

	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < n.minRunes {
		return res
	}

	lang, ok := n.detector.DetectLanguageOf(trimmed)
	if !ok {
		slog.Debug("language detection inconclusive, keeping transcript as is")
		return res
	}
	detected := strings.ToLower(lang.IsoCode639_1().String())
	res.Detected = detected
	if detected == n.target {
		return res
	}

	translated, err := n.translator.Translate(ctx, text, detected, n.target)
	if err != nil {
		slog.Warn("translation failed, keeping original transcript",
			"detected", detected, "target", n.target, "err", err)
		return res
	}
	if strings.TrimSpace(translated) == "" {
		return res
	}

	res.Text = translated
	res.Translated = true
	return res
}
