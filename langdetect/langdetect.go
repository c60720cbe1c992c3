// Package langdetect provides the language detection boundary used by the
// pipeline's auto-detect flow.
package langdetect

import (
	"errors"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// ErrUndetermined reports text whose language could not be guessed.
var ErrUndetermined = errors.New("langdetect: language could not be determined")

// Detector returns a best-guess lowercase ISO 639-1 code for the given text.
// Implementations do not retry; the caller decides fallback behavior.
type Detector interface {
	Detect(text string) (string, error)
}

// Lingua detects languages with a statistical n-gram model. The candidate set
// is restricted to the languages the recognition engine has a mapping for.
type Lingua struct {
	detector lingua.LanguageDetector
}

// NewLingua builds a detector over the pipeline's supported languages.
func NewLingua() *Lingua {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.Chinese,
			lingua.Japanese,
			lingua.Korean,
			lingua.French,
			lingua.German,
			lingua.Spanish,
			lingua.Italian,
			lingua.Portuguese,
			lingua.Russian,
			lingua.Arabic,
			lingua.Vietnamese,
			lingua.Thai,
		).
		Build()
	return &Lingua{detector: detector}
}

// Detect implements Detector.
func (l *Lingua) Detect(text string) (string, error) {
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", ErrUndetermined
	}
	return strings.ToLower(lang.IsoCode639_1().String()), nil
}
