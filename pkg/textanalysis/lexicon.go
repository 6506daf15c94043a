package textanalysis

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var builtinLexicon []byte

// Lexicon is the raw, editable form of the word lists the analyzer scores
// against. [New] compiles it into immutable lookup tables; changing a Lexicon
// after that has no effect on the analyzer.
type Lexicon struct {
	// Positive and Negative are the fixed polarity lists used for the
	// auxiliary lexicon score (exact, case-insensitive token match).
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`

	// Negators invert the valence of the token that immediately follows them.
	Negators []string `yaml:"negators"`

	// Valence maps words to an AFINN-style score in [-5, 5]. Keys are stemmed
	// when the analyzer is built.
	Valence map[string]int `yaml:"valence"`

	// StopWords are never reported as keywords.
	StopWords []string `yaml:"stop_words"`

	Emotions EmotionWords `yaml:"emotions"`

	// Languages is evaluated in order; the first language wins a tie.
	Languages []LanguageWords `yaml:"languages"`

	// QuestionWords mark a text as a question when it starts with one.
	QuestionWords []string `yaml:"question_words"`
}

// EmotionWords holds the word list for each emotion category.
type EmotionWords struct {
	Joy     []string `yaml:"joy"`
	Anger   []string `yaml:"anger"`
	Fear    []string `yaml:"fear"`
	Sadness []string `yaml:"sadness"`
}

// LanguageWords holds the common-word list used to detect one language.
type LanguageWords struct {
	Code  Language `yaml:"code"`
	Words []string `yaml:"words"`
}

// DefaultLexicon returns a fresh copy of the built-in lexicon.
func DefaultLexicon() (*Lexicon, error) {
	lex, err := LoadLexicon(bytes.NewReader(builtinLexicon))
	if err != nil {
		return nil, fmt.Errorf("textanalysis: builtin lexicon: %w", err)
	}
	return lex, nil
}

// LoadLexiconFile reads and validates a YAML lexicon from path.
func LoadLexiconFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("textanalysis: open lexicon %q: %w", path, err)
	}
	defer f.Close()

	lex, err := LoadLexicon(f)
	if err != nil {
		return nil, fmt.Errorf("textanalysis: lexicon %q: %w", path, err)
	}
	return lex, nil
}

// LoadLexicon decodes a YAML lexicon from r and validates it. Unknown keys are
// rejected so that a typo cannot silently drop a required list.
func LoadLexicon(r io.Reader) (*Lexicon, error) {
	lex := &Lexicon{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(lex); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: empty document: %w", ErrMissingResource)
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return lex, nil
}

// Validate reports every required list that is missing or empty. Each failure
// wraps [ErrMissingResource].
func (l *Lexicon) Validate() error {
	if l == nil {
		return fmt.Errorf("lexicon is nil: %w", ErrMissingResource)
	}

	var errs []error
	required := func(name string, n int) {
		if n == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrMissingResource))
		}
	}

	required("positive", len(l.Positive))
	required("negative", len(l.Negative))
	required("negators", len(l.Negators))
	required("valence", len(l.Valence))
	required("stop_words", len(l.StopWords))
	required("emotions.joy", len(l.Emotions.Joy))
	required("emotions.anger", len(l.Emotions.Anger))
	required("emotions.fear", len(l.Emotions.Fear))
	required("emotions.sadness", len(l.Emotions.Sadness))
	required("languages", len(l.Languages))
	required("question_words", len(l.QuestionWords))

	seen := make(map[Language]int, len(l.Languages))
	for i, lang := range l.Languages {
		if lang.Code == "" {
			errs = append(errs, fmt.Errorf("languages[%d].code is required", i))
			continue
		}
		if prev, ok := seen[lang.Code]; ok {
			errs = append(errs, fmt.Errorf("languages[%d].code %q is a duplicate of languages[%d]", i, lang.Code, prev))
		}
		seen[lang.Code] = i
		required(fmt.Sprintf("languages[%d].words", i), len(lang.Words))
	}

	for word, v := range l.Valence {
		if v < -5 || v > 5 {
			errs = append(errs, fmt.Errorf("valence[%q] = %d is out of range [-5, 5]", word, v))
		}
	}

	return errors.Join(errs...)
}
