package textanalysis

// Label classifies the overall polarity of a text.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// Language is an ISO 639-1 code of a language the detector knows about.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
	LanguageFrench  Language = "fr"
	LanguageGerman  Language = "de"
)

// DefaultLanguage is reported when no known language scores above zero.
const DefaultLanguage = LanguageEnglish

// Annotation is the structured result of analysing one text. A fresh value is
// returned by every [Analyzer.Analyze] call and is never touched by the
// analyzer afterwards; callers own it.
//
// The JSON encoding is the wire format consumed by the transcript UI.
type Annotation struct {
	Sentiment  Sentiment  `json:"sentiment"`
	Entities   Entities   `json:"entities"`
	Keywords   []string   `json:"keywords"`
	Emotions   Emotions   `json:"emotions"`
	Statistics Statistics `json:"statistics"`
	IsQuestion bool       `json:"isQuestion"`
	Language   Language   `json:"language"`
}

// Sentiment holds the polarity score of a text and its derived label.
type Sentiment struct {
	// Score is the mean of the stemmed valence score and the fixed-lexicon
	// score. Always within [-1, 1].
	Score float64 `json:"score"`

	// Comparative is Score divided by the word count (minimum 1).
	Comparative float64 `json:"comparative"`

	Label Label `json:"label"`

	// Confidence is in [0, 1]. For a positive or negative label it grows with
	// |Score|; for neutral it shrinks with |Score|.
	Confidence float64 `json:"confidence"`
}

// Entities lists named mentions found by pattern matching. Each list is
// deduplicated and keeps the order of first occurrence.
type Entities struct {
	People        []string `json:"people"`
	Places        []string `json:"places"`
	Organizations []string `json:"organizations"`
	Dates         []string `json:"dates"`
}

// Emotions scores four emotion categories in [0, 1].
type Emotions struct {
	Joy     float64 `json:"joy"`
	Anger   float64 `json:"anger"`
	Fear    float64 `json:"fear"`
	Sadness float64 `json:"sadness"`
}

// Statistics holds simple counts over the text.
type Statistics struct {
	WordCount               int     `json:"wordCount"`
	SentenceCount           int     `json:"sentenceCount"`
	AverageWordsPerSentence float64 `json:"averageWordsPerSentence"`
}

// emptyAnnotation returns the annotation of a text without any words.
func emptyAnnotation() *Annotation {
	return &Annotation{
		Sentiment: Sentiment{Label: LabelNeutral},
		Entities: Entities{
			People:        []string{},
			Places:        []string{},
			Organizations: []string{},
			Dates:         []string{},
		},
		Keywords: []string{},
		Language: DefaultLanguage,
	}
}
