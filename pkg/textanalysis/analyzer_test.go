package textanalysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"

	"github.com/MrWong99/earshot/pkg/textanalysis"
)

func newAnalyzer(t *testing.T) *textanalysis.Analyzer {
	t.Helper()
	a, err := textanalysis.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	return a
}

func analyze(t *testing.T, a *textanalysis.Analyzer, text string) *textanalysis.Annotation {
	t.Helper()
	ann, err := a.Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("Analyze(%q): %v", text, err)
	}
	return ann
}

func TestAnalyze_EmptyInput(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		ann := analyze(t, a, text)

		if ann.Statistics.WordCount != 0 || ann.Statistics.SentenceCount != 0 {
			t.Errorf("%q: statistics = %+v, want zero", text, ann.Statistics)
		}
		if ann.Statistics.AverageWordsPerSentence != 0 {
			t.Errorf("%q: averageWordsPerSentence = %v, want 0", text, ann.Statistics.AverageWordsPerSentence)
		}
		if ann.Sentiment.Score != 0 || ann.Sentiment.Comparative != 0 || ann.Sentiment.Confidence != 0 {
			t.Errorf("%q: sentiment = %+v, want zero", text, ann.Sentiment)
		}
		if ann.Sentiment.Label != textanalysis.LabelNeutral {
			t.Errorf("%q: label = %q, want neutral", text, ann.Sentiment.Label)
		}
		if ann.Emotions != (textanalysis.Emotions{}) {
			t.Errorf("%q: emotions = %+v, want zero", text, ann.Emotions)
		}
		if ann.Keywords == nil || len(ann.Keywords) != 0 {
			t.Errorf("%q: keywords = %#v, want empty non-nil", text, ann.Keywords)
		}
		if ann.IsQuestion {
			t.Errorf("%q: isQuestion = true, want false", text)
		}
		if ann.Language != textanalysis.LanguageEnglish {
			t.Errorf("%q: language = %q, want en", text, ann.Language)
		}
	}
}

func TestAnalyze_EmptyInputJSON(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	data, err := json.Marshal(analyze(t, a, ""))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"sentiment":{"score":0,"comparative":0,"label":"neutral","confidence":0},` +
		`"entities":{"people":[],"places":[],"organizations":[],"dates":[]},` +
		`"keywords":[],"emotions":{"joy":0,"anger":0,"fear":0,"sadness":0},` +
		`"statistics":{"wordCount":0,"sentenceCount":0,"averageWordsPerSentence":0},` +
		`"isQuestion":false,"language":"en"}`
	if string(data) != want {
		t.Errorf("JSON =\n%s\nwant\n%s", data, want)
	}
}

func TestAnalyze_PositiveQuestionExample(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	ann := analyze(t, a, "John Smith went to Paris yesterday. Is this great?")

	if !ann.IsQuestion {
		t.Error("isQuestion = false, want true")
	}
	if !slices.Contains(ann.Entities.People, "John Smith") {
		t.Errorf("people = %v, want to contain John Smith", ann.Entities.People)
	}
	if !slices.Contains(ann.Entities.Places, "Paris") {
		t.Errorf("places = %v, want to contain Paris", ann.Entities.Places)
	}
	if !slices.Contains(ann.Entities.Dates, "yesterday") {
		t.Errorf("dates = %v, want to contain yesterday", ann.Entities.Dates)
	}
	if ann.Sentiment.Label != textanalysis.LabelPositive {
		t.Errorf("label = %q (score %v), want positive", ann.Sentiment.Label, ann.Sentiment.Score)
	}
	if ann.Statistics.WordCount != 9 {
		t.Errorf("wordCount = %d, want 9", ann.Statistics.WordCount)
	}
	if ann.Statistics.SentenceCount != 2 {
		t.Errorf("sentenceCount = %d, want 2", ann.Statistics.SentenceCount)
	}
	if ann.Statistics.AverageWordsPerSentence != 4.5 {
		t.Errorf("averageWordsPerSentence = %v, want 4.5", ann.Statistics.AverageWordsPerSentence)
	}
	if ann.Language != textanalysis.LanguageEnglish {
		t.Errorf("language = %q, want en", ann.Language)
	}
}

func TestAnalyze_NegativeExample(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	ann := analyze(t, a, "I hate this terrible awful day")

	if ann.Sentiment.Label != textanalysis.LabelNegative {
		t.Errorf("label = %q (score %v), want negative", ann.Sentiment.Label, ann.Sentiment.Score)
	}
	if ann.Emotions.Sadness <= 0 && ann.Emotions.Anger <= 0 {
		t.Errorf("emotions = %+v, want sadness or anger > 0", ann.Emotions)
	}
	if ann.Sentiment.Confidence <= 0 || ann.Sentiment.Confidence > 1 {
		t.Errorf("confidence = %v, want in (0, 1]", ann.Sentiment.Confidence)
	}
}

func TestAnalyze_SentimentBounds(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	texts := []string{
		"outstanding superb thrilled",
		"worst worst worst awful terrible hate",
		"ok",
		"The meeting is at noon.",
	}
	for _, text := range texts {
		s := analyze(t, a, text).Sentiment
		if s.Score < -1 || s.Score > 1 {
			t.Errorf("%q: score = %v, want within [-1, 1]", text, s.Score)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			t.Errorf("%q: confidence = %v, want within [0, 1]", text, s.Confidence)
		}
		switch {
		case s.Score > 0.1 && s.Label != textanalysis.LabelPositive,
			s.Score < -0.1 && s.Label != textanalysis.LabelNegative,
			s.Score >= -0.1 && s.Score <= 0.1 && s.Label != textanalysis.LabelNeutral:
			t.Errorf("%q: label %q does not match score %v", text, s.Label, s.Score)
		}
	}
}

func TestAnalyze_NeutralConfidence(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	s := analyze(t, a, "The meeting is at noon").Sentiment
	if s.Label != textanalysis.LabelNeutral {
		t.Fatalf("label = %q, want neutral", s.Label)
	}
	if s.Score != 0 || s.Confidence != 1 {
		t.Errorf("score, confidence = %v, %v; want 0, 1", s.Score, s.Confidence)
	}
}

func TestAnalyze_Negation(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	plain := analyze(t, a, "this is good").Sentiment.Score
	for _, text := range []string{
		"this is not good",
		"this isn't good",
		"this isn\u2019t good",
	} {
		if negated := analyze(t, a, text).Sentiment.Score; negated >= plain {
			t.Errorf("%q: negated score %v >= plain score %v", text, negated, plain)
		}
	}

	ascii := analyze(t, a, "I don't like it")
	curly := analyze(t, a, "I don\u2019t like it")
	if curly.Sentiment != ascii.Sentiment {
		t.Errorf("curly apostrophe sentiment %+v, want %+v", curly.Sentiment, ascii.Sentiment)
	}
	if len(curly.Keywords) != 0 {
		t.Errorf("keywords = %q, negators are stop words", curly.Keywords)
	}
}

func TestAnalyze_PositiveWordsNeverDecreaseScore(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	positive := []string{"good", "great", "excellent", "amazing", "wonderful", "fantastic", "love", "like", "happy", "pleased"}
	bases := []string{
		"the weather today is bad and I feel tired",
		"we shipped the release",
		"outstanding superb work",
	}

	for _, base := range bases {
		for _, word := range positive {
			text := base
			prev := analyze(t, a, text).Sentiment.Score
			for i := 0; i < 5; i++ {
				text += " " + word
				score := analyze(t, a, text).Sentiment.Score
				if score < prev {
					t.Errorf("%q: score dropped from %v to %v", text, prev, score)
				}
				prev = score
			}
		}
	}
}

func TestAnalyze_Keywords(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "frequency then first occurrence",
			text: "apple banana apple cherry banana apple date",
			want: []string{"apple", "banana", "cherry", "date"},
		},
		{
			name: "short and stop words dropped",
			text: "I would really like the red car about now",
			want: []string{},
		},
		{
			name: "capped at ten",
			text: "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima mike",
			want: []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel", "india", "juliet"},
		},
		{
			name: "case folded",
			text: "Kubernetes kubernetes KUBERNETES cluster",
			want: []string{"kubernetes", "cluster"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := analyze(t, a, tc.text).Keywords
			if !slices.Equal(got, tc.want) {
				t.Errorf("keywords = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAnalyze_KeywordsNeverStopWords(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)
	lex, err := textanalysis.DefaultLexicon()
	if err != nil {
		t.Fatalf("DefaultLexicon: %v", err)
	}

	text := "there would have been something about their other yourselves which themselves " +
		"could never explain because between those moments everything changed"
	ann := analyze(t, a, text)
	if len(ann.Keywords) > 10 {
		t.Errorf("len(keywords) = %d, want <= 10", len(ann.Keywords))
	}
	for _, kw := range ann.Keywords {
		if slices.Contains(lex.StopWords, kw) {
			t.Errorf("keyword %q is a stop word", kw)
		}
	}
}

func TestAnalyze_Entities(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	tests := []struct {
		name string
		text string
		get  func(textanalysis.Entities) []string
		want []string
	}{
		{
			name: "people deduplicated",
			text: "John Smith called and then John Smith called again.",
			get:  func(e textanalysis.Entities) []string { return e.People },
			want: []string{"John Smith"},
		},
		{
			name: "places after prepositions",
			text: "We flew from New York to Paris and stayed in Paris",
			get:  func(e textanalysis.Entities) []string { return e.Places },
			want: []string{"New York", "Paris"},
		},
		{
			name: "organizations with legal suffix",
			text: "She left Acme Corp and joined Globex Corporation last year.",
			get:  func(e textanalysis.Entities) []string { return e.Organizations },
			want: []string{"Acme Corp", "Globex Corporation"},
		},
		{
			name: "dates of every kind",
			text: "Meet me on March 5, 2024 or 12/25/2023, maybe tomorrow or next week. Tomorrow works.",
			get:  func(e textanalysis.Entities) []string { return e.Dates },
			want: []string{"March 5, 2024", "12/25/2023", "tomorrow", "next week", "Tomorrow"},
		},
		{
			name: "nothing capitalised",
			text: "nothing to see here",
			get:  func(e textanalysis.Entities) []string { return e.People },
			want: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.get(analyze(t, a, tc.text).Entities)
			if !slices.Equal(got, tc.want) {
				t.Errorf("entities = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAnalyze_Language(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	tests := []struct {
		text string
		want textanalysis.Language
	}{
		{"the cat is on the mat", textanalysis.LanguageEnglish},
		{"el gato es muy bonito y la casa", textanalysis.LanguageSpanish},
		{"le chat et la souris", textanalysis.LanguageFrench},
		{"der Hund und die Katze", textanalysis.LanguageGerman},
		{"in", textanalysis.LanguageEnglish},          // en and de tie; en comes first
		{"xyzzy plugh", textanalysis.LanguageEnglish}, // no overlap
	}

	for _, tc := range tests {
		if got := analyze(t, a, tc.text).Language; got != tc.want {
			t.Errorf("language(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestAnalyze_Question(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	tests := []struct {
		text string
		want bool
	}{
		{"What time is it", true},
		{"  how are you doing", true},
		{"Is it raining", true},
		{"tell me more?", true},
		{"?", true},
		{"What's your name", true},
		{"How's the weather", true},
		{"who\u2019s coming tonight", true},
		{"Island hopping sounds fun", false},
		{"Isabel's car is red", false},
		{"I went home.", false},
	}

	for _, tc := range tests {
		if got := analyze(t, a, tc.text).IsQuestion; got != tc.want {
			t.Errorf("isQuestion(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestAnalyze_Emotions(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	ann := analyze(t, a, "I am so scared and worried about the exam results this afternoon for my whole class")
	// 2 fear words out of 16 tokens: 2/16*10 saturates at 1.
	if ann.Emotions.Fear != 1 {
		t.Errorf("fear = %v, want 1", ann.Emotions.Fear)
	}

	ann = analyze(t, a, "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen happy")
	// 1 joy word out of 20 tokens.
	if math.Abs(ann.Emotions.Joy-0.5) > 1e-9 {
		t.Errorf("joy = %v, want 0.5", ann.Emotions.Joy)
	}
	if ann.Emotions.Anger != 0 {
		t.Errorf("anger = %v, want 0", ann.Emotions.Anger)
	}
}

func TestAnalyze_WordCountMatchesTokenizer(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	for _, text := range []string{
		"Hello, world!",
		"It's 3.14 degrees -- isn't it?",
		"Grüße aus München, sagte José.",
		"...",
	} {
		ann := analyze(t, a, text)
		if want := len(textanalysis.Tokenize(text)); ann.Statistics.WordCount != want {
			t.Errorf("%q: wordCount = %d, want %d", text, ann.Statistics.WordCount, want)
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)
	text := "Maria Lopez from Acme Inc met Tom Baker in Berlin on 3/4/2024. Was it a great day? We love it!"

	first, err := json.Marshal(analyze(t, a, text))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	b := newAnalyzer(t)
	for i := 0; i < 20; i++ {
		got, err := json.Marshal(analyze(t, b, text))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(got) != string(first) {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestAnalyze_ConcurrentUse(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)
	text := "Alice Walker flew to Lisbon today. I love it!"

	want, _ := json.Marshal(analyze(t, a, text))

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ann, err := a.Analyze(context.Background(), text)
			if err != nil {
				errs <- err.Error()
				return
			}
			got, _ := json.Marshal(ann)
			if string(got) != string(want) {
				errs <- string(got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("concurrent result differs: %s", e)
	}
}

func TestAnalyze_MissingTables(t *testing.T) {
	t.Parallel()

	for name, a := range map[string]*textanalysis.Analyzer{
		"nil":        nil,
		"zero value": {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Analyze(context.Background(), "hello")
			var aerr *textanalysis.AnalysisError
			if !errors.As(err, &aerr) {
				t.Fatalf("err = %v, want *AnalysisError", err)
			}
			if !errors.Is(err, textanalysis.ErrMissingResource) {
				t.Errorf("err = %v, want wrapping ErrMissingResource", err)
			}
		})
	}
}

func TestAnalyze_CancelledContext(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Analyze(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNew_RejectsIncompleteLexicon(t *testing.T) {
	t.Parallel()

	lex, err := textanalysis.DefaultLexicon()
	if err != nil {
		t.Fatalf("DefaultLexicon: %v", err)
	}
	lex.StopWords = nil
	lex.Emotions.Fear = nil

	_, err = textanalysis.New(lex)
	if !errors.Is(err, textanalysis.ErrMissingResource) {
		t.Fatalf("err = %v, want ErrMissingResource", err)
	}
}
