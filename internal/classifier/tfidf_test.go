package classifier

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func assertVector(t *testing.T, got, want Vector) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("vector = %v, want %v", got, want)
	}
	for idx, w := range want {
		if g, ok := got[idx]; !ok || math.Abs(g-w) > 1e-4 {
			t.Fatalf("vector = %v, want %v", got, want)
		}
	}
}

func TestWordTokensKeepsUnicodeLettersAndNumbers(t *testing.T) {
	got := wordTokens("x² ½½ naïve a", 1)
	if want := []string{"x²", "½½", "naïve", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("min 1: got %q, want %q", got, want)
	}
	got = wordTokens("x² ½½ naïve a", 2)
	if want := []string{"x²", "½½", "naïve"}; !reflect.DeepEqual(got, want) {
		t.Errorf("min 2: got %q, want %q", got, want)
	}
}

func TestTokenPatterns(t *testing.T) {
	tests := []struct {
		pattern string
		text    string
		want    []string
	}{
		{"", "Hi a café", []string{"Hi", "café"}},
		{DefaultTokenPattern, "Hi a café", []string{"Hi", "café"}},
		{`(?u)\b\w+\b`, "a café", []string{"a", "café"}},
		{`(?u)\b\w\w\w+\b`, "ab abc émigré", []string{"abc", "émigré"}},
		{`\w+`, "naïve-ünïcode", []string{"naïve", "ünïcode"}},
		{`[\w']+`, "don't café", []string{"don't", "café"}},
		{`\d+`, "room ٣٤ or 12", []string{"٣٤", "12"}},
		{`[^\s,]+`, "a,b c", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		tokenizer, err := newTokenizer(tt.pattern)
		if err != nil {
			t.Fatalf("pattern %q: %v", tt.pattern, err)
		}
		if got := tokenizer(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("pattern %q on %q = %q, want %q", tt.pattern, tt.text, got, tt.want)
		}
	}
}

func TestUnsupportedTokenPatternsFailToLoad(t *testing.T) {
	for _, pattern := range []string{`(?u)\b[a-z]+\b`, `[\W]+`, `\Bx`, `(`} {
		v := TfidfVectorizer{TokenPattern: pattern, Vocabulary: map[string]int{"a": 0}, IDF: []float64{1}}
		if err := v.Prepare(); err == nil {
			t.Errorf("pattern %q: expected an error", pattern)
		}
	}
}

func TestTransform(t *testing.T) {
	vocab := map[string]int{"spam": 0, "eggs": 1}
	tests := []struct {
		name string
		vec  TfidfVectorizer
		text string
		want Vector
	}{
		{
			name: "l2 by default",
			vec:  TfidfVectorizer{Vocabulary: vocab, IDF: []float64{1, 1}},
			text: "Spam spam SPAM eggs",
			want: Vector{0: 3 / math.Sqrt(10), 1: 1 / math.Sqrt(10)},
		},
		{
			name: "sublinear l1",
			vec:  TfidfVectorizer{Vocabulary: vocab, IDF: []float64{1, 1}, SublinearTF: true, Norm: NormL1},
			text: "spam spam spam eggs",
			want: Vector{0: (1 + math.Log(3)) / (2 + math.Log(3)), 1: 1 / (2 + math.Log(3))},
		},
		{
			name: "no norm",
			vec:  TfidfVectorizer{Vocabulary: vocab, IDF: []float64{2, 1}, Norm: NormNone},
			text: "spam spam spam eggs",
			want: Vector{0: 6, 1: 1},
		},
		{
			name: "case kept",
			vec:  TfidfVectorizer{Vocabulary: vocab, IDF: []float64{1, 1}, Lowercase: new(bool)},
			text: "Spam eggs",
			want: Vector{1: 1},
		},
		{
			name: "unicode custom pattern",
			vec:  TfidfVectorizer{TokenPattern: `(?u)\b\w+\b`, Vocabulary: map[string]int{"café": 0, "caf": 1}, IDF: []float64{1, 1}},
			text: "Café",
			want: Vector{0: 1},
		},
		{
			name: "unknown terms dropped",
			vec:  TfidfVectorizer{Vocabulary: vocab, IDF: []float64{1, 1}},
			text: "ham",
			want: Vector{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.vec.Transform(tt.text)
			if err != nil {
				t.Fatalf("transform: %v", err)
			}
			assertVector(t, got, tt.want)
		})
	}
}

func TestNullNormMeansNone(t *testing.T) {
	var fromJSON TfidfVectorizer
	if err := json.Unmarshal([]byte(`{"vocabulary":{"spam":0},"idf":[2],"norm":null}`), &fromJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	var fromYAML TfidfVectorizer
	if err := yaml.Unmarshal([]byte("vocabulary: {spam: 0}\nidf: [2]\nnorm: ~\n"), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	var absent TfidfVectorizer
	if err := json.Unmarshal([]byte(`{"vocabulary":{"spam":0},"idf":[2]}`), &absent); err != nil {
		t.Fatalf("decode json: %v", err)
	}

	for name, tt := range map[string]struct {
		vec  TfidfVectorizer
		want float64
	}{
		"json null":   {fromJSON, 2},
		"yaml null":   {fromYAML, 2},
		"absent norm": {absent, 1},
	} {
		x, err := tt.vec.Transform("spam")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		assertVector(t, x, Vector{0: tt.want})
	}
}

func TestUnsupportedNorm(t *testing.T) {
	v := TfidfVectorizer{Vocabulary: map[string]int{"a": 0}, IDF: []float64{1}, Norm: "max"}
	if err := v.Prepare(); err == nil {
		t.Fatal("expected an error for norm max")
	}
}

func TestLinearPredictor(t *testing.T) {
	binary := &LinearPredictor{Classes: []string{"neg", "pos"}, Coef: [][]float64{{1, -1}}, Intercept: []float64{0}}
	multi := &LinearPredictor{
		Classes:   []string{"a", "b", "c"},
		Coef:      [][]float64{{1, 0}, {1, 0}, {0, 2}},
		Intercept: []float64{0, 0, -0.5},
	}
	tests := []struct {
		name string
		p    *LinearPredictor
		x    Vector
		want string
	}{
		{"binary positive", binary, Vector{0: 1}, "pos"},
		{"binary negative", binary, Vector{1: 1}, "neg"},
		{"binary zero score", binary, Vector{}, "neg"},
		{"tie keeps first", multi, Vector{0: 1}, "a"},
		{"argmax", multi, Vector{1: 1}, "c"},
	}
	for _, tt := range tests {
		got, err := tt.p.Predict(tt.x)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}

	bad := &LinearPredictor{Classes: []string{"a", "b", "c"}, Coef: [][]float64{{1}}, Intercept: []float64{0}}
	if err := bad.Validate(1); err == nil {
		t.Error("single row for three classes should not validate")
	}
}

func TestLoadGzipAndYmlArtifacts(t *testing.T) {
	dir := t.TempDir()

	raw, err := os.ReadFile(filepath.Join("testdata", "intents.json"))
	if err != nil {
		t.Fatal(err)
	}
	gzPath := filepath.Join(dir, "intents.JSON.gz")
	f, err := os.Create(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	yml, err := os.ReadFile(filepath.Join("testdata", "intents.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	ymlPath := filepath.Join(dir, "model.yml")
	if err := os.WriteFile(ymlPath, yml, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path, text, want string
	}{
		{gzPath, "bye for now", "goodbye"},
		{ymlPath, "good night", "evening"},
	}
	for _, tt := range tests {
		a, err := LoadArtifact(tt.path)
		if err != nil {
			t.Fatalf("load %s: %v", tt.path, err)
		}
		got, err := FromArtifact(a, zap.NewNop()).Tag(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("tag: %v", err)
		}
		if got != tt.want {
			t.Errorf("%s: tag %q = %q, want %q", filepath.Base(tt.path), tt.text, got, tt.want)
		}
	}
}

func TestUnicodeArtifactEndToEnd(t *testing.T) {
	doc := `{
		"vectorizer": {"token_pattern": "(?u)\\b\\w+\\b", "vocabulary": {"café": 0, "caf": 1}, "idf": [1, 1]},
		"predictor": {"classes": ["ascii", "unicode"], "coef": [[1, -1]], "intercept": [0]},
		"intents": [{"tag": "unicode", "responses": ["oui"]}, {"tag": "ascii", "responses": ["yes"]}]
	}`
	a, err := DecodeArtifact(strings.NewReader(doc), "json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := FromArtifact(a, zap.NewNop()).Classify(context.Background(), "un café")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got != "oui" {
		t.Errorf("got %q, want oui", got)
	}
}
