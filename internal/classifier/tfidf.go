package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// DefaultTokenPattern matches runs of two or more word characters.
const DefaultTokenPattern = `(?u)\b\w\w+\b`

// Row normalizations. An empty Norm is l2.
const (
	NormL1   = "l1"
	NormL2   = "l2"
	NormNone = "none"
)

// wordRunPattern recognizes token patterns of the form \b\w...\w+\b, which
// tokenize as maximal word runs of a minimum length.
var wordRunPattern = regexp.MustCompile(`^\\b((?:\\w)*)\\w\+\\b$`)

// TfidfVectorizer evaluates a fitted TF-IDF model over word n-grams.
type TfidfVectorizer struct {
	Lowercase    *bool          `json:"lowercase,omitempty" yaml:"lowercase,omitempty"`
	TokenPattern string         `json:"token_pattern,omitempty" yaml:"token_pattern,omitempty"`
	NgramRange   []int          `json:"ngram_range,omitempty" yaml:"ngram_range,omitempty"`
	Vocabulary   map[string]int `json:"vocabulary" yaml:"vocabulary"`
	IDF          []float64      `json:"idf" yaml:"idf"`
	Norm         string         `json:"norm,omitempty" yaml:"norm,omitempty"`
	SublinearTF  bool           `json:"sublinear_tf,omitempty" yaml:"sublinear_tf,omitempty"`

	tokenizer func(string) []string
}

// UnmarshalJSON reads an explicit "norm": null as NormNone.
func (v *TfidfVectorizer) UnmarshalJSON(data []byte) error {
	type plain TfidfVectorizer
	if err := json.Unmarshal(data, (*plain)(v)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if norm, ok := raw["norm"]; ok && string(bytes.TrimSpace(norm)) == "null" {
		v.Norm = NormNone
	}
	return nil
}

// UnmarshalYAML reads an explicit null norm as NormNone.
func (v *TfidfVectorizer) UnmarshalYAML(node *yaml.Node) error {
	type plain TfidfVectorizer
	if err := node.Decode((*plain)(v)); err != nil {
		return err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "norm" && node.Content[i+1].ShortTag() == "!!null" {
			v.Norm = NormNone
		}
	}
	return nil
}

// Prepare validates the parameters and builds the tokenizer.
func (v *TfidfVectorizer) Prepare() error {
	if len(v.Vocabulary) == 0 {
		return fmt.Errorf("vectorizer vocabulary is empty")
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.IDF) {
			return fmt.Errorf("vocabulary term %q has index %d outside idf of length %d", term, idx, len(v.IDF))
		}
	}
	lo, hi := v.ngramRange()
	if lo < 1 || hi < lo {
		return fmt.Errorf("invalid ngram range [%d, %d]", lo, hi)
	}
	switch v.Norm {
	case "", NormL1, NormL2, NormNone:
	default:
		return fmt.Errorf("unsupported norm %q", v.Norm)
	}
	tokenizer, err := newTokenizer(v.TokenPattern)
	if err != nil {
		return err
	}
	v.tokenizer = tokenizer
	return nil
}

// Features is the dimension of vectors produced by Transform.
func (v *TfidfVectorizer) Features() int {
	return len(v.IDF)
}

func (v *TfidfVectorizer) Transform(text string) (Vector, error) {
	if v.tokenizer == nil {
		if err := v.Prepare(); err != nil {
			return nil, err
		}
	}
	if v.Lowercase == nil || *v.Lowercase {
		text = strings.ToLower(text)
	}
	tokens := v.tokenizer(text)

	x := make(Vector)
	lo, hi := v.ngramRange()
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			idx, ok := v.Vocabulary[strings.Join(tokens[i:i+n], " ")]
			if ok {
				x[idx]++
			}
		}
	}

	for idx, tf := range x {
		if v.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		x[idx] = tf * v.IDF[idx]
	}
	normalize(x, v.Norm)
	return x, nil
}

func (v *TfidfVectorizer) ngramRange() (int, int) {
	if len(v.NgramRange) != 2 {
		return 1, 1
	}
	return v.NgramRange[0], v.NgramRange[1]
}

// newTokenizer builds a tokenizer with unicode-aware \w and \d. Word
// boundaries are only supported around a single word run.
func newTokenizer(pattern string) (func(string) []string, error) {
	body := strings.TrimPrefix(pattern, "(?u)")
	if body == "" {
		body = strings.TrimPrefix(DefaultTokenPattern, "(?u)")
	}
	if m := wordRunPattern.FindStringSubmatch(body); m != nil {
		minLen := strings.Count(m[1], `\w`) + 1
		return func(text string) []string {
			return wordTokens(text, minLen)
		}, nil
	}

	translated, err := unicodeClasses(body)
	if err != nil {
		return nil, fmt.Errorf("token pattern %q: %w", pattern, err)
	}
	re, err := regexp.Compile(translated)
	if err != nil {
		return nil, fmt.Errorf("compile token pattern: %w", err)
	}
	return func(text string) []string {
		return re.FindAllString(text, -1)
	}, nil
}

// unicodeClasses rewrites \w, \W, \d and \D to their unicode forms.
func unicodeClasses(pattern string) (string, error) {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			i++
			switch next := pattern[i]; next {
			case 'w':
				if inClass {
					b.WriteString(`\p{L}\p{N}_`)
				} else {
					b.WriteString(`[\p{L}\p{N}_]`)
				}
			case 'W':
				if inClass {
					return "", fmt.Errorf("\\W inside a character class is not supported")
				}
				b.WriteString(`[^\p{L}\p{N}_]`)
			case 'd':
				b.WriteString(`\p{Nd}`)
			case 'D':
				b.WriteString(`\P{Nd}`)
			case 'b', 'B':
				return "", fmt.Errorf("word boundary \\%c is only supported as \\b\\w+\\b", next)
			default:
				b.WriteByte(c)
				b.WriteByte(next)
			}
		case c == '[' && !inClass:
			inClass = true
			b.WriteByte(c)
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
				b.WriteByte('^')
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
				b.WriteString(`\]`)
			}
		case c == ']' && inClass:
			inClass = false
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// wordTokens splits on non-word runes and keeps tokens of at least minLen
// runes. Word runes are letters, numbers and underscore.
func wordTokens(text string, minLen int) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func normalize(x Vector, norm string) {
	var total float64
	switch norm {
	case NormNone:
		return
	case NormL1:
		for _, val := range x {
			total += math.Abs(val)
		}
	default:
		for _, val := range x {
			total += val * val
		}
		total = math.Sqrt(total)
	}
	if total == 0 {
		return
	}
	for idx, val := range x {
		x[idx] = val / total
	}
}
