package classifier

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xaenox/intent-bot/internal/models"
	"gopkg.in/yaml.v3"
)

// Artifact bundles a fitted vectorizer, a fitted predictor and the intent
// table they were trained on.
type Artifact struct {
	Vectorizer TfidfVectorizer `json:"vectorizer" yaml:"vectorizer"`
	Predictor  LinearPredictor `json:"predictor" yaml:"predictor"`
	Intents    []models.Intent `json:"intents" yaml:"intents"`
}

// LoadArtifact reads a model file. The format follows the extension:
// .json, .json.gz, .yaml or .yml.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip model artifact: %w", err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	format := "json"
	if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
		format = "yaml"
	}

	a, err := DecodeArtifact(r, format)
	if err != nil {
		return nil, fmt.Errorf("load model artifact %s: %w", path, err)
	}
	return a, nil
}

// DecodeArtifact decodes and validates an artifact in the given format.
func DecodeArtifact(r io.Reader, format string) (*Artifact, error) {
	var a Artifact
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&a); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case "yaml":
		if err := yaml.NewDecoder(r).Decode(&a); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported artifact format %q", format)
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Artifact) Validate() error {
	if err := a.Vectorizer.Prepare(); err != nil {
		return fmt.Errorf("invalid vectorizer: %w", err)
	}
	if err := a.Predictor.Validate(a.Vectorizer.Features()); err != nil {
		return fmt.Errorf("invalid predictor: %w", err)
	}
	if len(a.Intents) == 0 {
		return fmt.Errorf("artifact has no intents")
	}
	for i, intent := range a.Intents {
		if intent.Tag == "" {
			return fmt.Errorf("intent %d has an empty tag", i)
		}
	}
	return nil
}

func (a *Artifact) Pipeline() Pipeline {
	return Pipeline{Vectorizer: &a.Vectorizer, Predictor: &a.Predictor}
}
