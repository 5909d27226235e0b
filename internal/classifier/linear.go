package classifier

import "fmt"

// LinearPredictor scores each class with coef·x + intercept and returns the
// best one. A single coefficient row is a binary model over Classes[0:2].
type LinearPredictor struct {
	Classes   []string    `json:"classes" yaml:"classes"`
	Coef      [][]float64 `json:"coef" yaml:"coef"`
	Intercept []float64   `json:"intercept" yaml:"intercept"`
}

func (p *LinearPredictor) Validate(features int) error {
	if len(p.Classes) < 2 {
		return fmt.Errorf("predictor needs at least 2 classes, got %d", len(p.Classes))
	}
	binary := len(p.Classes) == 2 && len(p.Coef) == 1
	if !binary && len(p.Coef) != len(p.Classes) {
		return fmt.Errorf("predictor has %d coefficient rows for %d classes", len(p.Coef), len(p.Classes))
	}
	if len(p.Intercept) != len(p.Coef) {
		return fmt.Errorf("predictor has %d intercepts for %d coefficient rows", len(p.Intercept), len(p.Coef))
	}
	for i, row := range p.Coef {
		if len(row) != features {
			return fmt.Errorf("coefficient row %d has %d columns, want %d", i, len(row), features)
		}
	}
	return nil
}

func (p *LinearPredictor) Predict(x Vector) (string, error) {
	if len(p.Coef) == 0 || len(p.Intercept) != len(p.Coef) {
		return "", fmt.Errorf("predictor is not fitted")
	}

	if len(p.Coef) == 1 {
		if len(p.Classes) != 2 {
			return "", fmt.Errorf("binary predictor needs 2 classes, got %d", len(p.Classes))
		}
		if p.score(0, x) > 0 {
			return p.Classes[1], nil
		}
		return p.Classes[0], nil
	}

	best := 0
	bestScore := p.score(0, x)
	for k := 1; k < len(p.Coef); k++ {
		if s := p.score(k, x); s > bestScore {
			best, bestScore = k, s
		}
	}
	if best >= len(p.Classes) {
		return "", fmt.Errorf("class index %d out of range", best)
	}
	return p.Classes[best], nil
}

func (p *LinearPredictor) score(k int, x Vector) float64 {
	row := p.Coef[k]
	s := p.Intercept[k]
	for idx, val := range x {
		if idx < len(row) {
			s += row[idx] * val
		}
	}
	return s
}
