package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Documented admission-gate defaults, applied to any category/city pair with
// no explicit gate configured. Ratings use the normalized 0-10 scale.
const (
	DefaultMinRating  = 7.0
	DefaultMinReviews = 30
)

// Gate is a rating/review-count threshold a discovery candidate must clear.
// A zero threshold means "use the documented default", not "no minimum":
// gates can be tightened or loosened per category/city but never disabled,
// so an unreviewed venue can never slip through a partial override.
type Gate struct {
	MinRating  float64 `yaml:"min_rating" mapstructure:"min_rating"`
	MinReviews int     `yaml:"min_reviews" mapstructure:"min_reviews"`
}

// Admit reports whether a candidate's signal clears the gate.
func (g Gate) Admit(rating float64, reviews int) bool {
	return rating >= g.MinRating && reviews >= g.MinReviews
}

// GateConfig holds admission-gate thresholds: a default, per-category
// overrides, and per-city per-category overrides.
type GateConfig struct {
	Default    Gate                       `yaml:"default" mapstructure:"default"`
	Categories map[string]Gate            `yaml:"categories" mapstructure:"categories"`
	Cities     map[string]map[string]Gate `yaml:"cities" mapstructure:"cities"`
	// File optionally points at a standalone gates.yaml merged on top of the
	// main config.
	File string `yaml:"file" mapstructure:"file"`
}

// Resolve returns the gate for a category/city pair. Precedence: city
// override, then category, then the documented defaults.
func (gc GateConfig) Resolve(category, city string) Gate {
	if byCat, ok := gc.Cities[city]; ok {
		if g, ok := byCat[category]; ok {
			return fillGate(g)
		}
	}
	if g, ok := gc.Categories[category]; ok {
		return fillGate(g)
	}
	return fillGate(gc.Default)
}

// LoadFile merges thresholds from a standalone YAML file into the config.
func (gc *GateConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read gates file %s", path)
	}

	var file GateConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return eris.Wrapf(err, "config: parse gates file %s", path)
	}

	if file.Default != (Gate{}) {
		gc.Default = file.Default
	}
	if len(file.Categories) > 0 {
		if gc.Categories == nil {
			gc.Categories = make(map[string]Gate)
		}
		for k, g := range file.Categories {
			gc.Categories[k] = g
		}
	}
	if len(file.Cities) > 0 {
		if gc.Cities == nil {
			gc.Cities = make(map[string]map[string]Gate)
		}
		for city, byCat := range file.Cities {
			if gc.Cities[city] == nil {
				gc.Cities[city] = make(map[string]Gate)
			}
			for cat, g := range byCat {
				gc.Cities[city][cat] = g
			}
		}
	}
	return nil
}

// fillGate substitutes documented defaults for zero threshold fields so a
// partial override (say, only min_reviews) keeps the default for the rest.
// The floor for a deliberately loose gate is a small positive value, never
// zero.
func fillGate(g Gate) Gate {
	if g.MinRating == 0 {
		g.MinRating = DefaultMinRating
	}
	if g.MinReviews == 0 {
		g.MinReviews = DefaultMinReviews
	}
	return g
}
