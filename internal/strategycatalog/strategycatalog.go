// Package strategycatalog ships a small, built-in reference set of
// StrategyDefs, loaded from an embedded YAML document, standing in for
// "the catalogue of 32 prebuilt strategy definitions" spec.md places out of
// scope as external-collaborator data (§1, §9 "Strategy catalogue"). The
// core is parametric over any conforming models.StrategyDef; this package
// just gives evaluate/backtest/compare something real to name.
package strategycatalog

import (
	_ "embed"
	"sort"
	"sync"

	yaml "gopkg.in/yaml.v3"

	"github.com/optopsy/backtest-engine/internal/models"
)

//go:embed strategies.yaml
var embeddedYAML []byte

type legDoc struct {
	Side       string   `yaml:"side"`
	OptionType string   `yaml:"option_type"`
	Qty        int      `yaml:"qty"`
	Cycle      string   `yaml:"cycle"`
	Delta      rangeDoc `yaml:"delta"`
}

type rangeDoc struct {
	Target float64 `yaml:"target"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

type strategyDoc struct {
	Name           string    `yaml:"name"`
	Category       string    `yaml:"category"`
	StrikeOrdering string    `yaml:"strike_ordering"`
	Legs           []legDoc  `yaml:"legs"`
}

// Catalog is a lookup table of built-in StrategyDefs, linear-scanned by
// name per spec §9 ("catalogue is small and fixed").
type Catalog struct {
	mu         sync.RWMutex
	strategies []models.StrategyDef
}

// Default parses the embedded strategies.yaml once into a ready-to-use
// Catalog. It panics on malformed embedded data, which would indicate a
// build-time defect rather than a runtime condition callers should handle.
func Default() *Catalog {
	c, err := Load(embeddedYAML)
	if err != nil {
		panic("strategycatalog: embedded strategies.yaml is invalid: " + err.Error())
	}
	return c
}

// Load parses a YAML document of strategy definitions into a Catalog.
func Load(data []byte) (*Catalog, error) {
	var docs []strategyDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, models.NewSchemaError("parsing strategy catalogue: %v", err)
	}

	strategies := make([]models.StrategyDef, 0, len(docs))
	for _, d := range docs {
		def, err := toStrategyDef(d)
		if err != nil {
			return nil, err
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		strategies = append(strategies, def)
	}
	return &Catalog{strategies: strategies}, nil
}

func toStrategyDef(d strategyDoc) (models.StrategyDef, error) {
	legs := make([]models.LegDef, len(d.Legs))
	for i, l := range d.Legs {
		side, err := toSide(l.Side)
		if err != nil {
			return models.StrategyDef{}, err
		}
		optType, err := toOptionType(l.OptionType)
		if err != nil {
			return models.StrategyDef{}, err
		}
		cycle, err := toCycle(l.Cycle)
		if err != nil {
			return models.StrategyDef{}, err
		}
		legs[i] = models.LegDef{
			Side:       side,
			OptionType: optType,
			Qty:        l.Qty,
			Cycle:      cycle,
			Delta:      models.TargetRange{Target: l.Delta.Target, Min: l.Delta.Min, Max: l.Delta.Max},
		}
	}

	ordering, err := toStrikeOrdering(d.StrikeOrdering)
	if err != nil {
		return models.StrategyDef{}, err
	}

	return models.StrategyDef{
		Name:           d.Name,
		Category:       d.Category,
		Legs:           legs,
		StrikeOrdering: ordering,
	}, nil
}

func toSide(s string) (models.Side, error) {
	switch s {
	case "long":
		return models.Long, nil
	case "short":
		return models.Short, nil
	default:
		return 0, models.NewSchemaError("unrecognised leg side %q", s)
	}
}

func toOptionType(s string) (models.OptionType, error) {
	switch s {
	case "call":
		return models.Call, nil
	case "put":
		return models.Put, nil
	default:
		return "", models.NewSchemaError("unrecognised option_type %q", s)
	}
}

func toCycle(s string) (models.Cycle, error) {
	switch s {
	case "", "primary":
		return models.Primary, nil
	case "secondary":
		return models.Secondary, nil
	default:
		return "", models.NewSchemaError("unrecognised leg cycle %q", s)
	}
}

func toStrikeOrdering(s string) (models.StrikeOrdering, error) {
	switch s {
	case "ascending":
		return models.Ascending, nil
	case "none":
		return models.NoStrikeRule, nil
	default:
		return "", models.NewSchemaError("unrecognised strike_ordering %q", s)
	}
}

// Get looks up a strategy by name. Lookup is a linear scan, acceptable for
// the catalogue's small, fixed size (§9).
func (c *Catalog) Get(name string) (models.StrategyDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.strategies {
		if s.Name == name {
			return s, nil
		}
	}
	return models.StrategyDef{}, models.NewStrategyNotFoundError(name)
}

// List returns every catalogued strategy, sorted by name for determinism.
func (c *Catalog) List() []models.StrategyDef {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := append([]models.StrategyDef(nil), c.strategies...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
