package plan

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultCurrency is used when a definition leaves it blank
const DefaultCurrency = "NGN"

// Catalog maps plan types to their definitions
type Catalog struct {
	plans map[Type]Definition
}

// DefaultCatalog returns the built-in price list
func DefaultCatalog() *Catalog {
	return &Catalog{plans: map[Type]Definition{
		TypeTrial:      {Type: TypeTrial, Name: "Free Trial", Minutes: 60, AmountMinor: 0, Currency: DefaultCurrency},
		TypeBasic:      {Type: TypeBasic, Name: "Basic", Minutes: 500, AmountMinor: 2900, Currency: DefaultCurrency},
		TypePro:        {Type: TypePro, Name: "Pro", Minutes: 5000, AmountMinor: 7900, Currency: DefaultCurrency},
		TypeEnterprise: {Type: TypeEnterprise, Name: "Enterprise", Minutes: 50000, AmountMinor: 19900, Currency: DefaultCurrency},
	}}
}

type catalogFile struct {
	Plans []Definition `toml:"plans"`
}

// LoadCatalog reads overrides from a TOML file on top of the defaults.
// An empty path returns the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog: %w", err)
	}
	if err := c.merge(raw); err != nil {
		return nil, fmt.Errorf("parse plan catalog %s: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) merge(raw []byte) error {
	var file catalogFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return err
	}
	for _, def := range file.Plans {
		if !def.Type.Valid() {
			return fmt.Errorf("unknown plan type %q", def.Type)
		}
		if def.Minutes < 0 || def.AmountMinor < 0 {
			return fmt.Errorf("plan %q: minutes and amount must not be negative", def.Type)
		}
		if def.Currency == "" {
			def.Currency = DefaultCurrency
		}
		if def.Name == "" {
			def.Name = c.plans[def.Type].Name
		}
		c.plans[def.Type] = def
	}
	return nil
}

// Get returns the definition for t
func (c *Catalog) Get(t Type) (Definition, bool) {
	def, ok := c.plans[t]
	return def, ok
}

// Minutes returns the allotment for t, zero for unknown plans
func (c *Catalog) Minutes(t Type) int64 {
	return c.plans[t].Minutes
}

// List returns all definitions in ascending price order
func (c *Catalog) List() []Definition {
	out := make([]Definition, 0, len(Types))
	for _, t := range Types {
		if def, ok := c.plans[t]; ok {
			out = append(out, def)
		}
	}
	return out
}
