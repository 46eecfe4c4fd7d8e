package plan

// Type identifies a billing plan
type Type string

// Plan types
const (
	TypeTrial      Type = "trial"
	TypeBasic      Type = "basic"
	TypePro        Type = "pro"
	TypeEnterprise Type = "enterprise"
)

// Types lists every known plan in ascending price order.
var Types = []Type{TypeTrial, TypeBasic, TypePro, TypeEnterprise}

// Valid reports whether t is a known plan.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// IsPaid reports whether the plan is billed.
func (t Type) IsPaid() bool {
	return t.Valid() && t != TypeTrial
}

// Definition describes what a plan grants and costs
type Definition struct {
	Type        Type   `json:"type" toml:"type" yaml:"type"`
	Name        string `json:"name" toml:"name" yaml:"name"`
	Minutes     int64  `json:"minutes" toml:"minutes" yaml:"minutes"`
	AmountMinor int64  `json:"amount_minor" toml:"amount_minor" yaml:"amount_minor"`
	Currency    string `json:"currency" toml:"currency" yaml:"currency"`
}
