package domain

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// PriceTier applies UnitPrice to quantities of at least MinQty.
type PriceTier struct {
	MinQty    int             `json:"minQty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type OptionGroup struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Options is the typed view of the product options blob.
type Options struct {
	Tiers   []PriceTier   `json:"tiers"`
	Options []OptionGroup `json:"options"`
}

// ParseOptions reads the options blob. Malformed or empty input yields an empty view.
func ParseOptions(raw []byte) Options {
	var opts Options
	if len(raw) == 0 {
		return opts
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return Options{}
	}

	tiers := opts.Tiers[:0]
	for _, t := range opts.Tiers {
		if t.MinQty <= 0 || t.UnitPrice.IsNegative() {
			continue
		}
		tiers = append(tiers, t)
	}
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinQty < tiers[j].MinQty })
	opts.Tiers = tiers

	groups := opts.Options[:0]
	for _, g := range opts.Options {
		if g.Name == "" {
			continue
		}
		groups = append(groups, g)
	}
	opts.Options = groups
	return opts
}

// ValidOptions reports whether raw is acceptable for storage.
func ValidOptions(raw []byte) bool {
	if len(raw) == 0 {
		return true
	}
	var opts Options
	return json.Unmarshal(raw, &opts) == nil
}

// UnitPriceFor returns the price of the highest tier whose MinQty <= qty, else base.
func (o Options) UnitPriceFor(base decimal.Decimal, qty int) decimal.Decimal {
	price := base
	for _, t := range o.Tiers {
		if t.MinQty > qty {
			break
		}
		price = t.UnitPrice
	}
	return price
}

// UnitPriceFor resolves the tiered unit price of the product for qty.
func (p Product) UnitPriceFor(qty int) decimal.Decimal {
	return ParseOptions(p.Options).UnitPriceFor(p.Price, qty)
}
