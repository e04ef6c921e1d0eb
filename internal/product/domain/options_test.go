package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseOptions(t *testing.T) {
	raw := []byte(`{
		"tiers": [{"minQty": 500, "unitPrice": 0.08}, {"minQty": 100, "unitPrice": "0.10"}, {"minQty": 0, "unitPrice": 1}],
		"options": [{"name": "Paper", "values": ["Matte", "Gloss"]}, {"name": "", "values": ["x"]}]
	}`)

	opts := ParseOptions(raw)
	if assert.Len(t, opts.Tiers, 2) {
		assert.Equal(t, 100, opts.Tiers[0].MinQty)
		assert.Equal(t, 500, opts.Tiers[1].MinQty)
	}
	assert.Len(t, opts.Options, 1)
	assert.Equal(t, []string{"Matte", "Gloss"}, opts.Options[0].Values)
}

func TestParseOptionsIsLenient(t *testing.T) {
	assert.Empty(t, ParseOptions([]byte(`not json`)).Tiers)
	assert.Empty(t, ParseOptions(nil).Options)
	assert.False(t, ValidOptions([]byte(`[1,2`)))
	assert.True(t, ValidOptions(nil))
}

func TestUnitPriceFor(t *testing.T) {
	p := Product{
		Price:   decimal.RequireFromString("0.15"),
		Options: []byte(`{"tiers":[{"minQty":100,"unitPrice":0.10},{"minQty":500,"unitPrice":0.08}]}`),
	}

	assert.Equal(t, "0.15", p.UnitPriceFor(50).String())
	assert.Equal(t, "0.1", p.UnitPriceFor(100).String())
	assert.Equal(t, "0.1", p.UnitPriceFor(499).String())
	assert.Equal(t, "0.08", p.UnitPriceFor(1000).String())
}
