// Package dataset defines the sales panel: time-ordered volume records keyed
// by (agency, sku, date), plus the normalization, schema and temporal-split
// operations every downstream stage relies on.
//
// The ordering invariant matters: lag and rolling features are computed
// positionally within each entity's series, so the panel is kept sorted by
// (agency, sku, date) from normalization onward and consumers may assert it.
package dataset

import (
	"sort"
	"time"
)

// Standard column names shared across the loaders and the feature pipeline.
const (
	ColAgency = "agency"
	ColSKU    = "sku"
	ColDate   = "date"
	ColVolume = "volume"
)

// Record is a single observation: one (agency, sku) series at one date.
// Exog holds the named numeric covariates that came with the dataset
// (e.g. avg_max_temp, price_actual, discount_in_percent).
type Record struct {
	Agency string             `json:"agency"`
	SKU    string             `json:"sku"`
	Date   time.Time          `json:"date"`
	Volume float64            `json:"volume"`
	Exog   map[string]float64 `json:"exog,omitempty"`
}

// Entity identifies one sales series.
type Entity struct {
	Agency string `json:"agency"`
	SKU    string `json:"sku"`
}

// Panel is a normalized collection of records sorted by (agency, sku, date).
// Exog lists the exogenous column names present on the records, in a fixed
// order so feature assembly is deterministic.
type Panel struct {
	Records []Record
	Exog    []string
}

// Len returns the number of records in the panel.
func (p *Panel) Len() int { return len(p.Records) }

// Sort orders the records by (agency, sku, date).
func (p *Panel) Sort() {
	sort.SliceStable(p.Records, func(i, j int) bool {
		a, b := p.Records[i], p.Records[j]
		if a.Agency != b.Agency {
			return a.Agency < b.Agency
		}
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		return a.Date.Before(b.Date)
	})
}

// IsSorted reports whether the records are ordered by (agency, sku, date).
func (p *Panel) IsSorted() bool {
	for i := 1; i < len(p.Records); i++ {
		a, b := p.Records[i-1], p.Records[i]
		if a.Agency != b.Agency {
			if a.Agency > b.Agency {
				return false
			}
			continue
		}
		if a.SKU != b.SKU {
			if a.SKU > b.SKU {
				return false
			}
			continue
		}
		if b.Date.Before(a.Date) {
			return false
		}
	}
	return true
}

// Entities returns the distinct (agency, sku) pairs in panel order.
func (p *Panel) Entities() []Entity {
	seen := make(map[Entity]bool)
	var out []Entity
	for _, r := range p.Records {
		e := Entity{Agency: r.Agency, SKU: r.SKU}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// Agencies returns the distinct agency identifiers in panel order.
func (p *Panel) Agencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range p.Records {
		if !seen[r.Agency] {
			seen[r.Agency] = true
			out = append(out, r.Agency)
		}
	}
	return out
}

// SKUs returns the distinct SKU identifiers in panel order.
func (p *Panel) SKUs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range p.Records {
		if !seen[r.SKU] {
			seen[r.SKU] = true
			out = append(out, r.SKU)
		}
	}
	return out
}

// MaxDate returns the latest date in the panel, or the zero time if empty.
func (p *Panel) MaxDate() time.Time {
	var max time.Time
	for _, r := range p.Records {
		if r.Date.After(max) {
			max = r.Date
		}
	}
	return max
}

// MinDate returns the earliest date in the panel, or the zero time if empty.
func (p *Panel) MinDate() time.Time {
	var min time.Time
	for i, r := range p.Records {
		if i == 0 || r.Date.Before(min) {
			min = r.Date
		}
	}
	return min
}
