package features

import (
	"github.com/HatiCode/salescast/pkg/dataset"
)

// TrailingHistory returns the last n records of each entity's series, in
// panel order. It is persisted with the training artifacts so inference can
// compute lag features for rows that arrive without history, and so missing
// exogenous values can be carried forward. n is normally the largest
// configured lag or rolling window.
func TrailingHistory(p *dataset.Panel, n int) []dataset.Record {
	var out []dataset.Record

	start := 0
	for i := 0; i <= len(p.Records); i++ {
		if i < len(p.Records) && sameEntity(p.Records[i], p.Records[start]) {
			continue
		}
		series := p.Records[start:i]
		if len(series) > n {
			series = series[len(series)-n:]
		}
		out = append(out, series...)
		start = i
	}
	return out
}

// CarryForward fills exogenous columns that are missing from the panel's
// records using each entity's most recent value in the persisted history.
// History records all predate inference rows, so fills never look forward,
// and the target is never a candidate for filling.
//
// Entities that have no history at all are returned so the caller can
// surface them; their rows stay unfilled rather than being zero-filled.
func CarryForward(p *dataset.Panel, history []dataset.Record, schema dataset.Schema) []dataset.Entity {
	// Most recent record wins; history is sorted by (entity, date).
	last := make(map[dataset.Entity]dataset.Record)
	for _, r := range history {
		last[dataset.Entity{Agency: r.Agency, SKU: r.SKU}] = r
	}

	missing := make(map[dataset.Entity]bool)
	var missingOrder []dataset.Entity

	for i := range p.Records {
		rec := &p.Records[i]
		ent := dataset.Entity{Agency: rec.Agency, SKU: rec.SKU}

		src, hasHistory := last[ent]
		for _, col := range schema.Exog {
			if _, ok := rec.Exog[col]; ok {
				continue
			}
			if !hasHistory {
				if !missing[ent] {
					missing[ent] = true
					missingOrder = append(missingOrder, ent)
				}
				continue
			}
			if v, ok := src.Exog[col]; ok {
				if rec.Exog == nil {
					rec.Exog = make(map[string]float64, len(schema.Exog))
				}
				rec.Exog[col] = v
			}
		}
	}
	return missingOrder
}
