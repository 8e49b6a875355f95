package features

import (
	"fmt"

	"github.com/HatiCode/salescast/pkg/dataset"
)

// Historical-mean feature names.
const (
	FeatMeanAgencySKUMonth = "mean_volume_agency_sku_month"
	FeatMeanAgencySKU      = "mean_volume_agency_sku"
	FeatMeanSKUMonth       = "mean_volume_sku_month"
)

// MeansTables holds the grouped historical mean statistics learned from the
// training partition. The tables are frozen after FitMeans and are never
// recomputed from data being transformed: recomputing from the target set
// would leak information the model is not supposed to have.
//
// Keys are composed with keyJoin, so agency and sku identifiers must not
// contain the '|' separator.
type MeansTables struct {
	ByAgencySKUMonth map[string]float64 `json:"by_agency_sku_month"`
	ByAgencySKU      map[string]float64 `json:"by_agency_sku"`
	BySKUMonth       map[string]float64 `json:"by_sku_month"`

	// GlobalMean is the mean target over the whole reference panel, used as
	// the fallback when imputation of unmatched joins is enabled.
	GlobalMean float64 `json:"global_mean"`
}

func agencySKUMonthKey(agency, sku string, month int) string {
	return fmt.Sprintf("%s|%s|%d", agency, sku, month)
}

func agencySKUKey(agency, sku string) string {
	return fmt.Sprintf("%s|%s", agency, sku)
}

func skuMonthKey(sku string, month int) string {
	return fmt.Sprintf("%s|%d", sku, month)
}

// FitMeans computes the three grouped mean tables from a reference panel:
// mean volume by (agency, sku, calendar month), by (agency, sku), and by
// (sku, calendar month) for cross-agency seasonality.
func FitMeans(p *dataset.Panel) *MeansTables {
	type acc struct {
		sum float64
		n   int
	}
	byASM := make(map[string]*acc)
	byAS := make(map[string]*acc)
	bySM := make(map[string]*acc)

	var total float64
	add := func(m map[string]*acc, key string, v float64) {
		a := m[key]
		if a == nil {
			a = &acc{}
			m[key] = a
		}
		a.sum += v
		a.n++
	}

	for _, r := range p.Records {
		month := int(r.Date.Month())
		add(byASM, agencySKUMonthKey(r.Agency, r.SKU, month), r.Volume)
		add(byAS, agencySKUKey(r.Agency, r.SKU), r.Volume)
		add(bySM, skuMonthKey(r.SKU, month), r.Volume)
		total += r.Volume
	}

	finish := func(m map[string]*acc) map[string]float64 {
		out := make(map[string]float64, len(m))
		for k, a := range m {
			out[k] = a.sum / float64(a.n)
		}
		return out
	}

	t := &MeansTables{
		ByAgencySKUMonth: finish(byASM),
		ByAgencySKU:      finish(byAS),
		BySKUMonth:       finish(bySM),
	}
	if len(p.Records) > 0 {
		t.GlobalMean = total / float64(len(p.Records))
	}
	return t
}

// AddMeanFeatures left-joins the precomputed tables onto the frame by their
// grouping keys. Rows whose key never appeared in the reference panel are
// left undefined, or filled with the reference global mean when impute is
// set. The choice is recorded in the artifacts so fit and transform stay
// consistent.
func (t *MeansTables) AddMeanFeatures(frame *FeatureFrame, panel *dataset.Panel, impute bool) {
	set := func(row map[string]float64, feat string, v float64, ok bool) {
		switch {
		case ok:
			row[feat] = v
		case impute:
			row[feat] = t.GlobalMean
		}
	}

	for i, r := range panel.Records {
		row := frame.Rows[i]
		month := int(r.Date.Month())

		v, ok := t.ByAgencySKUMonth[agencySKUMonthKey(r.Agency, r.SKU, month)]
		set(row, FeatMeanAgencySKUMonth, v, ok)

		v, ok = t.ByAgencySKU[agencySKUKey(r.Agency, r.SKU)]
		set(row, FeatMeanAgencySKU, v, ok)

		v, ok = t.BySKUMonth[skuMonthKey(r.SKU, month)]
		set(row, FeatMeanSKUMonth, v, ok)
	}
}

func meanColumns() []string {
	return []string{FeatMeanAgencySKUMonth, FeatMeanAgencySKU, FeatMeanSKUMonth}
}
