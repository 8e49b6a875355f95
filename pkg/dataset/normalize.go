package dataset

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Row is a single raw observation as produced by an ingestion adapter.
// Values may be strings (CSV) or already-typed numbers (JSON sources).
type Row map[string]any

// Table is raw tabular input before normalization. Columns preserves the
// source column order so exogenous ordering stays deterministic.
type Table struct {
	Columns []string
	Rows    []Row
}

// bookkeepingColumns are index or identifier columns that carry no signal and
// are removed before normalization.
var bookkeepingColumns = map[string]bool{
	"":           true,
	"index":      true,
	"timeseries": true,
}

// dateLayouts are the accepted date formats, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// NormalizeOptions control how a raw table becomes a panel.
type NormalizeOptions struct {
	// PlaceholderVolume makes a missing or empty target column legal and
	// substitutes zero. Used for inference rows that have no target yet;
	// training input must never set this.
	PlaceholderVolume bool
}

// Normalize parses a raw table into a sorted panel.
//
// It drops bookkeeping columns, parses dates and numeric fields, sorts by
// (agency, sku, date) and rejects input with missing targets or duplicate
// keys. Exogenous columns are every column that is not agency, sku, date or
// volume, kept in source order.
func Normalize(t *Table, opts NormalizeOptions) (*Panel, error) {
	if t == nil || len(t.Rows) == 0 {
		return nil, &SchemaError{Reason: "input table is empty"}
	}

	var exog []string
	for _, c := range t.Columns {
		if bookkeepingColumns[c] || c == ColAgency || c == ColSKU || c == ColDate || c == ColVolume {
			continue
		}
		exog = append(exog, c)
	}

	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		agency, ok := stringField(row, ColAgency)
		if !ok {
			return nil, &SchemaError{Reason: fmt.Sprintf("row %d: missing %q column", i, ColAgency)}
		}
		sku, ok := stringField(row, ColSKU)
		if !ok {
			return nil, &SchemaError{Reason: fmt.Sprintf("row %d: missing %q column", i, ColSKU)}
		}

		date, err := parseDate(row[ColDate])
		if err != nil {
			return nil, err
		}

		volume, ok, err := numericField(row, ColVolume)
		if err != nil {
			return nil, err
		}
		if !ok || math.IsNaN(volume) {
			if !opts.PlaceholderVolume {
				return nil, &SchemaError{Reason: fmt.Sprintf("row %d: missing value in target column %q", i, ColVolume)}
			}
			volume = 0
		}

		rec := Record{Agency: agency, SKU: sku, Date: date, Volume: volume}
		for _, c := range exog {
			v, present, err := numericField(row, c)
			if err != nil {
				return nil, err
			}
			if present {
				if rec.Exog == nil {
					rec.Exog = make(map[string]float64, len(exog))
				}
				rec.Exog[c] = v
			}
		}
		records = append(records, rec)
	}

	p := &Panel{Records: records, Exog: exog}
	p.Sort()

	for i := 1; i < len(p.Records); i++ {
		a, b := p.Records[i-1], p.Records[i]
		if a.Agency == b.Agency && a.SKU == b.SKU && a.Date.Equal(b.Date) {
			return nil, &SchemaError{Reason: fmt.Sprintf(
				"duplicate key (%s, %s, %s)", a.Agency, a.SKU, a.Date.Format("2006-01-02"))}
		}
	}

	return p, nil
}

func stringField(row Row, key string) (string, bool) {
	v, ok := row[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func parseDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, nil
			}
		}
		return time.Time{}, &ParseError{Field: ColDate, Value: val, Err: fmt.Errorf("unrecognized date format")}
	case nil:
		return time.Time{}, &SchemaError{Reason: fmt.Sprintf("missing %q column", ColDate)}
	default:
		return time.Time{}, &ParseError{Field: ColDate, Value: fmt.Sprint(val), Err: fmt.Errorf("unsupported type %T", v)}
	}
}

// numericField returns (value, present, error). Empty strings count as absent,
// which is how CSV sources represent nulls.
func numericField(row Row, key string) (float64, bool, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		return val, true, nil
	case float32:
		return float64(val), true, nil
	case int:
		return float64(val), true, nil
	case int64:
		return float64(val), true, nil
	case string:
		if val == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false, &ParseError{Field: key, Value: val, Err: err}
		}
		return f, true, nil
	default:
		return 0, false, &ParseError{Field: key, Value: fmt.Sprint(val), Err: fmt.Errorf("unsupported type %T", v)}
	}
}

// Schema is the set of exogenous columns that survived constant-column
// elision on the training panel. It is frozen at training time and applied
// verbatim at inference so the feature layout never drifts between runs.
type Schema struct {
	Exog    []string `json:"exog"`
	Dropped []string `json:"dropped,omitempty"`
}

// FitSchema evaluates column constancy once, on the training panel, and
// returns the frozen schema. A column is constant when every record carries
// the same value (absent counts as one distinct value).
func FitSchema(p *Panel) Schema {
	var s Schema
	for _, c := range p.Exog {
		if isConstant(p, c) {
			s.Dropped = append(s.Dropped, c)
			continue
		}
		s.Exog = append(s.Exog, c)
	}
	return s
}

func isConstant(p *Panel, col string) bool {
	var (
		first    float64
		firstSet bool
		sawNull  bool
	)
	for _, r := range p.Records {
		v, ok := r.Exog[col]
		if !ok {
			sawNull = true
			continue
		}
		if !firstSet {
			first, firstSet = v, true
			continue
		}
		if v != first {
			return false
		}
	}
	if firstSet && sawNull {
		return false // two distinct states: the value and null
	}
	return true
}

// Apply drops the elided columns from the panel in place and orders the
// panel's exogenous list to match the schema.
func (s Schema) Apply(p *Panel) {
	keep := make(map[string]bool, len(s.Exog))
	for _, c := range s.Exog {
		keep[c] = true
	}
	for i := range p.Records {
		for c := range p.Records[i].Exog {
			if !keep[c] {
				delete(p.Records[i].Exog, c)
			}
		}
	}
	p.Exog = append([]string(nil), s.Exog...)
}
