// Package features derives the model input matrix from a sales panel:
// calendar attributes, per-entity lag and rolling-mean statistics, grouped
// historical means learned from the training partition, and dense integer
// encodings of the entity identifiers.
//
// Every derivation is deterministic and strictly backward-looking. Statistics
// learned at fit time are frozen into an Artifacts value and reused unchanged
// by every later transform, so features computed at training time and at
// inference time are reproducible from the same inputs.
package features

import (
	"fmt"
	"math"

	"github.com/HatiCode/salescast/pkg/dataset"
)

// FeatureFrame holds one feature row per panel record, aligned positionally
// with the panel that produced it. A key absent from a row means the feature
// is undefined there (e.g. a lag with insufficient history).
type FeatureFrame struct {
	Rows []map[string]float64
}

// Matrix assembles the frame into a dense matrix with one column per name in
// cols, in order. Undefined values become NaN. The column list is the
// canonical one from Columns, so training and inference always request an
// identical layout.
func (f *FeatureFrame) Matrix(cols []string) [][]float64 {
	out := make([][]float64, len(f.Rows))
	for i, row := range f.Rows {
		vec := make([]float64, len(cols))
		for j, c := range cols {
			if v, ok := row[c]; ok {
				vec[j] = v
			} else {
				vec[j] = math.NaN()
			}
		}
		out[i] = vec
	}
	return out
}

// InsufficientHistoryError reports that no rows survived the lag/rolling
// completeness filter on a prediction run.
type InsufficientHistoryError struct {
	Dropped int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("no predictable rows survived feature engineering (%d dropped for missing lag history)", e.Dropped)
}

// DropIncomplete removes rows missing any of the required lag/rolling
// features, together with the corresponding panel records, and reports how
// many were dropped. Rows without enough history cannot be predicted.
func DropIncomplete(frame *FeatureFrame, panel *dataset.Panel, required []string) (*FeatureFrame, *dataset.Panel, int) {
	keptRows := make([]map[string]float64, 0, len(frame.Rows))
	keptRecs := make([]dataset.Record, 0, len(panel.Records))
	dropped := 0

	for i, row := range frame.Rows {
		complete := true
		for _, c := range required {
			if _, ok := row[c]; !ok {
				complete = false
				break
			}
		}
		if !complete {
			dropped++
			continue
		}
		keptRows = append(keptRows, row)
		keptRecs = append(keptRecs, panel.Records[i])
	}

	return &FeatureFrame{Rows: keptRows},
		&dataset.Panel{Records: keptRecs, Exog: append([]string(nil), panel.Exog...)},
		dropped
}
