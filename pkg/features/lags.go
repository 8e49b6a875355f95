package features

import (
	"fmt"

	"github.com/HatiCode/salescast/pkg/dataset"
)

// LagColumn returns the feature name for a lag horizon, e.g. volume_lag_3.
func LagColumn(lag int) string {
	return fmt.Sprintf("%s_lag_%d", dataset.ColVolume, lag)
}

// RollingColumn returns the feature name for a rolling-mean window,
// e.g. volume_rolling_mean_6.
func RollingColumn(window int) string {
	return fmt.Sprintf("%s_rolling_mean_%d", dataset.ColVolume, window)
}

// AddLagFeatures writes lag and rolling-mean features into the frame, one
// row per panel record.
//
// Within each entity's date-ordered series, volume_lag_L at position t is
// the target at position t-L, undefined while fewer than L prior
// observations exist. volume_rolling_mean_W at position t is the mean of the
// W targets ending at t-1: the window is taken over the shifted-by-one
// series so the current observation never contributes to its own feature.
// It is undefined until the window is full.
//
// The panel must be sorted by (agency, sku, date); unsorted input corrupts
// lag alignment silently, so it is rejected instead.
func AddLagFeatures(frame *FeatureFrame, panel *dataset.Panel, lags, windows []int) error {
	if !panel.IsSorted() {
		return &dataset.SchemaError{Reason: "panel must be sorted by (agency, sku, date) before lag computation"}
	}
	if len(frame.Rows) != len(panel.Records) {
		return fmt.Errorf("frame has %d rows but panel has %d records", len(frame.Rows), len(panel.Records))
	}

	start := 0
	for i := 0; i <= len(panel.Records); i++ {
		if i < len(panel.Records) && sameEntity(panel.Records[i], panel.Records[start]) {
			continue
		}
		series := panel.Records[start:i]
		for pos := range series {
			row := frame.Rows[start+pos]
			for _, lag := range lags {
				if pos-lag >= 0 {
					row[LagColumn(lag)] = series[pos-lag].Volume
				}
			}
			for _, w := range windows {
				if pos-w >= 0 {
					sum := 0.0
					for k := pos - w; k < pos; k++ {
						sum += series[k].Volume
					}
					row[RollingColumn(w)] = sum / float64(w)
				}
			}
		}
		start = i
	}
	return nil
}

func sameEntity(a, b dataset.Record) bool {
	return a.Agency == b.Agency && a.SKU == b.SKU
}

// LagColumns returns the feature names produced by AddLagFeatures for the
// given configuration, lags first, in order.
func LagColumns(lags, windows []int) []string {
	out := make([]string, 0, len(lags)+len(windows))
	for _, l := range lags {
		out = append(out, LagColumn(l))
	}
	for _, w := range windows {
		out = append(out, RollingColumn(w))
	}
	return out
}
